// Package analyzers holds the closed set of scoring dimensions. Every
// analyzer maps externally supplied historical data to a 0-100 score
// with a confidence; missing or partial data degrades to the neutral
// result and never surfaces an error.
package analyzers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vvnuui/cerisier/internal/contracts"
)

// Analyzer scores one dimension for one stock as of a date.
// Implementations are safe for concurrent use across stocks.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, code string, asOf time.Time) contracts.AnalysisResult
}

// DataProvider is the narrow read surface analyzers pull history
// through. Backed by the repos in production, by fixtures in tests.
// Row ordering: oldest first for time series, newest first for reports.
type DataProvider interface {
	Klines(ctx context.Context, code string, days int) ([]contracts.Kline, error)
	MoneyFlows(ctx context.Context, code string, days int) ([]contracts.MoneyFlow, error)
	MarginRows(ctx context.Context, code string, days int) ([]contracts.MarginData, error)
	FinancialReports(ctx context.Context, code string, limit int) ([]contracts.FinancialReport, error)
	News(ctx context.Context, code string, days int) ([]contracts.NewsArticle, error)
	MarketBreadth(ctx context.Context, days int) ([]contracts.MarketBreadth, error)
	Stock(ctx context.Context, code string) (contracts.StockBasic, error)
	SectorCodes(ctx context.Context, industry string) ([]string, error)
}

// NewsScorer is the AI capability the news analyzer delegates to.
type NewsScorer interface {
	AnalyzeNews(ctx context.Context, code string, articles []contracts.NewsArticle) (contracts.NewsInsight, error)
}

// FactorScorer is the AI capability the ai analyzer delegates to.
type FactorScorer interface {
	ScoreFactors(ctx context.Context, code, name string, results map[string]contracts.AnalysisResult) (contracts.FactorAssessment, error)
}

// clamp bounds a score to the [0, 100] scale.
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// weighted combines component scores under a fixed weight table.
func weighted(components, weights map[string]float64) float64 {
	var sum float64
	for k, w := range weights {
		sum += components[k] * w
	}
	return clamp(sum)
}

// explain builds the human-readable summary: the strongest components
// first, capped at three, prefixed by the overall direction.
func explain(components map[string]float64, sig contracts.Signal, bull, bear, mixed, neutral string) string {
	type entry struct {
		name  string
		score float64
	}
	entries := make([]entry, 0, len(components))
	for k, v := range components {
		entries = append(entries, entry{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		di, dj := abs(entries[i].score-50), abs(entries[j].score-50)
		if di != dj {
			return di > dj
		}
		return entries[i].name < entries[j].name
	})

	var parts []string
	for _, e := range entries {
		if e.score >= 65 {
			parts = append(parts, fmt.Sprintf("%s bullish (%.0f)", e.name, e.score))
		} else if e.score <= 35 {
			parts = append(parts, fmt.Sprintf("%s bearish (%.0f)", e.name, e.score))
		}
	}
	if len(parts) > 3 {
		parts = parts[:3]
	}

	prefix := mixed
	switch sig {
	case contracts.SignalBuy:
		prefix = bull
	case contracts.SignalSell:
		prefix = bear
	}

	detail := neutral
	if len(parts) > 0 {
		detail = strings.Join(parts, "; ")
	}
	return prefix + ": " + detail
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// halves splits a series into its first and second half averages.
// Returns ok=false when the series is too short to split.
func halves(vals []float64) (first, second float64, ok bool) {
	if len(vals) < 2 {
		return 0, 0, false
	}
	mid := len(vals) / 2
	return mean(vals[:mid]), mean(vals[mid:]), true
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// coverageConfidence maps days of available data to the standard
// confidence tiers shared by the flow-style analyzers.
func coverageConfidence(n int) float64 {
	switch {
	case n >= 15:
		return 0.9
	case n >= 10:
		return 0.7
	case n >= 5:
		return 0.5
	}
	return 0
}
