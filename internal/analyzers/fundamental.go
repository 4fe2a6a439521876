package analyzers

import (
	"context"
	"time"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/logger"
)

var fundamentalWeights = map[string]float64{
	"valuation": 0.30,
	"quality":   0.25,
	"growth":    0.25,
	"margins":   0.20,
}

// FundamentalAnalyzer scores PE/PB valuation, ROE quality, revenue and
// profit growth, and margins from recent report snapshots.
type FundamentalAnalyzer struct {
	data   DataProvider
	logger *logger.Logger
}

// NewFundamentalAnalyzer creates the fundamental dimension analyzer.
func NewFundamentalAnalyzer(data DataProvider, log *logger.Logger) *FundamentalAnalyzer {
	return &FundamentalAnalyzer{
		data:   data,
		logger: log.WithComponent("analyzer.fundamental"),
	}
}

// Name implements Analyzer.
func (a *FundamentalAnalyzer) Name() string { return contracts.DimFundamental }

// Analyze implements Analyzer.
func (a *FundamentalAnalyzer) Analyze(ctx context.Context, code string, asOf time.Time) contracts.AnalysisResult {
	reports, err := a.data.FinancialReports(ctx, code, 4)
	if err != nil || len(reports) == 0 {
		return contracts.NeutralResult(code, contracts.DimFundamental,
			"No financial report data available")
	}

	latest := reports[0]

	components := map[string]float64{
		"valuation": scoreValuation(latest),
		"quality":   scoreQuality(latest),
		"growth":    scoreGrowth(reports),
		"margins":   scoreMargins(latest),
	}

	final := weighted(components, fundamentalWeights)
	sig := contracts.SignalFromScore(final)

	return contracts.AnalysisResult{
		StockCode:   code,
		Dimension:   contracts.DimFundamental,
		Score:       contracts.Round2(final),
		Signal:      sig,
		Confidence:  reportCoverage(reports),
		Explanation: explain(components, sig, "Bullish fundamentals", "Bearish fundamentals", "Mixed fundamentals", "neutral across dimensions"),
		Details:     components,
	}
}

// scoreValuation tiers PE, with a bonus for trading below book value.
func scoreValuation(r contracts.FinancialReport) float64 {
	score := 50.0
	if r.PERatio != nil {
		switch pe := *r.PERatio; {
		case pe < 10:
			score = 90
		case pe < 15:
			score = 75
		case pe < 25:
			score = 55
		case pe < 40:
			score = 35
		default:
			score = 15
		}
	}

	if r.PBRatio != nil && *r.PBRatio < 1 {
		score += 10
	}

	return clamp(score)
}

// scoreQuality tiers ROE.
func scoreQuality(r contracts.FinancialReport) float64 {
	if r.ROE == nil {
		return 50
	}
	switch roe := *r.ROE; {
	case roe > 20:
		return 90
	case roe > 15:
		return 75
	case roe > 10:
		return 55
	case roe > 5:
		return 35
	}
	return 15
}

// scoreGrowth compares the two latest periods' revenue and net profit.
func scoreGrowth(reports []contracts.FinancialReport) float64 {
	if len(reports) < 2 {
		return 50
	}
	rev := growthSubScore(reports[0].Revenue, reports[1].Revenue)
	profit := growthSubScore(reports[0].NetProfit, reports[1].NetProfit)
	return (rev + profit) / 2
}

func growthSubScore(current, previous *float64) float64 {
	if current == nil || previous == nil || *previous == 0 {
		return 50
	}
	growth := (*current - *previous) / abs(*previous) * 100
	switch {
	case growth > 20:
		return 85
	case growth > 10:
		return 70
	case growth > 0:
		return 50
	}
	return 25
}

// scoreMargins tiers gross margin with a debt-ratio adjustment.
func scoreMargins(r contracts.FinancialReport) float64 {
	score := 50.0
	if r.GrossMargin != nil {
		switch gm := *r.GrossMargin; {
		case gm > 50:
			score = 85
		case gm > 30:
			score = 70
		case gm > 15:
			score = 50
		default:
			score = 30
		}
	}

	if r.DebtRatio != nil {
		if *r.DebtRatio < 40 {
			score += 10
		} else if *r.DebtRatio > 70 {
			score -= 10
		}
	}

	return clamp(score)
}

// reportCoverage is the fraction of key fields disclosed across the
// available reports.
func reportCoverage(reports []contracts.FinancialReport) float64 {
	var total, present int
	for _, r := range reports {
		for _, f := range []*float64{r.PERatio, r.PBRatio, r.ROE, r.Revenue, r.NetProfit, r.GrossMargin, r.DebtRatio} {
			total++
			if f != nil {
				present++
			}
		}
	}
	if total == 0 {
		return 0
	}
	c := float64(present) / float64(total)
	if c > 1 {
		c = 1
	}
	return contracts.Round2(c)
}
