// Package scoring combines per-dimension analysis results into a
// style-weighted composite score and turns composites into actionable
// recommendations.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// weightTolerance is the allowed deviation from 1.0 for a weight table.
const weightTolerance = 1e-6

// defaultWeights are the style weight tables. Dimensions not listed
// carry weight 0 and are excluded from the composite.
var defaultWeights = map[contracts.TradingStyle]map[string]float64{
	contracts.StyleUltraShort: {
		contracts.DimTechnical:       0.40,
		contracts.DimMoneyFlow:       0.25,
		contracts.DimChip:            0.15,
		contracts.DimSentiment:       0.10,
		contracts.DimGameTheory:      0.05,
		contracts.DimBehaviorFinance: 0.05,
	},
	contracts.StyleSwing: {
		contracts.DimTechnical:       0.25,
		contracts.DimFundamental:     0.10,
		contracts.DimMoneyFlow:       0.15,
		contracts.DimChip:            0.15,
		contracts.DimSentiment:       0.10,
		contracts.DimSectorRotation:  0.10,
		contracts.DimBehaviorFinance: 0.05,
		contracts.DimAI:              0.10,
	},
	contracts.StyleMidLong: {
		contracts.DimTechnical:       0.10,
		contracts.DimFundamental:     0.25,
		contracts.DimMoneyFlow:       0.10,
		contracts.DimChip:            0.10,
		contracts.DimSentiment:       0.05,
		contracts.DimSectorRotation:  0.10,
		contracts.DimMacro:           0.05,
		contracts.DimBehaviorFinance: 0.05,
		contracts.DimGameTheory:      0.05,
		contracts.DimAI:              0.15,
	},
}

// DefaultWeights returns a deep copy of the built-in style tables.
func DefaultWeights() map[contracts.TradingStyle]map[string]float64 {
	out := make(map[contracts.TradingStyle]map[string]float64, len(defaultWeights))
	for style, table := range defaultWeights {
		out[style] = copyTable(table)
	}
	return out
}

func copyTable(table map[string]float64) map[string]float64 {
	cp := make(map[string]float64, len(table))
	for k, v := range table {
		cp[k] = v
	}
	return cp
}

// ValidateWeights checks one style table: known dimensions, no
// negative entries, sum 1.0 within tolerance.
func ValidateWeights(table map[string]float64) error {
	if len(table) == 0 {
		return fmt.Errorf("%w: empty weight table", contracts.ErrInvalidConfig)
	}

	known := make(map[string]bool, len(contracts.Dimensions))
	for _, d := range contracts.Dimensions {
		known[d] = true
	}

	var sum float64
	for dim, w := range table {
		if !known[dim] {
			return fmt.Errorf("%w: unknown dimension %q", contracts.ErrInvalidConfig, dim)
		}
		if w < 0 {
			return fmt.Errorf("%w: negative weight for %q", contracts.ErrInvalidConfig, dim)
		}
		sum += w
	}

	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %.6f, want 1.0", contracts.ErrInvalidConfig, sum)
	}
	return nil
}

// Scorer combines dimension results under a per-style weight table.
// Tables are validated at construction and immutable afterwards.
type Scorer struct {
	weights map[contracts.TradingStyle]map[string]float64
	logger  *logger.Logger
}

// NewScorer creates a scorer with the built-in weight tables.
func NewScorer(log *logger.Logger) (*Scorer, error) {
	return NewScorerWithWeights(DefaultWeights(), log)
}

// NewScorerWithWeights creates a scorer over custom tables, validating
// every style against the sum-to-one rule.
func NewScorerWithWeights(weights map[contracts.TradingStyle]map[string]float64, log *logger.Logger) (*Scorer, error) {
	for style, table := range weights {
		if !style.Valid() {
			return nil, fmt.Errorf("%w: unknown style %q", contracts.ErrInvalidConfig, style)
		}
		if err := ValidateWeights(table); err != nil {
			return nil, fmt.Errorf("style %s: %w", style, err)
		}
	}
	return &Scorer{
		weights: weights,
		logger:  log.WithComponent("scorer"),
	}, nil
}

// StyleWeights returns a copy of the table for one style.
func (s *Scorer) StyleWeights(style contracts.TradingStyle) map[string]float64 {
	return copyTable(s.weights[style])
}

// PresentWeights renormalizes the style table over the dimensions
// actually present in results, so a missing analyzer never silently
// depresses the composite.
func (s *Scorer) PresentWeights(style contracts.TradingStyle, results map[string]contracts.AnalysisResult) map[string]float64 {
	table := s.weights[style]

	var total float64
	for dim := range results {
		total += table[dim]
	}

	out := make(map[string]float64)
	if total == 0 {
		return out
	}
	for dim := range results {
		if w := table[dim]; w > 0 {
			out[dim] = w / total
		}
	}
	return out
}

// Score combines the dimension results for one stock under the style's
// renormalized weights. With no scorable dimension present the result
// is the neutral composite with confidence 0.
func (s *Scorer) Score(code string, style contracts.TradingStyle, results map[string]contracts.AnalysisResult) (contracts.ScoreResult, error) {
	if !style.Valid() {
		return contracts.ScoreResult{}, fmt.Errorf("%w: unknown style %q", contracts.ErrInvalidConfig, style)
	}

	normalized := s.PresentWeights(style, results)

	if len(normalized) == 0 {
		return contracts.ScoreResult{
			StockCode:   code,
			Style:       style,
			FinalScore:  50,
			Signal:      contracts.SignalHold,
			Confidence:  0,
			Explanation: "No scorable dimensions available",
			Results:     results,
		}, nil
	}

	var composite, confidence float64
	components := make(map[string]float64, len(normalized))
	for dim, w := range normalized {
		r := results[dim]
		composite += r.Score * w
		confidence += r.Confidence * w
		components[dim] = contracts.Round2(r.Score * w)
	}

	composite = math.Max(0, math.Min(100, composite))
	sig := contracts.SignalFromScore(composite)

	return contracts.ScoreResult{
		StockCode:       code,
		Style:           style,
		FinalScore:      contracts.Round2(composite),
		Signal:          sig,
		Confidence:      contracts.Round2(confidence),
		Explanation:     s.buildExplanation(style, normalized, results, sig),
		ComponentScores: components,
		Results:         results,
	}, nil
}

// buildExplanation names the strongest weighted contributors.
func (s *Scorer) buildExplanation(style contracts.TradingStyle, weights map[string]float64, results map[string]contracts.AnalysisResult, sig contracts.Signal) string {
	type entry struct {
		dim          string
		score        float64
		contribution float64
	}
	entries := make([]entry, 0, len(results))
	for dim, r := range results {
		entries = append(entries, entry{dim, r.Score, weights[dim] * math.Abs(r.Score-50)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].contribution != entries[j].contribution {
			return entries[i].contribution > entries[j].contribution
		}
		return entries[i].dim < entries[j].dim
	})

	var parts []string
	for _, e := range entries {
		if e.score >= 65 {
			parts = append(parts, fmt.Sprintf("%s bullish (%.0f)", e.dim, e.score))
		} else if e.score <= 35 {
			parts = append(parts, fmt.Sprintf("%s bearish (%.0f)", e.dim, e.score))
		}
	}
	if len(parts) > 3 {
		parts = parts[:3]
	}

	prefix := "Multi-factor mixed"
	switch sig {
	case contracts.SignalBuy:
		prefix = "Multi-factor bullish"
	case contracts.SignalSell:
		prefix = "Multi-factor bearish"
	}

	detail := "neutral across all factors"
	if len(parts) > 0 {
		detail = joinParts(parts)
	}
	return fmt.Sprintf("%s (%s): %s", prefix, style, detail)
}

func joinParts(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "; " + p
	}
	return out
}

// Rank orders score results deterministically: score descending, then
// confidence descending, then stock code ascending.
func Rank(results []contracts.ScoreResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return results[i].StockCode < results[j].StockCode
	})
}

// RankRecommendations applies the same deterministic ordering to
// pipeline output rows.
func RankRecommendations(recs []contracts.Recommendation) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		if recs[i].Confidence != recs[j].Confidence {
			return recs[i].Confidence > recs[j].Confidence
		}
		return recs[i].StockCode < recs[j].StockCode
	})
}
