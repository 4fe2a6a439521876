package analyzers

import (
	"context"
	"math"
	"time"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/logger"
)

var sentimentWeights = map[string]float64{
	"advance_decline":  0.40,
	"limit_balance":    0.30,
	"turnover_anomaly": 0.30,
}

// SentimentAnalyzer reads market-wide mood from breadth snapshots:
// advance/decline ratio, limit-move balance, and turnover anomalies.
// The read is market-level, so every stock in a run shares it.
type SentimentAnalyzer struct {
	data     DataProvider
	lookback int
	logger   *logger.Logger
}

// NewSentimentAnalyzer creates the sentiment dimension analyzer.
func NewSentimentAnalyzer(data DataProvider, log *logger.Logger) *SentimentAnalyzer {
	return &SentimentAnalyzer{
		data:     data,
		lookback: 10,
		logger:   log.WithComponent("analyzer.sentiment"),
	}
}

// Name implements Analyzer.
func (a *SentimentAnalyzer) Name() string { return contracts.DimSentiment }

// Analyze implements Analyzer.
func (a *SentimentAnalyzer) Analyze(ctx context.Context, code string, asOf time.Time) contracts.AnalysisResult {
	rows, err := a.data.MarketBreadth(ctx, a.lookback)
	if err != nil || len(rows) < 3 {
		return contracts.NeutralResult(code, contracts.DimSentiment,
			"Insufficient market breadth data for sentiment analysis")
	}

	components := map[string]float64{
		"advance_decline":  scoreAdvanceDecline(rows),
		"limit_balance":    scoreLimitBalance(rows),
		"turnover_anomaly": scoreTurnoverAnomaly(rows),
	}

	final := weighted(components, sentimentWeights)
	sig := contracts.SignalFromScore(final)

	confidence := contracts.Round2(math.Min(1, float64(len(rows))/float64(a.lookback)))

	return contracts.AnalysisResult{
		StockCode:   code,
		Dimension:   contracts.DimSentiment,
		Score:       contracts.Round2(final),
		Signal:      sig,
		Confidence:  confidence,
		Explanation: explain(components, sig, "Bullish market sentiment", "Bearish market sentiment", "Mixed market sentiment", "neutral market breadth"),
		Details:     components,
	}
}

// scoreAdvanceDecline scores the average advance ratio over the most
// recent five sessions.
func scoreAdvanceDecline(rows []contracts.MarketBreadth) float64 {
	recent := rows
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}

	var ratios []float64
	for _, r := range recent {
		total := r.Advances + r.Declines
		if total == 0 {
			continue
		}
		ratios = append(ratios, float64(r.Advances)/float64(total))
	}
	if len(ratios) == 0 {
		return 50
	}
	avg := mean(ratios)

	score := 50.0
	switch {
	case avg > 0.65:
		score += 30
	case avg > 0.55:
		score += 15
	case avg > 0.45:
		// balanced breadth
	case avg > 0.35:
		score -= 15
	default:
		score -= 30
	}
	return clamp(score)
}

// scoreLimitBalance weighs limit-up against limit-down counts over the
// window.
func scoreLimitBalance(rows []contracts.MarketBreadth) float64 {
	var up, down int
	for _, r := range rows {
		up += r.LimitUp
		down += r.LimitDown
	}
	total := up + down
	if total == 0 {
		return 50
	}
	balance := float64(up-down) / float64(total)

	score := 50.0
	switch {
	case balance > 0.5:
		score += 25
	case balance > 0.2:
		score += 15
	case balance > -0.2:
		// no clear speculative tilt
	case balance > -0.5:
		score -= 15
	default:
		score -= 25
	}
	return clamp(score)
}

// scoreTurnoverAnomaly compares the latest session's aggregate turnover
// against the trailing average; an expansion is read in the direction
// of the breadth, a contraction as fading interest.
func scoreTurnoverAnomaly(rows []contracts.MarketBreadth) float64 {
	latest := rows[len(rows)-1]
	prior := rows[:len(rows)-1]
	if len(prior) == 0 {
		return 50
	}

	var sum float64
	for _, r := range prior {
		sum += r.AvgTurnover
	}
	trailing := sum / float64(len(prior))
	if trailing == 0 {
		return 50
	}
	ratio := latest.AvgTurnover / trailing

	advancing := latest.Advances > latest.Declines

	score := 50.0
	switch {
	case ratio > 1.5 && advancing:
		score += 20
	case ratio > 1.5:
		score -= 20
	case ratio > 1.2 && advancing:
		score += 10
	case ratio > 1.2:
		score -= 10
	case ratio < 0.6:
		score -= 10
	}
	return clamp(score)
}
