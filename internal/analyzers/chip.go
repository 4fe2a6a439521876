package analyzers

import (
	"context"
	"math"
	"time"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/logger"
)

var chipWeights = map[string]float64{
	"profit_ratio":   0.30,
	"concentration":  0.25,
	"margin_trend":   0.25,
	"short_pressure": 0.20,
}

// ChipAnalyzer estimates the holder cost-basis distribution from
// volume-weighted historical prices and folds in margin trading as a
// leverage sentiment read.
type ChipAnalyzer struct {
	data     DataProvider
	lookback int
	logger   *logger.Logger
}

// NewChipAnalyzer creates the chip dimension analyzer.
func NewChipAnalyzer(data DataProvider, log *logger.Logger) *ChipAnalyzer {
	return &ChipAnalyzer{
		data:     data,
		lookback: 60,
		logger:   log.WithComponent("analyzer.chip"),
	}
}

// Name implements Analyzer.
func (a *ChipAnalyzer) Name() string { return contracts.DimChip }

// Analyze implements Analyzer.
func (a *ChipAnalyzer) Analyze(ctx context.Context, code string, asOf time.Time) contracts.AnalysisResult {
	bars, err := a.data.Klines(ctx, code, a.lookback)
	if err != nil || len(bars) < 10 {
		return contracts.NeutralResult(code, contracts.DimChip,
			"Insufficient kline history for chip analysis")
	}

	// Margin data is optional: not every stock is marginable. Missing
	// rows leave those components neutral and reduce confidence.
	margins, err := a.data.MarginRows(ctx, code, 20)
	if err != nil {
		margins = nil
	}

	current := bars[len(bars)-1].Close

	components := map[string]float64{
		"profit_ratio":   scoreProfitRatio(bars, current),
		"concentration":  scoreConcentration(bars, current),
		"margin_trend":   scoreMarginTrend(margins),
		"short_pressure": scoreShortPressure(margins),
	}

	final := weighted(components, chipWeights)
	sig := contracts.SignalFromScore(final)

	// Confidence blends kline coverage with margin coverage.
	klineCov := math.Min(1, float64(len(bars))/float64(a.lookback))
	confidence := contracts.Round2(0.5*klineCov + 0.5*coverageConfidence(len(margins)))

	return contracts.AnalysisResult{
		StockCode:   code,
		Dimension:   contracts.DimChip,
		Score:       contracts.Round2(final),
		Signal:      sig,
		Confidence:  confidence,
		Explanation: explain(components, sig, "Bullish chip structure", "Bearish chip structure", "Mixed chip structure", "neutral chip positioning"),
		Details:     components,
	}
}

// typicalPrice estimates the average traded price of a bar.
func typicalPrice(k contracts.Kline) float64 {
	if k.Volume > 0 && k.Amount > 0 {
		return k.Amount / float64(k.Volume)
	}
	return (k.High + k.Low + k.Close) / 3
}

// scoreProfitRatio is the volume fraction traded below the current
// price: the share of holders sitting on a gain.
func scoreProfitRatio(bars []contracts.Kline, current float64) float64 {
	var totalVol, profitVol float64
	for _, k := range bars {
		v := float64(k.Volume)
		totalVol += v
		if typicalPrice(k) < current {
			profitVol += v
		}
	}
	if totalVol == 0 {
		return 50
	}

	ratio := profitVol / totalVol
	score := 50.0
	switch {
	case ratio > 0.8:
		score += 25
	case ratio > 0.6:
		score += 15
	case ratio > 0.4:
		// balanced distribution
	case ratio > 0.2:
		score -= 15
	default:
		score -= 25
	}
	return clamp(score)
}

// scoreConcentration measures how tightly the traded volume clusters
// around the volume-weighted average price. A tight cluster with price
// above it reads as accumulation, below it as trapped supply.
func scoreConcentration(bars []contracts.Kline, current float64) float64 {
	var vwapNum, totalVol float64
	for _, k := range bars {
		v := float64(k.Volume)
		vwapNum += typicalPrice(k) * v
		totalVol += v
	}
	if totalVol == 0 {
		return 50
	}
	vwap := vwapNum / totalVol

	var varNum float64
	for _, k := range bars {
		d := typicalPrice(k) - vwap
		varNum += d * d * float64(k.Volume)
	}
	std := math.Sqrt(varNum / totalVol)
	if vwap == 0 {
		return 50
	}
	cv := std / vwap

	score := 50.0
	switch {
	case cv < 0.05:
		if current > vwap {
			score += 20
		} else {
			score -= 20
		}
	case cv < 0.10:
		if current > vwap {
			score += 10
		} else {
			score -= 10
		}
	default:
		// dispersed chips, weak signal either way
		if current > vwap {
			score += 5
		} else {
			score -= 5
		}
	}
	return clamp(score)
}

// scoreMarginTrend reads a rising margin balance as leveraged buying.
func scoreMarginTrend(margins []contracts.MarginData) float64 {
	if len(margins) < 2 {
		return 50
	}

	balances := make([]float64, len(margins))
	for i, m := range margins {
		balances[i] = m.MarginBalance
	}
	first, second, ok := halves(balances)
	if !ok || first == 0 {
		return 50
	}

	changePct := (second - first) / abs(first) * 100

	score := 50.0
	switch {
	case changePct > 5:
		score += 30
	case changePct > 2:
		score += 20
	case changePct > 0:
		score += 10
	case changePct > -2:
		score -= 10
	case changePct > -5:
		score -= 20
	default:
		score -= 30
	}
	return clamp(score)
}

// scoreShortPressure reads a shrinking short balance as covering.
func scoreShortPressure(margins []contracts.MarginData) float64 {
	if len(margins) < 2 {
		return 50
	}

	shorts := make([]float64, len(margins))
	for i, m := range margins {
		shorts[i] = m.ShortBalance
	}
	first, second, ok := halves(shorts)
	if !ok || first == 0 {
		return 50
	}

	changePct := (second - first) / abs(first) * 100

	score := 50.0
	switch {
	case changePct < -5:
		score += 30
	case changePct < -2:
		score += 20
	case changePct < 0:
		score += 10
	case changePct < 2:
		score -= 10
	case changePct < 5:
		score -= 20
	default:
		score -= 30
	}
	return clamp(score)
}
