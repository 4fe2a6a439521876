package analyzers

import (
	"context"
	"time"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/internal/indicators"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// technicalWeights fixes the indicator sub-score blend.
var technicalWeights = map[string]float64{
	"ma":     0.20,
	"macd":   0.20,
	"kdj":    0.15,
	"rsi":    0.15,
	"boll":   0.15,
	"volume": 0.15,
}

// TechnicalAnalyzer scores the confluence of MA, MACD, KDJ, BOLL, RSI
// and volume over recent daily bars.
type TechnicalAnalyzer struct {
	data     DataProvider
	lookback int
	logger   *logger.Logger
}

// NewTechnicalAnalyzer creates the technical dimension analyzer.
func NewTechnicalAnalyzer(data DataProvider, log *logger.Logger) *TechnicalAnalyzer {
	return &TechnicalAnalyzer{
		data:     data,
		lookback: 120,
		logger:   log.WithComponent("analyzer.technical"),
	}
}

// Name implements Analyzer.
func (a *TechnicalAnalyzer) Name() string { return contracts.DimTechnical }

// Analyze implements Analyzer.
func (a *TechnicalAnalyzer) Analyze(ctx context.Context, code string, asOf time.Time) contracts.AnalysisResult {
	bars, err := a.data.Klines(ctx, code, a.lookback)
	if err != nil || len(bars) < 30 {
		return contracts.NeutralResult(code, contracts.DimTechnical,
			"Insufficient kline history for technical analysis")
	}

	closes := indicators.Closes(bars)
	volumes := indicators.Volumes(bars)

	components := map[string]float64{
		"ma":     scoreMA(closes),
		"macd":   scoreMACD(closes),
		"kdj":    scoreKDJ(bars),
		"boll":   scoreBOLL(closes),
		"rsi":    scoreRSI(closes),
		"volume": scoreVolume(closes, volumes),
	}

	final := weighted(components, technicalWeights)
	sig := contracts.SignalFromScore(final)

	// Confidence: proportion of indicators agreeing on direction.
	var bullish, bearish int
	for _, s := range components {
		if s >= 60 {
			bullish++
		} else if s <= 40 {
			bearish++
		}
	}
	agreement := float64(max(bullish, bearish)) / float64(len(components))
	confidence := agreement * 1.2
	if confidence > 1 {
		confidence = 1
	}

	return contracts.AnalysisResult{
		StockCode:   code,
		Dimension:   contracts.DimTechnical,
		Score:       contracts.Round2(final),
		Signal:      sig,
		Confidence:  contracts.Round2(confidence),
		Explanation: explain(components, sig, "Bullish technical signals", "Bearish technical signals", "Mixed technical signals", "neutral across indicators"),
		Details:     components,
	}
}

// scoreMA rewards closes above each moving average and a bullish stack
// of the short MAs over the long ones.
func scoreMA(closes []float64) float64 {
	current := closes[len(closes)-1]
	score := 50.0

	lastSMA := func(n int) (float64, bool) {
		if len(closes) < n {
			return 0, false
		}
		s := indicators.SMA(closes, n)
		v := s[len(s)-1]
		return v, indicators.Valid(v)
	}

	for _, period := range []int{5, 10, 20, 60} {
		if ma, ok := lastSMA(period); ok {
			if current > ma {
				score += 8
			} else {
				score -= 8
			}
		}
	}

	ma5, ok5 := lastSMA(5)
	ma10, ok10 := lastSMA(10)
	ma20, ok20 := lastSMA(20)
	if ok5 && ok10 && ok20 {
		if ma5 > ma10 && ma10 > ma20 {
			score += 10
		} else if ma5 < ma10 && ma10 < ma20 {
			score -= 10
		}
	}

	return clamp(score)
}

// scoreMACD checks the DIF zero line, DIF/DEA spread, histogram
// direction, and fresh golden or death crosses.
func scoreMACD(closes []float64) float64 {
	m := indicators.MACD(closes)
	n := len(closes)
	if n < 27 || !indicators.Valid(m.DIF[n-1]) || !indicators.Valid(m.DIF[n-2]) {
		return 50
	}

	dif, dea, hist := m.DIF[n-1], m.DEA[n-1], m.Histogram[n-1]
	prevDIF, prevDEA, prevHist := m.DIF[n-2], m.DEA[n-2], m.Histogram[n-2]

	score := 50.0

	if dif > 0 {
		score += 10
	} else {
		score -= 10
	}

	if dif > dea {
		score += 10
	} else {
		score -= 10
	}

	if hist > 0 {
		score += 5
		if hist > prevHist {
			score += 5
		}
	} else {
		score -= 5
	}

	if prevDIF <= prevDEA && dif > dea {
		score += 15
	} else if prevDIF >= prevDEA && dif < dea {
		score -= 15
	}

	return clamp(score)
}

// scoreKDJ weighs oversold/overbought zones by how long K has stayed
// extreme: a fresh extreme reads contrarian, a prolonged one reads as
// trend confirmation.
func scoreKDJ(bars []contracts.Kline) float64 {
	kdj := indicators.KDJ(bars, 9)
	n := len(bars)
	if n < 10 || !indicators.Valid(kdj.K[n-1]) || !indicators.Valid(kdj.K[n-2]) {
		return 50
	}

	k, d, j := kdj.K[n-1], kdj.D[n-1], kdj.J[n-1]
	prevK, prevD := kdj.K[n-2], kdj.D[n-2]

	// Zone residency over the last 10 bars.
	var below20, above80, total int
	for i := n - 10; i < n; i++ {
		if i < 0 || !indicators.Valid(kdj.K[i]) {
			continue
		}
		total++
		if kdj.K[i] < 20 {
			below20++
		}
		if kdj.K[i] > 80 {
			above80++
		}
	}
	if total == 0 {
		return 50
	}
	pctBelow := float64(below20) / float64(total)
	pctAbove := float64(above80) / float64(total)

	score := 50.0

	if k < 20 && d < 20 {
		if pctBelow > 0.6 {
			score -= 10
		} else {
			score += 15
		}
	} else if k > 80 && d > 80 {
		if pctAbove > 0.6 {
			score += 5
		} else {
			score -= 15
		}
	}

	if prevK <= prevD && k > d {
		score += 15
	} else if prevK >= prevD && k < d {
		score -= 15
	}

	if j < 0 {
		if pctBelow > 0.6 {
			score -= 5
		} else {
			score += 10
		}
	} else if j > 100 {
		if pctAbove > 0.6 {
			score += 5
		} else {
			score -= 10
		}
	}

	return clamp(score)
}

// scoreBOLL scores the close's band position, discounting bounces when
// price has been persistently below the middle band.
func scoreBOLL(closes []float64) float64 {
	n := len(closes)
	if n < 20 {
		return 50
	}

	b := indicators.BOLL(closes, 20, 2)
	current := closes[n-1]
	mid, upper, lower := b.Middle[n-1], b.Upper[n-1], b.Lower[n-1]
	if !indicators.Valid(mid) {
		return 50
	}

	// Fraction of the last 10 closes below the middle band.
	var below, total int
	for i := n - 10; i < n; i++ {
		if i < 0 || !indicators.Valid(b.Middle[i]) {
			continue
		}
		total++
		if closes[i] < b.Middle[i] {
			below++
		}
	}
	pctBelowMid := 0.5
	if total > 0 {
		pctBelowMid = float64(below) / float64(total)
	}

	score := 50.0
	width := upper - lower
	if width > 0 {
		position := (current - lower) / width

		if position < 0.2 {
			if pctBelowMid > 0.7 {
				score -= 10
			} else {
				score += 15
			}
		} else if position > 0.8 {
			if pctBelowMid < 0.3 {
				score += 5
			} else {
				score -= 10
			}
		}

		if current > mid {
			score += 10
		} else {
			score -= 10
		}
	}

	return clamp(score)
}

// scoreRSI balances contrarian reads of fresh extremes against trend
// confirmation when RSI has camped in the extreme zone.
func scoreRSI(closes []float64) float64 {
	n := len(closes)
	if n < 15 {
		return 50
	}

	rsi := indicators.RSI(closes, 14)
	val := rsi[n-1]
	if !indicators.Valid(val) {
		return 50
	}

	var below30, above70, total int
	for i := n - 10; i < n; i++ {
		if i < 0 || !indicators.Valid(rsi[i]) {
			continue
		}
		total++
		if rsi[i] < 30 {
			below30++
		}
		if rsi[i] > 70 {
			above70++
		}
	}
	if total == 0 {
		return 50
	}
	pctBelow := float64(below30) / float64(total)
	pctAbove := float64(above70) / float64(total)

	score := 50.0

	switch {
	case val < 20:
		if pctBelow > 0.7 {
			score -= 15
		} else {
			score += 15
		}
	case val < 30:
		if pctBelow > 0.7 {
			score -= 10
		} else {
			score += 10
		}
	case val < 40:
		score += 5
	case val > 80:
		if pctAbove > 0.7 {
			score += 10
		} else {
			score -= 15
		}
	case val > 70:
		if pctAbove > 0.7 {
			score += 5
		} else {
			score -= 10
		}
	case val > 60:
		score -= 5
	}

	if val >= 40 && val <= 70 {
		score += 5
	}

	return clamp(score)
}

// scoreVolume checks whether volume expansion confirms the latest price
// direction.
func scoreVolume(closes []float64, volumes []float64) float64 {
	n := len(volumes)
	if n < 10 {
		return 50
	}

	avg5 := mean(volumes[n-5:])
	window := 20
	if n < window {
		window = n
	}
	avg20 := mean(volumes[n-window:])

	priceChange := 0.0
	if len(closes) >= 2 {
		priceChange = closes[len(closes)-1] - closes[len(closes)-2]
	}

	volRatio := 1.0
	if avg20 > 0 {
		volRatio = avg5 / avg20
	}

	score := 50.0
	switch {
	case priceChange > 0 && volRatio > 1.2:
		score += 20
	case priceChange < 0 && volRatio > 1.2:
		score -= 15
	case priceChange > 0 && volRatio < 0.8:
		score -= 5
	}

	return clamp(score)
}
