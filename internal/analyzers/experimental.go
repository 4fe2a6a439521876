package analyzers

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/logger"
)

var gameTheoryWeights = map[string]float64{
	"volume_price_divergence": 0.50,
	"volume_trend":            0.50,
}

// GameTheoryAnalyzer infers institutional vs retail positioning from
// volume-price divergence patterns.
type GameTheoryAnalyzer struct {
	data     DataProvider
	lookback int
	logger   *logger.Logger
}

// NewGameTheoryAnalyzer creates the game theory analyzer.
func NewGameTheoryAnalyzer(data DataProvider, log *logger.Logger) *GameTheoryAnalyzer {
	return &GameTheoryAnalyzer{
		data:     data,
		lookback: 30,
		logger:   log.WithComponent("analyzer.game_theory"),
	}
}

// Name implements Analyzer.
func (a *GameTheoryAnalyzer) Name() string { return contracts.DimGameTheory }

// Analyze implements Analyzer.
func (a *GameTheoryAnalyzer) Analyze(ctx context.Context, code string, asOf time.Time) contracts.AnalysisResult {
	bars, err := a.data.Klines(ctx, code, a.lookback)
	if err != nil || len(bars) < 10 {
		return contracts.NeutralResult(code, contracts.DimGameTheory,
			"Insufficient kline history for game theory analysis")
	}

	components := map[string]float64{
		"volume_price_divergence": scoreVolumePriceDivergence(bars),
		"volume_trend":            scoreVolumeTrend(bars),
	}

	final := weighted(components, gameTheoryWeights)
	sig := contracts.SignalFromScore(final)
	confidence := contracts.Round2(math.Min(1, float64(len(bars))/float64(a.lookback)*0.5))

	return contracts.AnalysisResult{
		StockCode:   code,
		Dimension:   contracts.DimGameTheory,
		Score:       contracts.Round2(final),
		Signal:      sig,
		Confidence:  confidence,
		Explanation: fmt.Sprintf("Game theory analysis: score=%.0f", final),
		Details:     components,
	}
}

// scoreVolumePriceDivergence checks whether recent volume confirms the
// recent price direction.
func scoreVolumePriceDivergence(bars []contracts.Kline) float64 {
	if len(bars) < 5 {
		return 50
	}
	recent := bars[len(bars)-5:]

	priceChange := recent[4].Close - recent[0].Close
	volFirst := float64(recent[0].Volume+recent[1].Volume) / 2
	volLast := float64(recent[3].Volume+recent[4].Volume) / 2
	if volFirst == 0 {
		return 50
	}
	volChange := (volLast - volFirst) / volFirst

	score := 50.0
	switch {
	case priceChange > 0 && volChange > 0.1:
		score += 20
	case priceChange > 0 && volChange < -0.1:
		score -= 10
	case priceChange < 0 && volChange > 0.1:
		score += 5 // capitulation, potential reversal
	case priceChange < 0 && volChange < -0.1:
		score -= 15
	}
	return clamp(score)
}

// scoreVolumeTrend reads a rising volume base with price context.
func scoreVolumeTrend(bars []contracts.Kline) float64 {
	if len(bars) < 10 {
		return 50
	}

	vols := make([]float64, len(bars))
	for i, k := range bars {
		vols[i] = float64(k.Volume)
	}
	first, second, ok := halves(vols)
	if !ok || first == 0 {
		return 50
	}
	ratio := second / first
	priceChange := bars[len(bars)-1].Close - bars[0].Close

	score := 50.0
	switch {
	case ratio > 1.3 && priceChange > 0:
		score += 20
	case ratio > 1.1 && priceChange > 0:
		score += 10
	case ratio > 1.3 && priceChange < 0:
		score -= 15
	case ratio < 0.7:
		score -= 5
	}
	return clamp(score)
}

var behaviorWeights = map[string]float64{
	"overreaction": 0.50,
	"anchoring":    0.50,
}

// BehaviorFinanceAnalyzer detects behavioral bias patterns in price
// history: overreaction moves that tend to revert, and anchoring
// ranges that precede breakouts.
type BehaviorFinanceAnalyzer struct {
	data     DataProvider
	lookback int
	logger   *logger.Logger
}

// NewBehaviorFinanceAnalyzer creates the behavior finance analyzer.
func NewBehaviorFinanceAnalyzer(data DataProvider, log *logger.Logger) *BehaviorFinanceAnalyzer {
	return &BehaviorFinanceAnalyzer{
		data:     data,
		lookback: 30,
		logger:   log.WithComponent("analyzer.behavior_finance"),
	}
}

// Name implements Analyzer.
func (a *BehaviorFinanceAnalyzer) Name() string { return contracts.DimBehaviorFinance }

// Analyze implements Analyzer.
func (a *BehaviorFinanceAnalyzer) Analyze(ctx context.Context, code string, asOf time.Time) contracts.AnalysisResult {
	bars, err := a.data.Klines(ctx, code, a.lookback)
	if err != nil || len(bars) < 10 {
		return contracts.NeutralResult(code, contracts.DimBehaviorFinance,
			"Insufficient kline history for behavior finance analysis")
	}

	components := map[string]float64{
		"overreaction": scoreOverreaction(bars),
		"anchoring":    scoreAnchoring(bars),
	}

	final := weighted(components, behaviorWeights)
	sig := contracts.SignalFromScore(final)
	confidence := contracts.Round2(math.Min(1, float64(len(bars))/float64(a.lookback)*0.4))

	return contracts.AnalysisResult{
		StockCode:   code,
		Dimension:   contracts.DimBehaviorFinance,
		Score:       contracts.Round2(final),
		Signal:      sig,
		Confidence:  confidence,
		Explanation: fmt.Sprintf("Behavior finance analysis: score=%.0f", final),
		Details:     components,
	}
}

// scoreOverreaction reads sharp five-day moves as contrarian setups.
func scoreOverreaction(bars []contracts.Kline) float64 {
	if len(bars) < 5 {
		return 50
	}
	recent := bars[len(bars)-5:]

	var totalChangePct float64
	for i := 1; i < len(recent); i++ {
		prev := recent[i-1].Close
		if prev != 0 {
			totalChangePct += (recent[i].Close - prev) / prev * 100
		}
	}

	score := 50.0
	switch {
	case totalChangePct < -10:
		score += 25
	case totalChangePct < -5:
		score += 15
	case totalChangePct > 10:
		score -= 25
	case totalChangePct > 5:
		score -= 15
	}
	return clamp(score)
}

// scoreAnchoring detects a narrowing range after a big move and scores
// the likely breakout direction from the close's position in range.
func scoreAnchoring(bars []contracts.Kline) float64 {
	if len(bars) < 10 {
		return 50
	}

	mid := len(bars) / 2
	early, recent := bars[:mid], bars[mid:]

	rangeOf := func(ks []contracts.Kline) (hi, lo float64) {
		hi, lo = ks[0].High, ks[0].Low
		for _, k := range ks[1:] {
			if k.High > hi {
				hi = k.High
			}
			if k.Low < lo {
				lo = k.Low
			}
		}
		return hi, lo
	}

	earlyHi, earlyLo := rangeOf(early)
	recentHi, recentLo := rangeOf(recent)

	price := bars[len(bars)-1].Close
	if price == 0 {
		return 50
	}

	earlyRangePct := (earlyHi - earlyLo) / price * 100
	recentRangePct := (recentHi - recentLo) / price * 100

	score := 50.0
	if earlyRangePct > 10 && recentRangePct < 5 {
		midPrice := (recentHi + recentLo) / 2
		if price > midPrice {
			score += 15
		} else {
			score -= 10
		}
	}
	return clamp(score)
}

// MacroAnalyzer is a neutral placeholder until external macro feeds
// (rates, policy, economic indicators) are integrated.
type MacroAnalyzer struct{}

// NewMacroAnalyzer creates the macro placeholder analyzer.
func NewMacroAnalyzer() *MacroAnalyzer { return &MacroAnalyzer{} }

// Name implements Analyzer.
func (a *MacroAnalyzer) Name() string { return contracts.DimMacro }

// Analyze implements Analyzer.
func (a *MacroAnalyzer) Analyze(ctx context.Context, code string, asOf time.Time) contracts.AnalysisResult {
	return contracts.AnalysisResult{
		StockCode:   code,
		Dimension:   contracts.DimMacro,
		Score:       50,
		Signal:      contracts.SignalHold,
		Confidence:  0.1,
		Explanation: "Macro analysis requires external data integration",
	}
}
