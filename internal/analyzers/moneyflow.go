package analyzers

import (
	"context"
	"math"
	"time"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/logger"
)

var moneyFlowWeights = map[string]float64{
	"main_net_trend":  0.30,
	"big_order_ratio": 0.25,
	"retail_flow":     0.25,
	"flow_momentum":   0.20,
}

// MoneyFlowAnalyzer reads capital flow patterns: main force trend, big
// order dominance, retail divergence, and flow acceleration.
type MoneyFlowAnalyzer struct {
	data     DataProvider
	lookback int
	logger   *logger.Logger
}

// NewMoneyFlowAnalyzer creates the money flow dimension analyzer.
func NewMoneyFlowAnalyzer(data DataProvider, log *logger.Logger) *MoneyFlowAnalyzer {
	return &MoneyFlowAnalyzer{
		data:     data,
		lookback: 20,
		logger:   log.WithComponent("analyzer.money_flow"),
	}
}

// Name implements Analyzer.
func (a *MoneyFlowAnalyzer) Name() string { return contracts.DimMoneyFlow }

// Analyze implements Analyzer.
func (a *MoneyFlowAnalyzer) Analyze(ctx context.Context, code string, asOf time.Time) contracts.AnalysisResult {
	flows, err := a.data.MoneyFlows(ctx, code, a.lookback)
	if err != nil || len(flows) < 5 {
		return contracts.NeutralResult(code, contracts.DimMoneyFlow,
			"Insufficient money-flow data for analysis")
	}

	components := map[string]float64{
		"main_net_trend":  scoreMainNetTrend(flows),
		"big_order_ratio": scoreBigOrderRatio(flows),
		"retail_flow":     scoreRetailFlow(flows),
		"flow_momentum":   scoreFlowMomentum(flows),
	}

	final := weighted(components, moneyFlowWeights)
	sig := contracts.SignalFromScore(final)

	return contracts.AnalysisResult{
		StockCode:   code,
		Dimension:   contracts.DimMoneyFlow,
		Score:       contracts.Round2(final),
		Signal:      sig,
		Confidence:  coverageConfidence(len(flows)),
		Explanation: explain(components, sig, "Bullish capital flow", "Bearish capital flow", "Mixed capital flow", "neutral across flow dimensions"),
		Details:     components,
	}
}

// scoreMainNetTrend rewards sustained main-force net inflow, scaled by
// the average daily magnitude.
func scoreMainNetTrend(flows []contracts.MoneyFlow) float64 {
	var total float64
	var positive int
	for _, f := range flows {
		total += f.MainNet
		if f.MainNet > 0 {
			positive++
		}
	}
	avg := total / float64(len(flows))

	score := 50.0
	shift := math.Min(40, math.Abs(avg)/1_000_000*10)
	if avg > 0 {
		score += shift
	} else {
		score -= shift
	}

	ratio := float64(positive) / float64(len(flows))
	if ratio > 0.7 {
		score += 10
	} else if ratio < 0.3 {
		score -= 10
	}

	return clamp(score)
}

// scoreBigOrderRatio measures institutional dominance: (huge+big) net
// over total absolute flow.
func scoreBigOrderRatio(flows []contracts.MoneyFlow) float64 {
	var totalBig, totalAbs float64
	for _, f := range flows {
		totalBig += f.HugeNet + f.BigNet
		totalAbs += math.Abs(f.HugeNet) + math.Abs(f.BigNet) + math.Abs(f.MidNet) + math.Abs(f.SmallNet)
	}
	if totalAbs == 0 {
		return 50
	}
	return clamp(50 + totalBig/totalAbs*40)
}

// scoreRetailFlow scores the main-force vs retail divergence: retail
// selling into main-force buying is the bullish pattern.
func scoreRetailFlow(flows []contracts.MoneyFlow) float64 {
	var mainTotal, retailTotal float64
	for _, f := range flows {
		mainTotal += f.MainNet
		retailTotal += f.SmallNet + f.MidNet
	}

	score := 50.0
	switch {
	case mainTotal > 0 && retailTotal < 0:
		score += 25
	case mainTotal < 0 && retailTotal > 0:
		score -= 25
	case mainTotal > 0 && retailTotal > 0:
		score += 10
	case mainTotal < 0 && retailTotal < 0:
		score -= 10
	}

	return clamp(score)
}

// scoreFlowMomentum compares the recent 5-day main-net average to the
// full-period average: acceleration in either direction is amplified.
func scoreFlowMomentum(flows []contracts.MoneyFlow) float64 {
	if len(flows) < 5 {
		return 50
	}

	mains := make([]float64, len(flows))
	for i, f := range flows {
		mains[i] = f.MainNet
	}

	recentAvg := mean(mains[len(mains)-5:])
	fullAvg := mean(mains)

	score := 50.0
	if fullAvg == 0 {
		if recentAvg > 0 {
			score += 15
		} else if recentAvg < 0 {
			score -= 15
		}
		return clamp(score)
	}

	switch {
	case recentAvg > fullAvg && recentAvg > 0:
		score += 25
	case recentAvg < fullAvg && recentAvg < 0:
		score -= 25
	case recentAvg > fullAvg:
		score += 10
	case recentAvg < fullAvg:
		score -= 10
	}

	return clamp(score)
}
