package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/config"
	"github.com/vvnuui/cerisier/pkg/logger"
)

func testGenerator() *SignalGenerator {
	return NewSignalGenerator(config.EngineConfig{
		BuyThreshold:   70,
		SellThreshold:  30,
		MaxPositionPct: 20,
	}, logger.Nop())
}

func scoreResult(score, confidence float64, results map[string]contracts.AnalysisResult) contracts.ScoreResult {
	return contracts.ScoreResult{
		StockCode:  "000001",
		Style:      contracts.StyleSwing,
		FinalScore: score,
		Signal:     contracts.SignalFromScore(score),
		Confidence: confidence,
		Results:    results,
	}
}

func dimResult(score float64) contracts.AnalysisResult {
	return contracts.AnalysisResult{
		Score:      score,
		Signal:     contracts.SignalFromScore(score),
		Confidence: 0.8,
	}
}

func TestGenerateBuyNeedsScoreAndMajority(t *testing.T) {
	g := testGenerator()

	weights := map[string]float64{
		contracts.DimTechnical: 0.5,
		contracts.DimMoneyFlow: 0.3,
		contracts.DimChip:      0.2,
	}
	results := map[string]contracts.AnalysisResult{
		contracts.DimTechnical: dimResult(85),
		contracts.DimMoneyFlow: dimResult(80),
		contracts.DimChip:      dimResult(40),
	}

	rec := g.Generate(scoreResult(78, 0.8, results), weights, 10.0)
	assert.Equal(t, contracts.SignalBuy, rec.Signal)
}

func TestGenerateHighScoreWithoutMajorityHolds(t *testing.T) {
	g := testGenerator()

	// one heavy bullish dimension, the rest neutral: composite clears
	// the threshold but bullish weight is exactly half, not a majority
	weights := map[string]float64{
		contracts.DimTechnical: 0.5,
		contracts.DimMoneyFlow: 0.3,
		contracts.DimChip:      0.2,
	}
	results := map[string]contracts.AnalysisResult{
		contracts.DimTechnical: dimResult(95),
		contracts.DimMoneyFlow: dimResult(55),
		contracts.DimChip:      dimResult(55),
	}

	rec := g.Generate(scoreResult(75, 0.8, results), weights, 10.0)
	assert.Equal(t, contracts.SignalHold, rec.Signal)
}

func TestGenerateSellOnLowScore(t *testing.T) {
	g := testGenerator()

	weights := map[string]float64{contracts.DimTechnical: 1.0}
	results := map[string]contracts.AnalysisResult{
		contracts.DimTechnical: dimResult(25),
	}

	rec := g.Generate(scoreResult(25, 0.6, results), weights, 10.0)
	assert.Equal(t, contracts.SignalSell, rec.Signal)
}

func TestGenerateSellOnBearMajorityAtNeutralScore(t *testing.T) {
	g := testGenerator()

	weights := map[string]float64{
		contracts.DimTechnical: 0.6,
		contracts.DimMoneyFlow: 0.4,
	}
	results := map[string]contracts.AnalysisResult{
		contracts.DimTechnical: dimResult(30),
		contracts.DimMoneyFlow: dimResult(80),
	}

	rec := g.Generate(scoreResult(50, 0.6, results), weights, 10.0)
	assert.Equal(t, contracts.SignalSell, rec.Signal)
}

func TestStopLossScalesWithConfidence(t *testing.T) {
	g := testGenerator()
	weights := map[string]float64{contracts.DimTechnical: 1.0}
	results := map[string]contracts.AnalysisResult{contracts.DimTechnical: dimResult(80)}

	// swing band is 5..8 percent: full confidence sits at the tight end
	rec := g.Generate(scoreResult(80, 1.0, results), weights, 100.0)
	assert.Equal(t, 95.0, rec.StopLoss)

	rec = g.Generate(scoreResult(80, 0.0, results), weights, 100.0)
	assert.Equal(t, 92.0, rec.StopLoss)
}

func TestTakeProfitLadder(t *testing.T) {
	g := testGenerator()
	weights := map[string]float64{contracts.DimTechnical: 1.0}
	results := map[string]contracts.AnalysisResult{contracts.DimTechnical: dimResult(80)}

	rec := g.Generate(scoreResult(80, 1.0, results), weights, 100.0)

	// stop distance 5% mirrored into three laddered targets
	assert.Equal(t, []float64{105.0, 110.0, 115.0}, rec.TakeProfit)
}

func TestPositionSizing(t *testing.T) {
	g := testGenerator()
	weights := map[string]float64{contracts.DimTechnical: 1.0}
	results := map[string]contracts.AnalysisResult{contracts.DimTechnical: dimResult(80)}

	// 0.9 * 80 = 72, capped at the configured maximum
	rec := g.Generate(scoreResult(80, 0.9, results), weights, 10.0)
	assert.Equal(t, contracts.SignalBuy, rec.Signal)
	assert.Equal(t, 20.0, rec.PositionPct)

	// 0.2 * 80 = 16 stays under the cap
	rec = g.Generate(scoreResult(80, 0.2, results), weights, 10.0)
	assert.Equal(t, 16.0, rec.PositionPct)
}

func TestHoldCarriesNoPosition(t *testing.T) {
	g := testGenerator()
	weights := map[string]float64{contracts.DimTechnical: 1.0}
	results := map[string]contracts.AnalysisResult{contracts.DimTechnical: dimResult(55)}

	rec := g.Generate(scoreResult(55, 0.9, results), weights, 10.0)
	assert.Equal(t, contracts.SignalHold, rec.Signal)
	assert.Equal(t, 0.0, rec.PositionPct)
}

func TestGenerateWithoutPriceData(t *testing.T) {
	g := testGenerator()
	weights := map[string]float64{contracts.DimTechnical: 1.0}
	results := map[string]contracts.AnalysisResult{contracts.DimTechnical: dimResult(90)}

	rec := g.Generate(scoreResult(90, 0.9, results), weights, 0)

	assert.Equal(t, contracts.SignalHold, rec.Signal)
	assert.Equal(t, 0.0, rec.Confidence)
	assert.Contains(t, rec.Explanation, "No price data")
	assert.Zero(t, rec.StopLoss)
	assert.Empty(t, rec.TakeProfit)
}

func TestReasonNamesTopContributors(t *testing.T) {
	g := testGenerator()
	weights := map[string]float64{
		contracts.DimTechnical: 0.6,
		contracts.DimMoneyFlow: 0.4,
	}
	results := map[string]contracts.AnalysisResult{
		contracts.DimTechnical: {Score: 85, Signal: contracts.SignalBuy, Confidence: 0.8, Explanation: "Technical breakout on volume"},
		contracts.DimMoneyFlow: {Score: 75, Signal: contracts.SignalBuy, Confidence: 0.7, Explanation: "Sustained main capital inflow"},
	}

	rec := g.Generate(scoreResult(81, 0.8, results), weights, 10.0)

	assert.Contains(t, rec.Explanation, "Technical breakout")
	assert.Contains(t, rec.Explanation, "main capital inflow")
	assert.Contains(t, rec.Explanation, "score 81.0")
}
