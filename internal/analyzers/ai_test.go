package analyzers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/logger"
)

type fakeFactorScorer struct {
	assessment contracts.FactorAssessment
	err        error
	gotResults map[string]contracts.AnalysisResult
}

func (f *fakeFactorScorer) ScoreFactors(ctx context.Context, code, name string, results map[string]contracts.AnalysisResult) (contracts.FactorAssessment, error) {
	f.gotResults = results
	if f.err != nil {
		return contracts.FactorAssessment{}, f.err
	}
	return f.assessment, nil
}

func TestAIAnalyzerMapsAssessment(t *testing.T) {
	data := &fakeData{
		stocks: map[string]contracts.StockBasic{
			"600519": {Code: "600519", Name: "Kweichow Moutai"},
		},
	}
	scorer := &fakeFactorScorer{
		assessment: contracts.FactorAssessment{
			AdjustedScore: 78,
			Reasoning:     "strong pricing power with improving channel inventory",
		},
	}
	a := NewAIAnalyzer(data, scorer, logger.Nop())

	siblings := map[string]contracts.AnalysisResult{
		contracts.DimTechnical: {Score: 72, Signal: contracts.SignalBuy, Confidence: 0.8},
	}
	res := a.AnalyzeWithResults(context.Background(), "600519", time.Now(), siblings)

	assert.Equal(t, 78.0, res.Score)
	assert.Equal(t, contracts.SignalBuy, res.Signal)
	assert.Equal(t, 0.7, res.Confidence)
	assert.Contains(t, res.Explanation, "pricing power")
	assert.Equal(t, siblings, scorer.gotResults)
}

func TestAIAnalyzerClampsOutOfRangeScore(t *testing.T) {
	scorer := &fakeFactorScorer{assessment: contracts.FactorAssessment{AdjustedScore: 140}}
	a := NewAIAnalyzer(&fakeData{}, scorer, logger.Nop())

	res := a.Analyze(context.Background(), "000001", time.Now())

	assert.Equal(t, 100.0, res.Score)
	// no reasoning lowers confidence
	assert.Equal(t, 0.3, res.Confidence)
}

func TestAIAnalyzerDegradesOnError(t *testing.T) {
	scorer := &fakeFactorScorer{err: contracts.ErrBudgetExhausted}
	a := NewAIAnalyzer(&fakeData{}, scorer, logger.Nop())

	res := a.Analyze(context.Background(), "000001", time.Now())

	assert.True(t, res.Degraded())
	assert.Contains(t, res.Explanation, "AI analysis unavailable")
}

func TestAIAnalyzerWithoutProvider(t *testing.T) {
	a := NewAIAnalyzer(&fakeData{}, nil, logger.Nop())

	res := a.Analyze(context.Background(), "000001", time.Now())

	assert.True(t, res.Degraded())
	assert.Contains(t, res.Explanation, "No AI provider")
}
