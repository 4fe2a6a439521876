package analyzers

import (
	"context"
	"time"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// AIAnalyzer asks the AI service to re-score the stock over the other
// dimensions' results. Timeout, budget exhaustion, or provider errors
// all degrade to the neutral result, never blocking a run.
type AIAnalyzer struct {
	data   DataProvider
	scorer FactorScorer
	logger *logger.Logger
}

// NewAIAnalyzer creates the ai dimension analyzer. scorer may be nil
// when no AI provider is configured.
func NewAIAnalyzer(data DataProvider, scorer FactorScorer, log *logger.Logger) *AIAnalyzer {
	return &AIAnalyzer{
		data:   data,
		scorer: scorer,
		logger: log.WithComponent("analyzer.ai"),
	}
}

// Name implements Analyzer.
func (a *AIAnalyzer) Name() string { return contracts.DimAI }

// Analyze implements Analyzer. Without sibling results the AI judges
// the stock from its raw data alone; the pipeline prefers
// AnalyzeWithResults after the other dimensions have run.
func (a *AIAnalyzer) Analyze(ctx context.Context, code string, asOf time.Time) contracts.AnalysisResult {
	return a.AnalyzeWithResults(ctx, code, asOf, nil)
}

// AnalyzeWithResults scores the stock with the sibling dimensions'
// results as context.
func (a *AIAnalyzer) AnalyzeWithResults(ctx context.Context, code string, asOf time.Time, results map[string]contracts.AnalysisResult) contracts.AnalysisResult {
	if a.scorer == nil {
		return contracts.NeutralResult(code, contracts.DimAI,
			"No AI provider configured")
	}

	name := code
	if stock, err := a.data.Stock(ctx, code); err == nil && stock.Name != "" {
		name = stock.Name
	}

	assessment, err := a.scorer.ScoreFactors(ctx, code, name, results)
	if err != nil {
		a.logger.WithFields(map[string]interface{}{
			"stock_code": code,
			"error":      err.Error(),
		}).Warn("AI factor scoring unavailable")
		return contracts.NeutralResult(code, contracts.DimAI,
			"AI analysis unavailable")
	}

	score := clamp(assessment.AdjustedScore)
	sig := contracts.SignalFromScore(score)

	confidence := 0.3
	explanation := "AI analysis complete"
	if assessment.Reasoning != "" {
		confidence = 0.7
		explanation = "AI analysis: " + assessment.Reasoning
	}

	return contracts.AnalysisResult{
		StockCode:   code,
		Dimension:   contracts.DimAI,
		Score:       contracts.Round2(score),
		Signal:      sig,
		Confidence:  confidence,
		Explanation: explanation,
	}
}
