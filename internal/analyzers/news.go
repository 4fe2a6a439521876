package analyzers

import (
	"context"
	"time"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/logger"
)

var newsWeights = map[string]float64{
	"avg_sentiment":   0.40,
	"sentiment_trend": 0.30,
	"volume_signal":   0.30,
}

// NewsAnalyzer scores stock-specific news. Pre-scored articles are used
// directly; unscored batches are sent to the AI service, and the
// analyzer degrades when neither path yields a read.
type NewsAnalyzer struct {
	data     DataProvider
	ai       NewsScorer
	lookback int
	logger   *logger.Logger
}

// NewNewsAnalyzer creates the news dimension analyzer. ai may be nil
// when no AI provider is configured.
func NewNewsAnalyzer(data DataProvider, ai NewsScorer, log *logger.Logger) *NewsAnalyzer {
	return &NewsAnalyzer{
		data:     data,
		ai:       ai,
		lookback: 30,
		logger:   log.WithComponent("analyzer.news"),
	}
}

// Name implements Analyzer.
func (a *NewsAnalyzer) Name() string { return contracts.DimNews }

// Analyze implements Analyzer.
func (a *NewsAnalyzer) Analyze(ctx context.Context, code string, asOf time.Time) contracts.AnalysisResult {
	articles, err := a.data.News(ctx, code, a.lookback)
	if err != nil || len(articles) < 3 {
		return contracts.NeutralResult(code, contracts.DimNews,
			"Insufficient news articles for analysis")
	}

	var scores []float64
	for _, art := range articles {
		if art.SentimentScore != nil {
			scores = append(scores, *art.SentimentScore)
		}
	}

	if len(scores) < 3 {
		return a.analyzeWithAI(ctx, code, articles)
	}

	components := map[string]float64{
		"avg_sentiment":   scoreAvgSentiment(scores),
		"sentiment_trend": scoreSentimentTrend(scores),
		"volume_signal":   scoreNewsVolume(scores),
	}

	final := weighted(components, newsWeights)
	sig := contracts.SignalFromScore(final)

	return contracts.AnalysisResult{
		StockCode:   code,
		Dimension:   contracts.DimNews,
		Score:       contracts.Round2(final),
		Signal:      sig,
		Confidence:  newsConfidence(len(scores)),
		Explanation: explain(components, sig, "Bullish news flow", "Bearish news flow", "Mixed news flow", "neutral news sentiment"),
		Details:     components,
	}
}

// analyzeWithAI scores an unscored batch through the AI service.
func (a *NewsAnalyzer) analyzeWithAI(ctx context.Context, code string, articles []contracts.NewsArticle) contracts.AnalysisResult {
	if a.ai == nil {
		return contracts.NeutralResult(code, contracts.DimNews,
			"No scored articles and no AI provider configured")
	}

	insight, err := a.ai.AnalyzeNews(ctx, code, articles)
	if err != nil {
		a.logger.WithFields(map[string]interface{}{
			"stock_code": code,
			"error":      err.Error(),
		}).Warn("AI news analysis unavailable")
		return contracts.NeutralResult(code, contracts.DimNews,
			"AI news analysis unavailable")
	}

	avg := clamp((insight.Sentiment + 1) / 2 * 100)
	components := map[string]float64{
		"avg_sentiment":   avg,
		"sentiment_trend": 50,
		"volume_signal":   scoreNewsVolumeDirected(len(articles), insight.Sentiment),
	}

	final := weighted(components, newsWeights)
	sig := contracts.SignalFromScore(final)

	explanation := "AI news digest"
	if insight.Summary != "" {
		explanation = "AI news digest: " + insight.Summary
	}

	return contracts.AnalysisResult{
		StockCode:   code,
		Dimension:   contracts.DimNews,
		Score:       contracts.Round2(final),
		Signal:      sig,
		Confidence:  0.5,
		Explanation: explanation,
		Details:     components,
	}
}

// scoreAvgSentiment maps the mean [-1,1] sentiment onto [0,100].
func scoreAvgSentiment(scores []float64) float64 {
	return clamp((mean(scores) + 1) / 2 * 100)
}

// scoreSentimentTrend compares first-half vs second-half sentiment.
func scoreSentimentTrend(scores []float64) float64 {
	first, second, ok := halves(scores)
	if !ok {
		return 50
	}
	diff := second - first

	score := 50.0
	switch {
	case diff > 0.3:
		score += 30
	case diff > 0.1:
		score += 20
	case diff > 0:
		score += 10
	case diff > -0.1:
		score -= 10
	case diff > -0.3:
		score -= 20
	default:
		score -= 30
	}
	return clamp(score)
}

// scoreNewsVolume boosts in the direction of sentiment, scaled by how
// much coverage the stock is getting.
func scoreNewsVolume(scores []float64) float64 {
	return scoreNewsVolumeDirected(len(scores), mean(scores))
}

func scoreNewsVolumeDirected(count int, avgSentiment float64) float64 {
	var boost float64
	switch {
	case count >= 20:
		boost = 20
	case count >= 10:
		boost = 15
	case count >= 5:
		boost = 10
	default:
		boost = 5
	}

	score := 50.0
	if avgSentiment > 0.1 {
		score += boost
	} else if avgSentiment < -0.1 {
		score -= boost
	}
	return clamp(score)
}

// newsConfidence tiers confidence by scored article count.
func newsConfidence(count int) float64 {
	switch {
	case count >= 20:
		return 0.9
	case count >= 10:
		return 0.7
	case count >= 5:
		return 0.5
	case count >= 3:
		return 0.3
	}
	return 0
}
