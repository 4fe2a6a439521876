package analyzers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/logger"
)

type fakeNewsScorer struct {
	insight contracts.NewsInsight
	err     error
	calls   int
}

func (f *fakeNewsScorer) AnalyzeNews(ctx context.Context, code string, articles []contracts.NewsArticle) (contracts.NewsInsight, error) {
	f.calls++
	if f.err != nil {
		return contracts.NewsInsight{}, f.err
	}
	return f.insight, nil
}

func scoredArticles(scores ...float64) []contracts.NewsArticle {
	day := time.Now().AddDate(0, 0, -len(scores))
	arts := make([]contracts.NewsArticle, len(scores))
	for i, s := range scores {
		v := s
		arts[i] = contracts.NewsArticle{
			Title:          "headline",
			Source:         "sina",
			SentimentScore: &v,
			PublishedAt:    day.AddDate(0, 0, i),
		}
	}
	return arts
}

func TestNewsPreScoredPositiveCoverage(t *testing.T) {
	// improving sentiment: early 0.2s, late 0.6s
	data := &fakeData{news: scoredArticles(0.2, 0.2, 0.2, 0.6, 0.6, 0.6)}
	ai := &fakeNewsScorer{}
	a := NewNewsAnalyzer(data, ai, logger.Nop())

	res := a.Analyze(context.Background(), "000001", time.Now())

	// avg 0.4 maps to 70; trend +0.4 (+30 = 80); 6 scored articles
	// leaning positive (+10 = 60)
	expected := 70*0.40 + 80*0.30 + 60*0.30
	assert.InDelta(t, expected, res.Score, 0.01)
	assert.Equal(t, contracts.SignalBuy, res.Signal)
	assert.Equal(t, 0.5, res.Confidence)
	assert.Equal(t, 0, ai.calls, "pre-scored batch must not hit the AI service")
}

func TestNewsUnscoredBatchFallsBackToAI(t *testing.T) {
	arts := scoredArticles(0, 0, 0, 0, 0)
	for i := range arts {
		arts[i].SentimentScore = nil
	}
	data := &fakeData{news: arts}
	ai := &fakeNewsScorer{insight: contracts.NewsInsight{Sentiment: 0.6, Summary: "expansion plans well received"}}
	a := NewNewsAnalyzer(data, ai, logger.Nop())

	res := a.Analyze(context.Background(), "000001", time.Now())

	// avg (0.6+1)/2*100 = 80; trend neutral 50; 5 articles positive
	// direction (+10 = 60)
	expected := 80*0.40 + 50*0.30 + 60*0.30
	assert.InDelta(t, expected, res.Score, 0.01)
	assert.Equal(t, 0.5, res.Confidence)
	assert.Equal(t, 1, ai.calls)
	assert.Contains(t, res.Explanation, "expansion plans")
}

func TestNewsAIUnavailableDegrades(t *testing.T) {
	arts := scoredArticles(0, 0, 0)
	for i := range arts {
		arts[i].SentimentScore = nil
	}
	data := &fakeData{news: arts}
	ai := &fakeNewsScorer{err: errors.New("budget exhausted")}
	a := NewNewsAnalyzer(data, ai, logger.Nop())

	res := a.Analyze(context.Background(), "000001", time.Now())

	assert.True(t, res.Degraded())
	assert.Contains(t, res.Explanation, "AI news analysis unavailable")
}

func TestNewsNoAIConfigured(t *testing.T) {
	arts := scoredArticles(0, 0, 0)
	for i := range arts {
		arts[i].SentimentScore = nil
	}
	a := NewNewsAnalyzer(&fakeData{news: arts}, nil, logger.Nop())

	res := a.Analyze(context.Background(), "000001", time.Now())

	assert.True(t, res.Degraded())
	assert.Contains(t, res.Explanation, "no AI provider")
}

func TestNewsTooFewArticles(t *testing.T) {
	a := NewNewsAnalyzer(&fakeData{news: scoredArticles(0.5)}, nil, logger.Nop())

	res := a.Analyze(context.Background(), "000001", time.Now())

	assert.True(t, res.Degraded())
	assert.Contains(t, res.Explanation, "Insufficient news articles")
}
