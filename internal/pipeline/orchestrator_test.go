package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvnuui/cerisier/internal/ai"
	"github.com/vvnuui/cerisier/internal/analyzers"
	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/internal/scoring"
	"github.com/vvnuui/cerisier/pkg/config"
	"github.com/vvnuui/cerisier/pkg/logger"
)

type fakeData struct {
	klines map[string][]contracts.Kline
	stocks map[string]contracts.StockBasic
}

func (f *fakeData) Klines(ctx context.Context, code string, days int) ([]contracts.Kline, error) {
	bars, ok := f.klines[code]
	if !ok {
		return nil, &contracts.DataUnavailableError{
			Operation: "fetch_kline",
			StockCode: code,
			Reasons:   map[string]string{"eastmoney": "timeout", "tencent": "timeout"},
		}
	}
	if days < len(bars) {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

func (f *fakeData) MoneyFlows(ctx context.Context, code string, days int) ([]contracts.MoneyFlow, error) {
	return nil, errors.New("no flow data")
}

func (f *fakeData) MarginRows(ctx context.Context, code string, days int) ([]contracts.MarginData, error) {
	return nil, errors.New("no margin data")
}

func (f *fakeData) FinancialReports(ctx context.Context, code string, limit int) ([]contracts.FinancialReport, error) {
	return nil, errors.New("no reports")
}

func (f *fakeData) News(ctx context.Context, code string, days int) ([]contracts.NewsArticle, error) {
	return nil, errors.New("no news")
}

func (f *fakeData) MarketBreadth(ctx context.Context, days int) ([]contracts.MarketBreadth, error) {
	return nil, errors.New("no breadth data")
}

func (f *fakeData) Stock(ctx context.Context, code string) (contracts.StockBasic, error) {
	s, ok := f.stocks[code]
	if !ok {
		return contracts.StockBasic{}, contracts.ErrNotFound
	}
	return s, nil
}

func (f *fakeData) SectorCodes(ctx context.Context, industry string) ([]string, error) {
	return nil, errors.New("no sector data")
}

type fakeStore struct {
	mu       sync.Mutex
	universe []contracts.StockBasic
	saved    [][]contracts.Recommendation
}

func (f *fakeStore) Universe(ctx context.Context, limit int) ([]contracts.StockBasic, error) {
	return f.universe, nil
}

func (f *fakeStore) SaveRecommendations(ctx context.Context, recs []contracts.Recommendation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, recs)
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) stages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Stage
	}
	return out
}

func uptrendBars(n int) []contracts.Kline {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	bars := make([]contracts.Kline, n)
	for i := range bars {
		c := 10.0 + float64(i)*0.1
		v := int64(100000 + i*1000)
		bars[i] = contracts.Kline{
			Date:   day.AddDate(0, 0, i),
			Open:   c - 0.05,
			High:   c + 0.1,
			Low:    c - 0.1,
			Close:  c,
			Volume: v,
			Amount: c * float64(v),
		}
	}
	return bars
}

func testOrchestrator(t *testing.T, data *fakeData, store Store, sink Sink, newAI AIFactory) *Orchestrator {
	t.Helper()
	scorer, err := scoring.NewScorer(logger.Nop())
	require.NoError(t, err)

	engineCfg := config.EngineConfig{
		BuyThreshold:    70,
		SellThreshold:   30,
		MaxPositionPct:  20,
		AnalyzerWorkers: 4,
		StockWorkers:    4,
		UniverseLimit:   200,
	}
	signals := scoring.NewSignalGenerator(engineCfg, logger.Nop())
	return NewOrchestrator(data, scorer, signals, store, newAI, sink, engineCfg, logger.Nop())
}

func TestRunForStockProducesRecommendation(t *testing.T) {
	data := &fakeData{
		klines: map[string][]contracts.Kline{"000001": uptrendBars(60)},
		stocks: map[string]contracts.StockBasic{"000001": {Code: "000001", Name: "平安银行"}},
	}
	o := testOrchestrator(t, data, &fakeStore{}, nil, nil)

	rec, results, err := o.RunForStock(context.Background(), "000001", contracts.StyleSwing)
	require.NoError(t, err)

	assert.Len(t, results, len(contracts.Dimensions))
	assert.Equal(t, "000001", rec.StockCode)
	assert.Equal(t, "平安银行", rec.StockName)
	// last close of the 60-bar uptrend
	assert.InDelta(t, 15.9, rec.EntryPrice, 1e-9)
	assert.GreaterOrEqual(t, rec.Score, 0.0)
	assert.LessOrEqual(t, rec.Score, 100.0)

	// technical had full data and must not be degraded
	assert.False(t, results[contracts.DimTechnical].Degraded())
	// news had neither scores nor AI and degrades
	assert.True(t, results[contracts.DimNews].Degraded())
}

func TestRunForStockAllProvidersDown(t *testing.T) {
	data := &fakeData{klines: map[string][]contracts.Kline{}}
	o := testOrchestrator(t, data, &fakeStore{}, nil, nil)

	_, _, err := o.RunForStock(context.Background(), "999999", contracts.StyleSwing)
	require.Error(t, err)
	assert.True(t, contracts.IsDataUnavailable(err))
}

func TestRunForUniverseIsolatesFailures(t *testing.T) {
	data := &fakeData{
		klines: map[string][]contracts.Kline{"000001": uptrendBars(60)},
		stocks: map[string]contracts.StockBasic{"000001": {Code: "000001", Name: "平安银行"}},
	}
	store := &fakeStore{universe: []contracts.StockBasic{
		{Code: "000001", Name: "平安银行"},
		{Code: "999999", Name: "幽灵股份"},
	}}
	sink := &recordingSink{}
	o := testOrchestrator(t, data, store, sink, nil)

	result, err := o.RunForUniverse(context.Background(), contracts.StyleSwing)
	require.NoError(t, err)

	assert.Len(t, result.Recommendations, 1)
	assert.Equal(t, "000001", result.Recommendations[0].StockCode)
	require.Contains(t, result.Failures, "999999")
	assert.Contains(t, result.Failures["999999"], "data unavailable")

	// persisted exactly once, already ranked
	require.Len(t, store.saved, 1)
	assert.Equal(t, result.Recommendations, store.saved[0])

	stages := sink.stages()
	require.NotEmpty(t, stages)
	assert.Equal(t, StageStarted, stages[0])
	assert.Equal(t, StageCompleted, stages[len(stages)-1])
	assert.Contains(t, stages, StageStockFail)
	assert.Contains(t, stages, StageStockDone)
	assert.Contains(t, stages, StagePersist)
}

func TestRunForUniverseRanksDeterministically(t *testing.T) {
	data := &fakeData{
		klines: map[string][]contracts.Kline{
			"000001": uptrendBars(60),
			"000002": uptrendBars(60),
		},
		stocks: map[string]contracts.StockBasic{},
	}
	store := &fakeStore{universe: []contracts.StockBasic{
		{Code: "000002"}, {Code: "000001"},
	}}
	o := testOrchestrator(t, data, store, nil, nil)

	first, err := o.RunForUniverse(context.Background(), contracts.StyleSwing)
	require.NoError(t, err)
	second, err := o.RunForUniverse(context.Background(), contracts.StyleSwing)
	require.NoError(t, err)

	require.Len(t, first.Recommendations, 2)
	// identical fixtures tie on score and confidence, code breaks the tie
	assert.Equal(t, "000001", first.Recommendations[0].StockCode)
	assert.Equal(t, first.Recommendations[0].StockCode, second.Recommendations[0].StockCode)
	assert.Equal(t, first.Recommendations[1].StockCode, second.Recommendations[1].StockCode)
}

func TestFreshBudgetPerRun(t *testing.T) {
	data := &fakeData{
		klines: map[string][]contracts.Kline{"000001": uptrendBars(60)},
		stocks: map[string]contracts.StockBasic{},
	}
	store := &fakeStore{universe: []contracts.StockBasic{{Code: "000001"}}}

	var factoryCalls int
	newAI := func() (*ai.Budget, analyzers.NewsScorer, analyzers.FactorScorer) {
		factoryCalls++
		return ai.NewBudget(0, nil), nil, nil
	}
	o := testOrchestrator(t, data, store, nil, newAI)

	_, err := o.RunForUniverse(context.Background(), contracts.StyleSwing)
	require.NoError(t, err)
	_, err = o.RunForUniverse(context.Background(), contracts.StyleSwing)
	require.NoError(t, err)

	assert.Equal(t, 2, factoryCalls)
}
