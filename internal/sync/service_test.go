package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/logger"
)

type fakeSource struct {
	stocks   []contracts.StockBasic
	klines   map[string][]contracts.Kline
	news     map[string][]contracts.NewsArticle
	failing  map[string]bool
	fetchErr error
}

func (f *fakeSource) FetchStockList(ctx context.Context) ([]contracts.StockBasic, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.stocks, nil
}

func (f *fakeSource) FetchKline(ctx context.Context, code string, days int) ([]contracts.Kline, error) {
	if f.failing[code] {
		return nil, errors.New("provider down")
	}
	return f.klines[code], nil
}

func (f *fakeSource) FetchMoneyFlow(ctx context.Context, code string, days int) ([]contracts.MoneyFlow, error) {
	return []contracts.MoneyFlow{{Date: time.Now(), MainNet: 1000}}, nil
}

func (f *fakeSource) FetchMarginData(ctx context.Context, code string, days int) ([]contracts.MarginData, error) {
	return []contracts.MarginData{{Date: time.Now(), MarginBalance: 5000}}, nil
}

func (f *fakeSource) FetchFinancialReports(ctx context.Context, code string) ([]contracts.FinancialReport, error) {
	return []contracts.FinancialReport{{Period: "2025Q2"}}, nil
}

func (f *fakeSource) FetchNews(ctx context.Context, code string, days int) ([]contracts.NewsArticle, error) {
	if f.failing[code] {
		return nil, errors.New("provider down")
	}
	return f.news[code], nil
}

type fakeStore struct {
	mu        gosync.Mutex
	stocks    []contracts.StockBasic
	klines    map[string][]contracts.Kline
	articles  map[string][]contracts.NewsArticle
	sentiment map[string]float64 // keyed by url
}

func newFakeStore(stocks ...contracts.StockBasic) *fakeStore {
	return &fakeStore{
		stocks:    stocks,
		klines:    make(map[string][]contracts.Kline),
		articles:  make(map[string][]contracts.NewsArticle),
		sentiment: make(map[string]float64),
	}
}

func (f *fakeStore) UpsertStocks(ctx context.Context, stocks []contracts.StockBasic) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stocks = stocks
	return nil
}

func (f *fakeStore) ActiveStocks(ctx context.Context, limit int) ([]contracts.StockBasic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stocks, nil
}

func (f *fakeStore) SaveKlines(ctx context.Context, code string, klines []contracts.Kline) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.klines[code] = klines
	return nil
}

func (f *fakeStore) SaveMoneyFlows(ctx context.Context, code string, flows []contracts.MoneyFlow) error {
	return nil
}

func (f *fakeStore) SaveMarginData(ctx context.Context, code string, rows []contracts.MarginData) error {
	return nil
}

func (f *fakeStore) SaveReports(ctx context.Context, code string, reports []contracts.FinancialReport) error {
	return nil
}

func (f *fakeStore) SaveArticles(ctx context.Context, code string, articles []contracts.NewsArticle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.articles[code] = append(f.articles[code], articles...)
	return nil
}

func (f *fakeStore) UnscoredNews(ctx context.Context, code string, limit int) ([]contracts.NewsArticle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []contracts.NewsArticle
	for _, a := range f.articles[code] {
		if _, scored := f.sentiment[a.URL]; !scored {
			out = append(out, a)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) SetNewsSentiment(ctx context.Context, code, url string, score float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentiment[url] = score
	return nil
}

func (f *fakeStore) Klines(ctx context.Context, code string, days int) ([]contracts.Kline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.klines[code], nil
}

type fakeScorer struct {
	calls int
}

func (f *fakeScorer) ScoreArticles(ctx context.Context, code string, articles []contracts.NewsArticle) ([]float64, error) {
	f.calls++
	scores := make([]float64, len(articles))
	for i := range scores {
		scores[i] = 0.5
	}
	return scores, nil
}

func bars(n int, start time.Time) []contracts.Kline {
	out := make([]contracts.Kline, n)
	for i := range out {
		out[i] = contracts.Kline{
			Date:  start.AddDate(0, 0, i),
			Close: 10 + float64(i)*0.1,
		}
	}
	return out
}

func stock(code string) contracts.StockBasic {
	return contracts.StockBasic{Code: code, Name: "测试" + code, IsActive: true}
}

func TestSyncStockListWritesUniverse(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{stocks: []contracts.StockBasic{stock("000001"), stock("600519")}}
	svc := NewService(source, store, nil, 2, logger.Nop())

	n, err := svc.SyncStockList(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, store.stocks, 2)
}

func TestSyncStockListSurfacesFetchError(t *testing.T) {
	store := newFakeStore()
	source := &fakeSource{fetchErr: errors.New("all providers down")}
	svc := NewService(source, store, nil, 2, logger.Nop())

	_, err := svc.SyncStockList(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all providers down")
}

func TestSyncDailyKlineIsolatesFailures(t *testing.T) {
	start := time.Now().AddDate(0, 0, -5)
	store := newFakeStore(stock("000001"), stock("999999"))
	source := &fakeSource{
		klines:  map[string][]contracts.Kline{"000001": bars(5, start)},
		failing: map[string]bool{"999999": true},
	}
	svc := NewService(source, store, nil, 2, logger.Nop())

	result, err := svc.SyncDailyKline(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 5, result.Rows)
	assert.Contains(t, result.Errors["999999"], "provider down")
	assert.Len(t, store.klines["000001"], 5)
}

func TestSyncNewsBackfillsSentiment(t *testing.T) {
	store := newFakeStore(stock("000001"))
	source := &fakeSource{
		news: map[string][]contracts.NewsArticle{
			"000001": {
				{Title: "一号", URL: "https://news.example.com/1", PublishedAt: time.Now()},
				{Title: "二号", URL: "https://news.example.com/2", PublishedAt: time.Now()},
			},
		},
	}
	scorer := &fakeScorer{}
	svc := NewService(source, store, scorer, 2, logger.Nop())

	result, err := svc.SyncNews(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, scorer.calls)
	assert.Equal(t, 0.5, store.sentiment["https://news.example.com/1"])
	assert.Equal(t, 0.5, store.sentiment["https://news.example.com/2"])
}

func TestSyncNewsWithoutScorerLeavesArticlesUnscored(t *testing.T) {
	store := newFakeStore(stock("000001"))
	source := &fakeSource{
		news: map[string][]contracts.NewsArticle{
			"000001": {{Title: "一号", URL: "https://news.example.com/1", PublishedAt: time.Now()}},
		},
	}
	svc := NewService(source, store, nil, 2, logger.Nop())

	result, err := svc.SyncNews(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Empty(t, store.sentiment)
}

func TestValidateDataPassesOnFreshContinuousBars(t *testing.T) {
	store := newFakeStore(stock("000001"))
	store.klines["000001"] = bars(10, time.Now().AddDate(0, 0, -9))
	svc := NewService(&fakeSource{}, store, nil, 2, logger.Nop())

	report, err := svc.ValidateData(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Passed())
	assert.Equal(t, 1, report.Valid)
	assert.Equal(t, 1.0, report.Coverage())
}

func TestValidateDataFlagsMissingAndStale(t *testing.T) {
	store := newFakeStore(stock("000001"), stock("000002"))
	// 000001 has no rows at all, 000002 stopped updating a month ago.
	store.klines["000002"] = bars(10, time.Now().AddDate(0, 0, -40))
	svc := NewService(&fakeSource{}, store, nil, 2, logger.Nop())

	report, err := svc.ValidateData(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Passed())
	assert.Equal(t, 0, report.Valid)
	require.Len(t, report.Issues, 2)

	problems := make(map[string]string)
	for _, issue := range report.Issues {
		problems[issue.StockCode] = issue.Problem
	}
	assert.Equal(t, "no kline data", problems["000001"])
	assert.Contains(t, problems["000002"], "stale data")
}

func TestValidateDataFlagsGaps(t *testing.T) {
	store := newFakeStore(stock("000001"))
	recent := bars(3, time.Now().AddDate(0, 0, -2))
	old := bars(2, time.Now().AddDate(0, 0, -30))
	store.klines["000001"] = append(old, recent...)
	svc := NewService(&fakeSource{}, store, nil, 2, logger.Nop())

	report, err := svc.ValidateData(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.Contains(t, report.Issues[0].Problem, "gap of")
}

func TestResultFailedCountsErrors(t *testing.T) {
	r := Result{Total: 3, Succeeded: 1, Errors: map[string]string{"a": "x", "b": "y"}}
	assert.Equal(t, 2, r.Failed())
}
