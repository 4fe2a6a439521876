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

// fakeData serves canned history to analyzers under test.
type fakeData struct {
	klines   map[string][]contracts.Kline
	flows    []contracts.MoneyFlow
	margins  []contracts.MarginData
	reports  []contracts.FinancialReport
	news     []contracts.NewsArticle
	breadth  []contracts.MarketBreadth
	stocks   map[string]contracts.StockBasic
	peers    []string
	fetchErr error
}

func (f *fakeData) Klines(ctx context.Context, code string, days int) ([]contracts.Kline, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.klines[code], nil
}

func (f *fakeData) MoneyFlows(ctx context.Context, code string, days int) ([]contracts.MoneyFlow, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.flows, nil
}

func (f *fakeData) MarginRows(ctx context.Context, code string, days int) ([]contracts.MarginData, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.margins, nil
}

func (f *fakeData) FinancialReports(ctx context.Context, code string, limit int) ([]contracts.FinancialReport, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.reports, nil
}

func (f *fakeData) News(ctx context.Context, code string, days int) ([]contracts.NewsArticle, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.news, nil
}

func (f *fakeData) MarketBreadth(ctx context.Context, days int) ([]contracts.MarketBreadth, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.breadth, nil
}

func (f *fakeData) Stock(ctx context.Context, code string) (contracts.StockBasic, error) {
	if f.fetchErr != nil {
		return contracts.StockBasic{}, f.fetchErr
	}
	s, ok := f.stocks[code]
	if !ok {
		return contracts.StockBasic{}, errors.New("not found")
	}
	return s, nil
}

func (f *fakeData) SectorCodes(ctx context.Context, industry string) ([]string, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.peers, nil
}

// trendBars builds n daily bars walking the close by step per day.
func trendBars(n int, start, step float64, vol int64) []contracts.Kline {
	bars := make([]contracts.Kline, n)
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	c := start
	for i := range bars {
		v := vol + int64(i)*1000
		bars[i] = contracts.Kline{
			Date:   day.AddDate(0, 0, i),
			Open:   c - step/2,
			High:   c + 0.2,
			Low:    c - 0.2,
			Close:  c,
			Volume: v,
			Amount: c * float64(v),
		}
		c += step
	}
	return bars
}

func ptr(v float64) *float64 { return &v }

func TestSuiteCoversAllDimensions(t *testing.T) {
	suite := Suite(&fakeData{}, nil, nil, logger.Nop())
	assert.Len(t, suite, len(contracts.Dimensions))
	for i, a := range suite {
		assert.Equal(t, contracts.Dimensions[i], a.Name())
	}
}

func TestDegradedOnFetchError(t *testing.T) {
	data := &fakeData{fetchErr: errors.New("db down")}
	ctx := context.Background()
	asOf := time.Now()

	for _, a := range Suite(data, nil, nil, logger.Nop()) {
		res := a.Analyze(ctx, "000001", asOf)
		if a.Name() == contracts.DimMacro {
			// macro is a placeholder, not data-driven
			continue
		}
		assert.True(t, res.Degraded(), "%s should degrade on fetch error", a.Name())
		assert.Equal(t, 50.0, res.Score, a.Name())
		assert.Equal(t, contracts.SignalHold, res.Signal, a.Name())
		assert.NotEmpty(t, res.Explanation, a.Name())
	}
}

func TestScoresStayInRange(t *testing.T) {
	data := &fakeData{
		klines: map[string][]contracts.Kline{
			"000001": trendBars(120, 10, 0.15, 100000),
		},
		flows: []contracts.MoneyFlow{
			{MainNet: 5_000_000, HugeNet: 3_000_000, BigNet: 2_000_000, MidNet: -2_000_000, SmallNet: -3_000_000},
			{MainNet: 4_000_000, HugeNet: 2_000_000, BigNet: 2_000_000, MidNet: -1_000_000, SmallNet: -3_000_000},
			{MainNet: 6_000_000, HugeNet: 4_000_000, BigNet: 2_000_000, MidNet: -3_000_000, SmallNet: -3_000_000},
			{MainNet: 5_000_000, HugeNet: 3_000_000, BigNet: 2_000_000, MidNet: -2_000_000, SmallNet: -3_000_000},
			{MainNet: 7_000_000, HugeNet: 5_000_000, BigNet: 2_000_000, MidNet: -4_000_000, SmallNet: -3_000_000},
		},
		margins: []contracts.MarginData{
			{MarginBalance: 100, ShortBalance: 50, MarginBuy: 30, MarginRepay: 20},
			{MarginBalance: 105, ShortBalance: 48, MarginBuy: 30, MarginRepay: 20},
			{MarginBalance: 110, ShortBalance: 45, MarginBuy: 30, MarginRepay: 20},
			{MarginBalance: 118, ShortBalance: 42, MarginBuy: 30, MarginRepay: 20},
			{MarginBalance: 125, ShortBalance: 40, MarginBuy: 30, MarginRepay: 20},
		},
		reports: []contracts.FinancialReport{
			{Period: "2025Q2", PERatio: ptr(12), PBRatio: ptr(1.5), ROE: ptr(16), Revenue: ptr(1200), NetProfit: ptr(150), GrossMargin: ptr(40), DebtRatio: ptr(45)},
			{Period: "2025Q1", PERatio: ptr(13), PBRatio: ptr(1.6), ROE: ptr(15), Revenue: ptr(1000), NetProfit: ptr(120), GrossMargin: ptr(38), DebtRatio: ptr(46)},
		},
		breadth: []contracts.MarketBreadth{
			{Advances: 3000, Declines: 1500, LimitUp: 60, LimitDown: 10, AvgTurnover: 2.0},
			{Advances: 2800, Declines: 1700, LimitUp: 50, LimitDown: 15, AvgTurnover: 2.1},
			{Advances: 3200, Declines: 1300, LimitUp: 70, LimitDown: 5, AvgTurnover: 2.6},
		},
		stocks: map[string]contracts.StockBasic{
			"000001": {Code: "000001", Name: "Ping An Bank", Industry: "bank"},
		},
	}

	ctx := context.Background()
	asOf := time.Now()

	for _, a := range Suite(data, nil, nil, logger.Nop()) {
		res := a.Analyze(ctx, "000001", asOf)
		assert.GreaterOrEqual(t, res.Score, 0.0, a.Name())
		assert.LessOrEqual(t, res.Score, 100.0, a.Name())
		assert.GreaterOrEqual(t, res.Confidence, 0.0, a.Name())
		assert.LessOrEqual(t, res.Confidence, 1.0, a.Name())
		assert.Contains(t, []contracts.Signal{contracts.SignalBuy, contracts.SignalSell, contracts.SignalHold}, res.Signal, a.Name())
	}
}
