package simulator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/config"
	"github.com/vvnuui/cerisier/pkg/logger"
)

func testEngine(t *testing.T) (*Engine, *MemoryStore, contracts.Portfolio) {
	t.Helper()
	store := NewMemoryStore()
	engine := NewEngine(store, config.EngineConfig{
		CommissionRate: 0.0005,
		MinCommission:  5,
	}, logger.Nop())

	p, err := store.CreatePortfolio(context.Background(), "paper", 100000)
	require.NoError(t, err)
	return engine, store, p
}

func TestBuySellRoundTrip(t *testing.T) {
	e, store, p := testEngine(t)
	ctx := context.Background()

	trade, err := e.Buy(ctx, p.ID, "000001", 1000, 10.00, "signal")
	require.NoError(t, err)
	assert.Equal(t, 10000.0, trade.Amount)
	assert.Equal(t, 5.0, trade.Commission)

	got, err := store.Portfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 89995.0, got.CashBalance)

	pos, err := store.Position(ctx, p.ID, "000001")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), pos.Shares)
	assert.Equal(t, 10.00, pos.AvgCost)

	trade, err = e.Sell(ctx, p.ID, "000001", 1000, 11.00, "take profit")
	require.NoError(t, err)
	assert.Equal(t, 5.5, trade.Commission)
	require.NotNil(t, trade.RealizedPnL)
	assert.Equal(t, 994.5, *trade.RealizedPnL)

	got, err = store.Portfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 100989.5, got.CashBalance)

	_, err = store.Position(ctx, p.ID, "000001")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestBuyInsufficientFundsLeavesStateUntouched(t *testing.T) {
	e, store, p := testEngine(t)
	ctx := context.Background()

	_, err := e.Buy(ctx, p.ID, "600519", 1000, 1800.00, "")
	assert.ErrorIs(t, err, contracts.ErrInsufficientFunds)

	got, err := store.Portfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 100000.0, got.CashBalance)

	positions, err := store.Positions(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, positions)

	trades, err := store.Trades(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestSellInsufficientShares(t *testing.T) {
	e, store, p := testEngine(t)
	ctx := context.Background()

	_, err := e.Sell(ctx, p.ID, "000001", 100, 10.00, "")
	assert.ErrorIs(t, err, contracts.ErrInsufficientShares)

	_, err = e.Buy(ctx, p.ID, "000001", 100, 10.00, "")
	require.NoError(t, err)

	_, err = e.Sell(ctx, p.ID, "000001", 200, 10.00, "")
	assert.ErrorIs(t, err, contracts.ErrInsufficientShares)

	// state untouched by the rejected sell
	pos, err := store.Position(ctx, p.ID, "000001")
	require.NoError(t, err)
	assert.Equal(t, int64(100), pos.Shares)
}

func TestDeactivatedPortfolioRejectsTrades(t *testing.T) {
	e, store, p := testEngine(t)
	ctx := context.Background()

	_, err := e.Buy(ctx, p.ID, "000001", 100, 10.00, "")
	require.NoError(t, err)

	require.NoError(t, store.DeactivatePortfolio(ctx, p.ID))

	_, err = e.Buy(ctx, p.ID, "000001", 100, 10.00, "")
	assert.ErrorIs(t, err, contracts.ErrPortfolioInactive)
	_, err = e.Sell(ctx, p.ID, "000001", 100, 10.00, "")
	assert.ErrorIs(t, err, contracts.ErrPortfolioInactive)

	// history stays readable
	trades, err := store.Trades(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, trades, 1)

	err = store.DeactivatePortfolio(ctx, 999)
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestWeightedAverageCost(t *testing.T) {
	e, store, p := testEngine(t)
	ctx := context.Background()

	_, err := e.Buy(ctx, p.ID, "000001", 100, 10.00, "")
	require.NoError(t, err)
	_, err = e.Buy(ctx, p.ID, "000001", 100, 12.00, "")
	require.NoError(t, err)

	pos, err := store.Position(ctx, p.ID, "000001")
	require.NoError(t, err)
	assert.Equal(t, int64(200), pos.Shares)
	// (100x10 + 100x12) / 200, commission excluded from basis
	assert.Equal(t, 11.0, pos.AvgCost)
}

func TestMinimumCommission(t *testing.T) {
	e, store, p := testEngine(t)
	ctx := context.Background()

	// 100 x 10 = 1000, rate gives 0.50, floor is 5
	trade, err := e.Buy(ctx, p.ID, "000001", 100, 10.00, "")
	require.NoError(t, err)
	assert.Equal(t, 5.0, trade.Commission)

	got, err := store.Portfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 98995.0, got.CashBalance)
}

func TestRejectsNonPositiveOrders(t *testing.T) {
	e, _, p := testEngine(t)
	ctx := context.Background()

	_, err := e.Buy(ctx, p.ID, "000001", 0, 10.00, "")
	assert.Error(t, err)
	_, err = e.Buy(ctx, p.ID, "000001", 100, -1, "")
	assert.Error(t, err)
	_, err = e.Sell(ctx, p.ID, "000001", -100, 10.00, "")
	assert.Error(t, err)
}

func TestPartialSellKeepsPosition(t *testing.T) {
	e, store, p := testEngine(t)
	ctx := context.Background()

	_, err := e.Buy(ctx, p.ID, "000001", 1000, 10.00, "")
	require.NoError(t, err)
	_, err = e.Sell(ctx, p.ID, "000001", 400, 11.00, "")
	require.NoError(t, err)

	pos, err := store.Position(ctx, p.ID, "000001")
	require.NoError(t, err)
	assert.Equal(t, int64(600), pos.Shares)
	assert.Equal(t, 10.00, pos.AvgCost)
	assert.Equal(t, 11.00, pos.CurrentPrice)
}

// fakePrices is a PriceSource over a fixed close table.
type fakePrices map[string]float64

func (f fakePrices) LatestCloses(ctx context.Context, codes []string) (map[string]float64, error) {
	out := make(map[string]float64, len(codes))
	for _, code := range codes {
		if px, ok := f[code]; ok {
			out[code] = px
		}
	}
	return out, nil
}

func TestMarkToMarketRefreshesValuation(t *testing.T) {
	e, store, p := testEngine(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	_, err := e.Buy(ctx, p.ID, "000001", 1000, 10.00, "")
	require.NoError(t, err)

	// the close moved without a trade; valuation must follow it
	require.NoError(t, e.MarkToMarket(ctx, p.ID, fakePrices{"000001": 12.00}))

	pos, err := store.Position(ctx, p.ID, "000001")
	require.NoError(t, err)
	assert.Equal(t, 12.00, pos.CurrentPrice)

	m, err := e.CalculatePerformance(ctx, p.ID, day)
	require.NoError(t, err)
	// cash 89995 + 1000 shares at the refreshed 12.00 mark
	assert.Equal(t, 101995.0, m.TotalValue)
}

func TestMarkToMarketKeepsStaleMarkWhenCloseMissing(t *testing.T) {
	e, store, p := testEngine(t)
	ctx := context.Background()

	_, err := e.Buy(ctx, p.ID, "000001", 100, 10.00, "")
	require.NoError(t, err)

	require.NoError(t, e.MarkToMarket(ctx, p.ID, fakePrices{}))

	pos, err := store.Position(ctx, p.ID, "000001")
	require.NoError(t, err)
	assert.Equal(t, 10.00, pos.CurrentPrice)
}

func TestCalculatePerformanceSeries(t *testing.T) {
	e, _, p := testEngine(t)
	ctx := context.Background()
	day1 := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	_, err := e.Buy(ctx, p.ID, "000001", 1000, 10.00, "")
	require.NoError(t, err)

	// day 1: cash 89995 + 10000 held = 99995
	m1, err := e.CalculatePerformance(ctx, p.ID, day1)
	require.NoError(t, err)
	assert.Equal(t, 99995.0, m1.TotalValue)
	assert.InDelta(t, -0.005, m1.DailyReturn, 1e-9)
	assert.InDelta(t, -0.005, m1.CumulativeReturn, 1e-9)
	assert.Equal(t, 0.0, m1.MaxDrawdown)
	assert.Nil(t, m1.SharpeRatio, "one data point is not enough for Sharpe")
	assert.Nil(t, m1.WinRate, "no closed trades yet")

	// day 2: mark to 11.00
	require.NoError(t, e.MarkPrices(ctx, p.ID, map[string]float64{"000001": 11.00}))
	m2, err := e.CalculatePerformance(ctx, p.ID, day1.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 100995.0, m2.TotalValue)
	assert.InDelta(t, 1.00005, m2.DailyReturn, 0.001)
	assert.Equal(t, 0.0, m2.MaxDrawdown)
	assert.NotNil(t, m2.SharpeRatio)

	// day 3: close the position at a profit
	_, err = e.Sell(ctx, p.ID, "000001", 1000, 11.00, "")
	require.NoError(t, err)
	m3, err := e.CalculatePerformance(ctx, p.ID, day1.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.NotNil(t, m3.WinRate)
	assert.Equal(t, 100.0, *m3.WinRate)
}

func TestCalculatePerformanceIdempotent(t *testing.T) {
	e, store, p := testEngine(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	m1, err := e.CalculatePerformance(ctx, p.ID, day)
	require.NoError(t, err)

	// later the same day, recomputation overwrites instead of appending
	m2, err := e.CalculatePerformance(ctx, p.ID, day.Add(6*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, m1.TotalValue, m2.TotalValue)
	assert.Equal(t, m1.DailyReturn, m2.DailyReturn)

	history, err := store.Metrics(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSharpeUndefinedAtZeroVariance(t *testing.T) {
	e, _, p := testEngine(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// flat value across days: stddev 0
	for i := 0; i < 3; i++ {
		m, err := e.CalculatePerformance(ctx, p.ID, day.AddDate(0, 0, i))
		require.NoError(t, err)
		assert.Nil(t, m.SharpeRatio)
	}
}

func TestDrawdownIsNegativeOnDecline(t *testing.T) {
	e, _, p := testEngine(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	_, err := e.Buy(ctx, p.ID, "000001", 1000, 10.00, "")
	require.NoError(t, err)
	_, err = e.CalculatePerformance(ctx, p.ID, day)
	require.NoError(t, err)

	require.NoError(t, e.MarkPrices(ctx, p.ID, map[string]float64{"000001": 9.00}))
	m, err := e.CalculatePerformance(ctx, p.ID, day.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Less(t, m.MaxDrawdown, 0.0)
}

func TestDistinctPortfoliosTradeConcurrently(t *testing.T) {
	store := NewMemoryStore()
	e := NewEngine(store, config.EngineConfig{CommissionRate: 0.0005, MinCommission: 5}, logger.Nop())
	ctx := context.Background()

	ids := make([]int64, 4)
	for i := range ids {
		p, err := store.CreatePortfolio(ctx, "paper", 100000)
		require.NoError(t, err)
		ids[i] = p.ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, err := e.Buy(ctx, id, "000001", 100, 10.00, "")
				assert.NoError(t, err)
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		pos, err := store.Position(ctx, id, "000001")
		require.NoError(t, err)
		assert.Equal(t, int64(1000), pos.Shares)

		p, err := store.Portfolio(ctx, id)
		require.NoError(t, err)
		// 10 buys x (1000 + 5 commission)
		assert.Equal(t, 100000.0-10*1005.0, p.CashBalance)
	}
}
