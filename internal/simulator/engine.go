// Package simulator is the paper trading engine: portfolio state over
// buy/sell execution with A-share commission rules, plus idempotent
// performance metric recomputation.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/config"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// tradingDaysPerYear annualizes the Sharpe ratio.
const tradingDaysPerYear = 252

// Engine executes paper trades against a Store. Mutation is serialized
// per portfolio; distinct portfolios proceed concurrently.
type Engine struct {
	store          Store
	commissionRate float64
	minCommission  float64
	logger         *logger.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewEngine creates the engine from engine configuration.
func NewEngine(store Store, cfg config.EngineConfig, log *logger.Logger) *Engine {
	return &Engine{
		store:          store,
		commissionRate: cfg.CommissionRate,
		minCommission:  cfg.MinCommission,
		logger:         log.WithComponent("simulator"),
		locks:          make(map[int64]*sync.Mutex),
	}
}

// portfolioLock returns the mutex serializing one portfolio's trades.
func (e *Engine) portfolioLock(id int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

// commission applies the configured rate with the A-share minimum.
func (e *Engine) commission(amount float64) float64 {
	c := contracts.Round2(e.commissionRate * amount)
	if c < e.minCommission {
		c = e.minCommission
	}
	return c
}

// Buy executes a buy order. It rejects with ErrInsufficientFunds when
// amount plus commission exceeds the cash balance, leaving state
// untouched.
func (e *Engine) Buy(ctx context.Context, portfolioID int64, code string, shares int64, price float64, reason string) (contracts.Trade, error) {
	if shares <= 0 {
		return contracts.Trade{}, fmt.Errorf("shares must be positive, got %d", shares)
	}
	if price <= 0 {
		return contracts.Trade{}, fmt.Errorf("price must be positive, got %.4f", price)
	}

	lock := e.portfolioLock(portfolioID)
	lock.Lock()
	defer lock.Unlock()

	p, err := e.store.Portfolio(ctx, portfolioID)
	if err != nil {
		return contracts.Trade{}, err
	}
	if !p.IsActive {
		return contracts.Trade{}, fmt.Errorf("portfolio %d: %w", portfolioID, contracts.ErrPortfolioInactive)
	}

	amount := contracts.Round2(float64(shares) * price)
	comm := e.commission(amount)
	totalCost := amount + comm

	if totalCost > p.CashBalance {
		return contracts.Trade{}, fmt.Errorf("need %.2f, have %.2f: %w",
			totalCost, p.CashBalance, contracts.ErrInsufficientFunds)
	}

	pos, err := e.store.Position(ctx, portfolioID, code)
	switch {
	case err == nil:
		// weighted average cost, commission excluded from basis
		oldCost := float64(pos.Shares) * pos.AvgCost
		pos.AvgCost = contracts.Round4((oldCost + amount) / float64(pos.Shares+shares))
		pos.Shares += shares
	case errors.Is(err, contracts.ErrNotFound):
		pos = contracts.Position{
			PortfolioID: portfolioID,
			StockCode:   code,
			Shares:      shares,
			AvgCost:     contracts.Round4(price),
		}
	default:
		return contracts.Trade{}, err
	}
	pos.CurrentPrice = price
	pos.UpdatedAt = time.Now()

	trade, err := e.store.CommitTrade(ctx, TradeCommit{
		PortfolioID: portfolioID,
		CashBalance: contracts.Round2(p.CashBalance - totalCost),
		Position:    &pos,
		Trade: contracts.Trade{
			PortfolioID: portfolioID,
			StockCode:   code,
			Type:        contracts.TradeBuy,
			Shares:      shares,
			Price:       price,
			Amount:      amount,
			Commission:  comm,
			Reason:      reason,
			ExecutedAt:  time.Now(),
		},
	})
	if err != nil {
		return contracts.Trade{}, fmt.Errorf("commit buy: %w", err)
	}

	e.logger.WithFields(map[string]interface{}{
		"portfolio": portfolioID,
		"stock":     code,
		"shares":    shares,
		"price":     price,
	}).Info("BUY executed")

	return trade, nil
}

// Sell executes a sell order. It rejects with ErrInsufficientShares
// when shares exceed the held quantity, leaving state untouched.
// Realized P&L is recorded on the trade for win-rate accounting.
func (e *Engine) Sell(ctx context.Context, portfolioID int64, code string, shares int64, price float64, reason string) (contracts.Trade, error) {
	if shares <= 0 {
		return contracts.Trade{}, fmt.Errorf("shares must be positive, got %d", shares)
	}
	if price <= 0 {
		return contracts.Trade{}, fmt.Errorf("price must be positive, got %.4f", price)
	}

	lock := e.portfolioLock(portfolioID)
	lock.Lock()
	defer lock.Unlock()

	p, err := e.store.Portfolio(ctx, portfolioID)
	if err != nil {
		return contracts.Trade{}, err
	}
	if !p.IsActive {
		return contracts.Trade{}, fmt.Errorf("portfolio %d: %w", portfolioID, contracts.ErrPortfolioInactive)
	}

	pos, err := e.store.Position(ctx, portfolioID, code)
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			return contracts.Trade{}, fmt.Errorf("no position in %s: %w", code, contracts.ErrInsufficientShares)
		}
		return contracts.Trade{}, err
	}
	if pos.Shares < shares {
		return contracts.Trade{}, fmt.Errorf("have %d, need %d: %w",
			pos.Shares, shares, contracts.ErrInsufficientShares)
	}

	amount := contracts.Round2(float64(shares) * price)
	comm := e.commission(amount)
	realized := contracts.Round2((price-pos.AvgCost)*float64(shares) - comm)

	commit := TradeCommit{
		PortfolioID: portfolioID,
		CashBalance: contracts.Round2(p.CashBalance + amount - comm),
		Trade: contracts.Trade{
			PortfolioID: portfolioID,
			StockCode:   code,
			Type:        contracts.TradeSell,
			Shares:      shares,
			Price:       price,
			Amount:      amount,
			Commission:  comm,
			RealizedPnL: &realized,
			Reason:      reason,
			ExecutedAt:  time.Now(),
		},
	}

	if pos.Shares == shares {
		commit.RemoveCode = code
	} else {
		pos.Shares -= shares
		pos.CurrentPrice = price
		pos.UpdatedAt = time.Now()
		commit.Position = &pos
	}

	trade, err := e.store.CommitTrade(ctx, commit)
	if err != nil {
		return contracts.Trade{}, fmt.Errorf("commit sell: %w", err)
	}

	e.logger.WithFields(map[string]interface{}{
		"portfolio":    portfolioID,
		"stock":        code,
		"shares":       shares,
		"price":        price,
		"realized_pnl": realized,
	}).Info("SELL executed")

	return trade, nil
}

// PriceSource supplies the latest close per stock code.
type PriceSource interface {
	LatestCloses(ctx context.Context, codes []string) (map[string]float64, error)
}

// MarkToMarket refreshes the portfolio's position marks from the
// latest closes so valuation reflects price moves since the last
// trade. Codes without a stored close keep their previous mark.
func (e *Engine) MarkToMarket(ctx context.Context, portfolioID int64, prices PriceSource) error {
	positions, err := e.store.Positions(ctx, portfolioID)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		return nil
	}

	codes := make([]string, 0, len(positions))
	for _, pos := range positions {
		codes = append(codes, pos.StockCode)
	}

	closes, err := prices.LatestCloses(ctx, codes)
	if err != nil {
		return fmt.Errorf("latest closes: %w", err)
	}
	return e.MarkPrices(ctx, portfolioID, closes)
}

// MarkPrices refreshes position current prices from the latest closes.
// Codes missing from prices keep their previous mark.
func (e *Engine) MarkPrices(ctx context.Context, portfolioID int64, prices map[string]float64) error {
	lock := e.portfolioLock(portfolioID)
	lock.Lock()
	defer lock.Unlock()

	positions, err := e.store.Positions(ctx, portfolioID)
	if err != nil {
		return err
	}
	for _, pos := range positions {
		price, ok := prices[pos.StockCode]
		if !ok || price <= 0 {
			continue
		}
		pos.CurrentPrice = price
		pos.UpdatedAt = time.Now()
		if err := e.store.SavePosition(ctx, pos); err != nil {
			return fmt.Errorf("mark %s: %w", pos.StockCode, err)
		}
	}
	return nil
}

// Summary is the current value breakdown of one portfolio.
type Summary struct {
	Portfolio      contracts.Portfolio  `json:"portfolio"`
	Positions      []contracts.Position `json:"positions"`
	MarketValue    float64              `json:"market_value"`
	TotalValue     float64              `json:"total_value"`
	UnrealizedPnL  float64              `json:"unrealized_pnl"`
	TotalReturnPct float64              `json:"total_return_pct"`
}

// Summarize values the portfolio at current position marks.
func (e *Engine) Summarize(ctx context.Context, portfolioID int64) (Summary, error) {
	p, err := e.store.Portfolio(ctx, portfolioID)
	if err != nil {
		return Summary{}, err
	}
	positions, err := e.store.Positions(ctx, portfolioID)
	if err != nil {
		return Summary{}, err
	}

	var marketValue, unrealized float64
	for _, pos := range positions {
		marketValue += pos.MarketValue()
		unrealized += pos.UnrealizedPnL()
	}

	total := p.CashBalance + marketValue
	returnPct := 0.0
	if p.InitialCapital > 0 {
		returnPct = contracts.Round4((total - p.InitialCapital) / p.InitialCapital * 100)
	}

	return Summary{
		Portfolio:      p,
		Positions:      positions,
		MarketValue:    contracts.Round2(marketValue),
		TotalValue:     contracts.Round2(total),
		UnrealizedPnL:  contracts.Round2(unrealized),
		TotalReturnPct: returnPct,
	}, nil
}

// CalculatePerformance recomputes and upserts the metric row for asOf.
// Rerunning for the same date overwrites the prior row with identical
// values, so the operation is idempotent.
func (e *Engine) CalculatePerformance(ctx context.Context, portfolioID int64, asOf time.Time) (contracts.PerformanceMetric, error) {
	lock := e.portfolioLock(portfolioID)
	lock.Lock()
	defer lock.Unlock()

	p, err := e.store.Portfolio(ctx, portfolioID)
	if err != nil {
		return contracts.PerformanceMetric{}, err
	}
	positions, err := e.store.Positions(ctx, portfolioID)
	if err != nil {
		return contracts.PerformanceMetric{}, err
	}

	var marketValue float64
	for _, pos := range positions {
		marketValue += pos.MarketValue()
	}
	totalValue := contracts.Round2(p.CashBalance + marketValue)

	day := metricDay(asOf)
	history, err := e.store.Metrics(ctx, portfolioID)
	if err != nil {
		return contracts.PerformanceMetric{}, err
	}

	// prior rows only; a rerun for the same day must not see itself
	prior := history[:0:0]
	for _, m := range history {
		if metricDay(m.Date).Before(day) {
			prior = append(prior, m)
		}
	}

	prevValue := p.InitialCapital
	if n := len(prior); n > 0 {
		prevValue = prior[n-1].TotalValue
	}
	dailyReturn := 0.0
	if prevValue > 0 {
		dailyReturn = contracts.Round4((totalValue - prevValue) / prevValue * 100)
	}

	cumulative := 0.0
	if p.InitialCapital > 0 {
		cumulative = contracts.Round4((totalValue - p.InitialCapital) / p.InitialCapital * 100)
	}

	values := make([]float64, 0, len(prior)+1)
	returns := make([]float64, 0, len(prior)+1)
	for _, m := range prior {
		values = append(values, m.TotalValue)
		returns = append(returns, m.DailyReturn)
	}
	values = append(values, totalValue)
	returns = append(returns, dailyReturn)

	metric := contracts.PerformanceMetric{
		PortfolioID:      portfolioID,
		Date:             day,
		TotalValue:       totalValue,
		DailyReturn:      dailyReturn,
		CumulativeReturn: cumulative,
		MaxDrawdown:      maxDrawdown(values),
		SharpeRatio:      sharpeRatio(returns),
	}

	trades, err := e.store.Trades(ctx, portfolioID)
	if err != nil {
		return contracts.PerformanceMetric{}, err
	}
	metric.WinRate = winRate(trades)

	if err := e.store.SaveMetric(ctx, metric); err != nil {
		return contracts.PerformanceMetric{}, fmt.Errorf("save metric: %w", err)
	}
	return metric, nil
}

// maxDrawdown returns the worst peak-to-trough decline in percent,
// always <= 0.
func maxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	peak := values[0]
	worst := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (v - peak) / peak * 100
			if dd < worst {
				worst = dd
			}
		}
	}
	return contracts.Round4(worst)
}

// sharpeRatio annualizes mean/stddev of daily returns. Undefined below
// 2 points or at zero variance.
func sharpeRatio(dailyReturns []float64) *float64 {
	if len(dailyReturns) < 2 {
		return nil
	}

	var sum float64
	for _, r := range dailyReturns {
		sum += r
	}
	mean := sum / float64(len(dailyReturns))

	var variance float64
	for _, r := range dailyReturns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(dailyReturns))

	std := math.Sqrt(variance)
	if std == 0 {
		return nil
	}

	sharpe := contracts.Round4(mean / std * math.Sqrt(tradingDaysPerYear))
	return &sharpe
}

// winRate is the share of closed sells with positive realized P&L,
// in percent. Undefined with no closed trades.
func winRate(trades []contracts.Trade) *float64 {
	var wins, closed int
	for _, t := range trades {
		if t.Type != contracts.TradeSell || t.RealizedPnL == nil {
			continue
		}
		closed++
		if *t.RealizedPnL > 0 {
			wins++
		}
	}
	if closed == 0 {
		return nil
	}
	rate := contracts.Round4(float64(wins) / float64(closed) * 100)
	return &rate
}
