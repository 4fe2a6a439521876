package contracts

import (
	"math"
	"time"
)

// Portfolio is a paper trading account. CashBalance never goes negative
// after a committed trade; deactivation is the only form of deletion.
type Portfolio struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	InitialCapital float64   `json:"initial_capital"`
	CashBalance    float64   `json:"cash_balance"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Position is a current holding. Shares stays positive while the
// position exists; the row is removed when shares reach zero.
type Position struct {
	PortfolioID  int64     `json:"portfolio_id"`
	StockCode    string    `json:"stock_code"`
	Shares       int64     `json:"shares"`
	AvgCost      float64   `json:"avg_cost"`
	CurrentPrice float64   `json:"current_price"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MarketValue returns shares x current price.
func (p Position) MarketValue() float64 {
	return float64(p.Shares) * p.CurrentPrice
}

// CostBasis returns shares x average cost.
func (p Position) CostBasis() float64 {
	return float64(p.Shares) * p.AvgCost
}

// UnrealizedPnL returns market value minus cost basis.
func (p Position) UnrealizedPnL() float64 {
	return p.MarketValue() - p.CostBasis()
}

// UnrealizedPnLPct returns the unrealized P&L as a percentage of cost.
func (p Position) UnrealizedPnLPct() float64 {
	basis := p.CostBasis()
	if basis == 0 {
		return 0
	}
	return p.UnrealizedPnL() / basis * 100
}

// TradeType is the direction of a trade.
type TradeType string

const (
	TradeBuy  TradeType = "BUY"
	TradeSell TradeType = "SELL"
)

// Trade is an immutable execution record.
type Trade struct {
	ID          int64     `json:"id,omitempty"`
	PortfolioID int64     `json:"portfolio_id"`
	StockCode   string    `json:"stock_code"`
	Type        TradeType `json:"trade_type"`
	Shares      int64     `json:"shares"`
	Price       float64   `json:"price"`
	Amount      float64   `json:"amount"`
	Commission  float64   `json:"commission"`
	// RealizedPnL is set on SELL trades only, used for win-rate accounting.
	RealizedPnL *float64  `json:"realized_pnl,omitempty"`
	Reason      string    `json:"reason"`
	ExecutedAt  time.Time `json:"executed_at"`
}

// PerformanceMetric is one daily snapshot per portfolio, recomputed
// idempotently from trade and position history. Nil ratio fields mean
// the metric is undefined for that day (too little history).
type PerformanceMetric struct {
	PortfolioID      int64     `json:"portfolio_id"`
	Date             time.Time `json:"date"`
	TotalValue       float64   `json:"total_value"`
	DailyReturn      float64   `json:"daily_return"`      // percent
	CumulativeReturn float64   `json:"cumulative_return"` // percent
	MaxDrawdown      float64   `json:"max_drawdown"`      // percent, <= 0
	SharpeRatio      *float64  `json:"sharpe_ratio,omitempty"`
	WinRate          *float64  `json:"win_rate,omitempty"` // percent
}

// Round2 rounds to 2 decimal places (cash, commissions, trade amounts).
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round4 rounds to 4 decimal places (prices, cost basis, ratios).
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
