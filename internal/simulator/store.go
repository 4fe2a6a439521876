package simulator

import (
	"context"
	"time"

	"github.com/vvnuui/cerisier/internal/contracts"
)

// TradeCommit is the atomic state delta produced by one buy or sell.
// Stores apply the whole commit or none of it.
type TradeCommit struct {
	PortfolioID int64
	CashBalance float64
	// Position is the new row to upsert; nil when the trade closed the
	// position, in which case RemoveCode names the row to delete.
	Position   *contracts.Position
	RemoveCode string
	Trade      contracts.Trade
}

// Store abstracts portfolio persistence. The pgx-backed repo serves
// production; tests and the CLI simulate command use the in-memory one.
type Store interface {
	CreatePortfolio(ctx context.Context, name string, initialCapital float64) (contracts.Portfolio, error)
	Portfolio(ctx context.Context, id int64) (contracts.Portfolio, error)
	Portfolios(ctx context.Context) ([]contracts.Portfolio, error)
	// DeactivatePortfolio retires an account. History is kept; the
	// simulator rejects trades against inactive accounts.
	DeactivatePortfolio(ctx context.Context, id int64) error

	// Position returns ErrNotFound when the portfolio holds no shares
	// of the stock.
	Position(ctx context.Context, portfolioID int64, code string) (contracts.Position, error)
	Positions(ctx context.Context, portfolioID int64) ([]contracts.Position, error)
	SavePosition(ctx context.Context, pos contracts.Position) error

	CommitTrade(ctx context.Context, commit TradeCommit) (contracts.Trade, error)
	Trades(ctx context.Context, portfolioID int64) ([]contracts.Trade, error)

	// Metrics returns the performance history ordered by date ascending.
	Metrics(ctx context.Context, portfolioID int64) ([]contracts.PerformanceMetric, error)
	// SaveMetric upserts by (portfolio, date) so recomputation is
	// idempotent.
	SaveMetric(ctx context.Context, metric contracts.PerformanceMetric) error
}

// metricDay normalizes a metric timestamp to its calendar day.
func metricDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
