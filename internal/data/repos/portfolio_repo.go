package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/internal/simulator"
)

// PortfolioRepo is the pgx-backed simulator.Store. CommitTrade applies
// the cash, position and trade delta in a single transaction so a
// failed write never leaves the account half-updated.
// SSOT: portfolio, position and trade rows are written only here.
type PortfolioRepo struct {
	pool *pgxpool.Pool
}

// NewPortfolioRepo creates a new portfolio repository.
func NewPortfolioRepo(pool *pgxpool.Pool) *PortfolioRepo {
	return &PortfolioRepo{pool: pool}
}

// CreatePortfolio opens a paper account with cash equal to the initial
// capital.
func (r *PortfolioRepo) CreatePortfolio(ctx context.Context, name string, initialCapital float64) (contracts.Portfolio, error) {
	query := `
		INSERT INTO quant.portfolios (name, initial_capital, cash_balance, is_active, created_at, updated_at)
		VALUES ($1, $2, $2, TRUE, NOW(), NOW())
		RETURNING id, name, initial_capital, cash_balance, is_active, created_at, updated_at
	`

	var p contracts.Portfolio
	err := r.pool.QueryRow(ctx, query, name, initialCapital).Scan(
		&p.ID, &p.Name, &p.InitialCapital, &p.CashBalance, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return contracts.Portfolio{}, fmt.Errorf("create portfolio %q: %w", name, err)
	}
	return p, nil
}

// Portfolio retrieves one account by id.
func (r *PortfolioRepo) Portfolio(ctx context.Context, id int64) (contracts.Portfolio, error) {
	query := `
		SELECT id, name, initial_capital, cash_balance, is_active, created_at, updated_at
		FROM quant.portfolios
		WHERE id = $1
	`

	var p contracts.Portfolio
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.InitialCapital, &p.CashBalance, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return contracts.Portfolio{}, fmt.Errorf("portfolio %d: %w", id, contracts.ErrNotFound)
	}
	if err != nil {
		return contracts.Portfolio{}, fmt.Errorf("get portfolio %d: %w", id, err)
	}
	return p, nil
}

// Portfolios returns all accounts, newest first.
func (r *PortfolioRepo) Portfolios(ctx context.Context) ([]contracts.Portfolio, error) {
	query := `
		SELECT id, name, initial_capital, cash_balance, is_active, created_at, updated_at
		FROM quant.portfolios
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []contracts.Portfolio
	for rows.Next() {
		var p contracts.Portfolio
		if err := rows.Scan(&p.ID, &p.Name, &p.InitialCapital, &p.CashBalance, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan portfolio: %w", err)
		}
		portfolios = append(portfolios, p)
	}
	return portfolios, rows.Err()
}

// DeactivatePortfolio retires an account; rows are kept for history.
func (r *PortfolioRepo) DeactivatePortfolio(ctx context.Context, id int64) error {
	query := `
		UPDATE quant.portfolios
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate portfolio %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("portfolio %d: %w", id, contracts.ErrNotFound)
	}
	return nil
}

// Position retrieves one holding, ErrNotFound when the portfolio holds
// no shares of the stock.
func (r *PortfolioRepo) Position(ctx context.Context, portfolioID int64, code string) (contracts.Position, error) {
	query := `
		SELECT portfolio_id, stock_code, shares, avg_cost, current_price, updated_at
		FROM quant.positions
		WHERE portfolio_id = $1 AND stock_code = $2
	`

	var pos contracts.Position
	err := r.pool.QueryRow(ctx, query, portfolioID, code).Scan(
		&pos.PortfolioID, &pos.StockCode, &pos.Shares, &pos.AvgCost, &pos.CurrentPrice, &pos.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return contracts.Position{}, fmt.Errorf("position %d/%s: %w", portfolioID, code, contracts.ErrNotFound)
	}
	if err != nil {
		return contracts.Position{}, fmt.Errorf("get position %d/%s: %w", portfolioID, code, err)
	}
	return pos, nil
}

// Positions returns all holdings of a portfolio ordered by code.
func (r *PortfolioRepo) Positions(ctx context.Context, portfolioID int64) ([]contracts.Position, error) {
	query := `
		SELECT portfolio_id, stock_code, shares, avg_cost, current_price, updated_at
		FROM quant.positions
		WHERE portfolio_id = $1
		ORDER BY stock_code
	`

	rows, err := r.pool.Query(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("list positions %d: %w", portfolioID, err)
	}
	defer rows.Close()

	var positions []contracts.Position
	for rows.Next() {
		var pos contracts.Position
		if err := rows.Scan(&pos.PortfolioID, &pos.StockCode, &pos.Shares, &pos.AvgCost, &pos.CurrentPrice, &pos.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

// SavePosition upserts one holding, used by price marking.
func (r *PortfolioRepo) SavePosition(ctx context.Context, pos contracts.Position) error {
	query := `
		INSERT INTO quant.positions (portfolio_id, stock_code, shares, avg_cost, current_price, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (portfolio_id, stock_code) DO UPDATE SET
			shares = EXCLUDED.shares,
			avg_cost = EXCLUDED.avg_cost,
			current_price = EXCLUDED.current_price,
			updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query,
		pos.PortfolioID, pos.StockCode, pos.Shares, pos.AvgCost, pos.CurrentPrice,
	); err != nil {
		return fmt.Errorf("save position %d/%s: %w", pos.PortfolioID, pos.StockCode, err)
	}
	return nil
}

// CommitTrade applies one trade delta atomically: cash update, position
// upsert or delete, trade insert.
func (r *PortfolioRepo) CommitTrade(ctx context.Context, commit simulator.TradeCommit) (contracts.Trade, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return contracts.Trade{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE quant.portfolios
		SET cash_balance = $2, updated_at = NOW()
		WHERE id = $1
	`, commit.PortfolioID, commit.CashBalance); err != nil {
		return contracts.Trade{}, fmt.Errorf("update cash %d: %w", commit.PortfolioID, err)
	}

	switch {
	case commit.Position != nil:
		pos := commit.Position
		if _, err := tx.Exec(ctx, `
			INSERT INTO quant.positions (portfolio_id, stock_code, shares, avg_cost, current_price, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (portfolio_id, stock_code) DO UPDATE SET
				shares = EXCLUDED.shares,
				avg_cost = EXCLUDED.avg_cost,
				current_price = EXCLUDED.current_price,
				updated_at = NOW()
		`, pos.PortfolioID, pos.StockCode, pos.Shares, pos.AvgCost, pos.CurrentPrice); err != nil {
			return contracts.Trade{}, fmt.Errorf("upsert position %d/%s: %w", pos.PortfolioID, pos.StockCode, err)
		}
	case commit.RemoveCode != "":
		if _, err := tx.Exec(ctx, `
			DELETE FROM quant.positions
			WHERE portfolio_id = $1 AND stock_code = $2
		`, commit.PortfolioID, commit.RemoveCode); err != nil {
			return contracts.Trade{}, fmt.Errorf("delete position %d/%s: %w", commit.PortfolioID, commit.RemoveCode, err)
		}
	}

	trade := commit.Trade
	if err := tx.QueryRow(ctx, `
		INSERT INTO quant.trades
			(portfolio_id, stock_code, trade_type, shares, price, amount, commission, realized_pnl, reason, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`,
		trade.PortfolioID, trade.StockCode, trade.Type, trade.Shares, trade.Price,
		trade.Amount, trade.Commission, trade.RealizedPnL, trade.Reason, trade.ExecutedAt,
	).Scan(&trade.ID); err != nil {
		return contracts.Trade{}, fmt.Errorf("insert trade %d/%s: %w", trade.PortfolioID, trade.StockCode, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return contracts.Trade{}, fmt.Errorf("commit trade: %w", err)
	}
	return trade, nil
}

// Trades returns the execution history of a portfolio, oldest first.
func (r *PortfolioRepo) Trades(ctx context.Context, portfolioID int64) ([]contracts.Trade, error) {
	query := `
		SELECT id, portfolio_id, stock_code, trade_type, shares, price, amount, commission, realized_pnl, reason, executed_at
		FROM quant.trades
		WHERE portfolio_id = $1
		ORDER BY executed_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("list trades %d: %w", portfolioID, err)
	}
	defer rows.Close()

	var trades []contracts.Trade
	for rows.Next() {
		var t contracts.Trade
		if err := rows.Scan(
			&t.ID, &t.PortfolioID, &t.StockCode, &t.Type, &t.Shares, &t.Price,
			&t.Amount, &t.Commission, &t.RealizedPnL, &t.Reason, &t.ExecutedAt,
		); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Metrics returns the daily performance history, date ascending.
func (r *PortfolioRepo) Metrics(ctx context.Context, portfolioID int64) ([]contracts.PerformanceMetric, error) {
	query := `
		SELECT portfolio_id, date, total_value, daily_return, cumulative_return, max_drawdown, sharpe_ratio, win_rate
		FROM quant.performance_metrics
		WHERE portfolio_id = $1
		ORDER BY date ASC
	`

	rows, err := r.pool.Query(ctx, query, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("list metrics %d: %w", portfolioID, err)
	}
	defer rows.Close()

	var metrics []contracts.PerformanceMetric
	for rows.Next() {
		var m contracts.PerformanceMetric
		if err := rows.Scan(
			&m.PortfolioID, &m.Date, &m.TotalValue, &m.DailyReturn,
			&m.CumulativeReturn, &m.MaxDrawdown, &m.SharpeRatio, &m.WinRate,
		); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// SaveMetric upserts one daily snapshot keyed by (portfolio, date).
func (r *PortfolioRepo) SaveMetric(ctx context.Context, m contracts.PerformanceMetric) error {
	query := `
		INSERT INTO quant.performance_metrics
			(portfolio_id, date, total_value, daily_return, cumulative_return, max_drawdown, sharpe_ratio, win_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (portfolio_id, date) DO UPDATE SET
			total_value = EXCLUDED.total_value,
			daily_return = EXCLUDED.daily_return,
			cumulative_return = EXCLUDED.cumulative_return,
			max_drawdown = EXCLUDED.max_drawdown,
			sharpe_ratio = EXCLUDED.sharpe_ratio,
			win_rate = EXCLUDED.win_rate
	`

	if _, err := r.pool.Exec(ctx, query,
		m.PortfolioID, m.Date, m.TotalValue, m.DailyReturn,
		m.CumulativeReturn, m.MaxDrawdown, m.SharpeRatio, m.WinRate,
	); err != nil {
		return fmt.Errorf("save metric %d/%s: %w", m.PortfolioID, m.Date.Format("2006-01-02"), err)
	}
	return nil
}
