package repos

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvnuui/cerisier/internal/contracts"
)

// limitMovePct is the daily move that counts as a limit board hit.
// Mainboard A-shares cap at 10%; 9.8 tolerates rounding in feeds.
const limitMovePct = 9.8

// MarketRepo persists daily market data: klines, money flow, margin.
// SSOT: market rows are written only here.
type MarketRepo struct {
	pool *pgxpool.Pool
}

// NewMarketRepo creates a new market data repository.
func NewMarketRepo(pool *pgxpool.Pool) *MarketRepo {
	return &MarketRepo{pool: pool}
}

// SaveKlines upserts daily bars for one stock in one transaction.
func (r *MarketRepo) SaveKlines(ctx context.Context, code string, klines []contracts.Kline) error {
	if len(klines) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO quant.klines (stock_code, date, open, high, low, close, volume, amount, turnover, change_pct)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (stock_code, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			amount = EXCLUDED.amount,
			turnover = EXCLUDED.turnover,
			change_pct = EXCLUDED.change_pct
	`
	for _, k := range klines {
		if _, err := tx.Exec(ctx, query,
			code, k.Date, k.Open, k.High, k.Low, k.Close, k.Volume, k.Amount, k.Turnover, k.ChangePct,
		); err != nil {
			return fmt.Errorf("upsert kline %s/%s: %w", code, k.Date.Format("2006-01-02"), err)
		}
	}
	return tx.Commit(ctx)
}

// LatestCloses returns the newest stored close per code. Codes with no
// bars are absent from the map.
func (r *MarketRepo) LatestCloses(ctx context.Context, codes []string) (map[string]float64, error) {
	if len(codes) == 0 {
		return map[string]float64{}, nil
	}

	query := `
		SELECT DISTINCT ON (stock_code) stock_code, close
		FROM quant.klines
		WHERE stock_code = ANY($1)
		ORDER BY stock_code, date DESC
	`

	rows, err := r.pool.Query(ctx, query, codes)
	if err != nil {
		return nil, fmt.Errorf("latest closes: %w", err)
	}
	defer rows.Close()

	closes := make(map[string]float64, len(codes))
	for rows.Next() {
		var code string
		var px float64
		if err := rows.Scan(&code, &px); err != nil {
			return nil, fmt.Errorf("scan close: %w", err)
		}
		closes[code] = px
	}
	return closes, rows.Err()
}

// Klines returns the most recent bars for a stock, oldest first.
func (r *MarketRepo) Klines(ctx context.Context, code string, days int) ([]contracts.Kline, error) {
	query := `
		SELECT date, open, high, low, close, volume, amount, turnover, change_pct
		FROM (
			SELECT date, open, high, low, close, volume, amount, turnover, change_pct
			FROM quant.klines
			WHERE stock_code = $1
			ORDER BY date DESC
			LIMIT $2
		) recent
		ORDER BY date ASC
	`

	rows, err := r.pool.Query(ctx, query, code, days)
	if err != nil {
		return nil, fmt.Errorf("klines %s: %w", code, err)
	}
	defer rows.Close()

	var klines []contracts.Kline
	for rows.Next() {
		var k contracts.Kline
		if err := rows.Scan(&k.Date, &k.Open, &k.High, &k.Low, &k.Close, &k.Volume, &k.Amount, &k.Turnover, &k.ChangePct); err != nil {
			return nil, fmt.Errorf("scan kline: %w", err)
		}
		klines = append(klines, k)
	}
	return klines, rows.Err()
}

// LatestClose returns the newest close for a stock, 0 when none.
func (r *MarketRepo) LatestClose(ctx context.Context, code string) (float64, error) {
	query := `
		SELECT close FROM quant.klines
		WHERE stock_code = $1
		ORDER BY date DESC
		LIMIT 1
	`

	var close float64
	if err := r.pool.QueryRow(ctx, query, code).Scan(&close); err != nil {
		return 0, fmt.Errorf("latest close %s: %w", code, err)
	}
	return close, nil
}

// SaveMoneyFlows upserts daily capital flow rows for one stock.
func (r *MarketRepo) SaveMoneyFlows(ctx context.Context, code string, flows []contracts.MoneyFlow) error {
	if len(flows) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO quant.money_flows (stock_code, date, main_net, huge_net, big_net, mid_net, small_net)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (stock_code, date) DO UPDATE SET
			main_net = EXCLUDED.main_net,
			huge_net = EXCLUDED.huge_net,
			big_net = EXCLUDED.big_net,
			mid_net = EXCLUDED.mid_net,
			small_net = EXCLUDED.small_net
	`
	for _, f := range flows {
		if _, err := tx.Exec(ctx, query,
			code, f.Date, f.MainNet, f.HugeNet, f.BigNet, f.MidNet, f.SmallNet,
		); err != nil {
			return fmt.Errorf("upsert money flow %s/%s: %w", code, f.Date.Format("2006-01-02"), err)
		}
	}
	return tx.Commit(ctx)
}

// MoneyFlows returns recent flow rows for a stock, oldest first.
func (r *MarketRepo) MoneyFlows(ctx context.Context, code string, days int) ([]contracts.MoneyFlow, error) {
	query := `
		SELECT date, main_net, huge_net, big_net, mid_net, small_net
		FROM (
			SELECT date, main_net, huge_net, big_net, mid_net, small_net
			FROM quant.money_flows
			WHERE stock_code = $1
			ORDER BY date DESC
			LIMIT $2
		) recent
		ORDER BY date ASC
	`

	rows, err := r.pool.Query(ctx, query, code, days)
	if err != nil {
		return nil, fmt.Errorf("money flows %s: %w", code, err)
	}
	defer rows.Close()

	var flows []contracts.MoneyFlow
	for rows.Next() {
		var f contracts.MoneyFlow
		if err := rows.Scan(&f.Date, &f.MainNet, &f.HugeNet, &f.BigNet, &f.MidNet, &f.SmallNet); err != nil {
			return nil, fmt.Errorf("scan money flow: %w", err)
		}
		flows = append(flows, f)
	}
	return flows, rows.Err()
}

// SaveMarginData upserts daily margin rows for one stock.
func (r *MarketRepo) SaveMarginData(ctx context.Context, code string, rows []contracts.MarginData) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO quant.margin_data (stock_code, date, margin_balance, short_balance, margin_buy, margin_repay)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (stock_code, date) DO UPDATE SET
			margin_balance = EXCLUDED.margin_balance,
			short_balance = EXCLUDED.short_balance,
			margin_buy = EXCLUDED.margin_buy,
			margin_repay = EXCLUDED.margin_repay
	`
	for _, m := range rows {
		if _, err := tx.Exec(ctx, query,
			code, m.Date, m.MarginBalance, m.ShortBalance, m.MarginBuy, m.MarginRepay,
		); err != nil {
			return fmt.Errorf("upsert margin %s/%s: %w", code, m.Date.Format("2006-01-02"), err)
		}
	}
	return tx.Commit(ctx)
}

// MarginRows returns recent margin rows for a stock, oldest first.
func (r *MarketRepo) MarginRows(ctx context.Context, code string, days int) ([]contracts.MarginData, error) {
	query := `
		SELECT date, margin_balance, short_balance, margin_buy, margin_repay
		FROM (
			SELECT date, margin_balance, short_balance, margin_buy, margin_repay
			FROM quant.margin_data
			WHERE stock_code = $1
			ORDER BY date DESC
			LIMIT $2
		) recent
		ORDER BY date ASC
	`

	rows, err := r.pool.Query(ctx, query, code, days)
	if err != nil {
		return nil, fmt.Errorf("margin rows %s: %w", code, err)
	}
	defer rows.Close()

	var out []contracts.MarginData
	for rows.Next() {
		var m contracts.MarginData
		if err := rows.Scan(&m.Date, &m.MarginBalance, &m.ShortBalance, &m.MarginBuy, &m.MarginRepay); err != nil {
			return nil, fmt.Errorf("scan margin row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarketBreadth derives the market-wide daily snapshot from the kline
// table: advance/decline counts, limit moves, and average turnover per
// date, oldest first.
func (r *MarketRepo) MarketBreadth(ctx context.Context, days int) ([]contracts.MarketBreadth, error) {
	query := `
		SELECT date,
		       COUNT(*) FILTER (WHERE change_pct > 0)  AS advances,
		       COUNT(*) FILTER (WHERE change_pct < 0)  AS declines,
		       COUNT(*) FILTER (WHERE change_pct >= $2) AS limit_up,
		       COUNT(*) FILTER (WHERE change_pct <= -$2) AS limit_down,
		       COALESCE(AVG(turnover), 0)              AS avg_turnover
		FROM quant.klines
		WHERE change_pct IS NOT NULL
		GROUP BY date
		ORDER BY date DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, days, limitMovePct)
	if err != nil {
		return nil, fmt.Errorf("market breadth: %w", err)
	}
	defer rows.Close()

	var breadth []contracts.MarketBreadth
	for rows.Next() {
		var b contracts.MarketBreadth
		if err := rows.Scan(&b.Date, &b.Advances, &b.Declines, &b.LimitUp, &b.LimitDown, &b.AvgTurnover); err != nil {
			return nil, fmt.Errorf("scan breadth: %w", err)
		}
		breadth = append(breadth, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// newest-first from the query, callers want oldest first
	for i, j := 0, len(breadth)-1; i < j; i, j = i+1, j-1 {
		breadth[i], breadth[j] = breadth[j], breadth[i]
	}
	return breadth, nil
}
