// Package repos holds the pgx-backed persistence layer. One repo per
// aggregate, schema-qualified tables under quant., ON CONFLICT upserts
// so synchronization stays idempotent.
package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvnuui/cerisier/internal/contracts"
)

// StockRepo persists stock master data.
// SSOT: stock rows are written only here.
type StockRepo struct {
	pool *pgxpool.Pool
}

// NewStockRepo creates a new stock repository.
func NewStockRepo(pool *pgxpool.Pool) *StockRepo {
	return &StockRepo{pool: pool}
}

// Upsert saves one stock row.
func (r *StockRepo) Upsert(ctx context.Context, s contracts.StockBasic) error {
	query := `
		INSERT INTO quant.stocks (code, name, industry, sector, market, list_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			industry = EXCLUDED.industry,
			sector = EXCLUDED.sector,
			market = EXCLUDED.market,
			list_date = EXCLUDED.list_date,
			is_active = EXCLUDED.is_active
	`

	_, err := r.pool.Exec(ctx, query,
		s.Code, s.Name, s.Industry, s.Sector, s.Market, s.ListDate, s.IsActive,
	)
	if err != nil {
		return fmt.Errorf("upsert stock %s: %w", s.Code, err)
	}
	return nil
}

// UpsertBatch saves a list of stock rows in one transaction.
func (r *StockRepo) UpsertBatch(ctx context.Context, stocks []contracts.StockBasic) error {
	if len(stocks) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO quant.stocks (code, name, industry, sector, market, list_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			industry = EXCLUDED.industry,
			sector = EXCLUDED.sector,
			market = EXCLUDED.market,
			list_date = EXCLUDED.list_date,
			is_active = EXCLUDED.is_active
	`
	for _, s := range stocks {
		if _, err := tx.Exec(ctx, query,
			s.Code, s.Name, s.Industry, s.Sector, s.Market, s.ListDate, s.IsActive,
		); err != nil {
			return fmt.Errorf("upsert stock %s: %w", s.Code, err)
		}
	}
	return tx.Commit(ctx)
}

// Get retrieves one stock by code.
func (r *StockRepo) Get(ctx context.Context, code string) (contracts.StockBasic, error) {
	query := `
		SELECT code, name, industry, sector, market, list_date, is_active
		FROM quant.stocks
		WHERE code = $1
	`

	var s contracts.StockBasic
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&s.Code, &s.Name, &s.Industry, &s.Sector, &s.Market, &s.ListDate, &s.IsActive,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return contracts.StockBasic{}, fmt.Errorf("stock %s: %w", code, contracts.ErrNotFound)
	}
	if err != nil {
		return contracts.StockBasic{}, fmt.Errorf("get stock %s: %w", code, err)
	}
	return s, nil
}

// List returns active stocks ordered by code, capped at limit when
// limit is positive.
func (r *StockRepo) List(ctx context.Context, limit int) ([]contracts.StockBasic, error) {
	query := `
		SELECT code, name, industry, sector, market, list_date, is_active
		FROM quant.stocks
		WHERE is_active
		ORDER BY code
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stocks: %w", err)
	}
	defer rows.Close()

	var stocks []contracts.StockBasic
	for rows.Next() {
		var s contracts.StockBasic
		if err := rows.Scan(&s.Code, &s.Name, &s.Industry, &s.Sector, &s.Market, &s.ListDate, &s.IsActive); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}

// SectorCodes returns active peer codes sharing an industry.
func (r *StockRepo) SectorCodes(ctx context.Context, industry string) ([]string, error) {
	query := `
		SELECT code
		FROM quant.stocks
		WHERE industry = $1 AND is_active
		ORDER BY code
	`

	rows, err := r.pool.Query(ctx, query, industry)
	if err != nil {
		return nil, fmt.Errorf("sector codes for %q: %w", industry, err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}
