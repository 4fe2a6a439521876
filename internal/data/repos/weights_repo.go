package repos

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/internal/scoring"
)

// WeightsRepo persists the per-style factor weight tables. When a style
// has no stored rows the compiled defaults apply.
// SSOT: weight rows are written only here.
type WeightsRepo struct {
	pool *pgxpool.Pool
}

// NewWeightsRepo creates a new weights repository.
func NewWeightsRepo(pool *pgxpool.Pool) *WeightsRepo {
	return &WeightsRepo{pool: pool}
}

// Load returns the effective weight tables: compiled defaults overlaid
// with any stored per-style tables.
func (r *WeightsRepo) Load(ctx context.Context) (map[contracts.TradingStyle]map[string]float64, error) {
	query := `
		SELECT style, dimension, weight
		FROM quant.factor_weights
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load weights: %w", err)
	}
	defer rows.Close()

	stored := make(map[contracts.TradingStyle]map[string]float64)
	for rows.Next() {
		var style, dim string
		var weight float64
		if err := rows.Scan(&style, &dim, &weight); err != nil {
			return nil, fmt.Errorf("scan weight: %w", err)
		}
		table := stored[contracts.TradingStyle(style)]
		if table == nil {
			table = make(map[string]float64)
			stored[contracts.TradingStyle(style)] = table
		}
		table[dim] = weight
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tables := scoring.DefaultWeights()
	for style, table := range stored {
		if err := scoring.ValidateWeights(table); err != nil {
			return nil, fmt.Errorf("stored weights for %s: %w", style, err)
		}
		tables[style] = table
	}
	return tables, nil
}

// Save validates and replaces the stored table for one style.
func (r *WeightsRepo) Save(ctx context.Context, style contracts.TradingStyle, table map[string]float64) error {
	if err := scoring.ValidateWeights(table); err != nil {
		return fmt.Errorf("weights for %s: %w", style, err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM quant.factor_weights WHERE style = $1
	`, string(style)); err != nil {
		return fmt.Errorf("clear weights %s: %w", style, err)
	}

	for dim, weight := range table {
		if _, err := tx.Exec(ctx, `
			INSERT INTO quant.factor_weights (style, dimension, weight, updated_at)
			VALUES ($1, $2, $3, NOW())
		`, string(style), dim, weight); err != nil {
			return fmt.Errorf("insert weight %s/%s: %w", style, dim, err)
		}
	}
	return tx.Commit(ctx)
}
