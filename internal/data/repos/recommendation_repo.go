package repos

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/internal/scoring"
)

// RecommendationRepo persists pipeline output rows. Rows are immutable:
// reruns append new timestamped versions instead of updating.
// SSOT: recommendation rows are written only here.
type RecommendationRepo struct {
	pool *pgxpool.Pool
}

// NewRecommendationRepo creates a new recommendation repository.
func NewRecommendationRepo(pool *pgxpool.Pool) *RecommendationRepo {
	return &RecommendationRepo{pool: pool}
}

// SaveBatch appends a ranked batch in one transaction.
func (r *RecommendationRepo) SaveBatch(ctx context.Context, recs []contracts.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO quant.recommendations
			(stock_code, stock_name, style, score, signal, confidence,
			 entry_price, stop_loss, take_profit, position_pct, explanation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	for _, rec := range recs {
		if _, err := tx.Exec(ctx, query,
			rec.StockCode, rec.StockName, rec.Style, rec.Score, rec.Signal, rec.Confidence,
			rec.EntryPrice, rec.StopLoss, rec.TakeProfit, rec.PositionPct, rec.Explanation, rec.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert recommendation %s: %w", rec.StockCode, err)
		}
	}
	return tx.Commit(ctx)
}

// Filter narrows recommendation reads. Zero values mean "no filter".
type Filter struct {
	Style    contracts.TradingStyle
	Signal   contracts.Signal
	MinScore float64
	Limit    int
}

// List returns the latest recommendation per stock matching the
// filter, ranked by score, confidence, then code.
func (r *RecommendationRepo) List(ctx context.Context, f Filter) ([]contracts.Recommendation, error) {
	query := `
		SELECT DISTINCT ON (stock_code, style)
			id, stock_code, stock_name, style, score, signal, confidence,
			entry_price, stop_loss, take_profit, position_pct, explanation, created_at
		FROM quant.recommendations
		WHERE ($1 = '' OR style = $1)
		  AND ($2 = '' OR signal = $2)
		  AND score >= $3
		ORDER BY stock_code, style, created_at DESC
	`
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, query, string(f.Style), string(f.Signal), f.MinScore)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()

	var recs []contracts.Recommendation
	for rows.Next() {
		var rec contracts.Recommendation
		if err := rows.Scan(
			&rec.ID, &rec.StockCode, &rec.StockName, &rec.Style, &rec.Score, &rec.Signal, &rec.Confidence,
			&rec.EntryPrice, &rec.StopLoss, &rec.TakeProfit, &rec.PositionPct, &rec.Explanation, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	scoring.RankRecommendations(recs)
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// History returns all persisted rows for one stock, newest first.
func (r *RecommendationRepo) History(ctx context.Context, code string, limit int) ([]contracts.Recommendation, error) {
	query := `
		SELECT id, stock_code, stock_name, style, score, signal, confidence,
		       entry_price, stop_loss, take_profit, position_pct, explanation, created_at
		FROM quant.recommendations
		WHERE stock_code = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, code, limit)
	if err != nil {
		return nil, fmt.Errorf("recommendation history %s: %w", code, err)
	}
	defer rows.Close()

	var recs []contracts.Recommendation
	for rows.Next() {
		var rec contracts.Recommendation
		if err := rows.Scan(
			&rec.ID, &rec.StockCode, &rec.StockName, &rec.Style, &rec.Score, &rec.Signal, &rec.Confidence,
			&rec.EntryPrice, &rec.StopLoss, &rec.TakeProfit, &rec.PositionPct, &rec.Explanation, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
