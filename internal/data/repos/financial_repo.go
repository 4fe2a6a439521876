package repos

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvnuui/cerisier/internal/contracts"
)

// FinancialRepo persists quarterly and annual report snapshots.
// SSOT: financial rows are written only here.
type FinancialRepo struct {
	pool *pgxpool.Pool
}

// NewFinancialRepo creates a new financial report repository.
func NewFinancialRepo(pool *pgxpool.Pool) *FinancialRepo {
	return &FinancialRepo{pool: pool}
}

// SaveReports upserts report rows for one stock, keyed by period.
func (r *FinancialRepo) SaveReports(ctx context.Context, code string, reports []contracts.FinancialReport) error {
	if len(reports) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO quant.financial_reports
			(stock_code, period, pe_ratio, pb_ratio, roe, revenue, net_profit, gross_margin, debt_ratio, report_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (stock_code, period) DO UPDATE SET
			pe_ratio = EXCLUDED.pe_ratio,
			pb_ratio = EXCLUDED.pb_ratio,
			roe = EXCLUDED.roe,
			revenue = EXCLUDED.revenue,
			net_profit = EXCLUDED.net_profit,
			gross_margin = EXCLUDED.gross_margin,
			debt_ratio = EXCLUDED.debt_ratio,
			report_date = EXCLUDED.report_date
	`
	for _, rep := range reports {
		if _, err := tx.Exec(ctx, query,
			code, rep.Period, rep.PERatio, rep.PBRatio, rep.ROE,
			rep.Revenue, rep.NetProfit, rep.GrossMargin, rep.DebtRatio, rep.ReportDate,
		); err != nil {
			return fmt.Errorf("upsert report %s/%s: %w", code, rep.Period, err)
		}
	}
	return tx.Commit(ctx)
}

// Reports returns the newest reports for a stock, newest first.
func (r *FinancialRepo) Reports(ctx context.Context, code string, limit int) ([]contracts.FinancialReport, error) {
	query := `
		SELECT period, pe_ratio, pb_ratio, roe, revenue, net_profit, gross_margin, debt_ratio, report_date
		FROM quant.financial_reports
		WHERE stock_code = $1
		ORDER BY period DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, code, limit)
	if err != nil {
		return nil, fmt.Errorf("reports %s: %w", code, err)
	}
	defer rows.Close()

	var reports []contracts.FinancialReport
	for rows.Next() {
		var rep contracts.FinancialReport
		if err := rows.Scan(
			&rep.Period, &rep.PERatio, &rep.PBRatio, &rep.ROE,
			&rep.Revenue, &rep.NetProfit, &rep.GrossMargin, &rep.DebtRatio, &rep.ReportDate,
		); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}
