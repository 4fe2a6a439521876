package sync

import (
	"context"
	"fmt"
	"time"
)

// Validation thresholds. A stock fails when its newest bar is older
// than the stale window or consecutive bars are further apart than the
// gap window (both in calendar days, so holidays pass).
const (
	validateWindowDays = 30
	staleAfterDays     = 7
	maxGapDays         = 10
)

// Issue is one validation finding for one stock.
type Issue struct {
	StockCode string `json:"stock_code"`
	Problem   string `json:"problem"`
}

// ValidationReport summarizes a data quality pass over the universe.
type ValidationReport struct {
	CheckedAt time.Time `json:"checked_at"`
	Total     int       `json:"total"`
	Valid     int       `json:"valid"`
	Issues    []Issue   `json:"issues"`
}

// Passed reports whether every checked stock came back clean.
func (r ValidationReport) Passed() bool {
	return len(r.Issues) == 0
}

// Coverage returns the fraction of stocks with valid kline data.
func (r ValidationReport) Coverage() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Valid) / float64(r.Total)
}

// ValidateData checks kline coverage, freshness and continuity for the
// active universe.
func (s *Service) ValidateData(ctx context.Context) (ValidationReport, error) {
	stocks, err := s.store.ActiveStocks(ctx, 0)
	if err != nil {
		return ValidationReport{}, fmt.Errorf("load active stocks: %w", err)
	}

	now := time.Now()
	report := ValidationReport{
		CheckedAt: now,
		Total:     len(stocks),
	}

	for _, stock := range stocks {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		issues := s.checkStock(ctx, stock.Code, now)
		if len(issues) == 0 {
			report.Valid++
			continue
		}
		report.Issues = append(report.Issues, issues...)
	}

	s.logger.WithFields(map[string]interface{}{
		"total":  report.Total,
		"valid":  report.Valid,
		"issues": len(report.Issues),
	}).Info("Data validation completed")

	return report, nil
}

func (s *Service) checkStock(ctx context.Context, code string, now time.Time) []Issue {
	klines, err := s.store.Klines(ctx, code, validateWindowDays)
	if err != nil {
		return []Issue{{StockCode: code, Problem: fmt.Sprintf("kline read failed: %v", err)}}
	}
	if len(klines) == 0 {
		return []Issue{{StockCode: code, Problem: "no kline data"}}
	}

	var issues []Issue

	latest := klines[len(klines)-1].Date
	if now.Sub(latest) > staleAfterDays*24*time.Hour {
		issues = append(issues, Issue{
			StockCode: code,
			Problem:   fmt.Sprintf("stale data: latest bar %s", latest.Format("2006-01-02")),
		})
	}

	for i := 1; i < len(klines); i++ {
		gap := klines[i].Date.Sub(klines[i-1].Date)
		if gap > maxGapDays*24*time.Hour {
			issues = append(issues, Issue{
				StockCode: code,
				Problem: fmt.Sprintf("gap of %d days before %s",
					int(gap.Hours()/24), klines[i].Date.Format("2006-01-02")),
			})
		}
	}

	for _, k := range klines {
		if k.Close <= 0 {
			issues = append(issues, Issue{
				StockCode: code,
				Problem:   fmt.Sprintf("non-positive close on %s", k.Date.Format("2006-01-02")),
			})
			break
		}
	}

	return issues
}
