// Package jobs holds the scheduled job implementations. Schedules use
// six-field cron expressions (with seconds) in server local time,
// assumed CST for the A-share session.
package jobs

import (
	"context"
	"fmt"

	syncsvc "github.com/vvnuui/cerisier/internal/sync"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// StockListJob refreshes the stock master table weekly.
type StockListJob struct {
	service *syncsvc.Service
	logger  *logger.Logger
}

// NewStockListJob creates the weekly stock list refresh job.
func NewStockListJob(service *syncsvc.Service, log *logger.Logger) *StockListJob {
	return &StockListJob{service: service, logger: log}
}

func (j *StockListJob) Name() string { return "sync_stock_list" }

// Schedule runs Monday 08:30, before the session opens.
func (j *StockListJob) Schedule() string { return "0 30 8 * * 1" }

func (j *StockListJob) Run(ctx context.Context) error {
	n, err := j.service.SyncStockList(ctx)
	if err != nil {
		return fmt.Errorf("sync stock list: %w", err)
	}
	j.logger.WithField("count", n).Info("Stock list job completed")
	return nil
}

// MarketDataJob pulls klines, money flow and margin data nightly after
// the session closes, then validates coverage.
type MarketDataJob struct {
	service *syncsvc.Service
	logger  *logger.Logger
}

// NewMarketDataJob creates the nightly market data job.
func NewMarketDataJob(service *syncsvc.Service, log *logger.Logger) *MarketDataJob {
	return &MarketDataJob{service: service, logger: log}
}

func (j *MarketDataJob) Name() string { return "sync_market_data" }

// Schedule runs 16:30 on weekdays, after the close auction settles.
func (j *MarketDataJob) Schedule() string { return "0 30 16 * * 1-5" }

func (j *MarketDataJob) Run(ctx context.Context) error {
	if _, err := j.service.SyncDailyKline(ctx, 0); err != nil {
		return fmt.Errorf("sync klines: %w", err)
	}
	if _, err := j.service.SyncMoneyFlow(ctx, 0); err != nil {
		return fmt.Errorf("sync money flow: %w", err)
	}
	if _, err := j.service.SyncMarginData(ctx, 0); err != nil {
		return fmt.Errorf("sync margin data: %w", err)
	}

	report, err := j.service.ValidateData(ctx)
	if err != nil {
		return fmt.Errorf("validate data: %w", err)
	}
	if !report.Passed() {
		j.logger.WithFields(map[string]interface{}{
			"valid":  report.Valid,
			"total":  report.Total,
			"issues": len(report.Issues),
		}).Warn("Data validation found issues")
	}
	return nil
}

// FinancialsJob pulls report snapshots weekly.
type FinancialsJob struct {
	service *syncsvc.Service
	logger  *logger.Logger
}

// NewFinancialsJob creates the weekly financial report job.
func NewFinancialsJob(service *syncsvc.Service, log *logger.Logger) *FinancialsJob {
	return &FinancialsJob{service: service, logger: log}
}

func (j *FinancialsJob) Name() string { return "sync_financials" }

// Schedule runs Saturday 09:00, outside trading hours.
func (j *FinancialsJob) Schedule() string { return "0 0 9 * * 6" }

func (j *FinancialsJob) Run(ctx context.Context) error {
	result, err := j.service.SyncFinancialReports(ctx)
	if err != nil {
		return fmt.Errorf("sync financials: %w", err)
	}
	j.logger.WithFields(map[string]interface{}{
		"succeeded": result.Succeeded,
		"failed":    result.Failed(),
	}).Info("Financials job completed")
	return nil
}

// NewsJob pulls articles hourly during the day and backfills sentiment.
type NewsJob struct {
	service *syncsvc.Service
	logger  *logger.Logger
}

// NewNewsJob creates the hourly news job.
func NewNewsJob(service *syncsvc.Service, log *logger.Logger) *NewsJob {
	return &NewsJob{service: service, logger: log}
}

func (j *NewsJob) Name() string { return "sync_news" }

// Schedule runs on the hour between 08:00 and 20:00.
func (j *NewsJob) Schedule() string { return "0 0 8-20 * * *" }

func (j *NewsJob) Run(ctx context.Context) error {
	result, err := j.service.SyncNews(ctx, 0)
	if err != nil {
		return fmt.Errorf("sync news: %w", err)
	}
	j.logger.WithFields(map[string]interface{}{
		"succeeded": result.Succeeded,
		"failed":    result.Failed(),
		"rows":      result.Rows,
	}).Info("News job completed")
	return nil
}
