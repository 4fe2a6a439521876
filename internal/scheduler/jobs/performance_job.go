package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/vvnuui/cerisier/internal/simulator"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// PerformanceJob snapshots daily performance metrics for every active
// portfolio after the pipeline runs finish. Position marks are
// refreshed from the latest closes first so the snapshot values price
// moves since the last trade.
type PerformanceJob struct {
	engine *simulator.Engine
	store  simulator.Store
	prices simulator.PriceSource
	logger *logger.Logger
}

// NewPerformanceJob creates the daily performance snapshot job.
func NewPerformanceJob(engine *simulator.Engine, store simulator.Store, prices simulator.PriceSource, log *logger.Logger) *PerformanceJob {
	return &PerformanceJob{engine: engine, store: store, prices: prices, logger: log}
}

func (j *PerformanceJob) Name() string { return "performance_snapshot" }

// Schedule runs 18:30 on weekdays.
func (j *PerformanceJob) Schedule() string { return "0 30 18 * * 1-5" }

func (j *PerformanceJob) Run(ctx context.Context) error {
	portfolios, err := j.store.Portfolios(ctx)
	if err != nil {
		return fmt.Errorf("load portfolios: %w", err)
	}

	asOf := time.Now()
	var failures int
	for _, p := range portfolios {
		if !p.IsActive {
			continue
		}
		if err := j.engine.MarkToMarket(ctx, p.ID, j.prices); err != nil {
			// stale marks are recoverable, the snapshot is not skipped
			j.logger.WithError(err).WithField("portfolio_id", p.ID).Warn("Mark to market failed")
		}
		if _, err := j.engine.CalculatePerformance(ctx, p.ID, asOf); err != nil {
			failures++
			j.logger.WithError(err).WithField("portfolio_id", p.ID).Error("Performance snapshot failed")
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d portfolios failed", failures, len(portfolios))
	}

	j.logger.WithField("portfolios", len(portfolios)).Info("Performance snapshots completed")
	return nil
}
