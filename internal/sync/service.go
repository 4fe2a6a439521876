// Package sync moves market data from the provider chain into the
// database: stock list, klines, money flow, margin, financials, news.
// Each sync walks the active universe with a bounded worker pool and
// reports per-stock outcomes without aborting the batch.
package sync

import (
	"context"
	"fmt"
	gosync "sync"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// Window defaults per data kind, in trailing days or rows.
const (
	defaultKlineDays   = 120
	defaultFlowDays    = 60
	defaultMarginDays  = 60
	defaultNewsDays    = 7
	defaultWorkers     = 8
	scoreBatchArticles = 10
)

// Source is the market data fetch surface, satisfied by
// datasource.Router.
type Source interface {
	FetchStockList(ctx context.Context) ([]contracts.StockBasic, error)
	FetchKline(ctx context.Context, code string, days int) ([]contracts.Kline, error)
	FetchMoneyFlow(ctx context.Context, code string, days int) ([]contracts.MoneyFlow, error)
	FetchMarginData(ctx context.Context, code string, days int) ([]contracts.MarginData, error)
	FetchFinancialReports(ctx context.Context, code string) ([]contracts.FinancialReport, error)
	FetchNews(ctx context.Context, code string, days int) ([]contracts.NewsArticle, error)
}

// Store is the persistence surface, satisfied by the repos bundle.
type Store interface {
	UpsertStocks(ctx context.Context, stocks []contracts.StockBasic) error
	ActiveStocks(ctx context.Context, limit int) ([]contracts.StockBasic, error)
	SaveKlines(ctx context.Context, code string, klines []contracts.Kline) error
	SaveMoneyFlows(ctx context.Context, code string, flows []contracts.MoneyFlow) error
	SaveMarginData(ctx context.Context, code string, rows []contracts.MarginData) error
	SaveReports(ctx context.Context, code string, reports []contracts.FinancialReport) error
	SaveArticles(ctx context.Context, code string, articles []contracts.NewsArticle) error
	UnscoredNews(ctx context.Context, code string, limit int) ([]contracts.NewsArticle, error)
	SetNewsSentiment(ctx context.Context, code, url string, score float64) error
	Klines(ctx context.Context, code string, days int) ([]contracts.Kline, error)
}

// ArticleScorer assigns sentiment scores to a batch of articles,
// satisfied by the AI service. A nil scorer skips the backfill.
type ArticleScorer interface {
	ScoreArticles(ctx context.Context, code string, articles []contracts.NewsArticle) ([]float64, error)
}

// Result summarizes one sync batch.
type Result struct {
	Total     int
	Succeeded int
	Rows      int
	// Errors maps stock code to the reason that stock was skipped.
	Errors map[string]string
}

// Failed returns the number of stocks that did not sync.
func (r Result) Failed() int {
	return len(r.Errors)
}

// Service orchestrates data synchronization.
// SSOT: all provider-to-database movement goes through this service.
type Service struct {
	source  Source
	store   Store
	scorer  ArticleScorer
	workers int
	logger  *logger.Logger
}

// NewService wires a sync service. scorer may be nil when AI is
// disabled; news sync then leaves sentiment for a later backfill.
func NewService(source Source, store Store, scorer ArticleScorer, workers int, log *logger.Logger) *Service {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Service{
		source:  source,
		store:   store,
		scorer:  scorer,
		workers: workers,
		logger:  log.WithComponent("sync"),
	}
}

// SyncStockList refreshes the stock master table from the provider
// chain and returns the number of rows written.
func (s *Service) SyncStockList(ctx context.Context) (int, error) {
	stocks, err := s.source.FetchStockList(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch stock list: %w", err)
	}
	if err := s.store.UpsertStocks(ctx, stocks); err != nil {
		return 0, fmt.Errorf("save stock list: %w", err)
	}

	s.logger.WithField("count", len(stocks)).Info("Stock list synchronized")
	return len(stocks), nil
}

// SyncDailyKline pulls daily bars for every active stock. days <= 0
// uses the default window.
func (s *Service) SyncDailyKline(ctx context.Context, days int) (Result, error) {
	if days <= 0 {
		days = defaultKlineDays
	}
	return s.forEachStock(ctx, "kline", func(ctx context.Context, code string) (int, error) {
		klines, err := s.source.FetchKline(ctx, code, days)
		if err != nil {
			return 0, err
		}
		if err := s.store.SaveKlines(ctx, code, klines); err != nil {
			return 0, err
		}
		return len(klines), nil
	})
}

// SyncMoneyFlow pulls daily capital flow rows for every active stock.
func (s *Service) SyncMoneyFlow(ctx context.Context, days int) (Result, error) {
	if days <= 0 {
		days = defaultFlowDays
	}
	return s.forEachStock(ctx, "money_flow", func(ctx context.Context, code string) (int, error) {
		flows, err := s.source.FetchMoneyFlow(ctx, code, days)
		if err != nil {
			return 0, err
		}
		if err := s.store.SaveMoneyFlows(ctx, code, flows); err != nil {
			return 0, err
		}
		return len(flows), nil
	})
}

// SyncMarginData pulls margin trading rows for every active stock.
func (s *Service) SyncMarginData(ctx context.Context, days int) (Result, error) {
	if days <= 0 {
		days = defaultMarginDays
	}
	return s.forEachStock(ctx, "margin", func(ctx context.Context, code string) (int, error) {
		rows, err := s.source.FetchMarginData(ctx, code, days)
		if err != nil {
			return 0, err
		}
		if err := s.store.SaveMarginData(ctx, code, rows); err != nil {
			return 0, err
		}
		return len(rows), nil
	})
}

// SyncFinancialReports pulls report snapshots for every active stock.
func (s *Service) SyncFinancialReports(ctx context.Context) (Result, error) {
	return s.forEachStock(ctx, "financials", func(ctx context.Context, code string) (int, error) {
		reports, err := s.source.FetchFinancialReports(ctx, code)
		if err != nil {
			return 0, err
		}
		if err := s.store.SaveReports(ctx, code, reports); err != nil {
			return 0, err
		}
		return len(reports), nil
	})
}

// SyncNews pulls recent articles for every active stock and, when a
// scorer is configured, backfills sentiment for unscored rows.
func (s *Service) SyncNews(ctx context.Context, days int) (Result, error) {
	if days <= 0 {
		days = defaultNewsDays
	}
	return s.forEachStock(ctx, "news", func(ctx context.Context, code string) (int, error) {
		articles, err := s.source.FetchNews(ctx, code, days)
		if err != nil {
			return 0, err
		}
		if err := s.store.SaveArticles(ctx, code, articles); err != nil {
			return 0, err
		}
		if err := s.backfillSentiment(ctx, code); err != nil {
			s.logger.WithError(err).WithField("stock_code", code).Warn("Sentiment backfill failed")
		}
		return len(articles), nil
	})
}

// backfillSentiment scores one batch of unscored articles for a stock.
// Scoring failures leave rows unscored for the next pass.
func (s *Service) backfillSentiment(ctx context.Context, code string) error {
	if s.scorer == nil {
		return nil
	}

	articles, err := s.store.UnscoredNews(ctx, code, scoreBatchArticles)
	if err != nil {
		return fmt.Errorf("load unscored: %w", err)
	}
	if len(articles) == 0 {
		return nil
	}

	scores, err := s.scorer.ScoreArticles(ctx, code, articles)
	if err != nil {
		return fmt.Errorf("score articles: %w", err)
	}

	for i, a := range articles {
		if i >= len(scores) {
			break
		}
		if err := s.store.SetNewsSentiment(ctx, code, a.URL, scores[i]); err != nil {
			return fmt.Errorf("set sentiment %s: %w", a.URL, err)
		}
	}
	return nil
}

// forEachStock runs one sync operation over the active universe with a
// bounded worker pool. Per-stock failures are collected, never fatal.
func (s *Service) forEachStock(ctx context.Context, op string, fn func(ctx context.Context, code string) (int, error)) (Result, error) {
	stocks, err := s.store.ActiveStocks(ctx, 0)
	if err != nil {
		return Result{}, fmt.Errorf("load active stocks: %w", err)
	}

	result := Result{
		Total:  len(stocks),
		Errors: make(map[string]string),
	}
	if len(stocks) == 0 {
		return result, nil
	}

	s.logger.WithFields(map[string]interface{}{
		"operation": op,
		"stocks":    len(stocks),
		"workers":   s.workers,
	}).Info("Starting sync")

	var (
		mu  gosync.Mutex
		wg  gosync.WaitGroup
		sem = make(chan struct{}, s.workers)
	)
	for _, stock := range stocks {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(code string) {
			defer wg.Done()
			defer func() { <-sem }()

			rows, err := fn(ctx, code)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[code] = err.Error()
				return
			}
			result.Succeeded++
			result.Rows += rows
		}(stock.Code)
	}
	wg.Wait()

	s.logger.WithFields(map[string]interface{}{
		"operation": op,
		"succeeded": result.Succeeded,
		"failed":    result.Failed(),
		"rows":      result.Rows,
	}).Info("Sync completed")

	return result, ctx.Err()
}
