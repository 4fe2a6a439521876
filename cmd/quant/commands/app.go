package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/vvnuui/cerisier/internal/ai"
	"github.com/vvnuui/cerisier/internal/analyzers"
	"github.com/vvnuui/cerisier/internal/data/repos"
	"github.com/vvnuui/cerisier/internal/datasource"
	"github.com/vvnuui/cerisier/internal/pipeline"
	"github.com/vvnuui/cerisier/internal/scoring"
	"github.com/vvnuui/cerisier/internal/simulator"
	syncsvc "github.com/vvnuui/cerisier/internal/sync"
	"github.com/vvnuui/cerisier/pkg/config"
	"github.com/vvnuui/cerisier/pkg/database"
	"github.com/vvnuui/cerisier/pkg/httputil"
	"github.com/vvnuui/cerisier/pkg/logger"
	redisutil "github.com/vvnuui/cerisier/pkg/redis"
)

// app bundles the wired dependency graph shared by the commands.
// SSOT: production wiring happens only in buildApp.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *database.DB
	redis  *redisutil.Client
	router *datasource.Router

	provider   *repos.Provider
	weights    *repos.WeightsRepo
	portfolios *repos.PortfolioRepo

	scorer       *scoring.Scorer
	signals      *scoring.SignalGenerator
	engine       *simulator.Engine
	aiService    *ai.Service // nil when AI is disabled
	aiFactory    pipeline.AIFactory
	syncService  *syncsvc.Service
	orchestrator *pipeline.Orchestrator
}

// buildApp loads config and wires the full graph. sink receives
// pipeline progress events and may be nil.
func buildApp(sink pipeline.Sink) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	redisClient, err := redisutil.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	// one rate-limited client for the market data providers
	dsClient := httputil.NewWithTimeout(cfg, log, cfg.DataSource.HTTPTimeout).
		WithRetry(cfg.DataSource.MaxRetries, time.Second)
	if redisClient.Enabled() {
		limiter := redisutil.NewRateLimiter(redisClient, "cerisier")
		dsClient = dsClient.WithRateLimiter(limiter, redisutil.RateLimitConfig{
			Key:    "datasource",
			Limit:  cfg.DataSource.RatePerMin,
			Window: time.Minute,
		})
	}

	router := datasource.NewRouter(log,
		datasource.NewEastMoneyProvider(cfg, dsClient, log),
		datasource.NewTencentProvider(cfg, dsClient, log),
		datasource.NewSinaProvider(cfg, dsClient, log),
	)

	provider := repos.NewProvider(db.Pool)
	weightsRepo := repos.NewWeightsRepo(db.Pool)
	portfolioRepo := repos.NewPortfolioRepo(db.Pool)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	weights, err := weightsRepo.Load(ctx)
	cancel()
	if err != nil {
		log.WithError(err).Warn("Loading stored weights failed, using defaults")
		weights = scoring.DefaultWeights()
	}

	scorer, err := scoring.NewScorerWithWeights(weights, log)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, fmt.Errorf("build scorer: %w", err)
	}
	signals := scoring.NewSignalGenerator(cfg.Engine, log)
	engine := simulator.NewEngine(portfolioRepo, cfg.Engine, log)

	counter := redisutil.NewDailyCounter(redisClient, "cerisier")
	aiClient := httputil.New(cfg, log)

	var (
		aiService *ai.Service
		aiFactory pipeline.AIFactory
	)
	if cfg.AI.DailyBudget > 0 {
		aiService, err = ai.NewService(cfg.AI, aiClient, ai.NewBudget(cfg.AI.DailyBudget, counter), log)
		if err != nil {
			log.WithError(err).Warn("AI service unavailable, running without AI")
		}
	}
	if aiService != nil {
		aiFactory = func() (*ai.Budget, analyzers.NewsScorer, analyzers.FactorScorer) {
			budget := ai.NewBudget(cfg.AI.DailyBudget, counter)
			svc, err := ai.NewService(cfg.AI, aiClient, budget, log)
			if err != nil {
				return budget, nil, nil
			}
			return budget, svc, svc
		}
	}

	var scorerForSync syncsvc.ArticleScorer
	if aiService != nil {
		scorerForSync = aiService
	}
	syncService := syncsvc.NewService(router, provider, scorerForSync, cfg.Engine.StockWorkers, log)

	orchestrator := pipeline.NewOrchestrator(
		provider, scorer, signals, provider, aiFactory, sink, cfg.Engine, log,
	)

	return &app{
		cfg:          cfg,
		log:          log,
		db:           db,
		redis:        redisClient,
		router:       router,
		provider:     provider,
		weights:      weightsRepo,
		portfolios:   portfolioRepo,
		scorer:       scorer,
		signals:      signals,
		engine:       engine,
		aiService:    aiService,
		aiFactory:    aiFactory,
		syncService:  syncService,
		orchestrator: orchestrator,
	}, nil
}

// close releases the shared connections.
func (a *app) close() {
	a.redis.Close()
	a.db.Close()
}
