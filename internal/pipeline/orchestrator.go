// Package pipeline coordinates the per-stock analysis flow: fetch,
// analyze across the dimension set, score, signal. Universe runs fan
// out over a bounded worker pool and never let one stock's failure
// abort the batch.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vvnuui/cerisier/internal/ai"
	"github.com/vvnuui/cerisier/internal/analyzers"
	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/internal/scoring"
	"github.com/vvnuui/cerisier/pkg/config"
	"github.com/vvnuui/cerisier/pkg/logger"
)

// Store is the persistence surface the orchestrator needs: the stock
// universe to iterate and the recommendation sink.
type Store interface {
	Universe(ctx context.Context, limit int) ([]contracts.StockBasic, error)
	SaveRecommendations(ctx context.Context, recs []contracts.Recommendation) error
}

// AIFactory builds a fresh budget-scoped AI service for one run. Both
// scorers are nil when AI is not configured.
type AIFactory func() (*ai.Budget, analyzers.NewsScorer, analyzers.FactorScorer)

// NoAI is the factory for AI-disabled deployments.
func NoAI() (*ai.Budget, analyzers.NewsScorer, analyzers.FactorScorer) {
	return ai.NewBudget(0, nil), nil, nil
}

// RunResult is the outcome of one universe run.
type RunResult struct {
	RunID           string                     `json:"run_id"`
	Style           contracts.TradingStyle     `json:"style"`
	StartedAt       time.Time                  `json:"started_at"`
	Duration        time.Duration              `json:"duration"`
	Recommendations []contracts.Recommendation `json:"recommendations"`
	Failures        map[string]string          `json:"failures"`
	AICalls         int64                      `json:"ai_calls"`
}

// Orchestrator wires data, analyzers, scoring and signals into runs.
type Orchestrator struct {
	data    analyzers.DataProvider
	scorer  *scoring.Scorer
	signals *scoring.SignalGenerator
	store   Store
	newAI   AIFactory
	sink    Sink

	analyzerWorkers int
	stockWorkers    int
	universeLimit   int
	logger          *logger.Logger
}

// NewOrchestrator creates the orchestrator. sink may be nil.
func NewOrchestrator(
	data analyzers.DataProvider,
	scorer *scoring.Scorer,
	signals *scoring.SignalGenerator,
	store Store,
	newAI AIFactory,
	sink Sink,
	cfg config.EngineConfig,
	log *logger.Logger,
) *Orchestrator {
	if sink == nil {
		sink = NopSink{}
	}
	if newAI == nil {
		newAI = NoAI
	}
	workers := cfg.AnalyzerWorkers
	if workers <= 0 {
		workers = 1
	}
	stockWorkers := cfg.StockWorkers
	if stockWorkers <= 0 {
		stockWorkers = 1
	}

	return &Orchestrator{
		data:            data,
		scorer:          scorer,
		signals:         signals,
		store:           store,
		newAI:           newAI,
		sink:            sink,
		analyzerWorkers: workers,
		stockWorkers:    stockWorkers,
		universeLimit:   cfg.UniverseLimit,
		logger:          log.WithComponent("pipeline"),
	}
}

// suite holds the per-run analyzer set with the AI analyzer split out
// so it can see its siblings' results.
type suite struct {
	base []analyzers.Analyzer
	ai   *analyzers.AIAnalyzer
}

func (o *Orchestrator) buildSuite(news analyzers.NewsScorer, factors analyzers.FactorScorer) suite {
	var s suite
	for _, a := range analyzers.Suite(o.data, news, factors, o.logger) {
		if aiAnalyzer, ok := a.(*analyzers.AIAnalyzer); ok {
			s.ai = aiAnalyzer
			continue
		}
		s.base = append(s.base, a)
	}
	return s
}

// analyzeStock runs the dimension set for one stock: the quantitative
// analyzers under a bounded pool, then the AI analyzer over their
// combined results.
func (o *Orchestrator) analyzeStock(ctx context.Context, s suite, code string, asOf time.Time) map[string]contracts.AnalysisResult {
	results := make(map[string]contracts.AnalysisResult, len(s.base)+1)

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, o.analyzerWorkers)

	for _, a := range s.base {
		wg.Add(1)
		go func(a analyzers.Analyzer) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res := a.Analyze(ctx, code, asOf)
			mu.Lock()
			results[a.Name()] = res
			mu.Unlock()
		}(a)
	}
	wg.Wait()

	if s.ai != nil {
		results[s.ai.Name()] = s.ai.AnalyzeWithResults(ctx, code, asOf, copyResults(results))
	}
	return results
}

func copyResults(results map[string]contracts.AnalysisResult) map[string]contracts.AnalysisResult {
	cp := make(map[string]contracts.AnalysisResult, len(results))
	for k, v := range results {
		cp[k] = v
	}
	return cp
}

// RunForStock analyzes one stock and returns its recommendation with
// the per-dimension detail. It returns a DataUnavailableError when no
// provider could produce any usable data for the stock.
func (o *Orchestrator) RunForStock(ctx context.Context, code string, style contracts.TradingStyle) (contracts.Recommendation, map[string]contracts.AnalysisResult, error) {
	_, news, factors := o.newAI()
	s := o.buildSuite(news, factors)
	return o.runStock(ctx, s, code, style)
}

func (o *Orchestrator) runStock(ctx context.Context, s suite, code string, style contracts.TradingStyle) (contracts.Recommendation, map[string]contracts.AnalysisResult, error) {
	asOf := time.Now()
	results := o.analyzeStock(ctx, s, code, asOf)

	entryPrice, priceErr := o.latestClose(ctx, code)
	if priceErr != nil && allDegraded(results) {
		// nothing usable anywhere: surface the data failure instead of
		// a hollow neutral recommendation
		return contracts.Recommendation{}, nil, priceErr
	}

	sr, err := o.scorer.Score(code, style, results)
	if err != nil {
		return contracts.Recommendation{}, nil, err
	}

	weights := o.scorer.PresentWeights(style, results)
	rec := o.signals.Generate(sr, weights, entryPrice)

	if stock, err := o.data.Stock(ctx, code); err == nil {
		rec.StockName = stock.Name
	}

	return rec, results, nil
}

// latestClose fetches the entry price for signal generation.
func (o *Orchestrator) latestClose(ctx context.Context, code string) (float64, error) {
	klines, err := o.data.Klines(ctx, code, 10)
	if err != nil {
		return 0, err
	}
	if len(klines) == 0 {
		return 0, &contracts.DataUnavailableError{
			Operation: "fetch_kline",
			StockCode: code,
			Reasons:   map[string]string{"local": "no kline rows"},
		}
	}
	return klines[len(klines)-1].Close, nil
}

// allDegraded reports whether every dimension except the macro
// placeholder came back degraded.
func allDegraded(results map[string]contracts.AnalysisResult) bool {
	for dim, r := range results {
		if dim == contracts.DimMacro {
			continue
		}
		if !r.Degraded() {
			return false
		}
	}
	return true
}

// RunForUniverse analyzes the active universe under one style. A fresh
// AI budget is created for the run; per-stock failures are recorded
// and skipped, never aborting the batch. Recommendations are ranked
// deterministically and persisted as a new timestamped run.
func (o *Orchestrator) RunForUniverse(ctx context.Context, style contracts.TradingStyle) (*RunResult, error) {
	started := time.Now()
	result := &RunResult{
		RunID:     fmt.Sprintf("run_%s", started.Format("20060102_150405")),
		Style:     style,
		StartedAt: started,
		Failures:  make(map[string]string),
	}

	stocks, err := o.store.Universe(ctx, o.universeLimit)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	if len(stocks) == 0 {
		return nil, fmt.Errorf("universe is empty")
	}

	budget, news, factors := o.newAI()
	s := o.buildSuite(news, factors)

	o.logger.WithFields(map[string]interface{}{
		"run_id": result.RunID,
		"style":  style,
		"stocks": len(stocks),
	}).Info("Pipeline run started")
	o.sink.Publish(Event{RunID: result.RunID, Stage: StageStarted, Total: len(stocks), At: time.Now()})

	var mu sync.Mutex
	var wg sync.WaitGroup
	var completed int
	sem := make(chan struct{}, o.stockWorkers)

	for _, stock := range stocks {
		wg.Add(1)
		go func(stock contracts.StockBasic) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			rec, _, err := o.runStock(ctx, s, stock.Code, style)

			mu.Lock()
			defer mu.Unlock()
			completed++
			if err != nil {
				result.Failures[stock.Code] = err.Error()
				o.sink.Publish(Event{
					RunID: result.RunID, Stage: StageStockFail, StockCode: stock.Code,
					Completed: completed, Total: len(stocks), Message: err.Error(), At: time.Now(),
				})
				return
			}
			if rec.StockName == "" {
				rec.StockName = stock.Name
			}
			result.Recommendations = append(result.Recommendations, rec)
			o.sink.Publish(Event{
				RunID: result.RunID, Stage: StageStockDone, StockCode: stock.Code,
				Completed: completed, Total: len(stocks), At: time.Now(),
			})
		}(stock)
	}
	wg.Wait()

	scoring.RankRecommendations(result.Recommendations)

	o.sink.Publish(Event{RunID: result.RunID, Stage: StagePersist, Total: len(stocks), Completed: len(stocks), At: time.Now()})
	if err := o.store.SaveRecommendations(ctx, result.Recommendations); err != nil {
		return nil, fmt.Errorf("persist recommendations: %w", err)
	}

	result.Duration = time.Since(started)
	result.AICalls = budget.Used()

	o.logger.WithFields(map[string]interface{}{
		"run_id":          result.RunID,
		"recommendations": len(result.Recommendations),
		"failures":        len(result.Failures),
		"ai_calls":        result.AICalls,
		"duration":        result.Duration.Seconds(),
	}).Info("Pipeline run completed")
	o.sink.Publish(Event{RunID: result.RunID, Stage: StageCompleted, Completed: len(stocks), Total: len(stocks), At: time.Now()})

	return result, nil
}
