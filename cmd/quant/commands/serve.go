package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvnuui/cerisier/internal/api"
	"github.com/vvnuui/cerisier/internal/api/handlers"
	"github.com/vvnuui/cerisier/internal/pipeline"
)

// deferredSink forwards pipeline events to a hub that is wired after
// the app graph, since the hub shares the app's logger.
type deferredSink struct {
	hub **api.StreamHub
}

func (s deferredSink) Publish(e pipeline.Event) {
	if h := *s.hub; h != nil {
		h.Publish(e)
	}
}

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the REST API server.

Serves recommendations, on-demand analysis, stock data, paper trading,
weight configuration, background tasks and the websocket progress
stream.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (defaults to PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	var hub *api.StreamHub

	a, err := buildApp(deferredSink{hub: &hub})
	if err != nil {
		return err
	}
	defer a.close()

	if servePort != "" {
		a.cfg.Port = servePort
	}

	hub = api.NewStreamHub(a.log)

	h := api.Handlers{
		Recommendations: handlers.NewRecommendationHandler(a.provider.Recommendations, a.log),
		Analysis:        handlers.NewAnalysisHandler(a.orchestrator, a.aiService, a.provider, a.log),
		Stocks:          handlers.NewStockHandler(a.provider, a.log),
		Portfolios:      handlers.NewPortfolioHandler(a.engine, a.portfolios, a.provider, a.log),
		Weights:         handlers.NewWeightsHandler(a.weights, a.log),
		Tasks:           handlers.NewTaskHandler(a.syncService, a.orchestrator, time.Hour, a.log),
		Stream:          hub,
	}

	server := api.New(a.cfg, a.log, api.NewRouter(h, a.log))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		a.log.WithField("signal", sig.String()).Info("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
