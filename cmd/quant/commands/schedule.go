package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vvnuui/cerisier/internal/scheduler"
	"github.com/vvnuui/cerisier/internal/scheduler/jobs"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the job scheduler",
	Long: `Start the cron scheduler with the standard job set:

  stock list       Monday 08:30
  market data      weekdays 16:30 (klines, money flow, margin, validation)
  financials       Saturday 09:00
  news             hourly 08:00-20:00
  pipeline         weekdays 17:00/17:30/18:00 per style
  performance      weekdays 18:30`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	a, err := buildApp(nil)
	if err != nil {
		return err
	}
	defer a.close()

	sched := scheduler.New(a.log)

	jobList := []scheduler.Job{
		jobs.NewStockListJob(a.syncService, a.log),
		jobs.NewMarketDataJob(a.syncService, a.log),
		jobs.NewFinancialsJob(a.syncService, a.log),
		jobs.NewNewsJob(a.syncService, a.log),
		jobs.NewPerformanceJob(a.engine, a.portfolios, a.provider, a.log),
	}
	for _, job := range jobs.DefaultPipelineJobs(a.orchestrator, a.log) {
		jobList = append(jobList, job)
	}

	for _, job := range jobList {
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("add job %s: %w", job.Name(), err)
		}
	}

	sched.Start()
	a.log.WithField("jobs", len(jobList)).Info("Scheduler running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}
