package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	syncsvc "github.com/vvnuui/cerisier/internal/sync"
)

var syncDays int

var syncCmd = &cobra.Command{
	Use:   "sync [stocks|klines|moneyflow|margin|financials|news|validate|all]",
	Short: "Synchronize market data into the database",
	Long: `Pull data from the provider chain into PostgreSQL.

Targets:
  stocks      stock master list
  klines      daily bars
  moneyflow   capital flow
  margin      margin trading balances
  financials  quarterly report snapshots
  news        recent articles (with AI sentiment backfill when enabled)
  validate    coverage and freshness checks
  all         everything above in order`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().IntVar(&syncDays, "days", 0, "trailing day window (0 uses per-target default)")
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := buildApp(nil)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()

	target := args[0]
	switch target {
	case "stocks":
		n, err := a.syncService.SyncStockList(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("synced %d stocks\n", n)
		return nil
	case "klines":
		return printResult(a.syncService.SyncDailyKline(ctx, syncDays))
	case "moneyflow":
		return printResult(a.syncService.SyncMoneyFlow(ctx, syncDays))
	case "margin":
		return printResult(a.syncService.SyncMarginData(ctx, syncDays))
	case "financials":
		return printResult(a.syncService.SyncFinancialReports(ctx))
	case "news":
		return printResult(a.syncService.SyncNews(ctx, syncDays))
	case "validate":
		report, err := a.syncService.ValidateData(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("validated %d stocks: %d valid, %d issues\n",
			report.Total, report.Valid, len(report.Issues))
		for _, issue := range report.Issues {
			fmt.Printf("  %s: %s\n", issue.StockCode, issue.Problem)
		}
		return nil
	case "all":
		if _, err := a.syncService.SyncStockList(ctx); err != nil {
			return err
		}
		steps := []func() (syncsvc.Result, error){
			func() (syncsvc.Result, error) { return a.syncService.SyncDailyKline(ctx, syncDays) },
			func() (syncsvc.Result, error) { return a.syncService.SyncMoneyFlow(ctx, syncDays) },
			func() (syncsvc.Result, error) { return a.syncService.SyncMarginData(ctx, syncDays) },
			func() (syncsvc.Result, error) { return a.syncService.SyncFinancialReports(ctx) },
			func() (syncsvc.Result, error) { return a.syncService.SyncNews(ctx, syncDays) },
		}
		for _, step := range steps {
			if err := printResult(step()); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown sync target %q", target)
	}
}

func printResult(result syncsvc.Result, err error) error {
	if err != nil {
		return err
	}
	fmt.Printf("synced %d/%d stocks, %d rows", result.Succeeded, result.Total, result.Rows)
	if result.Failed() > 0 {
		fmt.Printf(", %d failed", result.Failed())
	}
	fmt.Println()
	return nil
}
