package commands

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvnuui/cerisier/internal/contracts"
	"github.com/vvnuui/cerisier/internal/data/repos"
	"github.com/vvnuui/cerisier/internal/simulator"
)

var (
	simulateStyle   string
	simulateCapital float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Paper trade the latest recommendations",
	Long: `Run an in-memory paper trading session over the latest BUY
recommendations for a style: open a portfolio, buy each recommended
stock at its entry price with the recommended position size, then print
the resulting account summary. Nothing is persisted.`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVar(&simulateStyle, "style", "swing", "trading style (ultra_short|swing|mid_long)")
	simulateCmd.Flags().Float64Var(&simulateCapital, "capital", 1000000, "initial capital")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	a, err := buildApp(nil)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	recs, err := a.provider.Recommendations.List(ctx, repos.Filter{
		Style:  contracts.TradingStyle(simulateStyle),
		Signal: contracts.SignalBuy,
	})
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("no BUY recommendations to simulate, run the pipeline first")
		return nil
	}

	store := simulator.NewMemoryStore()
	engine := simulator.NewEngine(store, a.cfg.Engine, a.log)

	p, err := store.CreatePortfolio(ctx, "simulation "+simulateStyle, simulateCapital)
	if err != nil {
		return err
	}

	for _, rec := range recs {
		if rec.EntryPrice <= 0 || rec.PositionPct <= 0 {
			continue
		}
		budget := simulateCapital * rec.PositionPct / 100
		// A-share round lots of 100 shares
		shares := int64(math.Floor(budget/rec.EntryPrice/100)) * 100
		if shares == 0 {
			continue
		}
		trade, err := engine.Buy(ctx, p.ID, rec.StockCode, shares, rec.EntryPrice, rec.Explanation)
		if err != nil {
			fmt.Printf("  skip %s: %v\n", rec.StockCode, err)
			continue
		}
		fmt.Printf("  buy %s %d @ %.2f (commission %.2f)\n",
			trade.StockCode, trade.Shares, trade.Price, trade.Commission)
	}

	summary, err := engine.Summarize(ctx, p.ID)
	if err != nil {
		return err
	}
	fmt.Printf("\ncash %.2f, market value %.2f, total %.2f (%d positions)\n",
		summary.Portfolio.CashBalance, summary.MarketValue, summary.TotalValue,
		len(summary.Positions))

	metric, err := engine.CalculatePerformance(ctx, p.ID, time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("day 1 value %.2f, return %.4f%%\n", metric.TotalValue, metric.DailyReturn)
	return nil
}
