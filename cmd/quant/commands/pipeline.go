package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvnuui/cerisier/internal/contracts"
)

var (
	pipelineStyle string
	pipelineStock string
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the analysis pipeline",
	Long: `Run the full analysis pipeline and persist recommendations.

Without --stock the whole active universe is analyzed; with --stock a
single recommendation is printed without persisting.`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(pipelineCmd)
	pipelineCmd.Flags().StringVar(&pipelineStyle, "style", "swing", "trading style (ultra_short|swing|mid_long)")
	pipelineCmd.Flags().StringVar(&pipelineStock, "stock", "", "analyze a single stock code")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	style := contracts.TradingStyle(pipelineStyle)
	valid := false
	for _, s := range contracts.Styles {
		if style == s {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown style %q", pipelineStyle)
	}

	a, err := buildApp(nil)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	if pipelineStock != "" {
		rec, results, err := a.orchestrator.RunForStock(ctx, pipelineStock, style)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s [%s] score %.1f signal %s confidence %.2f\n",
			rec.StockCode, rec.StockName, rec.Style, rec.Score, rec.Signal, rec.Confidence)
		fmt.Printf("entry %.2f stop %.2f take-profit %v position %.1f%%\n",
			rec.EntryPrice, rec.StopLoss, rec.TakeProfit, rec.PositionPct)
		for _, dim := range contracts.Dimensions {
			if res, ok := results[dim]; ok {
				fmt.Printf("  %-12s %.1f (%s)\n", dim, res.Score, res.Signal)
			}
		}
		fmt.Println(rec.Explanation)
		return nil
	}

	result, err := a.orchestrator.RunForUniverse(ctx, style)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %d recommendations, %d failures, %d AI calls in %s\n",
		result.RunID, len(result.Recommendations), len(result.Failures),
		result.AICalls, result.Duration.Round(time.Second))
	for i, rec := range result.Recommendations {
		if i == 20 {
			fmt.Printf("  ... %d more\n", len(result.Recommendations)-i)
			break
		}
		fmt.Printf("  %2d. %s %s score %.1f %s\n",
			i+1, rec.StockCode, rec.StockName, rec.Score, rec.Signal)
	}
	return nil
}
