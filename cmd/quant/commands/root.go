// Package commands holds the quant CLI. Every command loads config
// from the environment, wires its dependencies and runs one concern:
// the API server, a sync batch, a pipeline run, the scheduler, or the
// paper trading simulator.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	verbose  bool
)

// rootCmd represents the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "Cerisier - A-share quantitative analysis and signal engine",
	Long: `Cerisier quantitative stock analysis CLI.

Data synchronization, multi-dimension analysis, style-weighted scoring,
trade signals and paper trading for the A-share market.

Examples:
  go run ./cmd/quant serve
  go run ./cmd/quant sync klines
  go run ./cmd/quant pipeline --style swing
  go run ./cmd/quant simulate
  go run ./cmd/quant schedule`,
	// flags override the environment before any command loads config
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			os.Setenv("ENV_FILE", cfgFile)
		}
		if logLevel != "" {
			os.Setenv("LOG_LEVEL", logLevel)
		}
		if verbose {
			os.Setenv("LOG_LEVEL", "debug")
		}
	},
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to an env file (defaults to ./.env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "shorthand for --log-level debug")
}
