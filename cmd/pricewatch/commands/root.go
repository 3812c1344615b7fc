package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pricewatch",
	Short: "Price intelligence and deal quality engine",
	Long: `Pricewatch tracks grocery price observations per (component, store)
series, derives rolling trends and forecasts, and judges advertised
deals against real price history.

Usage:
  go run ./cmd/pricewatch [command]

Examples:
  go run ./cmd/pricewatch api
  go run ./cmd/pricewatch recompute
  go run ./cmd/pricewatch status chicken-breast --store costco`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
