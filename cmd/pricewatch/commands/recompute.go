package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openpantry/priceintel/internal/pricing"
	"github.com/openpantry/priceintel/pkg/config"
	"github.com/openpantry/priceintel/pkg/logger"
)

// recomputeCmd represents the recompute command
var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute all price trends",
	Long: `Replays every tracked price series through the trend calculator
and overwrites the cached trends. The API server does this nightly;
run it manually after bulk imports.

Example:
  go run ./cmd/pricewatch recompute`,
	RunE: runRecompute,
}

func init() {
	rootCmd.AddCommand(recomputeCmd)
}

func runRecompute(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	stores, err := buildStores(cfg, log)
	if err != nil {
		return err
	}
	defer stores.close()

	service := pricing.NewService(stores.prices, stores.trends, stores.assessments, cfg.Pricing, log.Zerolog())

	updated, err := service.RecomputeTrends(context.Background())
	if err != nil {
		return fmt.Errorf("recompute trends: %w", err)
	}

	fmt.Printf("Recomputed %d trends\n", updated)
	return nil
}
