package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openpantry/priceintel/internal/pricing"
	"github.com/openpantry/priceintel/pkg/config"
	"github.com/openpantry/priceintel/pkg/logger"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status <component-id>",
	Short: "Show data quality for a component's price series",
	Long: `Reports how many observations a series has, its quality stage,
and which analytics are unlocked.

Example:
  go run ./cmd/pricewatch status chicken-breast
  go run ./cmd/pricewatch status chicken-breast --store costco`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

var statusStore string

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusStore, "store", "", "store id (default: aggregate series)")
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	quality, err := service.GetDataQualityStatus(context.Background(), args[0], statusStore)
	if err != nil {
		return fmt.Errorf("get data quality: %w", err)
	}

	fmt.Printf("Component:   %s\n", args[0])
	if statusStore != "" {
		fmt.Printf("Store:       %s\n", statusStore)
	}
	fmt.Printf("Points:      %d\n", quality.Count)
	fmt.Printf("Status:      %s\n", quality.Status)
	if quality.NeedsMore > 0 {
		fmt.Printf("Needs more:  %d points to next stage\n", quality.NeedsMore)
	}
	fmt.Printf("Trends:      %v\n", quality.HasTrends)
	fmt.Printf("Predictions: %v\n", quality.CanPredict)
	return nil
}
