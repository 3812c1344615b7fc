package commands

import (
	"context"
	"fmt"

	"github.com/openpantry/priceintel/internal/contracts"
	"github.com/openpantry/priceintel/internal/pricing/store"
	"github.com/openpantry/priceintel/pkg/config"
	"github.com/openpantry/priceintel/pkg/database"
	"github.com/openpantry/priceintel/pkg/logger"
)

// engineStores bundles the three storage backends plus their cleanup.
type engineStores struct {
	prices      contracts.PriceStore
	trends      contracts.TrendStore
	assessments contracts.AssessmentStore
	close       func()
}

// buildStores connects to Postgres when DATABASE_URL is set, and falls
// back to process-local stores otherwise. The in-memory mode serves local
// experiments; nothing survives a restart.
func buildStores(cfg *config.Config, log *logger.Logger) (*engineStores, error) {
	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		return &engineStores{
			prices:      store.NewMemoryPriceStore(),
			trends:      store.NewMemoryTrendStore(),
			assessments: store.NewMemoryAssessmentStore(),
			close:       func() {},
		}, nil
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := store.EnsureSchema(context.Background(), db.Pool); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("Connected to database")

	return &engineStores{
		prices:      store.NewPostgresPriceStore(db.Pool),
		trends:      store.NewPostgresTrendStore(db.Pool),
		assessments: store.NewPostgresAssessmentStore(db.Pool),
		close:       db.Close,
	}, nil
}
