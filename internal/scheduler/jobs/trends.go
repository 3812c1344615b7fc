package jobs

import (
	"context"

	"github.com/openpantry/priceintel/internal/pricing"
	"github.com/openpantry/priceintel/pkg/logger"
)

// TrendRecomputeJob replays every tracked series through the trend
// calculator. The capture path keeps trends current already; this job
// catches the time-driven drift of the rolling windows as days pass
// without new observations.
type TrendRecomputeJob struct {
	service *pricing.Service
	logger  *logger.Logger
}

// NewTrendRecomputeJob creates the nightly trend recompute job.
func NewTrendRecomputeJob(service *pricing.Service, log *logger.Logger) *TrendRecomputeJob {
	return &TrendRecomputeJob{
		service: service,
		logger:  log.WithComponent("jobs.trends"),
	}
}

// Name returns the job name.
func (j *TrendRecomputeJob) Name() string {
	return "trend_recompute"
}

// Schedule runs the job every day at 3 AM.
func (j *TrendRecomputeJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run recomputes all trends.
func (j *TrendRecomputeJob) Run(ctx context.Context) error {
	updated, err := j.service.RecomputeTrends(ctx)
	if err != nil {
		return err
	}

	j.logger.WithField("updated", updated).Info("Nightly trend recompute finished")
	return nil
}
