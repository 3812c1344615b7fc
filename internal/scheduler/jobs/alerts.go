package jobs

import (
	"context"

	"github.com/openpantry/priceintel/internal/api"
	"github.com/openpantry/priceintel/internal/pricing"
	"github.com/openpantry/priceintel/pkg/logger"
)

// AlertSweepJob scans the trend cache for price drops and pushes the
// current alert set to connected websocket clients.
type AlertSweepJob struct {
	service *pricing.Service
	hub     *api.AlertHub
	logger  *logger.Logger
}

// NewAlertSweepJob creates the hourly price-drop sweep.
func NewAlertSweepJob(service *pricing.Service, hub *api.AlertHub, log *logger.Logger) *AlertSweepJob {
	return &AlertSweepJob{
		service: service,
		hub:     hub,
		logger:  log.WithComponent("jobs.alerts"),
	}
}

// Name returns the job name.
func (j *AlertSweepJob) Name() string {
	return "price_drop_sweep"
}

// Schedule runs the job at the top of every hour.
func (j *AlertSweepJob) Schedule() string {
	return "0 0 * * * *"
}

// Run collects the current drop alerts and broadcasts them.
func (j *AlertSweepJob) Run(ctx context.Context) error {
	alerts, err := j.service.GetPriceDropAlerts(ctx)
	if err != nil {
		return err
	}

	if len(alerts) == 0 {
		return nil
	}

	j.hub.Broadcast(alerts)
	j.logger.WithFields(map[string]interface{}{
		"alerts":  len(alerts),
		"clients": j.hub.ClientCount(),
	}).Info("Price drop alerts broadcast")

	return nil
}
