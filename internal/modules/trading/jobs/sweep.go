// Package jobs holds the trading module's scheduled jobs.
package jobs

import (
	"github.com/rs/zerolog"

	"github.com/aristath/paper-trader/internal/modules/trading"
)

// PendingOrderSweep periodically settles the pending order book
// against current prices during the trading session
type PendingOrderSweep struct {
	service *trading.Service
	log     zerolog.Logger
}

// NewPendingOrderSweep creates the sweep job
func NewPendingOrderSweep(service *trading.Service, log zerolog.Logger) *PendingOrderSweep {
	return &PendingOrderSweep{
		service: service,
		log:     log.With().Str("job", "pending_order_sweep").Logger(),
	}
}

// Name returns the job name
func (j *PendingOrderSweep) Name() string {
	return "pending_order_sweep"
}

// Run sweeps the whole pending book
func (j *PendingOrderSweep) Run() error {
	return j.service.ProcessPendingOrders()
}
