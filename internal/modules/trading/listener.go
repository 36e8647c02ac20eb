package trading

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aristath/paper-trader/internal/events"
)

// StartSweepListener matches pending orders against fresh quotes. It
// subscribes to the event bus and sweeps a stock's pending book every
// time its price updates, until ctx is cancelled.
func StartSweepListener(ctx context.Context, bus *events.Bus, service *Service, log zerolog.Logger) {
	log = log.With().Str("component", "sweep_listener").Logger()

	ch, unsubscribe := bus.Subscribe()

	go func() {
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-ch:
				if !ok {
					return
				}
				if event.Type != events.PriceUpdated {
					continue
				}

				stockID, ok := stockIDFromEvent(event)
				if !ok {
					log.Warn().Interface("data", event.Data).Msg("Price event without stock_id")
					continue
				}

				if err := service.ProcessPendingOrdersForStock(stockID); err != nil {
					log.Error().Err(err).Int64("stock_id", stockID).Msg("Sweep after price update failed")
				}
			}
		}
	}()

	log.Info().Msg("Sweep listener started")
}

// stockIDFromEvent pulls the stock id out of a price event. JSON
// round-trips turn integers into float64, so both forms are accepted.
func stockIDFromEvent(event events.Event) (int64, bool) {
	switch v := event.Data["stock_id"].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
