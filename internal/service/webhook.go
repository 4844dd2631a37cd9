package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jetvision/broker-backend/internal/avinode"
	"github.com/jetvision/broker-backend/internal/metrics"
)

// WebhookService turns inbound marketplace deliveries into pipeline syncs.
// Events that don't resolve to a local request are expected marketplace noise
// and are dropped without error.
type WebhookService struct {
	Store   Datastore
	Sync    *SyncService
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// HandleDelivery processes one webhook body, which may batch several events.
// headerType, when present, overrides per-event type fields. The returned
// slice holds the ids of every flight request synced by this delivery.
func (w *WebhookService) HandleDelivery(ctx context.Context, headerType string, body []byte) []string {
	var synced []string
	for _, ev := range avinode.ParseWebhookEvents(body) {
		eventType := ev.Type
		if headerType != "" {
			eventType = headerType
		}
		switch eventType {
		case avinode.EventTripRequestSellerResponse:
			if id := w.processSellerResponse(ctx, ev); id != "" {
				synced = appendUniqueID(synced, id)
			}
		default:
			w.countEvent("ignored")
		}
	}
	return synced
}

func (w *WebhookService) processSellerResponse(ctx context.Context, ev avinode.WebhookEvent) string {
	rfqID := ""
	if ev.ResourceType == "rfqs" {
		rfqID = ev.ResourceID
	}
	if ev.TripID == "" {
		w.countEvent("unmatched")
		return ""
	}

	fr, err := w.Store.FindByTripID(ctx, ev.TripID)
	if err != nil {
		fr, err = w.Store.FindByTripRef(ctx, ev.TripID)
	}
	if err != nil {
		// Marketplace activity for trips this tenant never created; expected.
		w.countEvent("unmatched")
		w.Logger.Debug().Str("trip_id", ev.TripID).Msg("webhook event for unknown trip dropped")
		return ""
	}

	if rfqID != "" {
		if err := w.Store.AppendRFQID(ctx, fr.ID, rfqID); err != nil {
			w.Logger.Error().Err(err).Str("request_id", fr.ID).Str("rfq_id", rfqID).Msg("attach rfq id")
			return ""
		}
	}

	if _, err := w.Sync.SyncFlightRequest(ctx, fr.ID); err != nil {
		w.Logger.Warn().Err(err).Str("request_id", fr.ID).Msg("webhook-triggered sync failed")
	}
	w.countEvent("processed")
	return fr.ID
}

func (w *WebhookService) countEvent(outcome string) {
	if w.Metrics != nil {
		w.Metrics.WebhookEvents.WithLabelValues(outcome).Inc()
	}
}
