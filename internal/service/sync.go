package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jetvision/broker-backend/internal/avinode"
	"github.com/jetvision/broker-backend/internal/metrics"
	"github.com/jetvision/broker-backend/internal/models"
)

const (
	slaWindow     = 6 * time.Hour
	slaRiskWindow = time.Hour
)

// SyncService reconciles a flight request's local record with current
// marketplace truth. It is the single entry point for manual syncs, the
// periodic poller, and webhook-triggered syncs, and re-running it against
// unchanged remote state produces the same persisted fields.
type SyncService struct {
	Store   Datastore
	API     MarketplaceAPI
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	Clock   func() time.Time
}

func (s *SyncService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

func (s *SyncService) SyncFlightRequest(ctx context.Context, id string) (models.FlightRequest, error) {
	start := time.Now()
	if s.Metrics != nil {
		s.Metrics.SyncRuns.Inc()
		defer func() {
			s.Metrics.SyncDuration.Observe(time.Since(start).Seconds())
		}()
	}

	fr, err := s.Store.GetFlightRequest(ctx, id)
	if err != nil {
		return models.FlightRequest{}, fmt.Errorf("load flight request %s: %w", id, err)
	}

	// The trip is resolved on every run: its linked messages carry the
	// operator-submitted sellerQuote prices, which must flow into extraction
	// regardless of how the RFQ ids got attached.
	rfqIDs := append([]string{}, fr.AvinodeRFQIDs...)
	discovered, msgs := s.resolveTrip(ctx, fr)
	if len(rfqIDs) == 0 {
		rfqIDs = discovered
	}

	var quotes []avinode.SellerQuote
	for _, rfqID := range rfqIDs {
		rfq, err := s.API.GetRFQ(ctx, rfqID)
		if err != nil {
			return fr, s.failSync(ctx, id, fmt.Errorf("fetch rfq %s: %w", rfqID, err))
		}
		quotes = append(quotes, avinode.ExtractRFQQuotes(rfq, msgs)...)
	}
	if s.Metrics != nil {
		s.Metrics.QuotesSeen.Add(float64(len(quotes)))
	}

	agg := aggregateQuotes(quotes)

	// The lift's embedded latestQuote can lag behind the quote resource, so
	// the winner's canonical price is re-read directly.
	if agg.bestQuoteID != "" {
		quoteDoc, err := s.API.GetQuote(ctx, agg.bestQuoteID)
		if err != nil {
			s.Logger.Warn().Err(err).Str("quote_id", agg.bestQuoteID).Msg("best quote re-fetch failed, keeping lift price")
		} else if amount, currency := avinode.CanonicalQuotePrice(quoteDoc); amount != nil {
			agg.bestAmount = amount
			if currency != "" {
				agg.bestCurrency = currency
			}
		}
	}

	now := s.now()
	dueAt, slaStatus := ComputeSLA(fr.CreatedAt, now, agg.count)

	st := models.SyncState{
		RFQIDs:            rfqIDs,
		QuoteIDs:          agg.quoteIDs,
		QuoteCount:        agg.count,
		BestQuoteID:       agg.bestQuoteID,
		BestQuoteAmount:   agg.bestAmount,
		BestQuoteCurrency: agg.bestCurrency,
		FirstQuoteAt:      agg.firstQuoteAt,
		SLADueAt:          &dueAt,
		SLAStatus:         slaStatus,
		AvinodeStatus:     deriveAvinodeStatus(fr.AvinodeStatus, len(rfqIDs), agg.count),
		LastSyncAt:        now,
	}

	updated, err := s.Store.UpdateSyncState(ctx, id, st)
	if err != nil {
		return fr, s.failSync(ctx, id, fmt.Errorf("persist sync state: %w", err))
	}

	s.Logger.Info().
		Str("request_id", id).
		Int("rfqs", len(rfqIDs)).
		Int("quotes", agg.count).
		Str("sla", string(slaStatus)).
		Msg("pipeline synced")
	return updated, nil
}

func (s *SyncService) failSync(ctx context.Context, id string, err error) error {
	if s.Metrics != nil {
		s.Metrics.SyncErrors.Inc()
	}
	if dbErr := s.Store.SetLastSyncError(ctx, id, err.Error()); dbErr != nil {
		s.Logger.Error().Err(dbErr).Str("request_id", id).Msg("failed to record sync error")
	}
	return err
}

// resolveTrip fetches the marketplace trip and reads its linked RFQ references
// plus any linked trip-message threads. Failure is non-fatal; sync proceeds
// with whatever RFQ ids are already known and without message prices.
func (s *SyncService) resolveTrip(ctx context.Context, fr models.FlightRequest) ([]string, []avinode.Document) {
	tripID := ResolveTripID(fr)
	if tripID == "" {
		return nil, nil
	}
	trip, err := s.API.GetTrip(ctx, tripID)
	if err != nil {
		s.Logger.Warn().Err(err).Str("trip_id", tripID).Msg("trip resolution failed, continuing without")
		return nil, nil
	}

	var msgs []avinode.Document
	for _, msgID := range avinode.TripMessageIDs(trip) {
		msg, err := s.API.GetTripMessage(ctx, msgID)
		if err != nil {
			s.Logger.Warn().Err(err).Str("tripmsg_id", msgID).Msg("trip message fetch failed, skipping")
			continue
		}
		msgs = append(msgs, msg)
	}
	return avinode.TripRFQIDs(trip), msgs
}

// SyncActiveRequests runs one polling pass over every request still in an
// active sourcing state.
func (s *SyncService) SyncActiveRequests(ctx context.Context) {
	requests, err := s.Store.ListActiveForSync(ctx)
	if err != nil {
		s.Logger.Error().Err(err).Msg("list active requests for sync")
		return
	}
	for _, fr := range requests {
		if _, err := s.SyncFlightRequest(ctx, fr.ID); err != nil {
			s.Logger.Warn().Err(err).Str("request_id", fr.ID).Msg("periodic sync failed")
		}
	}
}

var (
	longTripIDPattern = regexp.MustCompile(`^atrip-[0-9]+$`)
	tripRefPattern    = regexp.MustCompile(`atrip-[0-9]+`)
	tripPathPattern   = regexp.MustCompile(`/trips/([A-Za-z0-9-]+)`)
)

// ResolveTripID returns the long-form marketplace trip id for a request,
// parsing it out of the stored deep links when the id field itself only holds
// a short or legacy value.
func ResolveTripID(fr models.FlightRequest) string {
	if longTripIDPattern.MatchString(fr.AvinodeTripID) {
		return fr.AvinodeTripID
	}
	for _, ref := range []string{fr.AvinodeTripHref, fr.AvinodeSearchLink} {
		if ref == "" {
			continue
		}
		if m := tripRefPattern.FindString(ref); m != "" {
			return m
		}
		if m := tripPathPattern.FindStringSubmatch(ref); len(m) == 2 {
			return m[1]
		}
	}
	return strings.TrimSpace(fr.AvinodeTripID)
}

type quoteAggregate struct {
	quoteIDs     []string
	count        int
	bestQuoteID  string
	bestAmount   *float64
	bestCurrency string
	firstQuoteAt *time.Time
}

// aggregateQuotes folds extracted seller quotes into the persisted summary.
// Only quotes with a non-empty id and a positive amount count; the best quote
// is the minimum by amount.
func aggregateQuotes(quotes []avinode.SellerQuote) quoteAggregate {
	var agg quoteAggregate
	agg.quoteIDs = []string{}
	for _, q := range quotes {
		if q.QuoteID == "" || q.QuoteAmount == nil || *q.QuoteAmount <= 0 {
			continue
		}
		agg.count++
		agg.quoteIDs = appendUniqueID(agg.quoteIDs, q.QuoteID)
		if q.CreatedOn != nil && (agg.firstQuoteAt == nil || q.CreatedOn.Before(*agg.firstQuoteAt)) {
			ts := *q.CreatedOn
			agg.firstQuoteAt = &ts
		}
		if agg.bestAmount == nil || *q.QuoteAmount < *agg.bestAmount {
			amount := *q.QuoteAmount
			agg.bestAmount = &amount
			agg.bestQuoteID = q.QuoteID
			agg.bestCurrency = q.QuoteCurrency
		}
	}
	return agg
}

// ComputeSLA derives the response deadline and its status. The deadline is six
// hours after submission; any received quote marks the SLA met regardless of
// elapsed time.
func ComputeSLA(createdAt, now time.Time, quoteCount int) (time.Time, models.SLAStatus) {
	dueAt := createdAt.Add(slaWindow)
	switch {
	case quoteCount > 0:
		return dueAt, models.SLAMet
	case now.After(dueAt):
		return dueAt, models.SLAOverdue
	case !now.Before(dueAt.Add(-slaRiskWindow)):
		return dueAt, models.SLAAtRisk
	default:
		return dueAt, models.SLAOnTrack
	}
}

// deriveAvinodeStatus keeps the sourcing status monotone: it never regresses
// once RFQs or quotes exist, and terminal values stick.
func deriveAvinodeStatus(prev models.AvinodeStatus, rfqCount, quoteCount int) models.AvinodeStatus {
	if prev == models.AvinodeCancelled || prev == models.AvinodeBooked {
		return prev
	}
	switch {
	case quoteCount > 0:
		return models.AvinodeQuotesReceived
	case rfqCount > 0:
		if prev.AtLeast(models.AvinodeRFQSent) {
			return prev
		}
		return models.AvinodeRFQSent
	default:
		if prev == "" || prev == models.AvinodeNotSent {
			return models.AvinodeSent
		}
		return prev
	}
}

func appendUniqueID(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
