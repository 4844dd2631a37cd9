package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jetvision/broker-backend/internal/avinode"
	"github.com/jetvision/broker-backend/internal/models"
)

var errNotFound = errors.New("not found")

type fakeStore struct {
	mu            sync.Mutex
	requests      map[string]models.FlightRequest
	notifications []models.Notification
	syncErrors    map[string]string
}

func newFakeStore(frs ...models.FlightRequest) *fakeStore {
	s := &fakeStore{
		requests:   map[string]models.FlightRequest{},
		syncErrors: map[string]string{},
	}
	for _, fr := range frs {
		s.requests[fr.ID] = fr
	}
	return s
}

func (s *fakeStore) GetFlightRequest(_ context.Context, id string) (models.FlightRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fr, ok := s.requests[id]
	if !ok {
		return models.FlightRequest{}, errNotFound
	}
	return fr, nil
}

func (s *fakeStore) UpdateSyncState(_ context.Context, id string, st models.SyncState) (models.FlightRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fr, ok := s.requests[id]
	if !ok {
		return models.FlightRequest{}, errNotFound
	}
	fr.AvinodeRFQIDs = st.RFQIDs
	fr.AvinodeQuoteIDs = st.QuoteIDs
	fr.AvinodeQuoteCount = st.QuoteCount
	fr.AvinodeBestQuoteID = st.BestQuoteID
	fr.AvinodeBestQuoteAmount = st.BestQuoteAmount
	fr.AvinodeBestQuoteCurrency = st.BestQuoteCurrency
	fr.AvinodeFirstQuoteAt = st.FirstQuoteAt
	fr.AvinodeSLADueAt = st.SLADueAt
	fr.AvinodeSLAStatus = st.SLAStatus
	fr.AvinodeStatus = st.AvinodeStatus
	fr.AvinodeLastSyncAt = &st.LastSyncAt
	fr.LastSyncError = st.LastSyncError
	s.requests[id] = fr
	return fr, nil
}

func (s *fakeStore) SetLastSyncError(_ context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncErrors[id] = message
	return nil
}

func (s *fakeStore) AppendRFQID(_ context.Context, id, rfqID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fr, ok := s.requests[id]
	if !ok {
		return errNotFound
	}
	for _, existing := range fr.AvinodeRFQIDs {
		if existing == rfqID {
			return nil
		}
	}
	fr.AvinodeRFQIDs = append(fr.AvinodeRFQIDs, rfqID)
	if fr.AvinodeStatus == models.AvinodeNotSent || fr.AvinodeStatus == models.AvinodeSent {
		fr.AvinodeStatus = models.AvinodeRFQSent
	}
	s.requests[id] = fr
	return nil
}

func (s *fakeStore) FindByTripID(_ context.Context, tripID string) (models.FlightRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fr := range s.requests {
		if fr.AvinodeTripID == tripID {
			return fr, nil
		}
	}
	return models.FlightRequest{}, errNotFound
}

func (s *fakeStore) FindByTripRef(_ context.Context, ref string) (models.FlightRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fr := range s.requests {
		if ref != "" && (strings.Contains(fr.AvinodeTripHref, ref) || strings.Contains(fr.AvinodeSearchLink, ref)) {
			return fr, nil
		}
	}
	return models.FlightRequest{}, errNotFound
}

func (s *fakeStore) SaveTransition(_ context.Context, fr models.FlightRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[fr.ID] = fr
	return nil
}

func (s *fakeStore) InsertNotification(_ context.Context, n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
	return nil
}

func (s *fakeStore) ListActiveForSync(_ context.Context) ([]models.FlightRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.FlightRequest
	for _, fr := range s.requests {
		switch {
		case fr.Status == models.StatusRFQSubmitted || fr.Status == models.StatusQuoteReceived:
			out = append(out, fr)
		case fr.AvinodeStatus == models.AvinodeSent || fr.AvinodeStatus == models.AvinodeRFQSent:
			out = append(out, fr)
		}
	}
	return out, nil
}

type fakeAPI struct {
	mu        sync.Mutex
	trips     map[string]avinode.Document
	rfqs      map[string]avinode.Document
	quotes    map[string]avinode.Document
	tripmsgs  map[string]avinode.Document
	rfqErr    error
	quoteErr  error
	cancelErr error
	cancelled []string
	rfqCalls  int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		trips:    map[string]avinode.Document{},
		rfqs:     map[string]avinode.Document{},
		quotes:   map[string]avinode.Document{},
		tripmsgs: map[string]avinode.Document{},
	}
}

func (a *fakeAPI) GetTrip(_ context.Context, id string) (avinode.Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if doc, ok := a.trips[id]; ok {
		return doc, nil
	}
	return nil, errNotFound
}

func (a *fakeAPI) GetRFQ(_ context.Context, id string) (avinode.Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rfqCalls++
	if a.rfqErr != nil {
		return nil, a.rfqErr
	}
	if doc, ok := a.rfqs[id]; ok {
		return doc, nil
	}
	return nil, errNotFound
}

func (a *fakeAPI) GetQuote(_ context.Context, id string) (avinode.Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.quoteErr != nil {
		return nil, a.quoteErr
	}
	if doc, ok := a.quotes[id]; ok {
		return doc, nil
	}
	return nil, errNotFound
}

func (a *fakeAPI) GetTripMessage(_ context.Context, id string) (avinode.Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if doc, ok := a.tripmsgs[id]; ok {
		return doc, nil
	}
	return nil, errNotFound
}

func (a *fakeAPI) CancelTrip(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelled = append(a.cancelled, id)
	return a.cancelErr
}
