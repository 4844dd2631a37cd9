package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jetvision/broker-backend/internal/models"
)

func newTransitionService(store *fakeStore, api *fakeAPI) *TransitionService {
	return &TransitionService{
		Store:  store,
		API:    api,
		Logger: zerolog.Nop(),
		Clock:  func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) },
	}
}

func f64(v float64) *float64 { return &v }

func TestCanTransition_ForwardOnly(t *testing.T) {
	cases := []struct {
		from, to models.Status
		role     models.Role
		wantErr  error
	}{
		{models.StatusPending, models.StatusUnderReview, models.RoleManager, nil},
		{models.StatusUnderReview, models.StatusRFQSubmitted, models.RoleManager, nil},
		{models.StatusRFQSubmitted, models.StatusQuoteReceived, models.RoleManager, nil},
		{models.StatusQuoteReceived, models.StatusProposalReady, models.RoleManager, nil},
		{models.StatusProposalReady, models.StatusProposalSent, models.RoleISO, nil},
		{models.StatusProposalSent, models.StatusAccepted, models.RoleISO, nil},
		{models.StatusProposalSent, models.StatusDeclined, models.RoleISO, nil},

		{models.StatusProposalSent, models.StatusQuoteReceived, models.RoleManager, ErrInvalidTransition},
		{models.StatusPending, models.StatusProposalSent, models.RoleManager, ErrInvalidTransition},
		{models.StatusAccepted, models.StatusDeclined, models.RoleISO, ErrInvalidTransition},

		{models.StatusPending, models.StatusUnderReview, models.RoleISO, ErrWrongRole},
		{models.StatusProposalReady, models.StatusProposalSent, models.RoleManager, ErrWrongRole},
	}
	for _, tc := range cases {
		err := CanTransition(tc.from, tc.to, tc.role)
		if tc.wantErr == nil && err != nil {
			t.Fatalf("%s -> %s as %s: unexpected error %v", tc.from, tc.to, tc.role, err)
		}
		if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
			t.Fatalf("%s -> %s as %s: got %v, want %v", tc.from, tc.to, tc.role, err, tc.wantErr)
		}
	}
}

func TestCanTransition_CancelRules(t *testing.T) {
	if err := CanTransition(models.StatusPending, models.StatusCancelled, models.RoleISO); err != nil {
		t.Fatalf("iso cancel from pending: %v", err)
	}
	if err := CanTransition(models.StatusProposalSent, models.StatusCancelled, models.RoleISO); err != nil {
		t.Fatalf("iso cancel from proposal_sent: %v", err)
	}
	if err := CanTransition(models.StatusPending, models.StatusCancelled, models.RoleManager); !errors.Is(err, ErrWrongRole) {
		t.Fatalf("manager cancel must fail, got %v", err)
	}
	if err := CanTransition(models.StatusAccepted, models.StatusCancelled, models.RoleISO); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancel from terminal must fail, got %v", err)
	}
}

func TestAvailableTransitions(t *testing.T) {
	got := AvailableTransitions(models.StatusProposalSent, models.RoleISO)
	want := map[models.Status]bool{models.StatusAccepted: true, models.StatusDeclined: true, models.StatusCancelled: true}
	if len(got) != len(want) {
		t.Fatalf("expected %d actions, got %v", len(want), got)
	}
	for _, s := range got {
		if !want[s] {
			t.Fatalf("unexpected action %s", s)
		}
	}
	if got := AvailableTransitions(models.StatusAccepted, models.RoleISO); len(got) != 0 {
		t.Fatalf("terminal state offers no actions, got %v", got)
	}
}

func TestApply_QuoteReceivedRequiresSelection(t *testing.T) {
	store := newFakeStore(models.FlightRequest{ID: "fr_1", Status: models.StatusRFQSubmitted})
	svc := newTransitionService(store, newFakeAPI())

	_, err := svc.Apply(context.Background(), "fr_1", models.StatusQuoteReceived, models.RoleManager, TransitionParams{})
	if !errors.Is(err, ErrMissingQuote) {
		t.Fatalf("expected ErrMissingQuote, got %v", err)
	}

	fr, err := svc.Apply(context.Background(), "fr_1", models.StatusQuoteReceived, models.RoleManager, TransitionParams{
		SelectedQuoteID:     "q-b",
		SelectedQuoteAmount: f64(42000),
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if fr.Status != models.StatusQuoteReceived || fr.SelectedQuoteID != "q-b" {
		t.Fatalf("unexpected result %+v", fr)
	}
}

func TestApply_ProposalReadyComputesTotal(t *testing.T) {
	store := newFakeStore(models.FlightRequest{
		ID:                  "fr_1",
		Status:              models.StatusQuoteReceived,
		SelectedQuoteID:     "q-b",
		SelectedQuoteAmount: f64(42000),
	})
	svc := newTransitionService(store, newFakeAPI())

	fr, err := svc.Apply(context.Background(), "fr_1", models.StatusProposalReady, models.RoleManager, TransitionParams{
		ISOCommission: f64(4200),
		JetvisionCost: f64(1500),
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if fr.TotalPrice == nil || *fr.TotalPrice != 47700 {
		t.Fatalf("expected total 47700, got %v", fr.TotalPrice)
	}
}

func TestApply_ProposalReadyDefaultsMissingComponents(t *testing.T) {
	store := newFakeStore(models.FlightRequest{
		ID:                  "fr_1",
		Status:              models.StatusQuoteReceived,
		SelectedQuoteAmount: f64(42000),
	})
	svc := newTransitionService(store, newFakeAPI())

	fr, err := svc.Apply(context.Background(), "fr_1", models.StatusProposalReady, models.RoleManager, TransitionParams{})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if fr.TotalPrice == nil || *fr.TotalPrice != 42000 {
		t.Fatalf("expected total 42000, got %v", fr.TotalPrice)
	}
}

func TestApply_TimestampsOnSendAndDecision(t *testing.T) {
	store := newFakeStore(models.FlightRequest{ID: "fr_1", Status: models.StatusProposalReady, SelectedQuoteAmount: f64(1)})
	svc := newTransitionService(store, newFakeAPI())

	fr, err := svc.Apply(context.Background(), "fr_1", models.StatusProposalSent, models.RoleISO, TransitionParams{})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if fr.ProposalSentAt == nil {
		t.Fatalf("proposal_sent must stamp ProposalSentAt")
	}

	fr, err = svc.Apply(context.Background(), "fr_1", models.StatusAccepted, models.RoleISO, TransitionParams{})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if fr.ClientDecisionAt == nil {
		t.Fatalf("accepted must stamp ClientDecisionAt")
	}
}

func TestApply_CancelAttemptsMarketplaceCancel(t *testing.T) {
	store := newFakeStore(models.FlightRequest{
		ID:            "fr_1",
		Status:        models.StatusRFQSubmitted,
		AvinodeTripID: "atrip-9",
	})
	api := newFakeAPI()
	svc := newTransitionService(store, api)

	fr, err := svc.Apply(context.Background(), "fr_1", models.StatusCancelled, models.RoleISO, TransitionParams{})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(api.cancelled) != 1 || api.cancelled[0] != "atrip-9" {
		t.Fatalf("expected marketplace cancel for atrip-9, got %v", api.cancelled)
	}
	if fr.AvinodeStatus != models.AvinodeCancelled {
		t.Fatalf("expected avinode status cancelled, got %s", fr.AvinodeStatus)
	}
}

func TestApply_CancelSurvivesMarketplaceFailure(t *testing.T) {
	store := newFakeStore(models.FlightRequest{
		ID:            "fr_1",
		Status:        models.StatusRFQSubmitted,
		AvinodeTripID: "atrip-9",
	})
	api := newFakeAPI()
	api.cancelErr = errNotFound
	svc := newTransitionService(store, api)

	fr, err := svc.Apply(context.Background(), "fr_1", models.StatusCancelled, models.RoleISO, TransitionParams{})
	if err != nil {
		t.Fatalf("local cancel must proceed despite marketplace failure: %v", err)
	}
	if fr.Status != models.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", fr.Status)
	}
}

func TestApply_NotifiesWhenActorChanges(t *testing.T) {
	store := newFakeStore(models.FlightRequest{
		ID:                  "fr_1",
		ClientName:          "Dana",
		Status:              models.StatusQuoteReceived,
		SelectedQuoteAmount: f64(42000),
	})
	svc := newTransitionService(store, newFakeAPI())

	// quote_received -> proposal_ready hands the request to the ISO.
	if _, err := svc.Apply(context.Background(), "fr_1", models.StatusProposalReady, models.RoleManager, TransitionParams{}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(store.notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(store.notifications))
	}
	if store.notifications[0].Role != models.RoleISO {
		t.Fatalf("expected iso notification, got %s", store.notifications[0].Role)
	}
}

func TestApply_NoNotificationWhenActorUnchanged(t *testing.T) {
	store := newFakeStore(models.FlightRequest{ID: "fr_1", Status: models.StatusPending})
	svc := newTransitionService(store, newFakeAPI())

	if _, err := svc.Apply(context.Background(), "fr_1", models.StatusUnderReview, models.RoleManager, TransitionParams{}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(store.notifications) != 0 {
		t.Fatalf("manager-to-manager move must not notify, got %d", len(store.notifications))
	}
}
