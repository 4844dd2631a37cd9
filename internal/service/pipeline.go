package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jetvision/broker-backend/internal/models"
)

var (
	ErrInvalidTransition = errors.New("invalid pipeline transition")
	ErrWrongRole         = errors.New("role may not perform this transition")
	ErrMissingQuote      = errors.New("a selected quote is required for this transition")
)

type transitionRule struct {
	to   models.Status
	role models.Role
}

// forwardTransitions is the linear pipeline. Cancellation is handled
// separately: ISO may cancel from any non-terminal state.
var forwardTransitions = map[models.Status][]transitionRule{
	models.StatusPending:       {{models.StatusUnderReview, models.RoleManager}},
	models.StatusUnderReview:   {{models.StatusRFQSubmitted, models.RoleManager}},
	models.StatusRFQSubmitted:  {{models.StatusQuoteReceived, models.RoleManager}},
	models.StatusQuoteReceived: {{models.StatusProposalReady, models.RoleManager}},
	models.StatusProposalReady: {{models.StatusProposalSent, models.RoleISO}},
	models.StatusProposalSent: {
		{models.StatusAccepted, models.RoleISO},
		{models.StatusDeclined, models.RoleISO},
	},
}

// CanTransition checks whether role may move a request from one status to
// another. Backward moves are never allowed.
func CanTransition(from, to models.Status, role models.Role) error {
	if to == models.StatusCancelled {
		if from.Terminal() {
			return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, from)
		}
		if role != models.RoleISO {
			return fmt.Errorf("%w: only iso may cancel", ErrWrongRole)
		}
		return nil
	}
	for _, rule := range forwardTransitions[from] {
		if rule.to == to {
			if rule.role != role {
				return fmt.Errorf("%w: %s -> %s requires %s", ErrWrongRole, from, to, rule.role)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// AvailableTransitions lists what role can do from the given status; the UI
// renders exactly these actions.
func AvailableTransitions(from models.Status, role models.Role) []models.Status {
	var out []models.Status
	for _, rule := range forwardTransitions[from] {
		if rule.role == role {
			out = append(out, rule.to)
		}
	}
	if !from.Terminal() && role == models.RoleISO {
		out = append(out, models.StatusCancelled)
	}
	return out
}

// TransitionParams carries the per-transition inputs; commission and cost
// arrive as flat amounts (the UI converts percentages before calling).
type TransitionParams struct {
	SelectedQuoteID     string
	SelectedQuoteAmount *float64
	ISOCommission       *float64
	JetvisionCost       *float64
	ProposalNotes       string
}

type TransitionService struct {
	Store  Datastore
	API    MarketplaceAPI
	Logger zerolog.Logger
	Clock  func() time.Time
}

func (t *TransitionService) now() time.Time {
	if t.Clock != nil {
		return t.Clock()
	}
	return time.Now().UTC()
}

// Apply guards and executes one pipeline transition, including its side
// effects, then fires the role-targeted notification. Notification failures
// never block the transition.
func (t *TransitionService) Apply(ctx context.Context, id string, to models.Status, role models.Role, p TransitionParams) (models.FlightRequest, error) {
	fr, err := t.Store.GetFlightRequest(ctx, id)
	if err != nil {
		return models.FlightRequest{}, fmt.Errorf("load flight request %s: %w", id, err)
	}
	if err := CanTransition(fr.Status, to, role); err != nil {
		return fr, err
	}

	now := t.now()
	switch to {
	case models.StatusQuoteReceived:
		if p.SelectedQuoteID == "" || p.SelectedQuoteAmount == nil {
			return fr, ErrMissingQuote
		}
		fr.SelectedQuoteID = p.SelectedQuoteID
		fr.SelectedQuoteAmount = p.SelectedQuoteAmount

	case models.StatusProposalReady:
		if fr.SelectedQuoteAmount == nil {
			return fr, ErrMissingQuote
		}
		commission := 0.0
		if p.ISOCommission != nil {
			commission = *p.ISOCommission
		}
		cost := 0.0
		if p.JetvisionCost != nil {
			cost = *p.JetvisionCost
		}
		total := ProposalTotal(*fr.SelectedQuoteAmount, commission, cost)
		fr.ISOCommission = &commission
		fr.JetvisionCost = &cost
		fr.TotalPrice = &total
		fr.ProposalNotes = p.ProposalNotes

	case models.StatusProposalSent:
		fr.ProposalSentAt = &now

	case models.StatusAccepted, models.StatusDeclined:
		fr.ClientDecisionAt = &now

	case models.StatusCancelled:
		if tripID := ResolveTripID(fr); tripID != "" {
			if err := t.API.CancelTrip(ctx, tripID); err != nil {
				t.Logger.Warn().Err(err).Str("trip_id", tripID).Msg("marketplace cancel failed, cancelling locally")
			}
			fr.AvinodeStatus = models.AvinodeCancelled
		}
	}

	from := fr.Status
	fr.Status = to
	if err := t.Store.SaveTransition(ctx, fr); err != nil {
		return fr, fmt.Errorf("persist transition %s -> %s: %w", from, to, err)
	}

	t.notify(ctx, fr, from)

	t.Logger.Info().
		Str("request_id", fr.ID).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("role", string(role)).
		Msg("pipeline transition")
	return fr, nil
}

// nextActor says whose move it is once a request sits in the given status.
func nextActor(s models.Status) models.Role {
	switch s {
	case models.StatusPending, models.StatusUnderReview, models.StatusRFQSubmitted, models.StatusQuoteReceived:
		return models.RoleManager
	case models.StatusProposalReady, models.StatusProposalSent:
		return models.RoleISO
	case models.StatusAccepted, models.StatusDeclined, models.StatusCancelled:
		// Outcomes are reported back to operations.
		return models.RoleManager
	}
	return ""
}

func (t *TransitionService) notify(ctx context.Context, fr models.FlightRequest, from models.Status) {
	target := nextActor(fr.Status)
	if target == "" || (target == nextActor(from) && !fr.Status.Terminal()) {
		return
	}
	n := models.Notification{
		ID:              newID("ntf"),
		FlightRequestID: fr.ID,
		Role:            target,
		Kind:            string(fr.Status),
		Message:         fmt.Sprintf("Request %s for %s is now %s", fr.ID, fr.ClientName, fr.Status),
		CreatedAt:       t.now(),
	}
	if err := t.Store.InsertNotification(ctx, n); err != nil {
		t.Logger.Warn().Err(err).Str("request_id", fr.ID).Msg("notification delivery failed")
	}
}
