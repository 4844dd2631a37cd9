package models

import "time"

// Status is the authoritative pipeline position of a flight request.
type Status string

const (
	StatusPending       Status = "pending"
	StatusUnderReview   Status = "under_review"
	StatusRFQSubmitted  Status = "rfq_submitted"
	StatusQuoteReceived Status = "quote_received"
	StatusProposalReady Status = "proposal_ready"
	StatusProposalSent  Status = "proposal_sent"
	StatusAccepted      Status = "accepted"
	StatusDeclined      Status = "declined"
	StatusCancelled     Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusDeclined || s == StatusCancelled
}

// AvinodeStatus tracks marketplace sourcing progress, independent of Status.
// Monotone along not_sent -> sent_to_avinode -> rfq_sent -> quotes_received
// -> booked; cancelled is terminal and reachable from anywhere.
type AvinodeStatus string

const (
	AvinodeNotSent        AvinodeStatus = "not_sent"
	AvinodeSent           AvinodeStatus = "sent_to_avinode"
	AvinodeRFQSent        AvinodeStatus = "rfq_sent"
	AvinodeQuotesReceived AvinodeStatus = "quotes_received"
	AvinodeBooked         AvinodeStatus = "booked"
	AvinodeCancelled      AvinodeStatus = "cancelled"
)

func (s AvinodeStatus) rank() int {
	switch s {
	case AvinodeNotSent:
		return 0
	case AvinodeSent:
		return 1
	case AvinodeRFQSent:
		return 2
	case AvinodeQuotesReceived:
		return 3
	case AvinodeBooked:
		return 4
	}
	return -1
}

// AtLeast reports whether s is as far along the sourcing sequence as other.
// Cancelled compares ahead of everything since it is terminal.
func (s AvinodeStatus) AtLeast(other AvinodeStatus) bool {
	if s == AvinodeCancelled {
		return true
	}
	return s.rank() >= other.rank()
}

type SLAStatus string

const (
	SLAOnTrack SLAStatus = "on_track"
	SLAAtRisk  SLAStatus = "at_risk"
	SLAOverdue SLAStatus = "overdue"
	SLAMet     SLAStatus = "met"
)

// Role identifies who is acting on a request.
type Role string

const (
	RoleISO     Role = "iso"
	RoleManager Role = "manager"
)

type FlightRequest struct {
	ID          string `json:"id"`
	ISOID       string `json:"iso_id"`
	ISOName     string `json:"iso_name"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	ClientPhone string `json:"client_phone"`

	Departure       string `json:"departure"`
	Arrival         string `json:"arrival"`
	DepartureDate   string `json:"departure_date"`
	DepartureTime   string `json:"departure_time,omitempty"`
	ReturnDate      string `json:"return_date,omitempty"`
	ReturnTime      string `json:"return_time,omitempty"`
	Passengers      int    `json:"passengers"`
	SpecialRequests string `json:"special_requests,omitempty"`

	Status Status `json:"status"`

	AvinodeTripID     string `json:"avinode_trip_id,omitempty"`
	AvinodeTripHref   string `json:"avinode_trip_href,omitempty"`
	AvinodeSearchLink string `json:"avinode_search_link,omitempty"`
	AvinodeViewLink   string `json:"avinode_view_link,omitempty"`

	AvinodeRFQIDs            []string      `json:"avinode_rfq_ids"`
	AvinodeQuoteIDs          []string      `json:"avinode_quote_ids"`
	AvinodeQuoteCount        int           `json:"avinode_quote_count"`
	AvinodeBestQuoteID       string        `json:"avinode_best_quote_id,omitempty"`
	AvinodeBestQuoteAmount   *float64      `json:"avinode_best_quote_amount,omitempty"`
	AvinodeBestQuoteCurrency string        `json:"avinode_best_quote_currency,omitempty"`
	AvinodeFirstQuoteAt      *time.Time    `json:"avinode_first_quote_at,omitempty"`
	AvinodeLastSyncAt        *time.Time    `json:"avinode_last_sync_at,omitempty"`
	AvinodeSLADueAt          *time.Time    `json:"avinode_sla_due_at,omitempty"`
	AvinodeSLAStatus         SLAStatus     `json:"avinode_sla_status,omitempty"`
	AvinodeStatus            AvinodeStatus `json:"avinode_status"`
	LastSyncError            string        `json:"last_sync_error,omitempty"`

	SelectedQuoteID     string     `json:"selected_quote_id,omitempty"`
	SelectedQuoteAmount *float64   `json:"selected_quote_amount,omitempty"`
	ISOCommission       *float64   `json:"iso_commission,omitempty"`
	JetvisionCost       *float64   `json:"jetvision_cost,omitempty"`
	TotalPrice          *float64   `json:"total_price,omitempty"`
	ProposalNotes       string     `json:"proposal_notes,omitempty"`
	ProposalSentAt      *time.Time `json:"proposal_sent_at,omitempty"`
	ClientDecisionAt    *time.Time `json:"client_decision_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SyncState is the field set the synchronizer persists in a single update.
// Writing it twice against unchanged remote data must produce identical rows
// apart from LastSyncAt.
type SyncState struct {
	RFQIDs            []string
	QuoteIDs          []string
	QuoteCount        int
	BestQuoteID       string
	BestQuoteAmount   *float64
	BestQuoteCurrency string
	FirstQuoteAt      *time.Time
	SLADueAt          *time.Time
	SLAStatus         SLAStatus
	AvinodeStatus     AvinodeStatus
	LastSyncAt        time.Time
	LastSyncError     string
}

type Notification struct {
	ID              string    `json:"id"`
	FlightRequestID string    `json:"flight_request_id"`
	Role            Role      `json:"role"`
	Kind            string    `json:"kind"`
	Message         string    `json:"message"`
	Read            bool      `json:"read"`
	CreatedAt       time.Time `json:"created_at"`
}

type Airport struct {
	ICAO    string `json:"icao"`
	IATA    string `json:"iata,omitempty"`
	Name    string `json:"name"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}
