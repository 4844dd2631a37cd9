package handlers

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/jetvision/broker-backend/internal/avinode"
	"github.com/jetvision/broker-backend/internal/db"
	"github.com/jetvision/broker-backend/internal/models"
	"github.com/jetvision/broker-backend/internal/service"
)

type Handler struct {
	Store       *db.Store
	Avinode     *avinode.Client
	Sync        *service.SyncService
	Webhooks    *service.WebhookService
	Transitions *service.TransitionService
	Validator   *validator.Validate
	Logger      zerolog.Logger
	AdminKey    string

	WebhookURL    string
	WebhookSecret string
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}

	out := gin.H{"status": "ok"}
	if c.Query("probe") == "marketplace" && h.Avinode != nil {
		if err := h.Avinode.Probe(c.Request.Context()); err != nil {
			out["marketplace"] = err.Error()
		} else {
			out["marketplace"] = "ok"
		}
	}
	c.JSON(http.StatusOK, out)
}

type createRequestInput struct {
	ISOID           string `json:"iso_id" validate:"required"`
	ISOName         string `json:"iso_name" validate:"required"`
	ClientName      string `json:"client_name" validate:"required"`
	ClientEmail     string `json:"client_email" validate:"required,email"`
	ClientPhone     string `json:"client_phone"`
	Departure       string `json:"departure" validate:"required"`
	Arrival         string `json:"arrival" validate:"required"`
	DepartureDate   string `json:"departure_date" validate:"required"`
	DepartureTime   string `json:"departure_time"`
	ReturnDate      string `json:"return_date"`
	ReturnTime      string `json:"return_time"`
	Passengers      int    `json:"passengers" validate:"required,gt=0"`
	SpecialRequests string `json:"special_requests"`
}

// @Summary Submit a flight request
// @Tags requests
// @Accept json
// @Produce json
// @Success 201 {object} models.FlightRequest
// @Failure 400 {object} map[string]any
// @Router /api/requests [post]
func (h *Handler) CreateRequest(c *gin.Context) {
	var in createRequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Malformed JSON body", err.Error())
		return
	}
	if err := h.Validator.Struct(in); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", err.Error())
		return
	}

	now := time.Now().UTC()
	fr := models.FlightRequest{
		ID:              fmt.Sprintf("fr_%d_%d", now.UnixNano(), rand.Intn(100000)),
		ISOID:           in.ISOID,
		ISOName:         in.ISOName,
		ClientName:      in.ClientName,
		ClientEmail:     in.ClientEmail,
		ClientPhone:     in.ClientPhone,
		Departure:       in.Departure,
		Arrival:         in.Arrival,
		DepartureDate:   in.DepartureDate,
		DepartureTime:   in.DepartureTime,
		ReturnDate:      in.ReturnDate,
		ReturnTime:      in.ReturnTime,
		Passengers:      in.Passengers,
		SpecialRequests: in.SpecialRequests,
		Status:          models.StatusPending,
		AvinodeStatus:   models.AvinodeNotSent,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := h.Store.CreateFlightRequest(c.Request.Context(), fr); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create flight request", err.Error())
		return
	}
	c.JSON(http.StatusCreated, fr)
}

func (h *Handler) RequestsList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.Store.ListFlightRequests(c.Request.Context(), c.Query("status"), c.Query("iso_id"), limit, offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list flight requests", err.Error())
		return
	}
	if items == nil {
		items = []models.FlightRequest{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) RequestDetails(c *gin.Context) {
	fr, err := h.Store.GetFlightRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Flight request not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load flight request", err.Error())
		return
	}
	c.JSON(http.StatusOK, fr)
}

// RequestActions lists the transitions available to the calling role; the UI
// renders exactly these.
func (h *Handler) RequestActions(c *gin.Context) {
	role, ok := callerRole(c)
	if !ok {
		return
	}
	fr, err := h.Store.GetFlightRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Flight request not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load flight request", err.Error())
		return
	}
	actions := service.AvailableTransitions(fr.Status, role)
	if actions == nil {
		actions = []models.Status{}
	}
	c.JSON(http.StatusOK, gin.H{"status": fr.Status, "actions": actions})
}

type transitionInput struct {
	To                  string   `json:"to" validate:"required"`
	SelectedQuoteID     string   `json:"selected_quote_id"`
	SelectedQuoteAmount *float64 `json:"selected_quote_amount"`
	ISOCommission       *float64 `json:"iso_commission"`
	JetvisionCost       *float64 `json:"jetvision_cost"`
	ProposalNotes       string   `json:"proposal_notes"`
}

// @Summary Apply a pipeline transition
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "flight request id"
// @Success 200 {object} models.FlightRequest
// @Failure 409 {object} map[string]any
// @Router /api/requests/{id}/transition [post]
func (h *Handler) TransitionRequest(c *gin.Context) {
	role, ok := callerRole(c)
	if !ok {
		return
	}

	var in transitionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Malformed JSON body", err.Error())
		return
	}
	if err := h.Validator.Struct(in); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", err.Error())
		return
	}

	fr, err := h.Transitions.Apply(c.Request.Context(), c.Param("id"), models.Status(in.To), role, service.TransitionParams{
		SelectedQuoteID:     in.SelectedQuoteID,
		SelectedQuoteAmount: in.SelectedQuoteAmount,
		ISOCommission:       in.ISOCommission,
		JetvisionCost:       in.JetvisionCost,
		ProposalNotes:       in.ProposalNotes,
	})
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Flight request not found", nil)
		case errors.Is(err, service.ErrInvalidTransition):
			writeError(c, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
		case errors.Is(err, service.ErrWrongRole):
			writeError(c, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
		case errors.Is(err, service.ErrMissingQuote):
			writeError(c, http.StatusBadRequest, "MISSING_QUOTE", err.Error(), nil)
		default:
			writeError(c, http.StatusInternalServerError, "TRANSITION_FAILED", "Failed to apply transition", err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, fr)
}

// @Summary Synchronize a request's pipeline with the marketplace
// @Tags requests
// @Produce json
// @Param id path string true "flight request id"
// @Success 200 {object} models.FlightRequest
// @Router /api/requests/{id}/sync [post]
func (h *Handler) SyncRequest(c *gin.Context) {
	fr, err := h.Sync.SyncFlightRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Flight request not found", nil)
			return
		}
		var apiErr *avinode.APIError
		if errors.As(err, &apiErr) {
			writeError(c, http.StatusBadGateway, "MARKETPLACE_ERROR", apiErr.Message, gin.H{"status": apiErr.StatusCode})
			return
		}
		writeError(c, http.StatusInternalServerError, "SYNC_FAILED", "Pipeline sync failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, fr)
}

// CreateTrip opens the marketplace sourcing trip for a request and stores the
// returned deep links.
func (h *Handler) CreateTrip(c *gin.Context) {
	ctx := c.Request.Context()
	fr, err := h.Store.GetFlightRequest(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Flight request not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load flight request", err.Error())
		return
	}
	if fr.AvinodeTripID != "" {
		writeError(c, http.StatusConflict, "TRIP_EXISTS", "A marketplace trip already exists for this request", nil)
		return
	}

	trip, err := h.Avinode.CreateTrip(ctx, avinode.TripRequest{
		Departure:     fr.Departure,
		Arrival:       fr.Arrival,
		DepartureDate: fr.DepartureDate,
		DepartureTime: fr.DepartureTime,
		ReturnDate:    fr.ReturnDate,
		ReturnTime:    fr.ReturnTime,
		Passengers:    fr.Passengers,
		Notes:         fr.SpecialRequests,
	})
	if err != nil {
		var apiErr *avinode.APIError
		if errors.As(err, &apiErr) {
			writeError(c, http.StatusBadGateway, "MARKETPLACE_ERROR", apiErr.Message, gin.H{"status": apiErr.StatusCode})
			return
		}
		writeError(c, http.StatusBadGateway, "MARKETPLACE_ERROR", "Trip creation failed", err.Error())
		return
	}

	tripID := avinode.TripID(trip)
	searchLink, viewLink := avinode.TripDeepLinks(trip)
	if err := h.Store.SetTripLinks(ctx, fr.ID, tripID, tripHref(searchLink, viewLink), searchLink, viewLink, models.AvinodeSent); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to store trip links", err.Error())
		return
	}

	fr, err = h.Store.GetFlightRequest(ctx, fr.ID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to reload flight request", err.Error())
		return
	}
	c.JSON(http.StatusOK, fr)
}

// tripHref prefers the view link as the stored trip href.
func tripHref(searchLink, viewLink string) string {
	if viewLink != "" {
		return viewLink
	}
	return searchLink
}

func callerRole(c *gin.Context) (models.Role, bool) {
	role := models.Role(c.GetHeader("X-User-Role"))
	if role != models.RoleISO && role != models.RoleManager {
		writeError(c, http.StatusBadRequest, "INVALID_ROLE", "X-User-Role must be iso or manager", nil)
		return "", false
	}
	return role, true
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	payload := gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
	if details != nil {
		payload["error"].(gin.H)["details"] = details
	}
	c.JSON(status, payload)
}
