package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/jetvision/broker-backend/internal/airports"
	"github.com/jetvision/broker-backend/internal/models"
	"github.com/jetvision/broker-backend/internal/service"
)

// AirportSearch merges live marketplace results with the static directory.
// It never fails: a dead marketplace just means fewer suggestions.
func (h *Handler) AirportSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusOK, gin.H{"items": []models.Airport{}})
		return
	}

	var items []models.Airport
	if h.Avinode != nil {
		items = h.Avinode.SearchAirports(c.Request.Context(), query)
	}
	for _, a := range airports.Search(query) {
		items = appendAirport(items, a)
	}
	if len(items) == 0 && airports.IsICAOCode(query) {
		if a, ok := airports.Lookup(query); ok {
			items = append(items, a)
		}
	}
	if items == nil {
		items = []models.Airport{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func appendAirport(items []models.Airport, a models.Airport) []models.Airport {
	for _, existing := range items {
		if existing.ICAO != "" && strings.EqualFold(existing.ICAO, a.ICAO) {
			return items
		}
	}
	return append(items, a)
}

type sendMessageInput struct {
	TripMsgID string `json:"tripmsg_id" validate:"required"`
	LiftID    string `json:"lift_id"`
	Message   string `json:"message" validate:"required"`
}

// SendMessage posts a chat reply on an operator's trip-message thread.
func (h *Handler) SendMessage(c *gin.Context) {
	fr, err := h.Store.GetFlightRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Flight request not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load flight request", err.Error())
		return
	}

	var in sendMessageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Malformed JSON body", err.Error())
		return
	}
	if err := h.Validator.Struct(in); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", err.Error())
		return
	}

	tripID := service.ResolveTripID(fr)
	if err := h.Avinode.SendTripChat(c.Request.Context(), in.TripMsgID, tripID, in.LiftID, in.Message); err != nil {
		writeError(c, http.StatusBadGateway, "MARKETPLACE_ERROR", "Message delivery failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Webhook accepts marketplace deliveries. It always acknowledges with 200 so
// the marketplace never retries or disables the subscription; failures are
// visible through logs and metrics instead.
func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("webhook body read failed")
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	headerType := c.GetHeader("X-Avinode-EventType")
	if headerType == "" {
		headerType = c.GetHeader("X-Avinode-Event-Type")
	}
	if headerType == "" {
		headerType = c.GetHeader("X-Event-Type")
	}

	synced := h.Webhooks.HandleDelivery(c.Request.Context(), headerType, body)
	if synced == nil {
		synced = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "synced": synced})
}

// SubscribeWebhook is the admin operation that (re)registers this deployment's
// webhook endpoint with the marketplace.
func (h *Handler) SubscribeWebhook(c *gin.Context) {
	if h.WebhookURL == "" {
		writeError(c, http.StatusBadRequest, "WEBHOOK_NOT_CONFIGURED", "WEBHOOK_URL is not set", nil)
		return
	}
	if err := h.Avinode.ConfigureWebhook(c.Request.Context(), h.WebhookURL, h.WebhookSecret); err != nil {
		writeError(c, http.StatusBadGateway, "MARKETPLACE_ERROR", "Webhook subscription failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "endpoint": h.WebhookURL})
}

func (h *Handler) NotificationsList(c *gin.Context) {
	role, ok := callerRole(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	unreadOnly := c.Query("unread") == "true"

	items, err := h.Store.ListNotifications(c.Request.Context(), role, unreadOnly, limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list notifications", err.Error())
		return
	}
	if items == nil {
		items = []models.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) NotificationRead(c *gin.Context) {
	if err := h.Store.MarkNotificationRead(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to mark notification read", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
