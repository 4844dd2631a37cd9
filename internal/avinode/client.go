package avinode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jetvision/broker-backend/internal/config"
	"github.com/jetvision/broker-backend/internal/models"
)

// ErrMissingCredentials is returned at construction time; a client without
// credentials is never allowed to hit the network.
var ErrMissingCredentials = errors.New("avinode: missing AVINODE_API_TOKEN or AVINODE_AUTH_TOKEN")

const probeTimeout = 8 * time.Second

// Client issues authenticated calls against the Avinode marketplace API and
// normalizes every non-2xx response into an *APIError.
type Client struct {
	baseURL      string
	apiToken     string
	authToken    string
	apiVersion   string
	product      string
	actAsAccount string
	httpc        *http.Client
	logger       zerolog.Logger
}

func NewClient(cfg config.Config, logger zerolog.Logger) (*Client, error) {
	if cfg.AvinodeAPIToken == "" || cfg.AvinodeAuthToken == "" {
		return nil, ErrMissingCredentials
	}
	token, err := NormalizeAuthToken(cfg.AvinodeAuthToken)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.AvinodeBaseURL, "/"),
		apiToken:     cfg.AvinodeAPIToken,
		authToken:    token,
		apiVersion:   cfg.AvinodeAPIVersion,
		product:      cfg.AvinodeProduct,
		actAsAccount: cfg.AvinodeActAsAccount,
		httpc:        &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}, nil
}

// NormalizeAuthToken cleans a pasted bearer token: quotes (smart quotes
// included), a leading "Authorization:" label, a leading "Bearer " prefix and
// all whitespace are stripped. Anything left outside printable ASCII is
// rejected, since paste operations commonly smuggle in invisible characters.
func NormalizeAuthToken(raw string) (string, error) {
	t := raw
	for _, q := range []string{`"`, "'", "“", "”", "‘", "’", "«", "»"} {
		t = strings.ReplaceAll(t, q, "")
	}
	t = strings.TrimSpace(t)
	if len(t) >= len("authorization:") && strings.EqualFold(t[:len("authorization:")], "authorization:") {
		t = t[len("authorization:"):]
	}
	t = strings.TrimSpace(t)
	if len(t) >= len("bearer ") && strings.EqualFold(t[:len("bearer ")], "bearer ") {
		t = t[len("bearer "):]
	}
	t = strings.Join(strings.Fields(t), "")
	if t == "" {
		return "", errors.New("avinode: auth token is empty after normalization")
	}
	for _, r := range t {
		if r < '!' || r > '~' {
			return "", fmt.Errorf("avinode: auth token contains non-printable character %q", r)
		}
	}
	return t, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("avinode: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Avinode-ApiToken", c.apiToken)
	req.Header.Set("Authorization", "Bearer "+c.authToken)
	req.Header.Set("X-Avinode-SentTimestamp", time.Now().UTC().Format(time.RFC3339))
	req.Header.Set("X-Avinode-ApiVersion", c.apiVersion)
	req.Header.Set("X-Avinode-Product", c.product)
	if c.actAsAccount != "" {
		req.Header.Set("X-Avinode-ActAsAccount", c.actAsAccount)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("avinode: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("avinode: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, data)
	}
	return data, nil
}

func (c *Client) getDocument(ctx context.Context, path string) (Document, error) {
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("avinode: decode response from %s: %w", path, err)
	}
	return doc, nil
}

// TripRequest carries what the marketplace needs to open a sourcing trip.
type TripRequest struct {
	Departure     string
	Arrival       string
	DepartureDate string
	DepartureTime string
	ReturnDate    string
	ReturnTime    string
	Passengers    int
	Notes         string
}

func (c *Client) CreateTrip(ctx context.Context, r TripRequest) (Document, error) {
	segments := []Document{{
		"startAirport": Document{"icao": r.Departure},
		"endAirport":   Document{"icao": r.Arrival},
		"dateTime": Document{
			"date":      r.DepartureDate,
			"time":      r.DepartureTime,
			"departure": true,
		},
		"paxCount": r.Passengers,
	}}
	if r.ReturnDate != "" {
		segments = append(segments, Document{
			"startAirport": Document{"icao": r.Arrival},
			"endAirport":   Document{"icao": r.Departure},
			"dateTime": Document{
				"date":      r.ReturnDate,
				"time":      r.ReturnTime,
				"departure": true,
			},
			"paxCount": r.Passengers,
		})
	}
	payload := Document{"segments": segments}
	if r.Notes != "" {
		payload["notes"] = r.Notes
	}

	data, err := c.do(ctx, http.MethodPost, "/trips", payload)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("avinode: decode trip response: %w", err)
	}
	return doc, nil
}

// SearchAirports is the one degraded operation: airport typeahead is
// non-critical, so every failure collapses to an empty result instead of an
// error. Callers layer a static directory and a typed ICAO code on top.
func (c *Client) SearchAirports(ctx context.Context, filter string) []models.Airport {
	data, err := c.do(ctx, http.MethodGet, "/airports/search?filter="+url.QueryEscape(filter), nil)
	if err != nil {
		c.logger.Warn().Err(err).Str("filter", filter).Msg("airport search degraded to empty result")
		return []models.Airport{}
	}

	var doc Document
	var entries []any
	if err := json.Unmarshal(data, &doc); err == nil {
		entries = getSlice(doc, "airports", "data", "results")
	} else {
		var arr []any
		if err := json.Unmarshal(data, &arr); err != nil {
			c.logger.Warn().Str("filter", filter).Msg("airport search returned non-JSON body")
			return []models.Airport{}
		}
		entries = arr
	}

	out := make([]models.Airport, 0, len(entries))
	for _, e := range entries {
		item, ok := asDocument(e)
		if !ok {
			continue
		}
		a := models.Airport{
			ICAO:    getString(item, "icao", "icaoCode"),
			IATA:    getString(item, "iata", "iataCode"),
			Name:    getString(item, "name", "airportName"),
			City:    getString(item, "city", "cityName"),
			Country: getString(item, "country", "countryName"),
		}
		if a.ICAO == "" && a.Name == "" {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (c *Client) GetTrip(ctx context.Context, id string) (Document, error) {
	return c.getDocument(ctx, "/trips/"+url.PathEscape(id))
}

func (c *Client) GetRFQ(ctx context.Context, id string) (Document, error) {
	return c.getDocument(ctx, "/rfqs/"+url.PathEscape(id))
}

func (c *Client) GetQuote(ctx context.Context, id string) (Document, error) {
	return c.getDocument(ctx, "/quotes/"+url.PathEscape(id))
}

func (c *Client) GetTripMessage(ctx context.Context, id string) (Document, error) {
	return c.getDocument(ctx, "/tripmsgs/"+url.PathEscape(id))
}

func (c *Client) CancelTrip(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodPut, "/trips/"+url.PathEscape(id)+"/cancel", Document{})
	return err
}

// SendTripChat posts a chat message on a trip-message thread. Some tenant API
// variants reject the nested chat path, so a failure retries against the flat
// /tripmsgs endpoint with a reconstructed payload.
func (c *Client) SendTripChat(ctx context.Context, tripMsgID, tripID, liftID, message string) error {
	_, err := c.do(ctx, http.MethodPost, "/tripmsgs/"+url.PathEscape(tripMsgID)+"/chat", Document{"message": message})
	if err == nil {
		return nil
	}
	c.logger.Warn().Err(err).Str("tripmsg_id", tripMsgID).Msg("chat endpoint rejected, retrying flat tripmsgs payload")

	payload := Document{"tripId": tripID, "message": message}
	if liftID != "" {
		payload["liftId"] = liftID
	}
	_, err = c.do(ctx, http.MethodPost, "/tripmsgs", payload)
	return err
}

func (c *Client) ConfigureWebhook(ctx context.Context, endpoint, secret string) error {
	payload := Document{
		"url":    endpoint,
		"events": []string{"TripRequestSellerResponse"},
	}
	if secret != "" {
		payload["secret"] = secret
	}
	_, err := c.do(ctx, http.MethodPost, "/webhooks/settings", payload)
	return err
}

// Probe checks marketplace connectivity with a short deadline; used by the
// health endpoint only.
func (c *Client) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	_, err := c.do(ctx, http.MethodGet, "/airports/search?filter=KTEB", nil)
	return err
}
