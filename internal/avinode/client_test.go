package avinode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/jetvision/broker-backend/internal/config"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(config.Config{
		AvinodeBaseURL:    baseURL,
		AvinodeAPIToken:   "api-token",
		AvinodeAuthToken:  "auth-token",
		AvinodeAPIVersion: "v1",
		AvinodeProduct:    "test-product",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNormalizeAuthToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"abc123", "abc123"},
		{`"abc123"`, "abc123"},
		{"“abc123”", "abc123"},
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"Authorization: Bearer abc123", "abc123"},
		{"  abc 123  ", "abc123"},
		{"ab\tc123", "abc123"},
	}
	for _, tc := range cases {
		got, err := NormalizeAuthToken(tc.in)
		if err != nil {
			t.Fatalf("NormalizeAuthToken(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeAuthToken(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeAuthToken_Rejections(t *testing.T) {
	for _, in := range []string{"", `""`, "abc​def"} {
		if _, err := NormalizeAuthToken(in); err == nil {
			t.Fatalf("NormalizeAuthToken(%q) should fail", in)
		}
	}
}

func TestNewClient_MissingCredentials(t *testing.T) {
	_, err := NewClient(config.Config{AvinodeAPIToken: "x"}, zerolog.Nop())
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestNewAPIError_MetaErrors(t *testing.T) {
	err := newAPIError(422, []byte(`{"meta":{"errors":[{"message":"invalid segment date"}]}}`))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != 422 {
		t.Fatalf("expected 422, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "invalid segment date" {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
}

func TestNewAPIError_PlainBody(t *testing.T) {
	err := newAPIError(500, []byte("gateway exploded"))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Message != "gateway exploded" {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
}

func TestDo_SendsMarketplaceHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"airports":[]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	c.SearchAirports(context.Background(), "KTEB")

	if got.Get("X-Avinode-ApiToken") != "api-token" {
		t.Fatalf("missing api token header")
	}
	if got.Get("Authorization") != "Bearer auth-token" {
		t.Fatalf("unexpected authorization header %q", got.Get("Authorization"))
	}
	if got.Get("X-Avinode-ApiVersion") != "v1" {
		t.Fatalf("missing api version header")
	}
	if got.Get("X-Avinode-SentTimestamp") == "" {
		t.Fatalf("missing sent timestamp header")
	}
}

func TestSearchAirports_ParsesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"airports":[{"icao":"KTEB","iata":"TEB","name":"Teterboro","city":"Teterboro","country":"US"},{"noname":true}]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	airports := c.SearchAirports(context.Background(), "teterboro")
	if len(airports) != 1 {
		t.Fatalf("expected 1 airport, got %d", len(airports))
	}
	if airports[0].ICAO != "KTEB" {
		t.Fatalf("unexpected icao %q", airports[0].ICAO)
	}
}

func TestSearchAirports_DegradesOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	airports := c.SearchAirports(context.Background(), "teterboro")
	if airports == nil {
		t.Fatalf("degraded result must be an empty slice, not nil")
	}
	if len(airports) != 0 {
		t.Fatalf("expected empty result, got %v", airports)
	}
}

func TestSearchAirports_DegradesOnGarbage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	if got := c.SearchAirports(context.Background(), "x"); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestGetRFQ_WrapsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"rfq not found"}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.GetRFQ(context.Background(), "arfq-404")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "rfq not found" {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
}
