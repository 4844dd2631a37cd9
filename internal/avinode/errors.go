package avinode

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is the single error type every non-2xx marketplace response is
// normalized into. Body holds the truncated raw response for diagnostics.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("avinode: %s (status %d)", e.Message, e.StatusCode)
}

const maxErrorBody = 500

// newAPIError extracts a human-readable message from a failed response body.
// Order: meta.errors[0].message|title, then error, then message, then a
// generic status line. Non-JSON bodies surface as truncated raw text.
func newAPIError(status int, body []byte) *APIError {
	raw := strings.TrimSpace(string(body))
	truncated := raw
	if len(truncated) > maxErrorBody {
		truncated = truncated[:maxErrorBody]
	}

	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		msg := truncated
		if msg == "" {
			msg = fmt.Sprintf("API error %d", status)
		}
		return &APIError{StatusCode: status, Message: msg, Body: truncated}
	}

	msg := ""
	if meta := getDocument(doc, "meta"); meta != nil {
		if errs := asSlice(meta["errors"]); len(errs) > 0 {
			if first, ok := asDocument(errs[0]); ok {
				msg = getString(first, "message", "title")
			}
		}
	}
	if msg == "" {
		msg = getString(doc, "error")
	}
	if msg == "" {
		msg = getString(doc, "message")
	}
	if msg == "" {
		msg = fmt.Sprintf("API error %d", status)
	}
	return &APIError{StatusCode: status, Message: msg, Body: truncated}
}
