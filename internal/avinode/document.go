package avinode

import (
	"strconv"
	"strings"
)

// Document is a loosely-typed marketplace payload. The remote API's schema
// varies per tenant and per version, so responses are kept untyped and read
// through prioritized field chains instead of fixed DTOs.
type Document = map[string]any

func asDocument(v any) (Document, bool) {
	doc, ok := v.(map[string]any)
	return doc, ok
}

func asSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case nil:
		return nil
	default:
		return []any{s}
	}
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	default:
		return ""
	}
}

// getString returns the first non-empty string among the named fields.
func getString(doc Document, keys ...string) string {
	for _, k := range keys {
		if v, ok := doc[k]; ok {
			if s := stringValue(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// getDocument returns the first field holding a nested object.
func getDocument(doc Document, keys ...string) Document {
	for _, k := range keys {
		if v, ok := doc[k]; ok {
			if d, ok := asDocument(v); ok {
				return d
			}
		}
	}
	return nil
}

func getSlice(doc Document, keys ...string) []any {
	for _, k := range keys {
		if v, ok := doc[k]; ok {
			if s := asSlice(v); len(s) > 0 {
				return s
			}
		}
	}
	return nil
}

// positiveNumber interprets v as a price component. Numbers and numeric
// strings count; zero and negatives are treated as absent.
func positiveNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if n > 0 {
			return n, true
		}
	case int:
		if n > 0 {
			return float64(n), true
		}
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(n, ",", ""))
		if cleaned == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil && f > 0 {
			return f, true
		}
	}
	return 0, false
}

// amountFields is the fixed order a candidate price object is probed in.
var amountFields = []string{"price", "amount", "total", "priceWithoutTax", "netPrice", "totalAmount", "sellerTotal", "value"}

// amountOf extracts a positive amount from v, which may be a bare number, a
// numeric string, or an object carrying one of the known price fields.
func amountOf(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if f, ok := positiveNumber(v); ok {
		return f, true
	}
	doc, ok := asDocument(v)
	if !ok {
		return 0, false
	}
	for _, field := range amountFields {
		if inner, present := doc[field]; present {
			if f, ok := positiveNumber(inner); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// currencyOf pulls a currency code from a price value or its parent.
func currencyOf(v any) string {
	doc, ok := asDocument(v)
	if !ok {
		return ""
	}
	if inner := getDocument(doc, "currency"); inner != nil {
		return getString(inner, "code", "currencyCode")
	}
	return getString(doc, "currency", "currencyCode", "currencyUnit")
}
