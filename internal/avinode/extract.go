package avinode

import (
	"strings"
	"time"
)

// SellerQuote is the normalized view of one operator's response within an RFQ.
// RequestedAmount is the original ask sent to the operator; QuoteAmount is what
// the operator actually offered. The two come from different places in the
// remote payloads and are never conflated.
type SellerQuote struct {
	RFQID             string     `json:"rfq_id"`
	QuoteID           string     `json:"quote_id"`
	LiftID            string     `json:"lift_id,omitempty"`
	OperatorName      string     `json:"operator_name"`
	RequestedAmount   *float64   `json:"requested_amount,omitempty"`
	RequestedCurrency string     `json:"requested_currency,omitempty"`
	QuoteAmount       *float64   `json:"quote_amount,omitempty"`
	QuoteCurrency     string     `json:"quote_currency,omitempty"`
	AircraftType      string     `json:"aircraft_type,omitempty"`
	AircraftTail      string     `json:"aircraft_tail,omitempty"`
	AircraftCategory  string     `json:"aircraft_category,omitempty"`
	CreatedOn         *time.Time `json:"created_on,omitempty"`
	Status            string     `json:"status,omitempty"`
	Unanswered        bool       `json:"unanswered"`
}

const unknownSeller = "Unknown Seller"

// unansweredMarkers is a blocklist, not an allowlist: any status not matching
// one of these counts as answered, so unrecognized future status strings
// default to showing the quote.
var unansweredMarkers = []string{"unanswer", "awaiting", "pending", "notinvit"}

func IsUnanswered(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "" {
		return false
	}
	for _, marker := range unansweredMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

var nameKeys = map[string]bool{
	"displayname":       true,
	"name":              true,
	"companyname":       true,
	"sellername":        true,
	"sellercompanyname": true,
	"operatorname":      true,
}

// findSellerName scans nested objects breadth-first (depth capped) for any
// key that looks like a company name and holds a non-empty string.
func findSellerName(doc Document, maxDepth int) string {
	type entry struct {
		doc   Document
		depth int
	}
	queue := []entry{{doc, 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.doc == nil {
			continue
		}
		for k, v := range cur.doc {
			if nameKeys[strings.ToLower(k)] {
				if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
		}
		if cur.depth >= maxDepth {
			continue
		}
		for _, v := range cur.doc {
			if child, ok := asDocument(v); ok {
				queue = append(queue, entry{child, cur.depth + 1})
			}
		}
	}
	return ""
}

// OperatorName resolves the seller's display name from the fetched quote and
// the RFQ seller-lift, falling back through progressively looser sources.
func OperatorName(quote, lift Document) string {
	if quote != nil {
		if company := getDocument(quote, "sellerCompany"); company != nil {
			if name := getString(company, "displayName", "name"); name != "" {
				return name
			}
		}
	}
	if lift != nil {
		if company := getDocument(lift, "sellerCompany", "company", "seller"); company != nil {
			if name := getString(company, "displayName", "name", "companyName"); name != "" {
				return name
			}
		}
		if name := getString(lift, "sellerName", "sellerCompanyName", "operatorName", "companyName"); name != "" {
			return name
		}
	}
	if quote != nil {
		if operator := getDocument(quote, "operator"); operator != nil {
			if name := getString(operator, "displayName", "name", "companyName"); name != "" {
				return name
			}
		}
	}
	for _, doc := range []Document{lift, quote} {
		if doc == nil {
			continue
		}
		if name := findSellerName(doc, 3); name != "" {
			return name
		}
	}
	return unknownSeller
}

// RequestedAmount resolves the price originally asked of the operator. The
// fetched quote's seller/buyer price fields win over the seller-lift's own
// fields, which win over the lift's embedded latestQuote.
func RequestedAmount(quote, lift Document) (*float64, string) {
	candidates := []any{}
	if quote != nil {
		for _, key := range []string{"sellerPrice", "sellerPriceWithoutCommission", "price", "buyerPrice", "requestPrice", "targetPrice"} {
			candidates = append(candidates, quote[key])
		}
	}
	if lift != nil {
		for _, key := range []string{"price", "requestedPrice", "targetPrice", "buyerPrice", "requestPrice"} {
			candidates = append(candidates, lift[key])
		}
		if latest := getDocument(lift, "latestQuote"); latest != nil {
			candidates = append(candidates, latest["price"])
		}
	}
	return firstAmount(candidates)
}

// QuotedAmount resolves the price the operator actually offered. A sellerQuote
// embedded in a trip message is the operator's real submission and outranks
// everything fetched off the quote resource or the lift.
func QuotedAmount(messageQuote, quote, lift Document) (*float64, string) {
	candidates := []any{}
	if messageQuote != nil {
		candidates = append(candidates, messageQuote["sellerPrice"], messageQuote)
	}
	if quote != nil {
		candidates = append(candidates, quote["sellerPrice"])
		for _, key := range []string{"totalPrice", "price", "amount", "total"} {
			if v, ok := quote[key]; ok {
				candidates = append(candidates, scalarPrice(v, quote))
			}
		}
	}
	if lift != nil {
		if latest := getDocument(lift, "latestQuote"); latest != nil {
			candidates = append(candidates, latest["price"])
		}
	}
	return firstAmount(candidates)
}

// scalarPrice pairs a top-level scalar price field with its parent document's
// currency so it can sit in the candidate chain at its own priority. Nested
// price objects pass through untouched.
func scalarPrice(v any, parent Document) any {
	if _, ok := asDocument(v); ok {
		return v
	}
	if cur := currencyOf(parent); cur != "" {
		return Document{"amount": v, "currency": cur}
	}
	return v
}

// CanonicalQuotePrice reads the authoritative price off a directly fetched
// quote resource; a lift's embedded latestQuote may be stale relative to it.
func CanonicalQuotePrice(quote Document) (*float64, string) {
	return QuotedAmount(nil, quote, nil)
}

func firstAmount(candidates []any) (*float64, string) {
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if f, ok := amountOf(c); ok {
			amount := f
			return &amount, currencyOf(c)
		}
	}
	return nil, ""
}

// MessageSellerQuote returns the operator-submitted quote embedded in a trip
// message, if any.
func MessageSellerQuote(msg Document) Document {
	if msg == nil {
		return nil
	}
	return getDocument(msg, "sellerQuote")
}

// MessageQuoteIDs collects quote ids a trip message links to, scanning
// lift[].links.quotes[] and lift[].links.quote.
func MessageQuoteIDs(msg Document) []string {
	if msg == nil {
		return nil
	}
	var ids []string
	for _, v := range getSlice(msg, "lift", "lifts") {
		lift, ok := asDocument(v)
		if !ok {
			continue
		}
		links := getDocument(lift, "links")
		if links == nil {
			continue
		}
		for _, q := range asSlice(links["quotes"]) {
			if id := refID(q); id != "" {
				ids = appendUnique(ids, id)
			}
		}
		if id := refID(links["quote"]); id != "" {
			ids = appendUnique(ids, id)
		}
	}
	return ids
}

// MessageRFQIDs collects RFQ ids from a trip message's links.rfqs[].
func MessageRFQIDs(msg Document) []string {
	if msg == nil {
		return nil
	}
	links := getDocument(msg, "links")
	if links == nil {
		return nil
	}
	var ids []string
	for _, r := range asSlice(links["rfqs"]) {
		if id := refID(r); id != "" {
			ids = appendUnique(ids, id)
		}
	}
	return ids
}

func messageOperatorName(msg Document) string {
	if msg == nil {
		return ""
	}
	if company := getDocument(msg, "sellerCompany", "seller", "from"); company != nil {
		if name := getString(company, "displayName", "name", "companyName"); name != "" {
			return name
		}
	}
	if name := getString(msg, "sellerName", "sellerCompanyName", "operatorName"); name != "" {
		return name
	}
	return findSellerName(msg, 2)
}

// matchMessage associates a trip message to a lift. Quote-id links are
// authoritative; without them the match falls back to the RFQ's sole candidate
// message, then to an unambiguous normalized-name match. Ambiguity yields no
// match rather than a guess.
func matchMessage(rfqID, quoteID, operatorName string, msgs []Document) Document {
	if quoteID != "" {
		for _, msg := range msgs {
			for _, id := range MessageQuoteIDs(msg) {
				if id == quoteID {
					return msg
				}
			}
		}
	}

	var candidates []Document
	for _, msg := range msgs {
		if len(MessageQuoteIDs(msg)) > 0 {
			continue
		}
		for _, id := range MessageRFQIDs(msg) {
			if id == rfqID {
				candidates = append(candidates, msg)
				break
			}
		}
	}
	if len(candidates) == 1 {
		return candidates[0]
	}

	wanted := normalizeName(operatorName)
	if wanted == "" || wanted == normalizeName(unknownSeller) {
		return nil
	}
	var matched Document
	for _, msg := range candidates {
		if normalizeName(messageOperatorName(msg)) == wanted {
			if matched != nil {
				return nil
			}
			matched = msg
		}
	}
	return matched
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ExtractLift normalizes a single seller-lift into a SellerQuote. The lift's
// embedded quote object stands in for the fetched quote resource; callers that
// fetched the canonical quote may pass it instead.
func ExtractLift(rfqID string, lift Document, msgs []Document) SellerQuote {
	quote := getDocument(lift, "quote")
	latest := getDocument(lift, "latestQuote")

	quoteID := ""
	if quote != nil {
		quoteID = getString(quote, "id", "quoteId")
	}
	if quoteID == "" {
		quoteID = getString(lift, "quoteId")
	}
	if quoteID == "" {
		if links := getDocument(lift, "links"); links != nil {
			quoteID = refID(links["quote"])
			if quoteID == "" {
				for _, q := range asSlice(links["quotes"]) {
					if quoteID = refID(q); quoteID != "" {
						break
					}
				}
			}
		}
	}
	if quoteID == "" && latest != nil {
		quoteID = getString(latest, "id", "quoteId")
	}

	operator := OperatorName(quote, lift)
	status := getString(lift, "status", "state", "sellerResponseStatus")
	unanswered := IsUnanswered(status)

	msg := matchMessage(rfqID, quoteID, operator, msgs)
	messageQuote := MessageSellerQuote(msg)

	requested, requestedCur := RequestedAmount(quote, lift)
	var quoted *float64
	var quotedCur string
	if !unanswered {
		quoted, quotedCur = QuotedAmount(messageQuote, quote, lift)
	}

	sq := SellerQuote{
		RFQID:             rfqID,
		QuoteID:           quoteID,
		LiftID:            getString(lift, "id", "liftId"),
		OperatorName:      operator,
		RequestedAmount:   requested,
		RequestedCurrency: requestedCur,
		QuoteAmount:       quoted,
		QuoteCurrency:     quotedCur,
		Status:            status,
		Unanswered:        unanswered,
	}

	for _, src := range []Document{getDocument(lift, "aircraft"), quoteAircraft(quote), quoteAircraft(latest)} {
		if src == nil {
			continue
		}
		if sq.AircraftType == "" {
			sq.AircraftType = getString(src, "aircraftType", "type", "model")
		}
		if sq.AircraftTail == "" {
			sq.AircraftTail = getString(src, "tailNumber", "registration", "tail")
		}
		if sq.AircraftCategory == "" {
			sq.AircraftCategory = getString(src, "aircraftCategory", "category", "class")
		}
	}

	for _, src := range []Document{quote, messageQuote, latest, lift} {
		if src == nil {
			continue
		}
		if ts := parseTime(getString(src, "createdOn", "createdAt", "created")); ts != nil {
			sq.CreatedOn = ts
			break
		}
	}

	return sq
}

func quoteAircraft(quote Document) Document {
	if quote == nil {
		return nil
	}
	return getDocument(quote, "aircraft", "lift")
}

// ExtractRFQQuotes normalizes every seller-lift on an RFQ document. Trip
// messages embedded on the RFQ are merged with any supplied separately.
func ExtractRFQQuotes(rfq Document, msgs []Document) []SellerQuote {
	if rfq == nil {
		return nil
	}
	rfqID := getString(rfq, "id", "rfqId")
	all := append([]Document{}, msgs...)
	for _, v := range getSlice(rfq, "tripmsgs", "tripMessages", "messages") {
		if m, ok := asDocument(v); ok {
			all = append(all, m)
		}
	}

	var out []SellerQuote
	for _, v := range getSlice(rfq, "sellerLift", "sellerLifts", "lifts") {
		lift, ok := asDocument(v)
		if !ok {
			continue
		}
		out = append(out, ExtractLift(rfqID, lift, all))
	}
	return out
}

// TripRFQIDs discovers RFQ ids linked on a trip resource.
func TripRFQIDs(trip Document) []string {
	if trip == nil {
		return nil
	}
	var ids []string
	sources := []any{trip["rfqs"], trip["rfqIds"]}
	if links := getDocument(trip, "links"); links != nil {
		sources = append(sources, links["rfqs"])
	}
	for _, src := range sources {
		for _, v := range asSlice(src) {
			if id := refID(v); id != "" {
				ids = appendUnique(ids, id)
			}
		}
	}
	return ids
}

// TripMessageIDs discovers trip-message ids linked on a trip resource.
func TripMessageIDs(trip Document) []string {
	if trip == nil {
		return nil
	}
	var ids []string
	sources := []any{trip["tripmsgs"], trip["messages"]}
	if links := getDocument(trip, "links"); links != nil {
		sources = append(sources, links["tripmsgs"], links["messages"])
	}
	for _, src := range sources {
		for _, v := range asSlice(src) {
			if id := refID(v); id != "" {
				ids = appendUnique(ids, id)
			}
		}
	}
	return ids
}

// TripID reads the id off a trip resource.
func TripID(trip Document) string {
	if trip == nil {
		return ""
	}
	if id := getString(trip, "id", "tripId"); id != "" {
		return id
	}
	if links := getDocument(trip, "links"); links != nil {
		return refID(links["self"])
	}
	return ""
}

// TripDeepLinks reads the searchInAvinode / viewInAvinode action hrefs off a
// created trip.
func TripDeepLinks(trip Document) (searchHref, viewHref string) {
	actions := getDocument(trip, "actions")
	if actions == nil {
		return "", ""
	}
	if a := getDocument(actions, "searchInAvinode"); a != nil {
		searchHref = getString(a, "href", "url")
	}
	if a := getDocument(actions, "viewInAvinode"); a != nil {
		viewHref = getString(a, "href", "url")
	}
	return searchHref, viewHref
}

// refID resolves a link reference that may be a bare id string or an object
// with an id or href.
func refID(v any) string {
	switch ref := v.(type) {
	case string:
		return strings.TrimSpace(ref)
	case map[string]any:
		if id := getString(ref, "id", "rfqId", "quoteId"); id != "" {
			return id
		}
		if href := getString(ref, "href"); href != "" {
			parts := strings.Split(strings.TrimRight(href, "/"), "/")
			return parts[len(parts)-1]
		}
	}
	return ""
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return &ts
		}
	}
	return nil
}
