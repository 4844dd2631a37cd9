package avinode

import "encoding/json"

// EventTripRequestSellerResponse is the only webhook event type that carries a
// new seller response; everything else is acknowledged and ignored.
const EventTripRequestSellerResponse = "TripRequestSellerResponse"

// WebhookEvent is the normalized form of one inbound marketplace event.
type WebhookEvent struct {
	Type         string
	ResourceType string
	ResourceID   string
	TripID       string
}

// ParseWebhookEvents decodes a delivery body holding a single event, an array
// of events, or an envelope with an events array.
func ParseWebhookEvents(body []byte) []WebhookEvent {
	var arr []any
	if err := json.Unmarshal(body, &arr); err == nil {
		return eventsFromSlice(arr)
	}

	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil
	}
	if nested := getSlice(doc, "events"); len(nested) > 0 {
		return eventsFromSlice(nested)
	}
	return []WebhookEvent{eventFromDocument(doc)}
}

func eventsFromSlice(items []any) []WebhookEvent {
	var out []WebhookEvent
	for _, item := range items {
		if doc, ok := asDocument(item); ok {
			out = append(out, eventFromDocument(doc))
		}
	}
	return out
}

func eventFromDocument(doc Document) WebhookEvent {
	ev := WebhookEvent{
		Type:         getString(doc, "eventType", "event_type", "type"),
		ResourceType: getString(doc, "resourceType", "resource_type"),
		ResourceID:   getString(doc, "resourceId", "resource_id"),
	}
	if resource := getDocument(doc, "resource"); resource != nil {
		if ev.ResourceType == "" {
			ev.ResourceType = getString(resource, "type")
		}
		if ev.ResourceID == "" {
			ev.ResourceID = getString(resource, "id")
		}
	}

	ev.TripID = getString(doc, "tripId", "trip_id")
	if ev.TripID == "" {
		if trip := getDocument(doc, "trip"); trip != nil {
			ev.TripID = getString(trip, "id", "tripId")
		}
	}
	if ev.TripID == "" {
		if links := getDocument(doc, "links"); links != nil {
			ev.TripID = refID(links["trip"])
		}
	}
	return ev
}
