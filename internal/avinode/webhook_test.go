package avinode

import "testing"

func TestParseWebhookEvents_SingleObject(t *testing.T) {
	body := []byte(`{"eventType":"TripRequestSellerResponse","resourceType":"rfqs","resourceId":"arfq-1","tripId":"atrip-1"}`)
	events := ParseWebhookEvents(body)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Type != EventTripRequestSellerResponse {
		t.Fatalf("unexpected type %q", ev.Type)
	}
	if ev.ResourceType != "rfqs" || ev.ResourceID != "arfq-1" || ev.TripID != "atrip-1" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestParseWebhookEvents_Envelope(t *testing.T) {
	body := []byte(`{"events":[{"type":"TripRequestSellerResponse","resource":{"type":"rfqs","id":"arfq-2"},"trip":{"id":"atrip-2"}},{"type":"SomethingElse"}]}`)
	events := ParseWebhookEvents(body)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ResourceID != "arfq-2" || events[0].TripID != "atrip-2" {
		t.Fatalf("unexpected event %+v", events[0])
	}
	if events[1].Type != "SomethingElse" {
		t.Fatalf("unexpected event %+v", events[1])
	}
}

func TestParseWebhookEvents_ArrayAndLinks(t *testing.T) {
	body := []byte(`[{"event_type":"TripRequestSellerResponse","links":{"trip":{"href":"https://api.avinode.com/trips/atrip-3"}}}]`)
	events := ParseWebhookEvents(body)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].TripID != "atrip-3" {
		t.Fatalf("expected trip id from href, got %q", events[0].TripID)
	}
}

func TestParseWebhookEvents_Garbage(t *testing.T) {
	if events := ParseWebhookEvents([]byte("not json at all")); events != nil {
		t.Fatalf("expected nil for garbage body, got %v", events)
	}
}
