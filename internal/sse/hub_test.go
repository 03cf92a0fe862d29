package sse

import (
	"encoding/json"
	"testing"
)

func TestPublishSharingUpdateRoutesBySupplier(t *testing.T) {
	h := NewHub(nil)
	requester := &Client{ID: "c1", SupplierID: "sup-a", Events: make(chan Event, 4)}
	owner := &Client{ID: "c2", SupplierID: "sup-b", Events: make(chan Event, 4)}
	other := &Client{ID: "c3", SupplierID: "sup-c", Events: make(chan Event, 4)}
	h.Register(requester)
	h.Register(owner)
	h.Register(other)

	h.PublishSharingUpdate("sup-b", SharingUpdate{
		RequestID:            "req-1",
		ProductID:            "prod-1",
		RequestingSupplierID: "sup-a",
		Status:               "pending",
		Action:               "requested",
	})

	for _, c := range []*Client{requester, owner} {
		select {
		case ev := <-c.Events:
			if ev.EventType != "sharing_request_update" {
				t.Fatalf("unexpected event type %s", ev.EventType)
			}
			var u SharingUpdate
			if err := json.Unmarshal([]byte(ev.Data), &u); err != nil {
				t.Fatalf("bad payload: %v", err)
			}
			if u.Status != "pending" || u.ProductID != "prod-1" {
				t.Fatalf("unexpected payload %+v", u)
			}
		default:
			t.Fatalf("client %s got no event", c.ID)
		}
	}
	if len(other.Events) != 0 {
		t.Fatal("unrelated supplier must not receive the event")
	}

	h.Unregister("c1")
	if h.ClientCount() != 2 {
		t.Fatalf("expected 2 clients, got %d", h.ClientCount())
	}
	if _, ok := <-requester.Events; ok {
		t.Fatal("events channel should be closed after unregister")
	}
}

func TestSendToSupplierSkipsFullBuffers(t *testing.T) {
	h := NewHub(nil)
	c := &Client{ID: "c1", SupplierID: "sup-a", Events: make(chan Event, 1)}
	h.Register(c)

	h.SendToSupplier("sup-a", Event{EventType: "a"})
	h.SendToSupplier("sup-a", Event{EventType: "b"})

	if got := (<-c.Events).EventType; got != "a" {
		t.Fatalf("expected first event to be kept, got %s", got)
	}
	if len(c.Events) != 0 {
		t.Fatal("second event should have been dropped")
	}
}
