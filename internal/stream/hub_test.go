package stream

import (
	"testing"
	"time"
)

func TestHub_PublishReachesAllSubscribers(t *testing.T) {
	hub := NewHub(4, nil)
	chA, cancelA := hub.Subscribe()
	defer cancelA()
	chB, cancelB := hub.Subscribe()
	defer cancelB()

	hub.Publish(Event{Action: ActionRiskOpen, EntryID: 7, EntryType: "risk", Status: "OPEN"})

	for _, ch := range []<-chan Event{chA, chB} {
		select {
		case ev := <-ch:
			if ev.Action != ActionRiskOpen || ev.EntryID != 7 {
				t.Fatalf("ev=%+v", ev)
			}
			if ev.At.IsZero() {
				t.Fatalf("publish did not stamp At")
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber did not receive event")
		}
	}
}

func TestHub_SlowSubscriberLosesOldest(t *testing.T) {
	hub := NewHub(1, nil)
	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Publish(Event{Action: ActionEntryCreate, EntryID: 1})
	hub.Publish(Event{Action: ActionEntryCreate, EntryID: 2})

	select {
	case ev := <-ch:
		if ev.EntryID != 2 {
			t.Fatalf("entry_id=%d want 2, the newer event", ev.EntryID)
		}
	case <-time.After(time.Second):
		t.Fatalf("no event delivered")
	}
	if hub.Dropped() != 1 {
		t.Fatalf("dropped=%d want 1", hub.Dropped())
	}
}

func TestHub_CancelDetachesAndCloses(t *testing.T) {
	hub := NewHub(2, nil)
	ch, cancel := hub.Subscribe()
	if hub.SubscriberCount() != 1 {
		t.Fatalf("subscribers=%d want 1", hub.SubscriberCount())
	}
	cancel()
	cancel() // safe to call twice
	if hub.SubscriberCount() != 0 {
		t.Fatalf("subscribers=%d want 0", hub.SubscriberCount())
	}
	if _, ok := <-ch; ok {
		t.Fatalf("channel still open after cancel")
	}
	hub.Publish(Event{Action: ActionEntryDelete, EntryID: 3})
}

func TestHub_NilSafe(t *testing.T) {
	var hub *Hub
	ch, cancel := hub.Subscribe()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("nil hub returned an open channel")
	}
	hub.Publish(Event{Action: ActionEntryCreate})
	if hub.Dropped() != 0 || hub.SubscriberCount() != 0 {
		t.Fatalf("nil hub reported state")
	}
}
