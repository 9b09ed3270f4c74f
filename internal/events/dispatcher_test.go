package events

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestDispatcherInvokesEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	errFirst := errors.New("first failed")

	d.Subscribe(EventDraftGenerated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errFirst
	})
	d.Subscribe(EventDraftGenerated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventTicketSent, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventDraftGenerated, TicketID: "T-1"})
	if !errors.Is(err, errFirst) {
		t.Fatalf("err = %v, want joined handler error", err)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	if err := NewInMemoryDispatcher().Publish(context.Background(), Event{Type: EventDraftEdited}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}

func TestPanickingHandlerIsIsolated(t *testing.T) {
	d := NewInMemoryDispatcher()
	reached := false
	d.Subscribe(EventTicketSent, func(context.Context, Event) error {
		panic("boom")
	})
	d.Subscribe(EventTicketSent, func(context.Context, Event) error {
		reached = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketSent})
	if err == nil || !strings.Contains(err.Error(), "panic: boom") {
		t.Fatalf("err = %v, want recovered panic", err)
	}
	if !reached {
		t.Fatal("second handler did not run")
	}
}

func TestSubscribeAllCoversEveryType(t *testing.T) {
	d := NewInMemoryDispatcher()
	seen := map[EventType]int{}
	d.SubscribeAll(func(_ context.Context, e Event) error {
		seen[e.Type]++
		return nil
	})
	for _, eventType := range AllEventTypes {
		if err := d.Publish(context.Background(), Event{Type: eventType}); err != nil {
			t.Fatalf("Publish(%s): %v", eventType, err)
		}
	}
	for _, eventType := range AllEventTypes {
		if seen[eventType] != 1 {
			t.Fatalf("%s delivered %d times", eventType, seen[eventType])
		}
	}
}
