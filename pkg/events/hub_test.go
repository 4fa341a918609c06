package events

import (
	"testing"
	"time"
)

func TestHubPublish(t *testing.T) {
	h := NewEventHub()
	a := h.Subscribe()
	b := h.Subscribe()
	if h.Subscribers() != 2 {
		t.Fatalf("subscribers = %d", h.Subscribers())
	}

	h.Publish(LifecycleState, LifecycleStateEvent{From: "CALIBRATION_REMINDER", To: "CALIBRATION", Command: "acknowledge", Ts: 1})

	for _, ch := range []chan Event{a, b} {
		select {
		case ev := <-ch:
			if ev.Name != LifecycleState {
				t.Fatalf("event name = %q", ev.Name)
			}
			p, err := DecodeAs[LifecycleStateEvent](ev)
			if err != nil {
				t.Fatalf("DecodeAs: %v", err)
			}
			if p.From != "CALIBRATION_REMINDER" || p.To != "CALIBRATION" || p.Command != "acknowledge" {
				t.Fatalf("payload = %+v", p)
			}
		case <-time.After(time.Second):
			t.Fatalf("no event delivered")
		}
	}
}

func TestHubUnsubscribe(t *testing.T) {
	h := NewEventHub()
	ch := h.Subscribe()
	h.Unsubscribe(ch)
	h.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Fatalf("channel not closed")
	}
	if h.Subscribers() != 0 {
		t.Fatalf("subscribers = %d", h.Subscribers())
	}
	h.Publish(ExportSaved, ExportSavedEvent{Dir: "/tmp/x"})
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewEventHub()
	ch := h.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Publish(CalibrationFit, CalibrationFitEvent{Points: i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Publish blocked on a full subscriber")
	}
	if len(ch) != cap(ch) {
		t.Fatalf("buffered %d of %d events", len(ch), cap(ch))
	}
}

func TestHubEdgeCases(t *testing.T) {
	var nilHub *EventHub
	nilHub.Publish(AcquisitionError, AcquisitionErrorEvent{Op: "start"})
	if nilHub.Subscribers() != 0 {
		t.Fatalf("nil hub has subscribers")
	}

	h := NewEventHub()
	ch := h.Subscribe()
	h.Publish("bad", make(chan int))
	select {
	case ev := <-ch:
		t.Fatalf("unencodable payload delivered as %q", ev.Name)
	default:
	}
}

func TestDecodeAsEmpty(t *testing.T) {
	p, err := DecodeAs[ExportSavedEvent](Event{Name: ExportSaved})
	if err != nil || p != (ExportSavedEvent{}) {
		t.Fatalf("DecodeAs = (%+v, %v)", p, err)
	}
}
