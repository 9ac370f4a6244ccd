package events_test

import (
	"testing"
	"time"

	"github.com/trackside/racectl/internal/events"
	"github.com/trackside/racectl/internal/models"
)

func TestBusSubscribePublish(t *testing.T) {
	bus := events.NewBus()

	ch := bus.Subscribe("viewer1")

	lap := models.Lap{Track: 1, Seq: 1, Time: models.Seconds(1350 * time.Millisecond)}
	bus.Publish(models.Event{Type: models.EventLapFinish, Lap: &lap})

	select {
	case got := <-ch:
		if got.Type != models.EventLapFinish {
			t.Errorf("event type = %q, want lap_finish", got.Type)
		}
		if got.Lap == nil || got.Lap.Track != 1 {
			t.Errorf("event lap = %+v, want track 1", got.Lap)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("viewer-unsub")

	bus.Unsubscribe("viewer-unsub")

	// Channel should be closed
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to be closed after unsubscribe")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestBusUnsubscribeUnknownIDIsNoOp(t *testing.T) {
	bus := events.NewBus()
	bus.Unsubscribe("never-subscribed")
	// Transports call Unsubscribe on teardown regardless; must not panic.
}

func TestBusDropsEventsWhenFull(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("slow-viewer")

	// Publish many events without reading — must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(models.Event{Type: models.EventLightsOut})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Publish blocked for too long (should drop events)")
	}

	bus.Unsubscribe("slow-viewer")
	_ = ch
}

func TestBusIsolatesSessions(t *testing.T) {
	bus := events.NewBus()
	slow := bus.Subscribe("slow")
	fast := bus.Subscribe("fast")

	// Saturate the slow session's buffer; the fast one keeps consuming.
	for i := 0; i < 50; i++ {
		bus.Publish(models.Event{Type: models.EventLightsOut})
		select {
		case <-fast:
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("fast session starved at event %d", i)
		}
	}
	_ = slow
}

func TestBusSessionCount(t *testing.T) {
	bus := events.NewBus()
	if n := bus.SessionCount(); n != 0 {
		t.Errorf("expected 0 sessions, got %d", n)
	}
	bus.Subscribe("s1")
	bus.Subscribe("s2")
	if n := bus.SessionCount(); n != 2 {
		t.Errorf("expected 2 sessions, got %d", n)
	}
	bus.Unsubscribe("s1")
	if n := bus.SessionCount(); n != 1 {
		t.Errorf("expected 1 session, got %d", n)
	}
}
