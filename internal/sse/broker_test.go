package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "deck.added", Data: map[string]int{"id": 25}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: deck.added") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"id":25`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishDeckEvent_StatsThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First deck event carries a stats.updated; the immediate second one is
	// inside the throttle window and must not.
	b.PublishDeckEvent(KindAdded, 1)
	b.PublishDeckEvent(KindRemoved, 1)

	time.Sleep(50 * time.Millisecond)
	statsCount := 0
	deckCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, "stats.updated") {
				statsCount++
			} else {
				deckCount++
			}
		default:
			break loop
		}
	}

	if deckCount != 2 {
		t.Errorf("deck events = %d, want 2", deckCount)
	}
	if statsCount != 1 {
		t.Errorf("stats.updated events = %d, want 1", statsCount)
	}
}

func TestPublishDeckEventKinds(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishDeckEvent(KindCleared, 0)

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: deck.cleared") {
			t.Errorf("event = %q", s)
		}
		if strings.Contains(s, `"id"`) {
			t.Errorf("cleared event carries an id: %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for cleared event")
	}
}

func TestServeHTTPStreamsEvents(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	srv := httptest.NewServer(b)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	// Wait for subscription to land in the broker loop, then publish.
	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	b.PublishDeckEvent(KindAdded, 25)

	buf := make([]byte, 4096)
	n, err := resp.Body.Read(buf)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if s := string(buf[:n]); !strings.Contains(s, "deck.added") {
		t.Errorf("stream = %q", s)
	}
}

func TestCloseIsIdempotentAndStopsDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()

	b.Close()
	b.Close()

	if _, ok := <-ch; ok {
		t.Error("client channel not closed on broker close")
	}
	// Publishing after close must not panic or block.
	b.Publish(Event{Type: "deck.added", Data: map[string]int{}})
	b.PublishDeckEvent(KindAdded, 1)
	if b.ClientCount() != 0 {
		t.Errorf("ClientCount after close = %d", b.ClientCount())
	}
}
