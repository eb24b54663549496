package sentiment

import (
	"context"
	"testing"
	"time"
)

func TestScoreHandlerStoresLatest(t *testing.T) {
	store := NewMemoryScoreStore(time.Hour)
	h := NewScoreHandler("forex.sentiment", store, nil)

	if got := h.Topic(); got != "forex.sentiment" {
		t.Fatalf("topic: got %q", got)
	}

	payloads := []string{
		`{"pair":"eurusd","score":0.2,"t":1700000000000}`,
		`{"pair":"EURUSD","score":-0.5,"t":1700000060000}`,
	}
	for _, p := range payloads {
		if err := h.Handle(context.Background(), []byte(p)); err != nil {
			t.Fatalf("handle %s: %v", p, err)
		}
	}

	score, ok, err := store.Latest(context.Background(), "EURUSD")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if !ok {
		t.Fatalf("expected a stored score")
	}
	if score != -0.5 {
		t.Fatalf("latest score: got %v, want -0.5", score)
	}
}

func TestScoreHandlerRejectsBadMessages(t *testing.T) {
	store := NewMemoryScoreStore(time.Hour)
	h := NewScoreHandler("forex.sentiment", store, nil)

	for _, p := range []string{
		`not json`,
		`{"score":0.5}`,
		`{"pair":"EURUSD","score":1.5}`,
		`{"pair":"EURUSD","score":-2}`,
	} {
		if err := h.Handle(context.Background(), []byte(p)); err == nil {
			t.Fatalf("expected error for payload %s", p)
		}
	}

	if _, ok, _ := store.Latest(context.Background(), "EURUSD"); ok {
		t.Fatalf("rejected messages must not be stored")
	}
}

func TestMemoryScoreStoreExpiry(t *testing.T) {
	store := NewMemoryScoreStore(10 * time.Millisecond)
	if err := store.Put(context.Background(), "GBPUSD", 0.3, time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok, _ := store.Latest(context.Background(), "GBPUSD"); ok {
		t.Fatalf("expired score must not be served")
	}
}
