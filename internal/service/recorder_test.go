package service

import (
	"context"
	"testing"

	"github.com/tickgate/tickgate/internal/model"
)

func TestSanitizePayload(t *testing.T) {
	in := map[string]any{
		"apiSecret": "abc",
		"apiKey":    "def",
		"note":      "ok",
		"count":     3,
		"leak":      "my secret value",
		"nested": map[string]any{
			"privateKey": "xyz",
			"symbol":     "BTCUSDT",
		},
		"list": []any{"fine", "has KEY inside", 42},
	}

	out := SanitizePayload(in)

	for _, banned := range []string{"apiSecret", "apiKey", "leak"} {
		if _, ok := out[banned]; ok {
			t.Fatalf("%q survived sanitization", banned)
		}
	}
	if out["note"] != "ok" || out["count"] != 3 {
		t.Fatalf("benign entries mangled: %+v", out)
	}

	nested, ok := out["nested"].(map[string]any)
	if !ok {
		t.Fatalf("nested map dropped: %+v", out)
	}
	if _, ok := nested["privateKey"]; ok {
		t.Fatal("nested privateKey survived")
	}
	if nested["symbol"] != "BTCUSDT" {
		t.Fatalf("nested benign entry mangled: %+v", nested)
	}

	list, ok := out["list"].([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("list = %+v, want sensitive string removed", out["list"])
	}
}

func TestSanitizePayloadNil(t *testing.T) {
	if out := SanitizePayload(nil); out == nil || len(out) != 0 {
		t.Fatalf("nil payload should sanitize to empty map, got %+v", out)
	}
}

func TestEmitSanitizesBeforePersisting(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store)

	rec.Emit(context.Background(), "run-1", "user-1", model.EventSignal, map[string]any{
		"apiSecret": "abc",
		"note":      "ok",
	})

	events := store.Events()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if _, ok := events[0].Payload["apiSecret"]; ok {
		t.Fatal("sensitive payload reached storage")
	}
	if events[0].Payload["note"] != "ok" {
		t.Fatalf("payload = %+v", events[0].Payload)
	}
	if events[0].ID == "" || events[0].CreatedAt.IsZero() {
		t.Fatalf("event missing id or timestamp: %+v", events[0])
	}
}

func TestRecordTickRunAssignsID(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store)

	id := rec.RecordTickRun(context.Background(), &model.TickRun{
		StrategyRunID: "run-1",
		Status:        model.TickOK,
		Signal:        model.SignalHold,
	})
	if id == "" {
		t.Fatal("expected an assigned id")
	}
	ticks := store.TickRuns()
	if len(ticks) != 1 || ticks[0].ID != id {
		t.Fatalf("ticks = %+v", ticks)
	}
}
