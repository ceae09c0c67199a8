package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextFieldsAccumulate(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &buf})

	ctx := logg.WithRequestID(context.Background(), "req-1")
	ctx = logg.WithVehicleID(ctx, "veh-1")
	logg.Info(ctx, "stage.transition")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid log json: %v", err)
	}
	if entry["request_id"] != "req-1" {
		t.Fatalf("missing request_id: %v", entry)
	}
	if entry["vehicle_id"] != "veh-1" {
		t.Fatalf("missing vehicle_id: %v", entry)
	}
	if entry["service"] != "test" {
		t.Fatalf("missing service field: %v", entry)
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if ParseLevel("nonsense") != zerolog.InfoLevel {
		t.Fatal("expected info fallback")
	}
	if ParseLevel("debug") != zerolog.DebugLevel {
		t.Fatal("expected debug")
	}
}
