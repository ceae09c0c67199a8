package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNilRegistererIsSafe(t *testing.T) {
	m := NewWorkerMetrics(nil)
	m.ObserveBatch("audit-worker", time.Second)
	m.IncPublished("audit-worker")
	m.IncFailed("audit-worker")
}

func TestCountersRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWorkerMetrics(reg)

	m.IncPublished("audit-worker")
	m.IncPublished("audit-worker")
	m.IncFailed("")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := map[string]bool{}
	for _, family := range families {
		found[family.GetName()] = true
	}
	if !found["outbox_events_published"] {
		t.Fatalf("expected outbox_events_published to be registered, got %v", found)
	}
	if !found["outbox_events_failed"] {
		t.Fatalf("expected outbox_events_failed to be registered, got %v", found)
	}
}
