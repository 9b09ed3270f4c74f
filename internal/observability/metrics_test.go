package observability

import (
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets/:id", "GET", 200, 15*time.Millisecond)
	m.RecordRequest("/tickets/:id", "GET", 200, 5*time.Millisecond)
	m.RecordError("/tickets/T-9", "GET", "NOT_FOUND")
	m.RecordOperation("generate", "applied")
	m.RecordOperation("generate", "ignored_duplicate")
	m.RecordOperation("generate", "applied")

	snap := m.Snapshot()
	if snap.Requests["/tickets/:id|GET|200"] != 2 || snap.RequestMillis["/tickets/:id|GET|200"] != 20 {
		t.Fatalf("requests = %v millis = %v", snap.Requests, snap.RequestMillis)
	}
	if snap.Errors["/tickets/T-9|GET|NOT_FOUND"] != 1 {
		t.Fatalf("errors = %v", snap.Errors)
	}
	if m.Operation("generate", "applied") != 2 || m.Operation("generate", "ignored_duplicate") != 1 {
		t.Fatalf("operations = %v", snap.Operations)
	}

	snap.Operations["generate|applied"] = 99
	if m.Operation("generate", "applied") != 2 {
		t.Fatal("snapshot shares maps with metrics")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.RecordOperation("send", "applied")
	if m.Operation("send", "applied") != 0 || len(m.Snapshot().Requests) != 0 {
		t.Fatal("nil metrics should read as empty")
	}
}
