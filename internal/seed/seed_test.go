package seed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spec-kit/draft-pipeline/internal/domain"
)

func TestParse(t *testing.T) {
	data := []byte(`
tickets:
  - id: T-201
    subject: Invoice copy
    customer: ops@example.com
    query: Can you resend last month's invoice?
  - id: " T-202 "
    subject: Outage
    customer: sre@example.com
    query: Dashboard returns 502.
`)
	tickets, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("len = %d", len(tickets))
	}
	if tickets[1].ID != "T-202" {
		t.Fatalf("id = %q, want trimmed", tickets[1].ID)
	}
	for _, ticket := range tickets {
		if ticket.Status != domain.TicketStatusOpen || ticket.Draft != nil {
			t.Fatalf("seeded ticket not open: %+v", ticket)
		}
	}
}

func TestParseRejectsBadFixtures(t *testing.T) {
	tests := map[string]string{
		"missing id":    "tickets:\n  - query: hello\n",
		"missing query": "tickets:\n  - id: T-1\n",
		"duplicate":     "tickets:\n  - id: T-1\n    query: a\n  - id: T-1\n    query: b\n",
		"bad yaml":      "tickets: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	tickets, err := Load("")
	if err != nil || len(tickets) != 4 || tickets[0].ID != "T-101" || tickets[3].ID != "T-104" {
		t.Fatalf("default = %v, %v", tickets, err)
	}

	path := filepath.Join(t.TempDir(), "tickets.yaml")
	if err := os.WriteFile(path, []byte("tickets:\n  - id: T-9\n    query: help\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	tickets, err = Load(path)
	if err != nil || len(tickets) != 1 || tickets[0].ID != "T-9" {
		t.Fatalf("file = %v, %v", tickets, err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !strings.Contains(err.Error(), "seed: read") {
		t.Fatalf("missing file err = %v", err)
	}
}
