// Package seed loads the initial ticket set from a YAML fixture.
package seed

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/draft-pipeline/internal/domain"
)

// Record is one fixture entry.
type Record struct {
	ID       string `yaml:"id"`
	Subject  string `yaml:"subject"`
	Customer string `yaml:"customer"`
	Query    string `yaml:"query"`
}

type fixture struct {
	Tickets []Record `yaml:"tickets"`
}

// Load reads the fixture at path, or returns Default when path is empty.
func Load(path string) ([]domain.Ticket, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals fixture YAML into Open tickets.
func Parse(data []byte) ([]domain.Ticket, error) {
	var f fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("seed: parse: %w", err)
	}
	return fromRecords(f.Tickets)
}

func fromRecords(records []Record) ([]domain.Ticket, error) {
	seen := make(map[string]struct{}, len(records))
	tickets := make([]domain.Ticket, 0, len(records))
	for i, r := range records {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return nil, fmt.Errorf("seed: ticket %d: id is required", i)
		}
		if strings.TrimSpace(r.Query) == "" {
			return nil, fmt.Errorf("seed: ticket %s: query is required", id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("seed: duplicate ticket id %s", id)
		}
		seen[id] = struct{}{}
		tickets = append(tickets, domain.NewTicket(id, r.Subject, r.Customer, r.Query))
	}
	return tickets, nil
}

// Default returns the built-in demo tickets.
func Default() []domain.Ticket {
	return []domain.Ticket{
		domain.NewTicket("T-101", "Refund Request", "alice@example.com",
			"I was charged twice for the premium plan. Please refund the duplicate charge immediately."),
		domain.NewTicket("T-102", "API 500 Error", "dev@startup.io",
			"Our integration is failing with a 500 error on the /v1/users endpoint since this morning."),
		domain.NewTicket("T-103", "Feature Request", "pm@enterprise.com",
			"We would love to have a bulk export feature for our analytics dashboard. Is this on the roadmap?"),
		domain.NewTicket("T-104", "Login Issues", "user@gmail.com",
			"I can't log into my account. I've tried resetting my password but I'm not receiving the reset email."),
	}
}
