package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
)

// readTickets loads a JSON array of tickets. Tickets without an id get
// TICKET-<n> by position.
func readTickets(path string) ([]domain.Ticket, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tickets %s: %w", path, err)
	}
	var tickets []domain.Ticket
	if err := json.Unmarshal(raw, &tickets); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse tickets", err)
	}
	for i := range tickets {
		if strings.TrimSpace(tickets[i].ID) == "" {
			tickets[i].ID = fmt.Sprintf("TICKET-%d", i+1)
		}
	}
	return tickets, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := writeJSON(f, v); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func printSummary(w io.Writer, s domain.ClassificationSummary) {
	fmt.Fprintf(w, "Total tickets processed: %d (fallbacks: %d)\n", s.Total, s.Fallbacks)
	sections := []struct {
		title  string
		counts []domain.LabelCount
	}{
		{"Topic", s.Topics},
		{"Sentiment", s.Sentiments},
		{"Priority", s.Priorities},
	}
	for _, section := range sections {
		fmt.Fprintf(w, "\n%s distribution:\n", section.title)
		for _, c := range section.counts {
			fmt.Fprintf(w, "  %s: %d\n", c.Label, c.Count)
		}
	}
}
