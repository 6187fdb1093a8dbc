package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
)

func TestReadTicketsAssignsMissingIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "TICKET-245", "subject": "Snowflake", "body": "How do I connect?"},
		{"subject": "SSO", "body": "Okta loop"}
	]`), 0o600))

	tickets, err := readTickets(path)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, "TICKET-245", tickets[0].ID)
	assert.Equal(t, "TICKET-2", tickets[1].ID)
	assert.Equal(t, "Okta loop", tickets[1].Body)
}

func TestReadTicketsRejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id": 1}`), 0o600))

	_, err := readTickets(path)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput))
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, domain.ClassificationSummary{
		Total:      3,
		Topics:     []domain.LabelCount{{Label: "How-to", Count: 2}, {Label: "SSO", Count: 1}},
		Priorities: []domain.LabelCount{{Label: "P0 (High)", Count: 3}},
	})
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Total tickets processed: 3"))
	assert.Contains(t, out, "  How-to: 2\n")
	assert.Contains(t, out, "Priority distribution:\n  P0 (High): 3")
}

func TestWriteJSONKeepsAmpersands(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]string{"subject": "R&D access"}))
	assert.Contains(t, buf.String(), "R&D access")
}
