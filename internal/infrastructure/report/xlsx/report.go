package xlsx

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
)

const (
	TicketsSheet = "Tickets"
	SummarySheet = "Summary"
)

var ticketHeader = []string{"Ticket ID", "Subject", "Topics", "Sentiment", "Priority", "Fallback"}

// Write saves tickets and their summary as a two-sheet workbook at path.
func Write(path string, tickets []domain.ClassifiedTicket, summary domain.ClassificationSummary) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", TicketsSheet); err != nil {
		return fmt.Errorf("rename tickets sheet: %w", err)
	}
	if err := writeTickets(f, tickets); err != nil {
		return err
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	if err := writeSummary(f, summary); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report %s: %w", path, err)
	}
	return nil
}

func writeTickets(f *excelize.File, tickets []domain.ClassifiedTicket) error {
	if err := setRow(f, TicketsSheet, 1, toAny(ticketHeader)); err != nil {
		return err
	}
	for i, t := range tickets {
		topics := make([]string, 0, len(t.Classification.Topics))
		for _, topic := range t.Classification.Topics {
			topics = append(topics, string(topic))
		}
		row := []any{
			t.ID,
			t.Subject,
			strings.Join(topics, ", "),
			string(t.Classification.Sentiment),
			string(t.Classification.Priority),
			t.Classification.Fallback,
		}
		if err := setRow(f, TicketsSheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, summary domain.ClassificationSummary) error {
	row := 1
	put := func(values ...any) error {
		err := setRow(f, SummarySheet, row, values)
		row++
		return err
	}

	if err := put("Total tickets", summary.Total); err != nil {
		return err
	}
	if err := put("Fallback classifications", summary.Fallbacks); err != nil {
		return err
	}
	sections := []struct {
		title  string
		counts []domain.LabelCount
	}{
		{"Topic", summary.Topics},
		{"Sentiment", summary.Sentiments},
		{"Priority", summary.Priorities},
	}
	for _, s := range sections {
		row++
		if err := put(s.title, "Count"); err != nil {
			return err
		}
		for _, c := range s.counts {
			if err := put(c.Label, c.Count); err != nil {
				return err
			}
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name for row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
