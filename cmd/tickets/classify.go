package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kanugurajesh/Assistly/internal/bootstrap"
	"github.com/kanugurajesh/Assistly/internal/core/usecase"
	"github.com/kanugurajesh/Assistly/internal/infrastructure/report/xlsx"
	"github.com/kanugurajesh/Assistly/internal/infrastructure/repository/postgres"
)

func classifyCMD() *cobra.Command {
	var input, xlsxPath, jsonPath, runID string
	var workers int
	var persist bool

	var cmd = &cobra.Command{
		Use:   "classify",
		Short: "Classify every ticket of a JSON file and write a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = cfg.BulkClassifyWorkers
			}

			tickets, err := readTickets(input)
			if err != nil {
				return err
			}
			classifier, err := bootstrap.NewTicketClassifier(cfg, nil)
			if err != nil {
				return err
			}

			start := time.Now()
			classified, err := usecase.NewBulkClassifier(classifier, workers).ClassifyAll(cmd.Context(), tickets)
			if err != nil {
				return fmt.Errorf("classify tickets: %w", err)
			}
			summary := usecase.Summarize(classified)
			slog.Info("bulk_classification_done",
				"tickets", summary.Total,
				"fallbacks", summary.Fallbacks,
				"duration_ms", time.Since(start).Milliseconds(),
			)

			if xlsxPath != "" {
				if err := xlsx.Write(xlsxPath, classified, summary); err != nil {
					return err
				}
				slog.Info("xlsx_report_written", "path", xlsxPath)
			}
			if persist {
				if runID == "" {
					runID = uuid.NewString()
				}
				db, err := bootstrap.OpenStore(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := postgres.NewTicketRepository(db).SaveRun(cmd.Context(), runID, classified); err != nil {
					return err
				}
				slog.Info("classification_run_saved", "run_id", runID, "tickets", len(classified))
			}

			if jsonPath != "" {
				return writeJSONFile(jsonPath, classified)
			}
			if xlsxPath == "" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"tickets": classified, "summary": summary})
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "sample_tickets.json", "JSON file with [{id, subject, body}]")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write an .xlsx report (tickets and summary sheets)")
	cmd.Flags().StringVar(&jsonPath, "json", "", "write classified tickets as JSON to this file")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent classifications (default BULK_CLASSIFY_WORKERS)")
	cmd.Flags().BoolVar(&persist, "persist", false, "store the run in Postgres")
	cmd.Flags().StringVar(&runID, "run-id", "", "run id for --persist (default random)")

	return cmd
}
