package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kanugurajesh/Assistly/internal/bootstrap"
	"github.com/kanugurajesh/Assistly/internal/core/usecase"
	"github.com/kanugurajesh/Assistly/internal/infrastructure/queue/nats"
)

func corpusCMD() *cobra.Command {
	var corpus = &cobra.Command{
		Use:   "corpus",
		Short: "Corpus maintenance",
	}

	var reason string
	var chunks int
	var notify = &cobra.Command{
		Use:   "notify",
		Short: "Publish a corpus.updated event so API replicas rebuild their keyword index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			bus, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
				ResilienceExecutor: bootstrap.NewExecutor(cfg, nil),
			})
			if err != nil {
				return err
			}
			defer bus.Close()

			if err := usecase.NewIndexRebuildUseCase(nil, bus, nil, 0).Notify(cmd.Context(), reason, chunks); err != nil {
				return err
			}
			slog.Info("corpus_event_published", "subject", cfg.NATSSubject, "reason", reason)
			return nil
		},
	}
	notify.Flags().StringVar(&reason, "reason", "manual", "reason recorded in the event")
	notify.Flags().IntVar(&chunks, "chunks", 0, "chunk count to report, if known")

	corpus.AddCommand(notify)
	return corpus
}
