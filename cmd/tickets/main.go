package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kanugurajesh/Assistly/internal/config"
	"github.com/kanugurajesh/Assistly/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()

	var root = &cobra.Command{
		Use:           "tickets",
		Short:         "Support ticket tooling: bulk classification, routing and corpus events",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(classifyCMD(), routeCMD(), corpusCMD())

	if err := root.Execute(); err != nil {
		slog.Error("tickets_command_failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig is shared by every subcommand. Logs go to stderr so JSON output
// on stdout stays machine readable.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadWithFile()
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "tickets", cfg.LogLevel))
	return cfg, err
}
