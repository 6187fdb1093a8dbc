package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kanugurajesh/Assistly/internal/bootstrap"
	"github.com/kanugurajesh/Assistly/internal/config"
	"github.com/kanugurajesh/Assistly/internal/observability/logging"
)

var version = "dev"

func main() {
	_ = godotenv.Load()
	cfg, err := config.LoadWithFile()
	// stdout carries the MCP protocol, so logs go to stderr.
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel))
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config_invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "mcp")
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	app.StartBackground(ctx)

	if err := server.ServeStdio(app.MCPServer().MCPServer(version)); err != nil {
		slog.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
