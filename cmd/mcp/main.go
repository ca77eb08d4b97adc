package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/hukumnesia/lexqa/internal/adapters/mcp"
	"github.com/hukumnesia/lexqa/internal/bootstrap"
	"github.com/hukumnesia/lexqa/internal/config"
	"github.com/hukumnesia/lexqa/internal/observability/logging"
)

const version = "0.1.0"

func main() {
	cfg := config.Load()
	// Logs go to stderr so they never corrupt the stdio transport.
	logger := logging.NewJSONLoggerTo(os.Stderr, "lexqa-mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer app.Close()

	server := mcpadapter.NewServer(version, app.QuerySvc, app.QuerySvc)
	if err := mcpadapter.ServeStdio(server); err != nil {
		slog.Error("mcp_server_failed", slog.Any("error", err))
		os.Exit(1)
	}
}
