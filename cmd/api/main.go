package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/hukumnesia/lexqa/internal/adapters/http"
	"github.com/hukumnesia/lexqa/internal/bootstrap"
	"github.com/hukumnesia/lexqa/internal/config"
	"github.com/hukumnesia/lexqa/internal/observability/logging"
	"github.com/hukumnesia/lexqa/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("lexqa-api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer app.Close()

	serverMetrics := metrics.NewHTTPServerMetrics("lexqa-api")
	app.QuerySvc.WithRerankFallbackHook(func() {
		serverMetrics.RecordRerankFallback("lexqa-api")
	})
	router := httpadapter.NewRouter(cfg, app.QuerySvc, func() (string, bool) {
		healthCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return app.Health(healthCtx)
	}, serverMetrics)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", slog.String("port", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api_server_failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("api_shutdown_error", slog.Any("error", err))
	}
}
