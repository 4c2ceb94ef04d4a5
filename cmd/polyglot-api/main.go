package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"polyglot/internal/app"
	"polyglot/internal/config"
	"polyglot/internal/httpapi"
	"polyglot/internal/observability"
)

func main() {
	if err := app.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger(os.Stdout, cfg.LogLevel)
	metrics := observability.NewMetrics()

	components, err := app.Build(cfg, logger, metrics)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	handler := httpapi.NewServer(cfg, logger, httpapi.Dependencies{
		Pipeline:       components.Pipeline,
		Catalog:        components.Catalog,
		Audio:          components.Store,
		Upstream:       components.OpenRouter,
		Metrics:        metrics,
		MetricsHandler: metrics.Handler(),
	})

	stages := cfg.TranscriptionTimeout + cfg.GenerationTimeout + cfg.SynthesisTimeout
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      stages + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.ListenAddr, "audio_dir", components.Store.Dir(), "speech_enabled", cfg.SpeechEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server exited", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
