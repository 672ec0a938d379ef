package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vwcamper77/rentals-sync/internal/httpx"
	"github.com/vwcamper77/rentals-sync/internal/mongox"
	"github.com/vwcamper77/rentals-sync/internal/rentals"
	"github.com/vwcamper77/rentals-sync/internal/rentals/feed"
	"github.com/vwcamper77/rentals-sync/internal/rentals/model"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancel()

	// Initialize OpenTelemetry with a Prometheus exporter
	meterProvider, metricsHandler, err := httpx.SetupMetrics()
	if err != nil {
		slog.Error("Failed to initialize OpenTelemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpx.Shutdown(shutdownCtx, meterProvider); err != nil {
			slog.Error("Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	// Initialize MongoDB
	db := mongox.MustConnect()

	// Initialize components
	repo := model.New(db)

	syncTelemetry, err := rentals.NewTelemetry()
	if err != nil {
		slog.Error("Failed to initialize sync telemetry", "error", err)
		os.Exit(1)
	}

	fetcher := feed.NewFetcher(
		envDuration("FEED_TIMEOUT", feed.DefaultTimeout),
		envInt("SYNC_MAX_RETRIES", feed.DefaultMaxRetries),
	)
	syncer := rentals.NewSyncer(repo,
		rentals.WithFetcher(fetcher),
		rentals.WithMonthsAhead(envInt("SYNC_MONTHS_AHEAD", 0)),
		rentals.WithTelemetry(syncTelemetry),
	)
	server := rentals.NewServer(repo, syncer)

	// Periodic batch sync
	if os.Getenv("SYNC_DISABLE_SCHEDULER") == "" {
		scheduler, err := rentals.NewScheduler(syncer, os.Getenv("SYNC_SCHEDULE"))
		if err != nil {
			slog.Error("Failed to initialize sync scheduler", "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Initialize telemetry
	telemetry, err := httpx.NewTelemetry()
	if err != nil {
		slog.Error("Failed to initialize telemetry", "error", err)
		os.Exit(1)
	}

	// Configure handler
	handler := mux.NewRouter()
	handler.Use(
		telemetry.Middleware,
		httpx.Logger(),
		httpx.Recovery(),
	)

	handler.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, pingCancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer pingCancel()
		if err := db.Client().Ping(pingCtx, readpref.Primary()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "ok")
	})

	handler.Handle("/metrics", metricsHandler)

	server.Register(handler)

	port := envInt("PORT", 8080)
	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Starting the server", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}

func envInt(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("Ignoring invalid integer env var", "name", name, "value", v)
	}
	return fallback
}

func envDuration(name string, fallback time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		slog.Warn("Ignoring invalid duration env var", "name", name, "value", v)
	}
	return fallback
}
