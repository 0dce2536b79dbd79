package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"civreg/internal/citizen/handler"
	citizenmetrics "civreg/internal/citizen/metrics"
	"civreg/internal/citizen/service"
	"civreg/internal/citizen/store"
	"civreg/internal/platform/config"
	"civreg/internal/platform/httpserver"
	"civreg/internal/platform/logger"
	"civreg/internal/platform/middleware"
	"civreg/pkg/platform/sentinel"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/citizen packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := initStorage(ctx, db, cfg, log); err != nil {
		cancel()
		log.Error("init storage", "error", err)
		os.Exit(1)
	}
	cancel()

	citizens := store.NewPostgres(db)
	svc := service.New(citizens, log, citizenmetrics.New(prometheus.DefaultRegisterer))
	h := handler.New(svc, log)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	h.Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting civreg", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// initStorage verifies connectivity, creates the schema, and optionally
// seeds an empty table with synthetic records.
func initStorage(ctx context.Context, db *sql.DB, cfg *config.Config, log *slog.Logger) error {
	if err := db.PingContext(ctx); err != nil {
		return err
	}

	citizens := store.NewPostgres(db)
	if err := citizens.EnsureSchema(ctx); err != nil {
		return err
	}

	if !cfg.SeedOnEmpty {
		return nil
	}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	n, err := store.SeedIfEmpty(ctx, citizens, rnd, cfg.SeedCount)
	if err != nil {
		// Random SNILS/INN values can collide; a failed seed is a lost
		// convenience, not a startup failure.
		if errors.Is(err, sentinel.ErrConflict) {
			log.Warn("seed skipped: generated records collided on snils/inn")
			return nil
		}
		return err
	}
	if n > 0 {
		log.Info("seeded citizens table", "count", n)
	}
	return nil
}
