package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Simplici0/skipq/internal/config"
	"github.com/Simplici0/skipq/internal/db"
	"github.com/Simplici0/skipq/internal/logger"
	"github.com/Simplici0/skipq/internal/metrics"
	"github.com/Simplici0/skipq/internal/migrations"
	"github.com/Simplici0/skipq/internal/ratecard"
	"github.com/Simplici0/skipq/internal/requests"
	"github.com/Simplici0/skipq/internal/seed"
	"github.com/Simplici0/skipq/internal/validation"
	"github.com/Simplici0/skipq/internal/waittime"
)

type server struct {
	db        *sql.DB
	log       *zap.Logger
	requests  *requests.Service
	cards     *ratecard.Store
	locations *waittime.Store
	validate  *validation.Validator
	gatherer  prometheus.Gatherer
}

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.Environment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	for _, warning := range cfg.Warnings {
		zl.Warn("configuration", zap.String("warning", warning))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		zl.Fatal("failed to open database", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(ctx, database, cfg.MigrationsDir, zl); err != nil {
			zl.Fatal("failed to run database migrations", zap.Error(err))
		}
	}

	stats, err := seed.Run(ctx, database, seed.Config{
		Currency:            cfg.Currency,
		DefaultJurisdiction: cfg.DefaultJurisdiction,
		DefaultTaxRate:      cfg.DefaultTaxRate,
	})
	if err != nil {
		zl.Fatal("failed to seed rate card", zap.Error(err))
	}
	zl.Info("seed complete", zap.Int("inserts", stats.Inserts))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := newServer(database, zl, reg, cfg.DefaultJurisdiction)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			zl.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	zl.Info("listening", zap.String("addr", httpServer.Addr), zap.String("env", cfg.Environment))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func newServer(database *sql.DB, log *zap.Logger, reg *prometheus.Registry, defaultJurisdiction string) *server {
	log = logger.OrNop(log)
	cards := ratecard.NewStore(database)
	svc := requests.NewService(requests.NewStore(database), cards,
		requests.WithMetrics(metrics.NewFares(reg)),
		requests.WithLogger(log),
		requests.WithDefaultJurisdiction(defaultJurisdiction),
	)
	return &server{
		db:        database,
		log:       log,
		requests:  svc,
		cards:     cards,
		locations: waittime.NewStore(database),
		validate:  validation.New(),
		gatherer:  reg,
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/quotes", s.handleQuote)
		r.Get("/wait-estimates", s.handleWaitEstimate)
		r.Get("/locations", s.handleLocations)

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", s.handleFeed)
			r.Post("/", s.handleCreateRequest)
			r.Get("/{id}", s.handleGetRequest)
			r.Post("/{id}/accept", s.handleAcceptRequest)
			r.Post("/{id}/complete", s.handleCompleteRequest)
			r.Post("/{id}/cancel", s.handleCancelRequest)
		})

		r.Get("/workers/{id}/earnings", s.handleEarnings)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/fare-config", s.handleGetFareConfig)
			r.Put("/fare-config", s.handlePutFareConfig)
			r.Put("/tax-jurisdictions/{code}", s.handlePutJurisdiction)
		})
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.log.Error("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
