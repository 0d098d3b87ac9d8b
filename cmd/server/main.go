package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/potchii/data-match-system-sub000/internal/audit"
	"github.com/potchii/data-match-system-sub000/internal/batch"
	"github.com/potchii/data-match-system-sub000/internal/batch/progress"
	"github.com/potchii/data-match-system-sub000/internal/importer"
	importerhandler "github.com/potchii/data-match-system-sub000/internal/importer/handler"
	"github.com/potchii/data-match-system-sub000/internal/mapping"
	"github.com/potchii/data-match-system-sub000/internal/matching"
	"github.com/potchii/data-match-system-sub000/internal/platform/config"
	"github.com/potchii/data-match-system-sub000/internal/platform/httpserver"
	"github.com/potchii/data-match-system-sub000/internal/platform/logger"
	"github.com/potchii/data-match-system-sub000/internal/platform/metrics"
	"github.com/potchii/data-match-system-sub000/internal/platform/middleware"
	platformredis "github.com/potchii/data-match-system-sub000/internal/platform/redis"
	recordshandler "github.com/potchii/data-match-system-sub000/internal/records/handler"
	"github.com/potchii/data-match-system-sub000/internal/storage"
	"github.com/potchii/data-match-system-sub000/internal/template"
	templatehandler "github.com/potchii/data-match-system-sub000/internal/template/handler"
	"github.com/potchii/data-match-system-sub000/migrations"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages. External backends are all
// optional: with no DATABASE_URL, REDIS_URL, or KAFKA_BROKERS the process
// runs fully in memory, which is the development mode.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		persons   storage.PersonStore
		results   storage.MatchResultStore
		batches   batch.Store
		templates template.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("database unreachable", "error", err.Error())
			os.Exit(1)
		}
		if err := migrations.Apply(ctx, db); err != nil {
			log.Error("failed to apply migrations", "error", err.Error())
			os.Exit(1)
		}
		persons = storage.NewPostgresPersonStore(db)
		results = storage.NewPostgresMatchResultStore(db)
		batches = batch.NewPostgresStore(db)
		templates = template.NewPostgresStore(db)
		log.Info("using postgres storage")
	} else {
		persons = storage.NewInMemoryPersonStore()
		results = storage.NewInMemoryMatchResultStore()
		batches = batch.NewInMemoryStore()
		templates = template.NewInMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	var tracker progress.Tracker = progress.NewInMemoryTracker()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		tracker = progress.NewRedisTracker(redisClient.Client)
		log.Info("using redis progress tracking")
	}

	var publisher audit.Publisher = audit.NewMemoryPublisher()
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := audit.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, log)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err.Error())
			os.Exit(1)
		}
		publisher = kafkaPublisher
		log.Info("publishing audit events to kafka", "topic", cfg.Kafka.AuditTopic)
	}
	defer publisher.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	importSvc := importer.NewService(importer.Config{
		Mapper:    mapping.NewMapper(),
		Matcher:   matching.NewService(matching.NewChain(cfg.FuzzyThreshold)),
		Persons:   persons,
		Results:   results,
		Batches:   batches,
		Templates: templates,
		Progress:  tracker,
		Publisher: publisher,
		Metrics:   m,
		Logger:    log,
	})

	router := newRouter(log, registry,
		importerhandler.New(importSvc, batches, results, tracker, log),
		templatehandler.New(templates, log),
		recordshandler.New(persons, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting registry matcher", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err.Error())
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

type registrar interface {
	Register(r chi.Router)
}

func newRouter(log *slog.Logger, gatherer prometheus.Gatherer, handlers ...registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(api chi.Router) {
		api.Use(middleware.ContentTypeJSON)
		for _, h := range handlers {
			h.Register(api)
		}
	})
	return r
}
