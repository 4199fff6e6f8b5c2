package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"skdm/internal/auth"
	"skdm/internal/compiler"
	"skdm/internal/compiler/artifact"
	compilerhandler "skdm/internal/compiler/handler"
	compilermetrics "skdm/internal/compiler/metrics"
	declhandler "skdm/internal/declaration/handler"
	declmetrics "skdm/internal/declaration/metrics"
	declservice "skdm/internal/declaration/service"
	declstore "skdm/internal/declaration/store"
	insthandler "skdm/internal/installation/handler"
	instservice "skdm/internal/installation/service"
	inststore "skdm/internal/installation/store"
	"skdm/internal/platform/config"
	"skdm/internal/platform/database"
	"skdm/internal/platform/httpserver"
	"skdm/internal/platform/logger"
	"skdm/internal/platform/metrics"
	"skdm/internal/platform/middleware"
	"skdm/internal/platform/redis"
	"skdm/internal/refdata"
	tenanthandler "skdm/internal/tenant/handler"
	tenantmetrics "skdm/internal/tenant/metrics"
	tenantservice "skdm/internal/tenant/service"
	tenantstore "skdm/internal/tenant/store"
	"skdm/pkg/platform/audit"
	auditkafka "skdm/pkg/platform/audit/kafka"
	auditworker "skdm/pkg/platform/audit/worker"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	var artifacts artifact.Store = artifact.NewMemoryStore()
	if redisClient != nil {
		defer redisClient.Close()
		artifacts = artifact.NewRedisStore(redisClient, cfg.Redis.ArtifactTTL)
		log.Info("artifact cache backed by redis", "ttl", cfg.Redis.ArtifactTTL)
	} else {
		log.Info("redis not configured, artifact cache is in-memory")
	}

	var auditStore audit.Store = audit.NewMemoryStore()
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaStore, err := auditkafka.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kafkaStore.Close()
		auditStore = kafkaStore
		log.Info("audit trail backed by kafka", "topic", cfg.Kafka.AuditTopic)
	} else {
		log.Warn("kafka not configured, audit trail is in-memory")
	}
	auditor := audit.NewBufferedEmitter(auditStore, log, 256)
	worker := auditworker.NewWorker(auditStore, auditor.Inbox())

	tenants := tenantstore.NewPostgresTenantStore(db)
	users := tenantstore.NewPostgresUserStore(db)
	installations := inststore.NewPostgresStore(db)
	declarations := declstore.NewPostgresStore(db)

	httpMetrics := metrics.NewHTTP()
	tenantSvc := tenantservice.New(tenants, users, log,
		tenantservice.WithMetrics(tenantmetrics.New(prometheus.DefaultRegisterer)),
		tenantservice.WithAuditor(auditor),
	)
	authSvc := auth.New(users, tenants, cfg.JWTSigningKey, cfg.TokenTTL, log, auditor)
	installationSvc := instservice.New(installations, log, instservice.WithAuditor(auditor))
	declarationSvc := declservice.New(declarations, log,
		declservice.WithMetrics(declmetrics.New(prometheus.DefaultRegisterer)),
		declservice.WithAuditor(auditor),
		declservice.WithArtifactCache(artifacts),
	)

	// Snapshot reads go through a repeatable-read transaction so a compile
	// run never sees a half-updated declaration.
	loader := compiler.NewTxLoader(db, compiler.NewStoreLoader(declarations, installations, tenants))
	comp := compiler.New(loader, log,
		compiler.WithMetrics(compilermetrics.New(prometheus.DefaultRegisterer)),
		compiler.WithAuditor(auditor),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(httpMetrics.Middleware)

	r.Get("/healthz", healthHandler(db, redisClient))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	auth.NewHandler(authSvc, log).Register(r)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireAuth(authSvc, log))
		r.Use(middleware.QueryTimeout(cfg.QueryTimeout))
		tenanthandler.New(tenantSvc, log).Register(r)
		insthandler.NewHandler(installationSvc, log).Register(r)
		declhandler.NewHandler(declarationSvc, log).Register(r)
		compilerhandler.NewHandler(comp, artifacts, log).Register(r)
		refdata.RegisterRoutes(r)
	})

	srv := httpserver.New(cfg.Addr, r)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting skdm server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := worker.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func healthHandler(db *sql.DB, cache *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		if cache != nil {
			if err := cache.Health(ctx); err != nil {
				http.Error(w, "redis unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
