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

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"audittrail/internal/audittrail/handler"
	"audittrail/internal/audittrail/handlers"
	auditmetrics "audittrail/internal/audittrail/metrics"
	"audittrail/internal/audittrail/models"
	"audittrail/internal/audittrail/providers"
	"audittrail/internal/audittrail/registry"
	"audittrail/internal/audittrail/service"
	"audittrail/internal/audittrail/settings"
	"audittrail/internal/audittrail/store/memory"
	pgstore "audittrail/internal/audittrail/store/postgres"
	"audittrail/internal/audittrail/sweeper"
	"audittrail/internal/platform/config"
	"audittrail/internal/platform/httpserver"
	"audittrail/internal/platform/logger"
	"audittrail/internal/platform/metrics"
	"audittrail/internal/platform/middleware"
	"audittrail/internal/platform/postgres"
	redisclient "audittrail/internal/platform/redis"
	"audittrail/pkg/platform/httputil"
	"audittrail/pkg/platform/middleware/metadata"
	"audittrail/pkg/platform/middleware/requesttime"
)

// main wires the audit trail service, its admin API and the retention sweeper,
// then runs until SIGINT or SIGTERM.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("audittrail stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("audittrail stopped")
}

// infra holds the optional backing connections so they can be closed and
// health-checked together.
type infra struct {
	db    *sql.DB
	redis *redisclient.Client
}

func (i *infra) health(ctx context.Context) error {
	if i.db != nil {
		if err := i.db.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if i.redis != nil {
		if err := i.redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func (i *infra) close() {
	if i.db != nil {
		_ = i.db.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	deps := &infra{}
	defer deps.close()

	store, err := buildEventStore(ctx, cfg, deps)
	if err != nil {
		return err
	}
	settingsStore, err := buildSettingsStore(ctx, cfg, deps)
	if err != nil {
		return err
	}

	reg := registry.New(
		[]registry.Provider{providers.NewUser(), providers.NewContent()},
		registry.WithLogger(log),
	)
	svc, err := service.New(reg, store, settingsStore,
		service.WithLogger(log),
		service.WithMetrics(auditmetrics.New()),
		service.WithEventHandlers(handlers.NewCommon(), handlers.NewClientMetadata()),
		service.WithTrimBatchSize(cfg.AuditTrail.TrimBatchSize),
	)
	if err != nil {
		return fmt.Errorf("build audit trail service: %w", err)
	}

	router := newRouter(log, deps, handler.New(svc,
		handler.WithLogger(log),
		handler.WithDefaultPageSize(cfg.AuditTrail.DefaultPageSize),
	))
	srv := httpserver.New(cfg.Server, router)
	sw := sweeper.New(svc,
		sweeper.WithLogger(log),
		sweeper.WithInterval(cfg.AuditTrail.SweepInterval),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting audittrail", "addr", cfg.Server.Addr, "store", cfg.Store.Driver)
		return httpserver.Serve(ctx, srv, cfg.Server.ShutdownTimeout)
	})
	g.Go(func() error {
		return sw.Run(ctx)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func buildEventStore(ctx context.Context, cfg config.Config, deps *infra) (service.Store, error) {
	if cfg.Store.Driver != config.StorePostgres {
		return memory.NewInMemoryStore(), nil
	}
	db, err := postgres.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	deps.db = db
	store := pgstore.New(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure audit trail schema: %w", err)
	}
	return store, nil
}

func buildSettingsStore(ctx context.Context, cfg config.Config, deps *infra) (settings.Store, error) {
	defaults := func() *models.Settings {
		s := models.DefaultSettings()
		s.RetentionDays = cfg.AuditTrail.DefaultRetentionDays
		return s
	}
	client, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return settings.NewInMemoryStore(defaults), nil
	}
	deps.redis = client
	return settings.NewRedis(client, cfg.Redis.SettingsKey, defaults), nil
}

func newRouter(log *slog.Logger, deps *infra, h *handler.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Latency(metrics.New()))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.health(r.Context()); err != nil {
			log.WarnContext(r.Context(), "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	h.Register(r)
	return r
}
