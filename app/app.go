package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/crossed-lances/tablemaster/app/eventbus"
	allocationservice "github.com/crossed-lances/tablemaster/app/modules/allocation/application"
	allocationmetrics "github.com/crossed-lances/tablemaster/app/modules/allocation/infrastructure/metrics"
	allocationdb "github.com/crossed-lances/tablemaster/app/modules/allocation/infrastructure/repositories"
	"github.com/crossed-lances/tablemaster/app/modules/pairingimport"
	tournamentdb "github.com/crossed-lances/tablemaster/app/modules/tournament/infrastructure/repositories"
	"github.com/crossed-lances/tablemaster/config"
)

// App wires configuration, storage, eventing and the allocation service.
type App struct {
	Cfg               *config.Config
	AllocationService allocationservice.Service
	PairingClient     *pairingimport.Client

	db       *bun.DB
	eventBus eventbus.EventBus
	logger   *slog.Logger

	metricsServer *http.Server
}

// NewApp initializes the application with the necessary services and
// configuration.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	db := bun.NewDB(pgdb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var bus eventbus.EventBus
	if cfg.NATS.URL != "" {
		var err error
		bus, err = eventbus.NewEventBus(ctx, cfg.NATS.URL, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize event bus: %w", err)
		}
	} else {
		logger.Warn("NATS URL not configured, event publication disabled")
	}

	var metrics allocationmetrics.Metrics = allocationmetrics.NoOpMetrics{}
	var metricsServer *http.Server
	if cfg.Observability.MetricsAddress != "" {
		registry := prometheus.NewRegistry()
		metrics = allocationmetrics.NewPrometheusMetrics(registry)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: cfg.Observability.MetricsAddress, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server failed", slog.Any("error", err))
			}
		}()
	}

	allocationRepo := &allocationdb.AllocationDBImpl{DB: db}
	tournamentRepo := &tournamentdb.TournamentDBImpl{DB: db}

	service := allocationservice.NewAllocationService(
		allocationRepo,
		tournamentRepo,
		bus,
		logger,
		metrics,
	)

	var pairingClient *pairingimport.Client
	if cfg.PairingSource.BaseURL != "" {
		pairingClient = pairingimport.NewClient(cfg.PairingSource.BaseURL, logger,
			pairingimport.WithMaxRetries(cfg.PairingSource.MaxRetries),
			pairingimport.WithRateLimit(cfg.PairingSource.RatePerSecond, cfg.PairingSource.RateBurst),
		)
	}

	return &App{
		Cfg:               cfg,
		AllocationService: service,
		PairingClient:     pairingClient,
		db:                db,
		eventBus:          bus,
		logger:            logger,
		metricsServer:     metricsServer,
	}, nil
}

// DB returns the bun database handle.
func (app *App) DB() *bun.DB {
	return app.db
}

// Close releases the app's connections.
func (app *App) Close(ctx context.Context) {
	if app.metricsServer != nil {
		if err := app.metricsServer.Shutdown(ctx); err != nil {
			app.logger.Error("Failed to shut down metrics server", slog.Any("error", err))
		}
	}
	if app.eventBus != nil {
		if err := app.eventBus.Close(); err != nil {
			app.logger.Error("Failed to close event bus", slog.Any("error", err))
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("Failed to close database connection", slog.Any("error", err))
	}
}
