package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"w9-search/internal/config"
	"w9-search/internal/domain/planner"
	"w9-search/internal/domain/rag"
	"w9-search/internal/domain/ratelimit"
	"w9-search/internal/domain/tools"
	"w9-search/internal/infrastructure/database"
	"w9-search/internal/infrastructure/database/repository/raterepo"
	"w9-search/internal/infrastructure/database/repository/sourcerepo"
	"w9-search/internal/infrastructure/database/repository/threadrepo"
	"w9-search/internal/infrastructure/inference"
	"w9-search/internal/infrastructure/logger"
	"w9-search/internal/infrastructure/scheduler"
	"w9-search/internal/infrastructure/websearch"
	"w9-search/internal/interfaces/httpserver"
	"w9-search/internal/interfaces/httpserver/handlers"

	_ "net/http/pprof"
)

// Application bundles the long running parts of the service.
type Application struct {
	cfg        *config.Config
	httpServer *httpserver.HTTPServer
	scheduler  *scheduler.Scheduler
}

// buildApplication wires every component by hand, repositories up to the
// HTTP layer.
func buildApplication(cfg *config.Config) (*Application, error) {
	log := logger.GetLogger()

	db, err := database.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		log.Info().Msg("database migration completed")
	}

	sourceRepo := sourcerepo.NewPostgresRepository(db)
	threadRepo := threadrepo.NewPostgresRepository(db)
	rateStore := raterepo.NewPostgresRepository(db)

	gate := ratelimit.NewGate(rateStore)
	gateway := inference.NewGateway(cfg, gate)
	searchClient := websearch.NewClient(cfg, gate)
	fetcher := websearch.NewFetcher(cfg.FetchTimeout)
	queryPlanner := planner.New(gateway)
	toolRegistry := tools.NewRegistry()

	engine := rag.NewEngine(
		gateway,
		queryPlanner,
		searchClient,
		fetcher,
		sourceRepo,
		threadRepo,
		toolRegistry,
	)

	server := httpserver.NewHTTPServer(
		cfg,
		log,
		handlers.NewQueryHandler(engine),
		handlers.NewSourceHandler(sourceRepo),
		handlers.NewModelHandler(gateway.Catalog()),
		handlers.NewThreadHandler(threadRepo),
		handlers.NewLimitHandler(gate, gateway, searchClient),
	)

	jobs := scheduler.New(cfg, gateway, gateway, searchClient)

	return &Application{
		cfg:        cfg,
		httpServer: server,
		scheduler:  jobs,
	}, nil
}

// Start runs the HTTP server, the metrics endpoint, pprof and the sync jobs
// until one of them fails or the context is cancelled.
func (application *Application) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var eg errgroup.Group
	eg.Go(func() error {
		err := http.ListenAndServe("0.0.0.0:6060", nil)
		if err != nil {
			cancel()
		}
		return err
	})
	eg.Go(func() error {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		err := http.ListenAndServe(fmt.Sprintf(":%d", application.cfg.MetricsPort), mux)
		if err != nil {
			cancel()
		}
		return err
	})
	eg.Go(func() error {
		err := application.scheduler.Run(ctx)
		if err != nil {
			cancel()
		}
		return err
	})
	eg.Go(func() error {
		err := application.httpServer.Run()
		if err != nil {
			cancel()
		}
		return err
	})

	return eg.Wait()
}
