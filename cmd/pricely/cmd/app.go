package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/donaldgifford/pricely/api/openapi"
	"github.com/donaldgifford/pricely/internal/api/handlers"
	mw "github.com/donaldgifford/pricely/internal/api/middleware"
	"github.com/donaldgifford/pricely/internal/config"
	"github.com/donaldgifford/pricely/internal/engine"
	"github.com/donaldgifford/pricely/internal/notify"
	"github.com/donaldgifford/pricely/internal/source"
	"github.com/donaldgifford/pricely/internal/store"
	"github.com/donaldgifford/pricely/internal/tracking"
	"github.com/donaldgifford/pricely/pkg/logger"
)

// app holds the wired server components.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	store     store.Store
	engine    *engine.Engine
	scheduler *engine.Scheduler
	service   *tracking.Service
	echo      *echo.Echo

	// closers release resources in reverse order of acquisition.
	closers []func() error
}

// newApp wires store, sources, notifications, engine, service and router
// from cfg. Nothing is started.
func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.store, err = a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	registry, browser, err := source.FromConfig(cfg.Sources, logger.Component(log, "source"))
	if browser != nil {
		a.closers = append(a.closers, browser.Close)
	}
	if err != nil {
		return nil, fmt.Errorf("building sources: %w", err)
	}
	if registry.Len() == 0 {
		log.Warn("no sources configured, every tracker URL will be rejected")
	}

	dispatcher, cleanup, err := notify.FromConfig(cfg.Notifications, logger.Component(log, "notify"))
	a.closers = append(a.closers, func() error { cleanup(); return nil })
	if err != nil {
		return nil, fmt.Errorf("building notification channels: %w", err)
	}

	m := cfg.Monitor
	a.engine = engine.NewEngine(a.store, registry, dispatcher,
		engine.WithLogger(logger.Component(log, "engine")),
		engine.WithWorkers(m.Workers),
		engine.WithTickInterval(m.TickInterval),
		engine.WithFetchTimeout(m.FetchTimeout),
		engine.WithStopGrace(m.StopGrace),
		engine.WithJitter(m.JitterFraction()),
		engine.WithDeliveryTimeout(m.DeliveryTimeout),
		engine.WithDefaultInterval(m.DefaultCheckInterval),
	)

	a.scheduler, err = engine.NewScheduler(a.engine, m.ResyncInterval, logger.Component(log, "scheduler"))
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}

	svcOpts := []tracking.Option{
		tracking.WithLogger(logger.Component(log, "tracking")),
		tracking.WithFetchTimeout(m.FetchTimeout),
		tracking.WithDefaultInterval(m.DefaultCheckInterval),
	}
	if mailer := notify.EmailFromConfig(cfg.Notifications); mailer != nil {
		svcOpts = append(svcOpts, tracking.WithWelcomeMailer(mailer))
	}
	a.service = tracking.NewService(a.store, registry, a.engine, svcOpts...)

	a.echo = newRouter(a.service, log)
	return a, nil
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	switch a.cfg.Database.Driver {
	case config.DriverMemory:
		a.log.Warn("using in-memory store, data is lost on exit")
		return store.NewMemoryStore(), nil
	default:
		pg, err := store.NewPostgresStore(ctx, a.cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.closers = append(a.closers, func() error { pg.Close(); return nil })
		return pg, nil
	}
}

// newRouter builds the echo server with middleware, the Prometheus endpoint
// and every API operation.
func newRouter(svc *tracking.Service, log *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(mw.Recovery(log))
	e.Use(mw.RequestLog(logger.Component(log, "http")))
	e.Use(mw.Metrics())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := humaecho.New(e, huma.DefaultConfig("pricely API", Version))
	handlers.RegisterHealthRoutes(api, handlers.NewHealthHandler(svc))
	handlers.RegisterUserRoutes(api, handlers.NewUserHandler(svc))
	handlers.RegisterTrackerRoutes(api, handlers.NewTrackerHandler(svc))
	handlers.RegisterNotificationRoutes(api, handlers.NewNotificationHandler(svc))
	openapi.RegisterRoutes(e, openapi.DefaultSpecPath)

	return e
}

// start launches the engine and the resync scheduler.
func (a *app) start(ctx context.Context) error {
	if err := a.engine.Start(ctx); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	a.scheduler.Start()
	return nil
}

// shutdown stops the scheduler and the engine, then releases resources.
func (a *app) shutdown(ctx context.Context) error {
	select {
	case <-a.scheduler.Stop().Done():
	case <-ctx.Done():
	}
	a.engine.Stop(ctx)
	return a.close()
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
