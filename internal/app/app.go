// Package app initializes and holds long-lived console services, acting as a
// dependency injection container for the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawler-console/internal/clock/system"
	"github.com/JakeFAU/crawler-console/internal/config"
	"github.com/JakeFAU/crawler-console/internal/console"
	"github.com/JakeFAU/crawler-console/internal/download"
	"github.com/JakeFAU/crawler-console/internal/id/uuid"
	"github.com/JakeFAU/crawler-console/internal/logging"
	"github.com/JakeFAU/crawler-console/internal/metrics"
	"github.com/JakeFAU/crawler-console/internal/policy/ratelimit"
	"github.com/JakeFAU/crawler-console/internal/prefs"
	"github.com/JakeFAU/crawler-console/internal/progress"
	"github.com/JakeFAU/crawler-console/internal/progress/sinks"
	"github.com/JakeFAU/crawler-console/internal/realtime"
	"github.com/JakeFAU/crawler-console/internal/service"
	"github.com/JakeFAU/crawler-console/internal/state"
	"github.com/JakeFAU/crawler-console/internal/telemetry"
	"github.com/JakeFAU/crawler-console/internal/transport"
)

// Version is reported as the service version on trace spans.
const Version = "1.0.0"

// Options overrides collaborators that tests replace.
type Options struct {
	// Logger replaces the logger built from cfg.Logging.
	Logger *zap.Logger
	// Registerer receives the task event collectors. Defaults to the global
	// Prometheus registry.
	Registerer prometheus.Registerer
	// Dialer replaces the websocket dialer.
	Dialer realtime.Dialer
	// SpanProcessors receive backend call spans when tracing is enabled.
	SpanProcessors []sdktrace.SpanProcessor
}

// App holds all the shared, long-lived services of one console session.
type App struct {
	Config     config.Config
	Logger     *zap.Logger
	Prefs      *prefs.Prefs
	Services   *service.Services
	Stores     *state.Stores
	Controller *console.Controller
	Watcher    *console.Watcher

	closeExport func() error
	stopPersist func()
	tracer      *sdktrace.TracerProvider
}

// New builds every service from cfg. It fails fast when the preference
// store, the transport or the export target cannot be initialized; whatever
// was already opened is released before the error is returned.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = logging.New(cfg.Logging.Development)
		if err != nil {
			return nil, err
		}
	}
	metrics.Init()
	logger.Debug("initializing console services")

	var undo cleanup
	fail := func(err error) (*App, error) {
		undo.run(context.WithoutCancel(ctx), logger)
		return nil, err
	}

	store, err := prefs.Open(cfg.Prefs, logger)
	if err != nil {
		return nil, fmt.Errorf("open prefs: %w", err)
	}
	p := prefs.New(store, logger)
	undo.push("close prefs", func(context.Context) error { return p.Close() })
	if cfg.API.AuthToken != "" {
		if err := p.SetToken(ctx, cfg.API.AuthToken); err != nil {
			return fail(fmt.Errorf("seed auth token: %w", err))
		}
	}

	var tp *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		tp, err = telemetry.InitTracerProvider(ctx, cfg.Tracing.ServiceName, Version, opts.SpanProcessors...)
		if err != nil {
			return fail(fmt.Errorf("init tracing: %w", err))
		}
		undo.push("shutdown tracing", tp.Shutdown)
	}
	tcfg := transport.Config{
		BaseURL: cfg.APIURL(),
		Timeout: cfg.RequestTimeout(),
		Tokens:  p.TokenSource(),
		Logger:  logger,
	}
	if cfg.API.MaxRPS > 0 {
		tcfg.Limiter = ratelimit.New(ratelimit.Config{DefaultRPS: cfg.API.MaxRPS, DefaultBurst: cfg.API.Burst})
	}
	if tp != nil {
		tcfg.Tracer = tp.Tracer("github.com/JakeFAU/crawler-console/internal/transport")
	}
	client, err := transport.New(tcfg)
	if err != nil {
		return fail(err)
	}
	services := service.New(client)

	stores := state.NewStores(uuid.New())
	stores.Results.SetPageSize(cfg.Results.PageSize)
	if err := p.Restore(ctx, stores); err != nil {
		logger.Warn("restore preferences failed", zap.Error(err))
	}

	clock := system.New()
	saver, closeExport, err := download.Open(ctx, cfg.Export, clock, logger)
	if err != nil {
		return fail(fmt.Errorf("open export target: %w", err))
	}
	undo.push("close export target", func(context.Context) error { return closeExport() })

	promSink, err := sinks.NewPrometheusSink(opts.Registerer)
	if err != nil {
		return fail(fmt.Errorf("register task metrics: %w", err))
	}

	dialer := opts.Dialer
	if dialer == nil {
		token, err := p.Token(ctx)
		if err != nil {
			logger.Warn("read auth token failed", zap.Error(err))
		}
		dialer = realtime.NewWSDialer(cfg.RequestTimeout(), cfg.WriteTimeout(), token)
	}
	watcher, err := console.NewWatcher(console.WatchConfig{
		PushRoot:          cfg.Realtime.PushRoot,
		Reconnect:         cfg.Realtime.Reconnect,
		ReconnectInterval: cfg.ReconnectInterval(),
		ReconnectAttempts: cfg.Realtime.ReconnectAttempts,
		EventBuffer:       cfg.Realtime.EventBuffer,
		Dialer:            dialer,
		Clock:             clock,
		Sinks:             []progress.Sink{promSink},
		Logger:            logger,
	}, stores.Tasks)
	if err != nil {
		return fail(err)
	}

	controller := console.New(services, stores, saver, logger)
	controller.SetDraftSaver(p)
	stopPersist := p.Persist(context.WithoutCancel(ctx), stores)

	logger.Debug("console services initialized", zap.String("api", cfg.APIURL()))
	return &App{
		Config:      cfg,
		Logger:      logger,
		Prefs:       p,
		Services:    services,
		Stores:      stores,
		Controller:  controller,
		Watcher:     watcher,
		closeExport: closeExport,
		stopPersist: stopPersist,
		tracer:      tp,
	}, nil
}

// cleanup releases partially built services in reverse order.
type cleanup struct {
	names []string
	funcs []func(context.Context) error
}

func (c *cleanup) push(name string, fn func(context.Context) error) {
	c.names = append(c.names, name)
	c.funcs = append(c.funcs, fn)
}

func (c *cleanup) run(ctx context.Context, logger *zap.Logger) {
	for i := len(c.funcs) - 1; i >= 0; i-- {
		if err := c.funcs[i](ctx); err != nil {
			logger.Warn("cleanup after failed init", zap.String("step", c.names[i]), zap.Error(err))
		}
	}
}

// ApplyPreset loads the named crawler preset into the draft.
func (a *App) ApplyPreset(name string) error {
	preset, ok := a.Config.Preset(name)
	if !ok {
		return fmt.Errorf("unknown preset %q", name)
	}
	a.Stores.Crawler.ApplyConfig(preset)
	return nil
}

// Ready reports whether the preference store answers.
func (a *App) Ready(ctx context.Context) error {
	if _, err := a.Prefs.Theme(ctx); err != nil {
		return fmt.Errorf("prefs unavailable: %w", err)
	}
	return nil
}

// Close stops watching, flushes pending task events, releases the
// preference store and export client and flushes spans. It is called by a cobra hook after the
// command finishes.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.stopPersist != nil {
		a.stopPersist()
	}
	if a.Watcher != nil {
		if err := a.Watcher.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close watcher: %w", err))
		}
	}
	if a.closeExport != nil {
		if err := a.closeExport(); err != nil {
			errs = append(errs, fmt.Errorf("close export target: %w", err))
		}
	}
	if a.Prefs != nil {
		if err := a.Prefs.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close prefs: %w", err))
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.Logger.Warn("error closing console services", zap.Error(err))
		return err
	}
	return nil
}

// GetLogger returns the session logger.
func (a *App) GetLogger() *zap.Logger { return a.Logger }

// GetConfig returns the loaded configuration.
func (a *App) GetConfig() config.Config { return a.Config }

// GetController returns the console controller.
func (a *App) GetController() *console.Controller { return a.Controller }

// GetStores returns the state containers.
func (a *App) GetStores() *state.Stores { return a.Stores }

// GetWatcher returns the push channel registry.
func (a *App) GetWatcher() *console.Watcher { return a.Watcher }
