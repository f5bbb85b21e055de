package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/specialistvlad/routegrid/internal/config"
	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/specialistvlad/routegrid/internal/host"
	"github.com/specialistvlad/routegrid/internal/registry"
	"github.com/specialistvlad/routegrid/internal/sink"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	input  io.Reader
	logger *slog.Logger

	config   *Config
	loader   config.Loader
	registry *registry.Registry
	host     *host.Host

	httpServer *http.Server
	stats      stats
	// backlog is only touched by the ingestion loop.
	backlog []sink.Entry
}

type stats struct {
	delivered      atomic.Int64
	failed         atomic.Int64
	dropped        atomic.Int64
	backlog        atomic.Int64
	reloads        atomic.Int64
	reloadFailures atomic.Int64
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger, registry and route
// host. Nothing is loaded until Run or Load is called. Entries are read from
// input unless appConfig.InputPath is set. Without modules the core sink
// modules are registered.
func NewApp(outW io.Writer, input io.Reader, appConfig *Config, loader config.Loader, modules ...registry.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules(outW)
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All sink modules registered.", "count", len(modules), "sinks", reg.Names())

	h := host.New(sink.NewFactory(reg),
		host.WithStarter(sink.Start),
		host.WithCloser(sink.Close),
		host.WithObserver(host.SlogObserver{}),
	)

	return &App{
		outW:     outW,
		input:    input,
		logger:   logger,
		config:   appConfig,
		loader:   loader,
		registry: reg,
		host:     h,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Host returns the route host entries are dispatched through.
func (a *App) Host() *host.Host {
	return a.host
}

// Close closes every live sink without waiting for in-flight entries.
func (a *App) Close(ctx context.Context) {
	a.host.DirectClose(a.logContext(ctx))
}

// logContext attaches the App's own logger, so exported entry points log to
// outW whatever context the caller passes.
func (a *App) logContext(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
