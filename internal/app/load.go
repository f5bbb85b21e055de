package app

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/specialistvlad/routegrid/internal/host"
)

// Load reads the route configuration, checks it against the registered
// sinks and applies it to the host.
func (a *App) Load(ctx context.Context) error {
	ctx = a.logContext(ctx)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading route configuration...", "path", a.config.ConfigPath)

	def, err := a.loader.Load(ctx, a.config.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if diags := a.registry.Validate(ctx, def); diags.HasErrors() {
		return fmt.Errorf("configuration does not match the registered sinks: %w", diags)
	}
	if err := a.host.SetConfiguration(ctx, def, a.drainTimeout()); err != nil {
		return fmt.Errorf("failed to apply configuration: %w", err)
	}
	logger.Info("Route configuration loaded.", "route", def.Name, "generation", a.host.Generation())
	return nil
}

// reload is Load for configuration changes of a running App. Failures are
// logged and leave the host in whatever state SetConfiguration left it.
func (a *App) reload(ctx context.Context) {
	ctx = a.logContext(ctx)
	logger := ctxlog.FromContext(ctx)
	logger.Info("🔄 Configuration change detected, reloading...")
	if err := a.Load(ctx); err != nil {
		a.stats.reloadFailures.Add(1)
		logger.Error("Reload failed.", "error", err, "state", a.host.State())
		return
	}
	a.stats.reloads.Add(1)
}

func (a *App) drainTimeout() time.Duration {
	if a.config.DrainTimeout < 0 {
		return host.WaitForever
	}
	return a.config.DrainTimeout
}
