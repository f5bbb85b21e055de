package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/specialistvlad/routegrid/internal/ctxlog"
)

// Run loads the configuration and routes entries from the input until it is
// exhausted or ctx is cancelled. Every sink is closed before Run returns.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctxlog.WithLogger(ctx, a.logger))
	defer cancel()
	a.logger.Debug("App.Run method started.")

	if err := a.startHealthServer(ctx); err != nil {
		return err
	}
	defer a.stopHealthServer(ctx)

	if err := a.Load(ctx); err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	if a.config.Watch {
		stop, err := a.watch(ctx)
		if err != nil {
			return err
		}
		defer stop()
	}

	input, closeInput, err := a.openInput()
	if err != nil {
		return err
	}
	defer closeInput()

	a.logger.Info("🚀 Routing entries...", "sinks", a.registry.Names())
	if err := a.ingest(ctx, input); err != nil {
		return err
	}
	s := a.Status()
	a.logger.Info("🏁 Input finished.", "delivered", s.Delivered, "failed", s.Failed, "dropped", s.Dropped)
	return nil
}

func (a *App) openInput() (io.Reader, func(), error) {
	if a.config.InputPath == "" || a.config.InputPath == "-" {
		if a.input == nil {
			// Hide Close: blocking stdin reads do not return on close.
			return struct{ io.Reader }{os.Stdin}, func() {}, nil
		}
		return a.input, func() {}, nil
	}
	f, err := os.Open(a.config.InputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, func() { f.Close() }, nil
}
