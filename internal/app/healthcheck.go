package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/specialistvlad/routegrid/internal/host"
)

const healthShutdownTimeout = 5 * time.Second

// Status is the body served by /status.
type Status struct {
	State          string `json:"state"`
	Generation     string `json:"generation,omitempty"`
	Applied        int64  `json:"applied"`
	Reloads        int64  `json:"reloads"`
	ReloadFailures int64  `json:"reload_failures"`
	Delivered      int64  `json:"delivered"`
	Failed         int64  `json:"failed"`
	Dropped        int64  `json:"dropped"`
	Backlog        int64  `json:"backlog"`
}

// Status reports the host state and the ingestion counters.
func (a *App) Status() Status {
	s := Status{
		State:          a.host.State().String(),
		Applied:        a.host.AppliedCount(),
		Reloads:        a.stats.reloads.Load(),
		ReloadFailures: a.stats.reloadFailures.Load(),
		Delivered:      a.stats.delivered.Load(),
		Failed:         a.stats.failed.Load(),
		Dropped:        a.stats.dropped.Load(),
		Backlog:        a.stats.backlog.Load(),
	}
	if gen := a.host.Generation(); gen != uuid.Nil {
		s.Generation = gen.String()
	}
	return s
}

// healthMux serves liveness on /health, readiness on /ready and the
// counters on /status.
func (a *App) healthMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr)
		fmt.Fprintln(w, "OK")
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		// Closed also covers a failed start, so only Active is ready.
		if state := a.host.State(); state != host.StateActive {
			http.Error(w, state.String(), http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, "READY")
	})
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(a.Status()); err != nil {
			a.logger.Error("Failed to encode status.", "error", err)
		}
	})
	return mux
}

// startHealthServer binds the health check port and serves it in the
// background. A port that cannot be bound fails the start.
func (a *App) startHealthServer(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if a.config.HealthcheckPort <= 0 {
		logger.Debug("Health check server not started: disabled")
		return nil
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.config.HealthcheckPort))
	if err != nil {
		return fmt.Errorf("failed to start health check server: %w", err)
	}
	a.httpServer = &http.Server{
		Handler:           a.healthMux(),
		ReadHeaderTimeout: healthShutdownTimeout,
	}

	logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://%s/health", ln.Addr()))
	go func() {
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
	return nil
}

func (a *App) stopHealthServer(ctx context.Context) {
	if a.httpServer == nil {
		return
	}
	logger := ctxlog.FromContext(ctx)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), healthShutdownTimeout)
	defer cancel()

	logger.Info("🩺 Shutting down health check server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Health check server shutdown failed", "error", err)
	}
}
