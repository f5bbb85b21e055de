package host

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/specialistvlad/routegrid/internal/guard"
)

// EventType identifies a host lifecycle notification.
type EventType string

const (
	// EventConfigClosing fires once the host stopped handing out routes of
	// the current generation and before it starts draining.
	EventConfigClosing EventType = "host.config.closing"
	// EventConfigReady fires after every new action started, right before
	// the ready callback runs.
	EventConfigReady EventType = "host.config.ready"
	// EventConfigApplied fires when the new generation becomes Active.
	EventConfigApplied EventType = "host.config.applied"
	// EventConfigFailed fires when a reconfiguration pass fails.
	EventConfigFailed EventType = "host.config.failed"
	// EventDrainTimeout fires when readers were still in flight at cutover.
	EventDrainTimeout EventType = "host.drain.timeout"
	// EventActionCloseFailed fires for every closer error.
	EventActionCloseFailed EventType = "host.action.close_failed"
	// EventClosed fires when the host was closed directly.
	EventClosed EventType = "host.closed"
)

// Event is a notification emitted synchronously by the host.
type Event struct {
	Type      EventType
	Timestamp time.Time
	// Generation identifies the configuration the event is about. It is
	// uuid.Nil when no generation was involved.
	Generation uuid.UUID
	Data       map[string]any
}

// Observer receives host events. OnEvent runs on the goroutine driving the
// host and must not call back into SetConfiguration or DirectClose.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, event Event)

func (f ObserverFunc) OnEvent(ctx context.Context, event Event) { f(ctx, event) }

// SlogObserver writes every event to the context logger. Failures are logged
// at warn level, everything else at debug.
type SlogObserver struct{}

func (SlogObserver) OnEvent(ctx context.Context, event Event) {
	level := slog.LevelDebug
	switch event.Type {
	case EventConfigFailed, EventDrainTimeout, EventActionCloseFailed:
		level = slog.LevelWarn
	}
	attrs := make([]slog.Attr, 0, len(event.Data)+1)
	if event.Generation != uuid.Nil {
		attrs = append(attrs, slog.String("generation", event.Generation.String()))
	}
	for k, v := range event.Data {
		attrs = append(attrs, slog.Any(k, v))
	}
	ctxlog.FromContext(ctx).LogAttrs(ctx, level, string(event.Type), attrs...)
}

func (h *Host) emit(ctx context.Context, typ EventType, gen uuid.UUID, data map[string]any) {
	event := Event{Type: typ, Timestamp: time.Now(), Generation: gen, Data: data}
	for _, obs := range h.observers {
		err := guard.Call(func() error {
			obs.OnEvent(ctx, event)
			return nil
		})
		if err != nil {
			ctxlog.FromContext(ctx).Error("Observer failed.", "event", typ, "error", err)
		}
	}
}
