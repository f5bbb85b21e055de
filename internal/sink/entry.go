// Package sink is the concrete action factory of routegrid: it turns action
// configs into live log sinks and routes that dispatch log entries to them.
//
// Leaf actions wrap a Writer opened from a registered Kind. Writers are
// opened by Start and closed by Close, the starter and closer callbacks
// handed to the route host. A closed leaf rejects writes with ErrSinkClosed,
// so a straggling reader racing a forced cutover gets an error instead of
// touching a released handle.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

var (
	// ErrSinkClosed is returned when writing to a closed leaf.
	ErrSinkClosed = errors.New("sink is closed")
	// ErrSinkNotOpen is returned when writing to a leaf that was never started.
	ErrSinkNotOpen = errors.New("sink is not open")
)

// Entry is a single log record flowing through a route.
type Entry struct {
	Time    time.Time      `json:"time"`
	Route   string         `json:"route"`
	Level   slog.Level     `json:"level"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// ParseLevel parses a level name such as "info" or "WARN+2".
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid level %q: %w", s, err)
	}
	return level, nil
}

// Writer is an opened sink.
type Writer interface {
	Write(ctx context.Context, e Entry) error
	Close() error
}

// Kind describes one registered sink type.
type Kind struct {
	// NewInput returns a pointer to the struct the leaf's arguments block is
	// decoded into with gohcl.
	NewInput func() any
	// Open opens a writer for a decoded input.
	Open func(ctx context.Context, input any) (Writer, error)
}

// Kinds looks up registered sink kinds.
type Kinds interface {
	Kind(name string) (*Kind, bool)
}
