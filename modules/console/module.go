// Package console provides the "console" sink, which prints every entry as a
// line on stdout or stderr.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/specialistvlad/routegrid/internal/registry"
	"github.com/specialistvlad/routegrid/internal/sink"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Stdout and Stderr default to the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Input defines the arguments for the console sink.
type Input struct {
	Format string `hcl:"format,optional"`
	Stream string `hcl:"stream,optional"`
}

type writer struct {
	mu     sync.Mutex
	out    io.Writer
	format sink.Format
}

func (m *Module) open(ctx context.Context, raw any) (sink.Writer, error) {
	input := raw.(*Input)
	format, err := sink.ParseFormat(input.Format)
	if err != nil {
		return nil, err
	}

	var out io.Writer
	switch input.Stream {
	case "", "stdout":
		out = m.Stdout
		if out == nil {
			out = os.Stdout
		}
	case "stderr":
		out = m.Stderr
		if out == nil {
			out = os.Stderr
		}
	default:
		return nil, fmt.Errorf("unsupported stream %q, expected \"stdout\" or \"stderr\"", input.Stream)
	}
	return &writer{out: out, format: format}, nil
}

func (w *writer) Write(ctx context.Context, e sink.Entry) error {
	line, err := w.format.Encode(e)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintf(w.out, "%s\n", line)
	return err
}

// Close leaves the process streams open.
func (w *writer) Close() error { return nil }

// Register registers the sink with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterSink("console", &sink.Kind{
		NewInput: func() any { return new(Input) },
		Open:     m.open,
	})
}
