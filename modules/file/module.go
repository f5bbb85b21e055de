// Package file provides the "file" sink, which appends every entry as a line
// to a local file.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/specialistvlad/routegrid/internal/registry"
	"github.com/specialistvlad/routegrid/internal/sink"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the file sink.
type Input struct {
	Path   string `hcl:"path"`
	Format string `hcl:"format,optional"`
	Mkdir  bool   `hcl:"mkdir,optional"`
}

type writer struct {
	mu     sync.Mutex
	f      *os.File
	format sink.Format
}

// Open opens input.Path for appending, creating it when missing.
func Open(ctx context.Context, raw any) (sink.Writer, error) {
	input := raw.(*Input)
	logger := ctxlog.FromContext(ctx).With("sink", "file", "path", input.Path)

	format, err := sink.ParseFormat(input.Format)
	if err != nil {
		return nil, err
	}
	if input.Path == "" {
		return nil, fmt.Errorf("path must not be empty")
	}
	if input.Mkdir {
		if err := os.MkdirAll(filepath.Dir(input.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	f, err := os.OpenFile(input.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	logger.Debug("Opened file sink.")
	return &writer{f: f, format: format}, nil
}

func (w *writer) Write(ctx context.Context, e sink.Entry) error {
	line, err := w.format.Encode(e)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.f.Write(append(line, '\n'))
	return err
}

func (w *writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// Register registers the sink with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterSink("file", &sink.Kind{
		NewInput: func() any { return new(Input) },
		Open:     Open,
	})
}
