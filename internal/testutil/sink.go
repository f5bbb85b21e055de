package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/specialistvlad/routegrid/internal/registry"
	"github.com/specialistvlad/routegrid/internal/sink"
	"github.com/stretchr/testify/require"
)

// RecordInput is the arguments block of the "record" sink.
type RecordInput struct {
	Label     string `hcl:"label,optional"`
	FailOpen  bool   `hcl:"fail_open,optional"`
	FailWrite bool   `hcl:"fail_write,optional"`
}

// Recorder is a sink module that keeps every written entry in memory, keyed
// by label. Register it with a registry to make the "record" type available.
type Recorder struct {
	mu      sync.Mutex
	entries map[string][]sink.Entry
	opened  map[string]int
	closed  map[string]int
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		entries: make(map[string][]sink.Entry),
		opened:  make(map[string]int),
		closed:  make(map[string]int),
	}
}

// Register implements registry.Module.
func (r *Recorder) Register(reg *registry.Registry) {
	reg.RegisterSink("record", &sink.Kind{
		NewInput: func() any { return new(RecordInput) },
		Open:     r.open,
	})
}

func (r *Recorder) open(ctx context.Context, input any) (sink.Writer, error) {
	in := input.(*RecordInput)
	if in.FailOpen {
		return nil, fmt.Errorf("record sink %q refused to open", in.Label)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened[in.Label]++
	return &recordWriter{rec: r, input: in}, nil
}

// Entries returns the entries written under label.
func (r *Recorder) Entries(label string) []sink.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sink.Entry(nil), r.entries[label]...)
}

// Messages returns the messages written under label.
func (r *Recorder) Messages(label string) []string {
	entries := r.Entries(label)
	msgs := make([]string, len(entries))
	for i, e := range entries {
		msgs[i] = e.Message
	}
	return msgs
}

// Opened returns how many writers were opened under label.
func (r *Recorder) Opened(label string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened[label]
}

// Closed returns how many writers were closed under label.
func (r *Recorder) Closed(label string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed[label]
}

type recordWriter struct {
	rec   *Recorder
	input *RecordInput
}

func (w *recordWriter) Write(ctx context.Context, e sink.Entry) error {
	if w.input.FailWrite {
		return fmt.Errorf("record sink %q refused to write", w.input.Label)
	}
	w.rec.mu.Lock()
	defer w.rec.mu.Unlock()
	w.rec.entries[w.input.Label] = append(w.rec.entries[w.input.Label], e)
	return nil
}

func (w *recordWriter) Close() error {
	w.rec.mu.Lock()
	defer w.rec.mu.Unlock()
	w.rec.closed[w.input.Label]++
	return nil
}

// SinkInput registers m, looks up kind and decodes src into a fresh input for
// it. Tests then call Open on the returned kind.
func SinkInput(t *testing.T, m registry.Module, kind, src string) (*sink.Kind, any) {
	t.Helper()
	reg := registry.New()
	m.Register(reg)
	k, ok := reg.Kind(kind)
	require.True(t, ok, "sink %q not registered", kind)
	input := k.NewInput()
	diags := gohcl.DecodeBody(Body(t, src), nil, input)
	require.False(t, diags.HasErrors(), diags.Error())
	return k, input
}
