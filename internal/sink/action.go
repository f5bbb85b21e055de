package sink

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/routegrid/internal/build"
	"github.com/specialistvlad/routegrid/internal/config"
	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"golang.org/x/sync/errgroup"
)

// Action is a live action able to receive entries.
type Action interface {
	build.Action
	Write(ctx context.Context, e Entry) error
}

type leafState int

const (
	leafIdle leafState = iota
	leafOpen
	leafClosed
)

// Leaf writes entries to a single opened Writer.
type Leaf struct {
	cfg   *config.ActionConfig
	kind  *Kind
	input any

	mu     sync.Mutex
	state  leafState
	writer Writer
}

func (l *Leaf) Config() *config.ActionConfig { return l.cfg }

// Input returns the decoded arguments.
func (l *Leaf) Input() any { return l.input }

// Open opens the underlying writer. Opening an open leaf does nothing.
func (l *Leaf) Open(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case leafOpen:
		return nil
	case leafClosed:
		return ErrSinkClosed
	}
	w, err := l.kind.Open(ctx, l.input)
	if err != nil {
		return fmt.Errorf("failed to open %s sink %q: %w", l.cfg.Type, l.cfg.Name, err)
	}
	if w == nil {
		return fmt.Errorf("%s sink %q opened without a writer", l.cfg.Type, l.cfg.Name)
	}
	l.writer = w
	l.state = leafOpen
	return nil
}

func (l *Leaf) Write(ctx context.Context, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case leafIdle:
		return ErrSinkNotOpen
	case leafClosed:
		return ErrSinkClosed
	}
	if err := l.writer.Write(ctx, e); err != nil {
		return fmt.Errorf("sink %q: %w", l.cfg.Name, err)
	}
	return nil
}

// Close closes the writer. Later writes fail with ErrSinkClosed.
func (l *Leaf) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.state
	l.state = leafClosed
	if prev != leafOpen {
		return nil
	}
	ctxlog.FromContext(ctx).Debug("Closing sink.", "sink", l.cfg.Name, "type", l.cfg.Type)
	w := l.writer
	l.writer = nil
	return w.Close()
}

// Sequence writes to its children in order. A failing child does not stop
// the remaining ones; all errors are joined.
type Sequence struct {
	cfg      *config.ActionConfig
	children []Action
}

func (s *Sequence) Config() *config.ActionConfig { return s.cfg }

// Children returns the child actions in order.
func (s *Sequence) Children() []Action { return s.children }

func (s *Sequence) Write(ctx context.Context, e Entry) error {
	var errs []error
	for _, child := range s.children {
		if err := child.Write(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Parallel writes to all children concurrently and waits for them. It
// returns the first error.
type Parallel struct {
	cfg      *config.ActionConfig
	children []Action
}

func (p *Parallel) Config() *config.ActionConfig { return p.cfg }

// Children returns the child actions.
func (p *Parallel) Children() []Action { return p.children }

func (p *Parallel) Write(ctx context.Context, e Entry) error {
	var g errgroup.Group
	for _, child := range p.children {
		g.Go(func() error {
			return child.Write(ctx, cloneEntry(e))
		})
	}
	return g.Wait()
}

// cloneEntry copies the fields map so concurrent writers never share it.
func cloneEntry(e Entry) Entry {
	if e.Fields == nil {
		return e
	}
	fields := make(map[string]any, len(e.Fields))
	for k, v := range e.Fields {
		fields[k] = v
	}
	e.Fields = fields
	return e
}

// Start is the starter callback for the route host. Only leaves hold
// resources; composites start implicitly through their children.
func Start(ctx context.Context, a build.Action) error {
	if leaf, ok := a.(*Leaf); ok {
		return leaf.Open(ctx)
	}
	return nil
}

// Close is the closer callback for the route host.
func Close(ctx context.Context, a build.Action) error {
	if leaf, ok := a.(*Leaf); ok {
		return leaf.Close(ctx)
	}
	return nil
}
