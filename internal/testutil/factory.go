// Package testutil provides fakes shared by the package tests: a recording
// action factory with lifecycle callbacks, and a recording sink module.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/routegrid/internal/build"
	"github.com/specialistvlad/routegrid/internal/config"
	"github.com/zclconf/go-cty/cty"
)

// FakeAction is the action produced by FakeFactory.
type FakeAction struct {
	ID       int
	Cfg      *config.ActionConfig
	Children []build.Action
	CloneOf  *FakeAction

	started atomic.Int32
	closed  atomic.Int32
	// closedWhileInUse counts closes observed while a reader held the action.
	closedWhileInUse atomic.Int32
	inUse            atomic.Int32
}

func (a *FakeAction) Config() *config.ActionConfig { return a.Cfg }

// Name returns the config name.
func (a *FakeAction) Name() string { return a.Cfg.Name }

// Started reports how many times the action was started.
func (a *FakeAction) Started() int { return int(a.started.Load()) }

// Closed reports how many times the action was closed.
func (a *FakeAction) Closed() int { return int(a.closed.Load()) }

// ClosedWhileInUse reports how many closes raced with a reader.
func (a *FakeAction) ClosedWhileInUse() int { return int(a.closedWhileInUse.Load()) }

// Use marks the action as used until the returned function is called. It
// reports false when the action was already closed.
func (a *FakeAction) Use() (bool, func()) {
	a.inUse.Add(1)
	return a.closed.Load() == 0, func() { a.inUse.Add(-1) }
}

// FakeRoute is the route produced by FakeFactory.
type FakeRoute struct {
	RouteName string
	Actions   []build.Action
	Data      cty.Value
	Ancestors []build.Route
}

func (r *FakeRoute) Name() string { return r.RouteName }

// ActionNames returns the config names of the route's actions.
func (r *FakeRoute) ActionNames() []string {
	names := make([]string, len(r.Actions))
	for i, a := range r.Actions {
		names[i] = a.Config().Name
	}
	return names
}

// emptyRoute is shared by every FakeFactory.
var emptyRoute = &FakeRoute{RouteName: "<empty>"}

// FakeFactory records every call it receives. Fail* fields make the named
// config or route fail creation.
type FakeFactory struct {
	FailLeaf   string
	PanicLeaf  string
	FailRoute  string
	FailInit   bool
	CloneLeafs bool

	mu      sync.Mutex
	calls   []string
	results []bool
	nextID  int
}

// Calls returns the recorded calls in order.
func (f *FakeFactory) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Uninitialized returns the success flags passed to Uninitialize.
func (f *FakeFactory) Uninitialized() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.results...)
}

func (f *FakeFactory) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *FakeFactory) newAction(cfg *config.ActionConfig, children []build.Action) *FakeAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return &FakeAction{ID: f.nextID, Cfg: cfg, Children: children}
}

func (f *FakeFactory) Initialize(ctx context.Context) error {
	f.record("init")
	if f.FailInit {
		return fmt.Errorf("init failed")
	}
	return nil
}

func (f *FakeFactory) Uninitialize(ctx context.Context, success bool) {
	f.record(fmt.Sprintf("uninit:%t", success))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, success)
}

func (f *FakeFactory) CreateLeaf(ctx context.Context, cfg *config.ActionConfig) (build.Action, error) {
	f.record("leaf:" + cfg.Name)
	if cfg.Name == f.PanicLeaf {
		panic("leaf " + cfg.Name)
	}
	if cfg.Name == f.FailLeaf {
		return nil, fmt.Errorf("leaf %s failed", cfg.Name)
	}
	return f.newAction(cfg, nil), nil
}

func (f *FakeFactory) CreateSequence(ctx context.Context, cfg *config.ActionConfig, children []build.Action) (build.Action, error) {
	f.record("sequence:" + cfg.Name)
	return f.newAction(cfg, children), nil
}

func (f *FakeFactory) CreateParallel(ctx context.Context, cfg *config.ActionConfig, children []build.Action) (build.Action, error) {
	f.record("parallel:" + cfg.Name)
	return f.newAction(cfg, children), nil
}

func (f *FakeFactory) CreateRoute(ctx context.Context, actions []build.Action, name string, data cty.Value, ancestors []build.Route) (build.Route, error) {
	f.record("route:" + name)
	if name == f.FailRoute {
		return nil, fmt.Errorf("route %s failed", name)
	}
	return &FakeRoute{RouteName: name, Actions: actions, Data: data, Ancestors: ancestors}, nil
}

func (f *FakeFactory) EmptyRoute() build.Route { return emptyRoute }

func (f *FakeFactory) CloneAction(ctx context.Context, cfg *config.ActionConfig, cached build.Action) (build.Action, error) {
	f.record("clone:" + cfg.Name)
	if !f.CloneLeafs {
		return cached, nil
	}
	clone := f.newAction(cfg, cached.(*FakeAction).Children)
	clone.CloneOf = cached.(*FakeAction)
	return clone, nil
}

// Lifecycle records starter and closer invocations. Actions whose config
// name is in FailStart or FailClose fail the respective callback.
type Lifecycle struct {
	FailStart map[string]bool
	FailClose map[string]bool

	mu     sync.Mutex
	events []string
}

// Start is a starter callback.
func (l *Lifecycle) Start(ctx context.Context, a build.Action) error {
	fa := a.(*FakeAction)
	l.log("start:" + fa.Name())
	if l.FailStart[fa.Name()] {
		return fmt.Errorf("start %s failed", fa.Name())
	}
	fa.started.Add(1)
	return nil
}

// Close is a closer callback.
func (l *Lifecycle) Close(ctx context.Context, a build.Action) error {
	fa := a.(*FakeAction)
	l.log("close:" + fa.Name())
	if fa.inUse.Load() > 0 {
		fa.closedWhileInUse.Add(1)
	}
	fa.closed.Add(1)
	if l.FailClose[fa.Name()] {
		return fmt.Errorf("close %s failed", fa.Name())
	}
	return nil
}

// Events returns the recorded callbacks in order.
func (l *Lifecycle) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *Lifecycle) log(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}
