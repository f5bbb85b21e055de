package sink

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/specialistvlad/routegrid/internal/build"
	"github.com/specialistvlad/routegrid/internal/config"
	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Factory implements build.Factory and build.Cloner for log sinks. Leaf
// arguments are decoded when the leaf is created; nothing is opened until
// the host starts the action.
type Factory struct {
	kinds   Kinds
	environ func() []string

	// evalCtx is rebuilt by every Initialize.
	evalCtx *hcl.EvalContext
	created int
}

// NewFactory creates a factory resolving leaf types through kinds.
func NewFactory(kinds Kinds) *Factory {
	return &Factory{kinds: kinds, environ: os.Environ}
}

// Initialize snapshots the process environment into the evaluation context
// used for leaf arguments, exposed as env.<NAME>.
func (f *Factory) Initialize(ctx context.Context) error {
	f.evalCtx = buildEvalContext(f.environ())
	f.created = 0
	ctxlog.FromContext(ctx).Debug("Sink factory initialized.")
	return nil
}

func (f *Factory) Uninitialize(ctx context.Context, success bool) {
	ctxlog.FromContext(ctx).Debug("Sink factory uninitialized.", "success", success, "created", f.created)
	f.evalCtx = nil
}

func buildEvalContext(environ []string) *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, e := range environ {
		name, value, ok := strings.Cut(e, "=")
		if !ok || name == "" {
			continue
		}
		env[name] = cty.StringVal(value)
	}
	vars := map[string]cty.Value{
		"env": cty.ObjectVal(env),
	}
	return &hcl.EvalContext{Variables: vars}
}

func (f *Factory) CreateLeaf(ctx context.Context, cfg *config.ActionConfig) (build.Action, error) {
	kind, ok := f.kinds.Kind(cfg.Type)
	if !ok {
		return nil, fmt.Errorf("unknown sink type %q", cfg.Type)
	}

	var input any
	if kind.NewInput != nil {
		input = kind.NewInput()
		if cfg.Arguments != nil {
			if diags := gohcl.DecodeBody(cfg.Arguments, f.evalCtx, input); diags.HasErrors() {
				return nil, fmt.Errorf("invalid arguments for %s sink %q: %w", cfg.Type, cfg.Name, diags)
			}
		}
	}

	f.created++
	ctxlog.FromContext(ctx).Debug("Created sink.", "sink", cfg.Name, "type", cfg.Type)
	return &Leaf{cfg: cfg, kind: kind, input: input}, nil
}

func (f *Factory) CreateSequence(ctx context.Context, cfg *config.ActionConfig, children []build.Action) (build.Action, error) {
	actions, err := asActions(children)
	if err != nil {
		return nil, fmt.Errorf("sequence %q: %w", cfg.Name, err)
	}
	f.created++
	return &Sequence{cfg: cfg, children: actions}, nil
}

func (f *Factory) CreateParallel(ctx context.Context, cfg *config.ActionConfig, children []build.Action) (build.Action, error) {
	actions, err := asActions(children)
	if err != nil {
		return nil, fmt.Errorf("parallel %q: %w", cfg.Name, err)
	}
	f.created++
	return &Parallel{cfg: cfg, children: actions}, nil
}

// CreateRoute decodes the route data and inherits min_level and fields from
// the closest ancestors that set them.
func (f *Factory) CreateRoute(ctx context.Context, actions []build.Action, name string, data cty.Value, ancestors []build.Route) (build.Route, error) {
	live, err := asActions(actions)
	if err != nil {
		return nil, fmt.Errorf("route %q: %w", name, err)
	}
	decoded, err := decodeRouteData(data)
	if err != nil {
		return nil, fmt.Errorf("route %q: %w", name, err)
	}

	route := &Route{
		name:    name,
		actions: live,
		data:    data,
		fields:  make(map[string]string),
	}
	for _, a := range ancestors {
		parent, ok := a.(*Route)
		if !ok {
			return nil, fmt.Errorf("route %q: unexpected ancestor type %T", name, a)
		}
		route.ancestors = append(route.ancestors, parent)
		route.path = append(route.path, parent.name)
	}
	route.path = append(route.path, name)

	if n := len(route.ancestors); n > 0 {
		parent := route.ancestors[n-1]
		route.minLevel, route.hasMinLevel = parent.minLevel, parent.hasMinLevel
		maps.Copy(route.fields, parent.fields)
	}
	if decoded.hasMinLevel {
		route.minLevel, route.hasMinLevel = decoded.minLevel, true
	}
	maps.Copy(route.fields, decoded.fields)

	ctxlog.FromContext(ctx).Debug("Created route.", "route", route.Path(), "actions", len(live))
	return route, nil
}

func (f *Factory) EmptyRoute() build.Route { return emptyRoute }

// CloneAction gives each additional reference to a cloneable config its own
// instance. Leaves are decoded again; composites share their children.
func (f *Factory) CloneAction(ctx context.Context, cfg *config.ActionConfig, cached build.Action) (build.Action, error) {
	switch a := cached.(type) {
	case *Leaf:
		return f.CreateLeaf(ctx, cfg)
	case *Sequence:
		f.created++
		return &Sequence{cfg: cfg, children: slices.Clone(a.children)}, nil
	case *Parallel:
		f.created++
		return &Parallel{cfg: cfg, children: slices.Clone(a.children)}, nil
	default:
		return nil, fmt.Errorf("cannot clone %T", cached)
	}
}

func asActions(in []build.Action) ([]Action, error) {
	out := make([]Action, len(in))
	for i, a := range in {
		live, ok := a.(Action)
		if !ok {
			return nil, fmt.Errorf("unexpected action type %T", a)
		}
		out[i] = live
	}
	return out, nil
}
