package config

import (
	"regexp"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// RoutePredicate decides whether an item name belongs to a sub-route. It must
// be pure: it is evaluated on every route lookup.
type RoutePredicate func(name string) bool

// RouteDef is a named route with its ordered meta-operations.
type RouteDef struct {
	Name string
	// ConfigData is forwarded untouched to route construction.
	ConfigData cty.Value
	Ops        []MetaOp
	// SubRoutes are resolved after the sub-routes declared through Ops.
	SubRoutes []*SubRouteDef

	DeclRange *hcl.Range
}

// SubRouteDef is a child route selected by Predicate.
type SubRouteDef struct {
	RouteDef
	Predicate RoutePredicate

	// ImportParentActions seeds the effective list with the parent's one.
	ImportParentActions bool
	// ImportParentDeclaredActionsAbove makes ancestor declarations visible to
	// Insert and Override. Disabling it also disables ImportParentActions.
	ImportParentDeclaredActionsAbove bool
}

// NewRoute creates a root route definition.
func NewRoute(name string, ops ...MetaOp) *RouteDef {
	return &RouteDef{Name: name, ConfigData: cty.NilVal, Ops: ops}
}

// NewSubRoute creates a sub-route that inherits both the parent's actions
// and its declarations.
func NewSubRoute(name string, pred RoutePredicate, ops ...MetaOp) *SubRouteDef {
	return &SubRouteDef{
		RouteDef:                         RouteDef{Name: name, ConfigData: cty.NilVal, Ops: ops},
		Predicate:                        pred,
		ImportParentActions:              true,
		ImportParentDeclaredActionsAbove: true,
	}
}

// Isolated disables inheritance of the parent's declarations, and with it
// the parent's actions.
func (s *SubRouteDef) Isolated() *SubRouteDef {
	s.ImportParentDeclaredActionsAbove = false
	s.ImportParentActions = false
	return s
}

// WithoutParentActions starts the sub-route from an empty effective list
// while keeping ancestor declarations visible.
func (s *SubRouteDef) WithoutParentActions() *SubRouteDef {
	s.ImportParentActions = false
	return s
}

// InheritsActions reports the effective action inheritance flag.
func (s *SubRouteDef) InheritsActions() bool {
	return s.ImportParentActions && s.ImportParentDeclaredActionsAbove
}

// WalkActions visits every action config reachable from d and its
// sub-routes, each at most once.
func (d *RouteDef) WalkActions(fn func(*ActionConfig)) {
	d.walkActions(make(map[*ActionConfig]struct{}), fn)
}

func (d *RouteDef) walkActions(seen map[*ActionConfig]struct{}, fn func(*ActionConfig)) {
	for _, op := range d.Ops {
		for _, cfg := range op.Actions {
			cfg.walk(seen, fn)
		}
		if op.SubRoute != nil {
			op.SubRoute.walkActions(seen, fn)
		}
	}
	for _, sub := range d.SubRoutes {
		if sub != nil {
			sub.walkActions(seen, fn)
		}
	}
}

// Prefix matches names starting with p.
func Prefix(p string) RoutePredicate {
	return func(name string) bool { return strings.HasPrefix(name, p) }
}

// Suffix matches names ending with s.
func Suffix(s string) RoutePredicate {
	return func(name string) bool { return strings.HasSuffix(name, s) }
}

// Exact matches a single name.
func Exact(n string) RoutePredicate {
	return func(name string) bool { return name == n }
}

// Regex matches names against re.
func Regex(re *regexp.Regexp) RoutePredicate {
	return re.MatchString
}

// All matches when every predicate matches. All() matches everything.
func All(preds ...RoutePredicate) RoutePredicate {
	return func(name string) bool {
		for _, p := range preds {
			if !p(name) {
				return false
			}
		}
		return true
	}
}
