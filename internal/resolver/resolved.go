package resolver

import (
	"strings"

	"github.com/specialistvlad/routegrid/internal/config"
	"github.com/zclconf/go-cty/cty"
)

// PathSeparator joins route and action names into a path.
const PathSeparator = "/"

// ResolvedAction is one entry of a route's effective action list.
type ResolvedAction struct {
	// Index is the position within the route's effective list.
	Index int
	// Name is the effective name, which differs from Config.Name for
	// actions contributed through Insert.
	Name string
	// Path is the route path followed by Name.
	Path   string
	Config *config.ActionConfig
}

// ResolvedRoute is the immutable outcome of resolving one route.
type ResolvedRoute struct {
	Name string
	// FullPath holds the ancestor names followed by Name.
	FullPath   []string
	ConfigData cty.Value
	// Predicate is nil for the root route.
	Predicate config.RoutePredicate
	Actions   []ResolvedAction
	Children  []*ResolvedRoute
}

// Path returns the route's full path joined with PathSeparator.
func (r *ResolvedRoute) Path() string {
	return strings.Join(r.FullPath, PathSeparator)
}

// ActionNames returns the effective names in order.
func (r *ResolvedRoute) ActionNames() []string {
	names := make([]string, len(r.Actions))
	for i, a := range r.Actions {
		names[i] = a.Name
	}
	return names
}

// Walk visits the route tree in pre-order.
func (r *ResolvedRoute) Walk(fn func(*ResolvedRoute)) {
	fn(r)
	for _, child := range r.Children {
		child.Walk(fn)
	}
}

// TotalActions counts effective actions across the whole tree.
func (r *ResolvedRoute) TotalActions() int {
	total := 0
	r.Walk(func(rr *ResolvedRoute) { total += len(rr.Actions) })
	return total
}

// Find returns the descendant reached by following the given names.
func (r *ResolvedRoute) Find(names ...string) (*ResolvedRoute, bool) {
	cur := r
	for _, name := range names {
		var next *ResolvedRoute
		for _, child := range cur.Children {
			if child.Name == name {
				next = child
				break
			}
		}
		if next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}
