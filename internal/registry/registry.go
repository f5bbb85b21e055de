package registry

import (
	"slices"

	"github.com/specialistvlad/routegrid/internal/sink"
)

// Module is the interface that all sink modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the sink kinds of a single application instance.
type Registry struct {
	sinks map[string]*sink.Kind
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		sinks: make(map[string]*sink.Kind),
	}
}

// Kind returns the kind registered under name. It makes Registry a sink.Kinds.
func (r *Registry) Kind(name string) (*sink.Kind, bool) {
	k, ok := r.sinks[name]
	return k, ok
}

// Names returns the registered kind names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sinks))
	for name := range r.sinks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
