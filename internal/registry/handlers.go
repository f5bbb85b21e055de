package registry

import (
	"fmt"
	"log/slog"

	"github.com/specialistvlad/routegrid/internal/sink"
)

// RegisterSink registers the Go functions implementing a sink type.
func (r *Registry) RegisterSink(name string, kind *sink.Kind) {
	if _, exists := r.sinks[name]; exists {
		panic(fmt.Sprintf("sink with name '%s' already registered", name))
	}
	if kind == nil || kind.Open == nil {
		panic(fmt.Sprintf("sink '%s' registered without an Open function", name))
	}
	slog.Debug("Registering sink.", "name", name)
	r.sinks[name] = kind
}
