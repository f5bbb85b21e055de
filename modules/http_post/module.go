// Package http_post provides the "http_post" sink, which POSTs every entry as
// a JSON document to a URL.
package http_post

import (
	"github.com/specialistvlad/routegrid/internal/registry"
	"github.com/specialistvlad/routegrid/internal/sink"
)

// Module implements the registry.Module interface. It's the main entrypoint
// for the http_post module.
type Module struct{}

// Register registers the sink with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterSink("http_post", &sink.Kind{
		NewInput: func() any { return new(Input) },
		Open:     open,
	})
}
