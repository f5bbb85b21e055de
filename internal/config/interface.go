package config

import (
	"context"
)

// Loader is the interface for a format-specific route configuration loader.
type Loader interface {
	// Load reads configuration from the given paths and translates it into
	// the format-agnostic root route definition.
	Load(ctx context.Context, paths ...string) (*RouteDef, error)
}
