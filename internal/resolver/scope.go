package resolver

import "github.com/specialistvlad/routegrid/internal/config"

// scope is a route's declaration table. It is filled during the declare
// phase of its own route and is read-only afterwards, so child routes can
// chain to it without copying.
type scope struct {
	parent    *scope
	entries   map[string]*config.ActionConfig
	overrides map[string]*config.ActionConfig
}

func newScope(parent *scope) *scope {
	return &scope{
		parent:    parent,
		entries:   make(map[string]*config.ActionConfig),
		overrides: make(map[string]*config.ActionConfig),
	}
}

// lookup walks the scope chain from the innermost table outwards.
func (s *scope) lookup(name string) (*config.ActionConfig, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if cfg, ok := sc.entries[name]; ok {
			return cfg, true
		}
	}
	return nil, false
}

func (s *scope) declaredHere(name string) bool {
	_, ok := s.entries[name]
	return ok
}

func (s *scope) declare(cfg *config.ActionConfig) {
	s.entries[cfg.Name] = cfg
}

func (s *scope) override(cfg *config.ActionConfig) {
	s.entries[cfg.Name] = cfg
	s.overrides[cfg.Name] = cfg
}

// overridden returns the replacement this scope holds for an inherited entry.
func (s *scope) overridden(name string) (*config.ActionConfig, bool) {
	cfg, ok := s.overrides[name]
	return cfg, ok
}
