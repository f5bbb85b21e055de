package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// ActionKind tags the variant held by an ActionConfig.
type ActionKind int

const (
	// KindLeaf is an action configuration opaque to the core.
	KindLeaf ActionKind = iota
	// KindSequence runs its children in order.
	KindSequence
	// KindParallel runs its children concurrently.
	KindParallel
)

func (k ActionKind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindSequence:
		return "sequence"
	case KindParallel:
		return "parallel"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

// ActionConfig is a named configuration unit. Identity is pointer identity:
// two configs with the same Name are distinct unless one supersedes the other
// through an Override.
type ActionConfig struct {
	Name      string
	Kind      ActionKind
	Cloneable bool

	// Type names the sink kind of a leaf. Ignored for composites.
	Type string
	// Arguments is the raw leaf payload, decoded by the action factory.
	Arguments hcl.Body

	// Children holds the ordered child configs of a composite.
	Children []*ActionConfig

	// DeclRange points at the definition in the source file, when known.
	DeclRange *hcl.Range
}

// Leaf creates a leaf action configuration of the given sink type.
func Leaf(sinkType, name string, args hcl.Body) *ActionConfig {
	return &ActionConfig{Name: name, Kind: KindLeaf, Type: sinkType, Arguments: args}
}

// Sequence creates a composite whose children run in order.
func Sequence(name string, children ...*ActionConfig) *ActionConfig {
	return &ActionConfig{Name: name, Kind: KindSequence, Children: children}
}

// Parallel creates a composite whose children run concurrently.
func Parallel(name string, children ...*ActionConfig) *ActionConfig {
	return &ActionConfig{Name: name, Kind: KindParallel, Children: children}
}

// IsComposite reports whether the config aggregates child configs.
func (c *ActionConfig) IsComposite() bool {
	return c.Kind == KindSequence || c.Kind == KindParallel
}

// WithCloneable marks the config as cloneable and returns it.
func (c *ActionConfig) WithCloneable() *ActionConfig {
	c.Cloneable = true
	return c
}

// Walk visits c and every descendant in pre-order, each config at most once.
func (c *ActionConfig) Walk(fn func(*ActionConfig)) {
	c.walk(make(map[*ActionConfig]struct{}), fn)
}

func (c *ActionConfig) walk(seen map[*ActionConfig]struct{}, fn func(*ActionConfig)) {
	if c == nil {
		return
	}
	if _, ok := seen[c]; ok {
		return
	}
	seen[c] = struct{}{}
	fn(c)
	for _, child := range c.Children {
		child.walk(seen, fn)
	}
}
