package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// OpKind tags the variant held by a MetaOp.
type OpKind int

const (
	OpAdd OpKind = iota
	OpDeclare
	OpOverride
	OpRemove
	OpInsert
	OpDeclareSubRoute
)

func (k OpKind) String() string {
	switch k {
	case OpAdd:
		return "add"
	case OpDeclare:
		return "declare"
	case OpOverride:
		return "override"
	case OpRemove:
		return "remove"
	case OpInsert:
		return "insert"
	case OpDeclareSubRoute:
		return "sub_route"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

// MetaOp is one declarative instruction operating on a route's pending
// action set. Only the fields relevant to Kind are set.
type MetaOp struct {
	Kind OpKind

	// Actions is used by Add, Declare and Override.
	Actions []*ActionConfig
	// Names is used by Remove.
	Names []string
	// Name and DeclaredName are used by Insert.
	Name         string
	DeclaredName string
	// SubRoute is used by DeclareSubRoute.
	SubRoute *SubRouteDef

	DeclRange *hcl.Range
}

// Add declares the configs and appends them to the route's effective list.
func Add(actions ...*ActionConfig) MetaOp {
	return MetaOp{Kind: OpAdd, Actions: actions}
}

// Declare makes the configs visible to Insert without using them.
func Declare(actions ...*ActionConfig) MetaOp {
	return MetaOp{Kind: OpDeclare, Actions: actions}
}

// Override replaces already declared configs of the same names.
func Override(actions ...*ActionConfig) MetaOp {
	return MetaOp{Kind: OpOverride, Actions: actions}
}

// Remove deletes actions by name from the effective list. Absent names are ignored.
func Remove(names ...string) MetaOp {
	return MetaOp{Kind: OpRemove, Names: names}
}

// Insert appends the config declared as declaredName under the effective
// name name. An empty name reuses declaredName.
func Insert(name, declaredName string) MetaOp {
	return MetaOp{Kind: OpInsert, Name: name, DeclaredName: declaredName}
}

// DeclareSubRoute registers a child route.
func DeclareSubRoute(sub *SubRouteDef) MetaOp {
	return MetaOp{Kind: OpDeclareSubRoute, SubRoute: sub}
}

// EffectiveName is the name an Insert op contributes to the effective list.
func (op MetaOp) EffectiveName() string {
	if op.Name != "" {
		return op.Name
	}
	return op.DeclaredName
}
