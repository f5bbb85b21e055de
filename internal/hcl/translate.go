// This file translates parsed HCL blocks into the format-agnostic route model.

package hcl

import (
	"fmt"
	"regexp"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/specialistvlad/routegrid/internal/config"
	"github.com/zclconf/go-cty/cty"
)

// translator collects diagnostics across one route tree.
type translator struct {
	evalCtx *hcl.EvalContext
	diags   hcl.Diagnostics
}

func (t *translator) report(diags hcl.Diagnostics) {
	t.diags = append(t.diags, diags...)
}

func (t *translator) route(block *hcl.Block) *config.RouteDef {
	def := config.NewRoute(block.Labels[0])
	def.DeclRange = block.DefRange.Ptr()

	content, diags := block.Body.Content(routeSchema)
	t.report(diags)
	t.routeBody(def, content)
	return def
}

func (t *translator) routeBody(def *config.RouteDef, content *hcl.BodyContent) {
	if content == nil {
		return
	}
	if attr, ok := content.Attributes["data"]; ok {
		def.ConfigData = t.data(attr)
	}
	for _, block := range content.Blocks {
		if op, ok := t.op(block); ok {
			def.Ops = append(def.Ops, op)
		}
	}
}

// data evaluates a route's data attribute. It must be an object or a map.
func (t *translator) data(attr *hcl.Attribute) cty.Value {
	val, diags := attr.Expr.Value(t.evalCtx)
	t.report(diags)
	if diags.HasErrors() {
		return cty.NilVal
	}
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		t.report(hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid route data",
			Detail:   fmt.Sprintf("The data attribute must be an object, got %s.", ty.FriendlyName()),
			Subject:  attr.Expr.Range().Ptr(),
		}})
		return cty.NilVal
	}
	return val
}

func (t *translator) op(block *hcl.Block) (config.MetaOp, bool) {
	var op config.MetaOp
	switch block.Type {
	case "declare":
		op = config.Declare(t.actionList(block.Body)...)
	case "add":
		op = config.Add(t.actionList(block.Body)...)
	case "override":
		op = config.Override(t.actionList(block.Body)...)
	case "remove":
		var rb removeBlock
		diags := gohcl.DecodeBody(block.Body, t.evalCtx, &rb)
		t.report(diags)
		if diags.HasErrors() {
			return op, false
		}
		op = config.Remove(rb.Actions...)
	case "insert":
		var ib insertBlock
		diags := gohcl.DecodeBody(block.Body, t.evalCtx, &ib)
		t.report(diags)
		if diags.HasErrors() {
			return op, false
		}
		name := block.Labels[0]
		from := name
		if ib.From != nil {
			from = *ib.From
		}
		op = config.Insert(name, from)
	case "sub_route":
		sub := t.subRoute(block)
		if sub == nil {
			return op, false
		}
		op = config.DeclareSubRoute(sub)
	default:
		return op, false
	}
	op.DeclRange = block.DefRange.Ptr()
	return op, true
}

func (t *translator) subRoute(block *hcl.Block) *config.SubRouteDef {
	content, diags := block.Body.Content(subRouteSchema)
	t.report(diags)
	if content == nil {
		return nil
	}

	var preds []config.RoutePredicate
	for _, name := range []string{"match_prefix", "match_exact", "match_suffix", "match_regex"} {
		attr, ok := content.Attributes[name]
		if !ok {
			continue
		}
		var value string
		if diags := gohcl.DecodeExpression(attr.Expr, t.evalCtx, &value); diags.HasErrors() {
			t.report(diags)
			continue
		}
		switch name {
		case "match_prefix":
			preds = append(preds, config.Prefix(value))
		case "match_exact":
			preds = append(preds, config.Exact(value))
		case "match_suffix":
			preds = append(preds, config.Suffix(value))
		case "match_regex":
			re, err := regexp.Compile(value)
			if err != nil {
				t.report(hcl.Diagnostics{{
					Severity: hcl.DiagError,
					Summary:  "Invalid regular expression",
					Detail:   fmt.Sprintf("match_regex of sub_route %q: %s.", block.Labels[0], err),
					Subject:  attr.Expr.Range().Ptr(),
				}})
				continue
			}
			preds = append(preds, config.Regex(re))
		}
	}
	if len(preds) == 0 {
		t.report(hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Missing route predicate",
			Detail:   fmt.Sprintf("sub_route %q needs at least one of match_prefix, match_exact, match_suffix or match_regex.", block.Labels[0]),
			Subject:  block.DefRange.Ptr(),
		}})
	}

	sub := config.NewSubRoute(block.Labels[0], config.All(preds...))
	sub.DeclRange = block.DefRange.Ptr()
	if attr, ok := content.Attributes["import_parent_actions"]; ok {
		sub.ImportParentActions = t.bool(attr)
	}
	if attr, ok := content.Attributes["import_parent_declared_actions"]; ok {
		sub.ImportParentDeclaredActionsAbove = t.bool(attr)
	}
	t.routeBody(&sub.RouteDef, content)
	return sub
}

// actionList translates the action blocks of a declare, add or override body.
func (t *translator) actionList(body hcl.Body) []*config.ActionConfig {
	content, diags := body.Content(actionListSchema)
	t.report(diags)
	if content == nil {
		return nil
	}
	return t.actions(content.Blocks)
}

func (t *translator) actions(blocks hcl.Blocks) []*config.ActionConfig {
	var out []*config.ActionConfig
	for _, block := range blocks {
		if cfg := t.action(block); cfg != nil {
			out = append(out, cfg)
		}
	}
	return out
}

func (t *translator) action(block *hcl.Block) *config.ActionConfig {
	var (
		cfg     *config.ActionConfig
		content *hcl.BodyContent
		diags   hcl.Diagnostics
	)
	switch block.Type {
	case "action":
		content, diags = block.Body.Content(leafSchema)
		t.report(diags)
		if content == nil {
			return nil
		}
		cfg = config.Leaf(block.Labels[0], block.Labels[1], t.arguments(content.Blocks))
	case "sequence", "parallel":
		content, diags = block.Body.Content(compositeSchema)
		t.report(diags)
		if content == nil {
			return nil
		}
		children := t.actions(content.Blocks)
		if block.Type == "sequence" {
			cfg = config.Sequence(block.Labels[0], children...)
		} else {
			cfg = config.Parallel(block.Labels[0], children...)
		}
	default:
		return nil
	}

	if attr, ok := content.Attributes["cloneable"]; ok {
		cfg.Cloneable = t.bool(attr)
	}
	cfg.DeclRange = block.DefRange.Ptr()
	return cfg
}

// arguments returns the raw body of the single arguments block. A leaf
// without one gets an empty body so that required inputs are still checked.
func (t *translator) arguments(blocks hcl.Blocks) hcl.Body {
	args := blocks.OfType("arguments")
	if len(args) == 0 {
		return hcl.EmptyBody()
	}
	for _, dup := range args[1:] {
		t.report(hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Duplicate arguments block",
			Detail:   fmt.Sprintf("Only one arguments block is allowed. The first one was defined at %s.", args[0].DefRange),
			Subject:  dup.DefRange.Ptr(),
		}})
	}
	return args[0].Body
}

func (t *translator) bool(attr *hcl.Attribute) bool {
	var b bool
	t.report(gohcl.DecodeExpression(attr.Expr, t.evalCtx, &b))
	return b
}
