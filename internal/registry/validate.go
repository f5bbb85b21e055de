package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/specialistvlad/routegrid/internal/config"
	"github.com/specialistvlad/routegrid/internal/ctxlog"
)

// Validate performs a parity check between a route definition and the
// registered Go code. Every leaf must name a registered sink, and its
// arguments block must match the sink's input struct. Expressions are not
// evaluated here.
func (r *Registry) Validate(ctx context.Context, def *config.RouteDef) hcl.Diagnostics {
	var diags hcl.Diagnostics
	logger := ctxlog.FromContext(ctx)
	if def == nil {
		return diags
	}

	def.WalkActions(func(cfg *config.ActionConfig) {
		if cfg.Kind != config.KindLeaf {
			return
		}
		kind, ok := r.sinks[cfg.Type]
		if !ok {
			logger.Error("Action uses an unregistered sink type.", "action", cfg.Name, "type", cfg.Type)
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unknown sink type",
				Detail: fmt.Sprintf("Action %q uses sink type %q, which is not registered. Registered types: %s.",
					cfg.Name, cfg.Type, strings.Join(r.Names(), ", ")),
				Subject: cfg.DeclRange,
			})
			return
		}
		if cfg.Arguments == nil {
			return
		}

		schema := &hcl.BodySchema{}
		if kind.NewInput != nil {
			schema, _ = gohcl.ImpliedBodySchema(kind.NewInput())
		}
		if _, argDiags := cfg.Arguments.Content(schema); argDiags.HasErrors() {
			logger.Error("Action arguments do not match the sink.", "action", cfg.Name, "type", cfg.Type, "error", argDiags.Error())
			diags = append(diags, argDiags...)
		}
	})
	return diags
}
