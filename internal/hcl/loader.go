package hcl

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/routegrid/internal/config"
	"github.com/specialistvlad/routegrid/internal/ctxlog"
	"github.com/specialistvlad/routegrid/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	environ func() []string
}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{environ: os.Environ}
}

// Load parses every .hcl file found under paths and translates the single
// route block they contain. Problems are returned as hcl.Diagnostics.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.RouteDef, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(hclFiles) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %s", strings.Join(paths, ", "))
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	var (
		diags  hcl.Diagnostics
		routes []*hcl.Block
	)
	for _, file := range hclFiles {
		hclFile, fileDiags := parser.ParseHCLFile(file)
		diags = append(diags, fileDiags...)
		if fileDiags.HasErrors() {
			continue
		}
		content, contentDiags := hclFile.Body.Content(fileSchema)
		diags = append(diags, contentDiags...)
		if content != nil {
			routes = append(routes, content.Blocks.OfType("route")...)
		}
	}
	if diags.HasErrors() {
		return nil, diags
	}

	switch len(routes) {
	case 0:
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Missing route block",
			Detail:   fmt.Sprintf("Exactly one route block is required, none was found in %s.", strings.Join(hclFiles, ", ")),
		}}
	case 1:
	default:
		for _, dup := range routes[1:] {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate route block",
				Detail:   fmt.Sprintf("Exactly one route block is allowed. The first one was defined at %s.", routes[0].DefRange),
				Subject:  dup.DefRange.Ptr(),
			})
		}
		return nil, diags
	}

	t := &translator{evalCtx: newEvalContext(l.environ())}
	def := t.route(routes[0])
	if t.diags.HasErrors() {
		return nil, t.diags
	}
	logger.Debug("HCL loading complete.", "route", def.Name, "ops", len(def.Ops))
	return def, nil
}

// findAllHCLFiles expands directories into the .hcl files they contain.
// Explicit file paths are used as given.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			allFiles = append(allFiles, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		files, err := fsutil.FindRouteFiles(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("error walking %s: %w", path, err)
		}
		for _, f := range files {
			add(f)
		}
	}
	return allFiles, nil
}

// newEvalContext exposes the environment as env.<NAME>.
func newEvalContext(environ []string) *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, e := range environ {
		name, value, ok := strings.Cut(e, "=")
		if ok && name != "" {
			env[name] = cty.StringVal(value)
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(env)},
	}
}
