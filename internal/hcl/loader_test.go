package hcl_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/specialistvlad/routegrid/internal/config"
	routehcl "github.com/specialistvlad/routegrid/internal/hcl"
	"github.com/specialistvlad/routegrid/internal/resolver"
	"github.com/specialistvlad/routegrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullRoute = `
route "main" {
  data = { min_level = "info", owner = env.ROUTEGRID_OWNER }

  declare {
    action "console" "stdout" {
      arguments { format = "text" }
    }
    sequence "audit" {
      cloneable = true
      action "file" "audit_file" {
        arguments { path = "audit.log" }
      }
    }
  }
  add {
    action "file" "all" {
      arguments { path = "all.log" }
    }
  }
  insert "stdout" {}
  insert "audit_copy" { from = "audit" }
  override {
    action "console" "stdout" {
      arguments { format = "json" }
    }
  }
  remove { actions = ["all"] }

  sub_route "errors" {
    match_prefix = "err"
    match_regex  = "^err[a-z]*\\.db$"
    import_parent_declared_actions = true
    add {
      parallel "alerts" {
        action "http_post" "hook" {
          arguments { url = "http://localhost/hook" }
        }
      }
    }
  }
}
`

// writeFiles creates the given files under a temporary directory and
// returns the directory.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// load runs the loader with ROUTEGRID_OWNER set, as fullRoute reads it.
func load(t *testing.T, paths ...string) (*config.RouteDef, error) {
	t.Helper()
	t.Setenv("ROUTEGRID_OWNER", "platform")
	ctx, _ := testutil.LogContext(t)
	return routehcl.NewLoader().Load(ctx, paths...)
}

func TestLoader_TranslatesRouteInSourceOrder(t *testing.T) {
	// --- Arrange ---
	dir := writeFiles(t, map[string]string{"routes.hcl": fullRoute})

	// --- Act ---
	def, err := load(t, filepath.Join(dir, "routes.hcl"))

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "main", def.Name)
	assert.Equal(t, "platform", def.ConfigData.GetAttr("owner").AsString())

	var kinds []config.OpKind
	for _, op := range def.Ops {
		kinds = append(kinds, op.Kind)
		assert.NotNil(t, op.DeclRange)
	}
	assert.Equal(t, []config.OpKind{
		config.OpDeclare, config.OpAdd, config.OpInsert, config.OpInsert,
		config.OpOverride, config.OpRemove, config.OpDeclareSubRoute,
	}, kinds)

	audit := def.Ops[0].Actions[1]
	assert.Equal(t, config.KindSequence, audit.Kind)
	assert.True(t, audit.Cloneable)
	require.Len(t, audit.Children, 1)
	assert.Equal(t, "file", audit.Children[0].Type)

	assert.Equal(t, "stdout", def.Ops[2].EffectiveName())
	assert.Equal(t, "stdout", def.Ops[2].DeclaredName)
	assert.Equal(t, "audit_copy", def.Ops[3].EffectiveName())
	assert.Equal(t, "audit", def.Ops[3].DeclaredName)
	assert.Equal(t, []string{"all"}, def.Ops[5].Names)

	sub := def.Ops[6].SubRoute
	assert.Equal(t, "errors", sub.Name)
	assert.True(t, sub.InheritsActions())
	assert.True(t, sub.Predicate("errors.db"))
	assert.False(t, sub.Predicate("error.cache"), "predicates are ANDed")
	assert.False(t, sub.Predicate("api"))
}

func TestLoader_LeafArgumentsStayRaw(t *testing.T) {
	// --- Arrange ---
	dir := writeFiles(t, map[string]string{"routes.hcl": fullRoute})
	def, err := load(t, dir)
	require.NoError(t, err)
	stdout := def.Ops[4].Actions[0]

	// --- Act ---
	var input struct {
		Format string `hcl:"format"`
	}
	diags := gohcl.DecodeBody(stdout.Arguments, nil, &input)

	// --- Assert ---
	require.False(t, diags.HasErrors(), diags.Error())
	assert.Equal(t, "json", input.Format)
}

func TestLoader_ResolvesEndToEnd(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.LogContext(t)
	dir := writeFiles(t, map[string]string{"routes.hcl": fullRoute})
	def, err := load(t, dir)
	require.NoError(t, err)

	// --- Act ---
	resolved, diags := resolver.New().Resolve(ctx, def)

	// --- Assert ---
	require.False(t, diags.HasErrors(), diags.Error())
	assert.Equal(t, []string{"stdout", "audit_copy"}, resolved.ActionNames())
	errorsRoute, ok := resolved.Find("errors")
	require.True(t, ok)
	assert.Equal(t, []string{"stdout", "audit_copy", "alerts"}, errorsRoute.ActionNames())
}

func TestLoader_DirectoryWithSeveralFiles(t *testing.T) {
	// --- Arrange ---
	dir := writeFiles(t, map[string]string{
		"main.hcl":      `route "main" {}`,
		"notes.txt":     `this is not hcl`,
		"nested/ok.hcl": ``,
	})

	// --- Act ---
	def, err := load(t, dir)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "main", def.Name)
	assert.Empty(t, def.Ops)
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{
			name:  "no route",
			files: map[string]string{"a.hcl": ``},
			want:  "Missing route block",
		},
		{
			name: "two routes across files",
			files: map[string]string{
				"a.hcl": `route "a" {}`,
				"b.hcl": `route "b" {}`,
			},
			want: "Duplicate route block",
		},
		{
			name:  "unknown block",
			files: map[string]string{"a.hcl": `
route "a" {
  replace {}
}`},
			want:  "Unsupported block type",
		},
		{
			name:  "syntax error",
			files: map[string]string{"a.hcl": `route "a" {`},
			want:  "a.hcl",
		},
		{
			name: "invalid regex",
			files: map[string]string{"a.hcl": `
route "a" {
  sub_route "x" { match_regex = "(" }
}`},
			want: "Invalid regular expression",
		},
		{
			name: "sub_route without predicate",
			files: map[string]string{"a.hcl": `
route "a" {
  sub_route "x" {}
}`},
			want: "Missing route predicate",
		},
		{
			name: "data is not an object",
			files: map[string]string{"a.hcl": `
route "a" {
  data = "loud"
}`},
			want: "Invalid route data",
		},
		{
			name: "duplicate arguments",
			files: map[string]string{"a.hcl": `
route "a" {
  add {
    action "console" "out" {
      arguments {}
      arguments {}
    }
  }
}`},
			want: "Duplicate arguments block",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeFiles(t, tt.files)

			_, err := load(t, dir)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoader_MissingPath(t *testing.T) {
	_, err := load(t, filepath.Join(t.TempDir(), "missing.hcl"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "error accessing path")
}

func TestLoader_LeafWithoutArgumentsGetsEmptyBody(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.hcl": `
route "a" {
  add {
    action "console" "out" {}
  }
}`})

	def, err := load(t, dir)

	require.NoError(t, err)
	require.NotNil(t, def.Ops[0].Actions[0].Arguments)
}
