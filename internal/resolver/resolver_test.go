package resolver

import (
	"context"
	"testing"

	"github.com/specialistvlad/routegrid/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(name string) *config.ActionConfig {
	return config.Leaf("console", name, nil)
}

func resolve(t *testing.T, def *config.RouteDef) *ResolvedRoute {
	t.Helper()
	resolved, diags := New().Resolve(context.Background(), def)
	require.False(t, diags.HasErrors(), "unexpected diagnostics: %s", diags.Error())
	require.NotNil(t, resolved)
	return resolved
}

func resolveErrors(t *testing.T, def *config.RouteDef) int {
	t.Helper()
	resolved, diags := New().Resolve(context.Background(), def)
	require.Nil(t, resolved, "resolution should fail")
	return ErrorCount(diags)
}

func TestResolve_DeclareThenInsert(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	a := leaf("A")
	def := config.NewRoute("main", config.Declare(a), config.Insert("", "A"))

	// --- Act ---
	resolved := resolve(t, def)

	// --- Assert ---
	require.Len(t, resolved.Actions, 1)
	assert.Equal(t, "A", resolved.Actions[0].Name)
	assert.Same(t, a, resolved.Actions[0].Config)
	assert.Equal(t, "main/A", resolved.Actions[0].Path)
	assert.Equal(t, []string{"main"}, resolved.FullPath)
}

func TestResolve_AddAppendsDirectly(t *testing.T) {
	t.Parallel()

	def := config.NewRoute("main", config.Add(leaf("A"), leaf("B")), config.Add(leaf("C")))

	resolved := resolve(t, def)

	assert.Equal(t, []string{"A", "B", "C"}, resolved.ActionNames())
	for i, a := range resolved.Actions {
		assert.Equal(t, i, a.Index)
	}
}

func TestResolve_SequenceKeepsChildOrder(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	a, b := leaf("A"), leaf("B")
	seq := config.Sequence("S", a, b)
	def := config.NewRoute("main", config.Declare(seq), config.Insert("S", "S"))

	// --- Act ---
	resolved := resolve(t, def)

	// --- Assert ---
	require.Len(t, resolved.Actions, 1)
	got := resolved.Actions[0].Config
	require.Equal(t, config.KindSequence, got.Kind)
	require.Len(t, got.Children, 2)
	assert.Same(t, a, got.Children[0])
	assert.Same(t, b, got.Children[1])
}

func TestResolve_SubRouteInheritsParentActions(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	sub := config.NewSubRoute("x", config.Prefix("x"), config.Add(leaf("B")))
	def := config.NewRoute("main", config.Add(leaf("A")), config.DeclareSubRoute(sub))

	// --- Act ---
	resolved := resolve(t, def)

	// --- Assert ---
	assert.Equal(t, []string{"A"}, resolved.ActionNames())
	child, ok := resolved.Find("x")
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B"}, child.ActionNames())
	assert.Equal(t, []string{"main", "x"}, child.FullPath)
	assert.Equal(t, "main/x/B", child.Actions[1].Path)
	assert.Same(t, resolved.Actions[0].Config, child.Actions[0].Config, "inherited actions share their config")
	require.NotNil(t, child.Predicate)
	assert.True(t, child.Predicate("x1"))
}

func TestResolve_SubRouteSeesParentListAfterAllParentOps(t *testing.T) {
	t.Parallel()

	sub := config.NewSubRoute("x", config.Prefix("x"))
	def := config.NewRoute("main",
		config.Add(leaf("A")),
		config.DeclareSubRoute(sub),
		config.Add(leaf("B")),
		config.Remove("A"),
	)

	resolved := resolve(t, def)

	child, ok := resolved.Find("x")
	require.True(t, ok)
	assert.Equal(t, []string{"B"}, child.ActionNames())
}

func TestResolve_RemoveIsIdempotent(t *testing.T) {
	t.Parallel()

	def := config.NewRoute("main",
		config.Add(leaf("A"), leaf("B")),
		config.Remove("missing"),
		config.Remove("A"),
		config.Remove("A"),
	)

	resolved := resolve(t, def)

	assert.Equal(t, []string{"B"}, resolved.ActionNames())
}

func TestResolve_InsertForwardReference(t *testing.T) {
	t.Parallel()

	later := leaf("later")
	def := config.NewRoute("main", config.Insert("early", "later"), config.Declare(later))

	resolved := resolve(t, def)

	require.Len(t, resolved.Actions, 1)
	assert.Equal(t, "early", resolved.Actions[0].Name)
	assert.Same(t, later, resolved.Actions[0].Config)
}

func TestResolve_InsertUndeclaredIsErrorButResolutionContinues(t *testing.T) {
	t.Parallel()

	sub := config.NewSubRoute("x", config.Prefix("x"), config.Insert("", "ghost2"))
	def := config.NewRoute("main",
		config.Insert("", "ghost"),
		config.Add(leaf("A")),
		config.DeclareSubRoute(sub),
	)

	assert.Equal(t, 2, resolveErrors(t, def), "both unknown inserts are reported in one pass")
}

func TestResolve_InsertFromAncestorDeclaration(t *testing.T) {
	t.Parallel()

	shared := leaf("shared")
	inner := config.NewSubRoute("inner", config.Prefix("ab"), config.Insert("", "shared"))
	outer := config.NewSubRoute("outer", config.Prefix("a"), config.DeclareSubRoute(inner))
	def := config.NewRoute("main", config.Declare(shared), config.DeclareSubRoute(outer))

	resolved := resolve(t, def)

	got, ok := resolved.Find("outer", "inner")
	require.True(t, ok)
	require.Len(t, got.Actions, 1)
	assert.Same(t, shared, got.Actions[0].Config)
	assert.Equal(t, "main/outer/inner/shared", got.Actions[0].Path)
}

func TestResolve_WithoutParentActionsStartsEmpty(t *testing.T) {
	t.Parallel()

	sub := config.NewSubRoute("x", config.Prefix("x"), config.Insert("", "D")).WithoutParentActions()
	def := config.NewRoute("main", config.Add(leaf("A")), config.Declare(leaf("D")), config.DeclareSubRoute(sub))

	resolved := resolve(t, def)

	child, ok := resolved.Find("x")
	require.True(t, ok)
	assert.Equal(t, []string{"D"}, child.ActionNames(), "declarations stay visible")
}

func TestResolve_IsolatedSubRouteCannotSeeAncestorDeclarations(t *testing.T) {
	t.Parallel()

	sub := config.NewSubRoute("x", config.Prefix("x"), config.Insert("", "D"))
	sub.ImportParentDeclaredActionsAbove = false
	def := config.NewRoute("main", config.Add(leaf("A")), config.Declare(leaf("D")), config.DeclareSubRoute(sub))

	assert.Equal(t, 1, resolveErrors(t, def))
	assert.False(t, sub.InheritsActions(), "isolation also disables action inheritance")
}

func TestResolve_IsolatedSubRouteMayReuseNames(t *testing.T) {
	t.Parallel()

	sub := config.NewSubRoute("x", config.Prefix("x"), config.Add(leaf("A"))).Isolated()
	def := config.NewRoute("main", config.Add(leaf("A")), config.DeclareSubRoute(sub))

	resolved := resolve(t, def)

	child, ok := resolved.Find("x")
	require.True(t, ok)
	assert.Equal(t, []string{"A"}, child.ActionNames())
	assert.NotSame(t, resolved.Actions[0].Config, child.Actions[0].Config)
}

func TestResolve_OverrideAffectsInsertNotEarlierAdd(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	a1 := leaf("a")
	a2 := leaf("a")
	def := config.NewRoute("main",
		config.Add(a1),
		config.Override(a2),
		config.Insert("copy", "a"),
	)

	// --- Act ---
	resolved := resolve(t, def)

	// --- Assert ---
	require.Equal(t, []string{"a", "copy"}, resolved.ActionNames())
	assert.Same(t, a1, resolved.Actions[0].Config, "override is not retroactive")
	assert.Same(t, a2, resolved.Actions[1].Config)
}

func TestResolve_OverrideInSubRouteReplacesInheritedInPlace(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	a1, b := leaf("a"), leaf("b")
	a2 := leaf("a")
	sub := config.NewSubRoute("x", config.Prefix("x"), config.Override(a2), config.Add(leaf("c")))
	def := config.NewRoute("main", config.Add(a1, b), config.DeclareSubRoute(sub))

	// --- Act ---
	resolved := resolve(t, def)

	// --- Assert ---
	assert.Same(t, a1, resolved.Actions[0].Config, "parent list is untouched")
	child, ok := resolved.Find("x")
	require.True(t, ok)
	require.Equal(t, []string{"a", "b", "c"}, child.ActionNames())
	assert.Same(t, a2, child.Actions[0].Config)
	assert.Same(t, b, child.Actions[1].Config)
}

func TestResolve_OverrideOfUndeclaredIsError(t *testing.T) {
	t.Parallel()

	def := config.NewRoute("main", config.Override(leaf("nope")))

	assert.Equal(t, 1, resolveErrors(t, def))
}

func TestResolve_Duplicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		def  *config.RouteDef
		want int
	}{
		{
			name: "redeclare without override",
			def:  config.NewRoute("main", config.Declare(leaf("A")), config.Declare(leaf("A"))),
			want: 1,
		},
		{
			name: "insert clashes with added name",
			def:  config.NewRoute("main", config.Add(leaf("A")), config.Declare(leaf("B")), config.Insert("A", "B")),
			want: 1,
		},
		{
			name: "sub-route adds inherited name",
			def: config.NewRoute("main",
				config.Add(leaf("A")),
				config.DeclareSubRoute(config.NewSubRoute("x", config.Prefix("x"), config.Add(leaf("A"))))),
			want: 1,
		},
		{
			name: "duplicate sub-route names",
			def: config.NewRoute("main",
				config.DeclareSubRoute(config.NewSubRoute("x", config.Prefix("x"))),
				config.DeclareSubRoute(config.NewSubRoute("x", config.Prefix("y")))),
			want: 1,
		},
		{
			name: "duplicate composite children",
			def:  config.NewRoute("main", config.Add(config.Parallel("P", leaf("A"), leaf("A")))),
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveErrors(t, tt.def))
		})
	}
}

func TestResolve_InvalidNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		def  *config.RouteDef
	}{
		{name: "empty action name", def: config.NewRoute("main", config.Add(leaf("")))},
		{name: "action name with separator", def: config.NewRoute("main", config.Add(leaf("a/b")))},
		{name: "empty route name", def: config.NewRoute("")},
		{name: "missing sink type", def: config.NewRoute("main", config.Add(config.Leaf("", "A", nil)))},
		{name: "sub-route without predicate", def: config.NewRoute("main", config.DeclareSubRoute(config.NewSubRoute("x", nil)))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, 1, resolveErrors(t, tt.def))
		})
	}
}

func TestResolve_RecursiveCompositeIsRejected(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	outer := config.Sequence("outer")
	inner := config.Parallel("inner", leaf("A"), outer)
	outer.Children = append(outer.Children, inner)
	def := config.NewRoute("main", config.Add(outer))

	// --- Act / Assert ---
	assert.Equal(t, 1, resolveErrors(t, def))
}

func TestResolve_AggregatesAllErrors(t *testing.T) {
	t.Parallel()

	def := config.NewRoute("main",
		config.Add(leaf("")),
		config.Insert("", "ghost"),
		config.Declare(leaf("A"), leaf("A")),
	)

	assert.Equal(t, 3, resolveErrors(t, def))
}

func TestResolve_NilRoute(t *testing.T) {
	t.Parallel()

	resolved, diags := New().Resolve(context.Background(), nil)
	assert.Nil(t, resolved)
	assert.Equal(t, 1, ErrorCount(diags))
}

func TestResolve_OrderIsDeclarationOrder(t *testing.T) {
	t.Parallel()

	names := []string{"zeta", "alpha", "mu", "beta", "omega", "gamma", "delta", "kappa"}
	var ops []config.MetaOp
	for _, n := range names {
		ops = append(ops, config.Declare(leaf(n)))
	}
	for i := len(names) - 1; i >= 0; i-- {
		ops = append(ops, config.Insert("", names[i]))
	}

	for run := 0; run < 10; run++ {
		resolved := resolve(t, config.NewRoute("main", ops...))
		want := make([]string, 0, len(names))
		for i := len(names) - 1; i >= 0; i-- {
			want = append(want, names[i])
		}
		require.Equal(t, want, resolved.ActionNames())
	}
}

func TestResolve_SubRoutesFieldResolvedAfterOps(t *testing.T) {
	t.Parallel()

	def := config.NewRoute("main", config.DeclareSubRoute(config.NewSubRoute("first", config.Prefix("a"))))
	def.SubRoutes = []*config.SubRouteDef{config.NewSubRoute("second", config.Prefix("b"))}

	resolved := resolve(t, def)

	require.Len(t, resolved.Children, 2)
	assert.Equal(t, "first", resolved.Children[0].Name)
	assert.Equal(t, "second", resolved.Children[1].Name)
	assert.Equal(t, 2, countRoutes(resolved)-1)
}
