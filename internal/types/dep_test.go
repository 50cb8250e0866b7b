package types

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDep() ResolvedDependency {
	return ResolvedDependency{
		Found:       true,
		Name:        "widget",
		Method:      MethodPkgConfig,
		Version:     "2.3.1",
		CompileArgs: []string{"-I/usr/include/widget", "-DWIDGET_STATIC", "-isystem/opt/widget/include"},
		LinkArgs:    []string{"-L/usr/lib", "-lwidget", "/usr/lib/libhelper.a", "-pthread"},
		Sources:     []string{"widget_stub.c"},
		SubDependencies: []ResolvedDependency{
			{
				Found:       true,
				Name:        "helper",
				CompileArgs: []string{"-I/usr/include/helper"},
				LinkArgs:    []string{"-lhelper"},
			},
		},
	}
}

// ---------------------------------------------------------------------------
// include-type rewrite
// ---------------------------------------------------------------------------

func TestEffectiveCompileArgsPreserve(t *testing.T) {
	dep := sampleDep()
	dep.IncludeType = IncludeTypePreserve
	assert.Equal(t, dep.CompileArgs, dep.EffectiveCompileArgs())
}

func TestEffectiveCompileArgsSystem(t *testing.T) {
	dep := sampleDep()
	dep.IncludeType = IncludeTypeSystem
	want := []string{"-isystem/usr/include/widget", "-DWIDGET_STATIC", "-isystem/opt/widget/include"}
	assert.Equal(t, want, dep.EffectiveCompileArgs())
}

func TestEffectiveCompileArgsNonSystem(t *testing.T) {
	dep := sampleDep()
	dep.IncludeType = IncludeTypeNonSystem
	want := []string{"-I/usr/include/widget", "-DWIDGET_STATIC", "-I/opt/widget/include"}
	assert.Equal(t, want, dep.EffectiveCompileArgs())
}

func TestEffectiveCompileArgsDoesNotMutate(t *testing.T) {
	dep := sampleDep()
	dep.IncludeType = IncludeTypeSystem
	_ = dep.EffectiveCompileArgs()
	assert.Equal(t, "-I/usr/include/widget", dep.CompileArgs[0])
}

// ---------------------------------------------------------------------------
// Partial
// ---------------------------------------------------------------------------

func TestPartialCompileOnly(t *testing.T) {
	dep := sampleDep()
	got := dep.Partial(PartialSpec{CompileArgs: true})

	assert.Equal(t, dep.CompileArgs, got.CompileArgs)
	assert.Empty(t, got.LinkArgs)
	assert.Empty(t, got.Sources)
	require.Len(t, got.SubDependencies, 1)
	assert.Empty(t, got.SubDependencies[0].LinkArgs)
}

func TestPartialIncludesOnly(t *testing.T) {
	dep := sampleDep()
	got := dep.Partial(PartialSpec{Includes: true})

	assert.Equal(t, []string{"-I/usr/include/widget", "-isystem/opt/widget/include"}, got.CompileArgs)
	assert.Empty(t, got.LinkArgs)
}

func TestPartialLinksKeepsLibraryArgsOnly(t *testing.T) {
	dep := sampleDep()
	got := dep.Partial(PartialSpec{Links: true})

	assert.Equal(t, []string{"-lwidget", "/usr/lib/libhelper.a"}, got.LinkArgs)
	assert.Empty(t, got.CompileArgs)
}

func TestPartialIsIdempotent(t *testing.T) {
	dep := sampleDep()
	spec := PartialSpec{CompileArgs: true}

	first := dep.Partial(spec)
	second := dep.Partial(spec)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("two derivations differ (-first +second):\n%s", diff)
	}
	assert.Empty(t, first.LinkArgs)
	assert.Empty(t, second.LinkArgs)
}

func TestPartialPreservesIdentityFields(t *testing.T) {
	dep := sampleDep()
	got := dep.Partial(PartialSpec{LinkArgs: true})
	assert.Equal(t, dep.Name, got.Name)
	assert.Equal(t, dep.Version, got.Version)
	assert.Equal(t, dep.Method, got.Method)
	assert.True(t, got.Found)
}

// ---------------------------------------------------------------------------
// Variable
// ---------------------------------------------------------------------------

func TestVariableLookup(t *testing.T) {
	dep := sampleDep()
	dep.Variables = map[string]string{"prefix": "/usr"}

	value, err := dep.Variable("prefix", "")
	require.NoError(t, err)
	assert.Equal(t, "/usr", value)
}

func TestVariableDefault(t *testing.T) {
	dep := sampleDep()
	value, err := dep.Variable("missing", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", value)
}

func TestVariableMissingWithoutDefault(t *testing.T) {
	dep := sampleDep()
	_, err := dep.Variable("missing", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestVariableOnNotFoundDependency(t *testing.T) {
	dep := NotFoundDependency("widget")

	_, err := dep.Variable("prefix", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "widget")

	value, err := dep.Variable("prefix", "def")
	require.NoError(t, err)
	assert.Equal(t, "def", value)
}

func TestNotFoundDependencySentinel(t *testing.T) {
	dep := NotFoundDependency("widget")
	assert.False(t, dep.Found)
	assert.Equal(t, "widget", dep.Name)
	assert.Equal(t, VersionUnknown, dep.Version)
}
