package adapters

import (
	"context"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depscout/internal/types"
)

func TestSanitizeVersion(t *testing.T) {
	cases := map[string]string{
		"3.0.2 15 Mar 2022": "3.0.2",
		"1.2.3\n":           "1.2.3",
		"2.":                "2",
		"llvm 15.0":         "",
		"10":                "10",
	}
	for raw, want := range cases {
		assert.Equal(t, want, sanitizeVersion(raw), raw)
	}
}

func TestConfigToolResolve(t *testing.T) {
	runner := newFakeRunner()
	runner.ok("widget-config --version", "2.3.1\n")
	runner.ok("widget-config --cflags", "-I/usr/include/widget\n")
	runner.ok("widget-config --libs", "-lwidget\n")

	adapter := NewConfigToolAdapter(runner, testFinder("widget-config"), NewToolCache())
	spec := ConfigToolSpec{
		Tools:       []string{"widget-config"},
		CompileArgs: []string{"--cflags"},
		LinkArgs:    []string{"--libs"},
	}
	dep, err := adapter.Resolve(context.Background(), "widget", hostMachine(), types.NewResolveOptions(), spec)
	require.NoError(t, err)
	assert.Equal(t, "2.3.1", dep.Version)
	assert.Equal(t, []string{"-I/usr/include/widget"}, dep.CompileArgs)
	assert.Equal(t, []string{"-lwidget"}, dep.LinkArgs)
}

func TestConfigToolOrderedCandidates(t *testing.T) {
	runner := newFakeRunner()
	// The preferred basename is absent; the fallback answers.
	runner.ok("llvm-config --version", "15.0.7\n")

	adapter := NewConfigToolAdapter(runner, testFinder("llvm-config"), NewToolCache())
	spec := ConfigToolSpec{Tools: []string{"llvm-config-15", "llvm-config"}}
	dep, err := adapter.Resolve(context.Background(), "llvm", hostMachine(), types.NewResolveOptions(), spec)
	require.NoError(t, err)
	assert.Equal(t, "15.0.7", dep.Version)
}

func TestConfigToolKeepsHighestVersion(t *testing.T) {
	runner := newFakeRunner()
	runner.ok("foo-config-1 --version", "1.0\n")
	runner.ok("foo-config-2 --version", "2.0\n")

	adapter := NewConfigToolAdapter(runner, testFinder("foo-config-1", "foo-config-2"), NewToolCache())
	spec := ConfigToolSpec{Tools: []string{"foo-config-1", "foo-config-2"}}
	dep, err := adapter.Resolve(context.Background(), "foo", hostMachine(), types.NewResolveOptions(), spec)
	require.NoError(t, err)
	assert.Equal(t, "2.0", dep.Version)
}

func TestConfigToolKeepsHighestSatisfyingVersion(t *testing.T) {
	runner := newFakeRunner()
	runner.ok("foo-config-1 --version", "1.5\n")
	runner.ok("foo-config-2 --version", "2.0\n")

	adapter := NewConfigToolAdapter(runner, testFinder("foo-config-1", "foo-config-2"), NewToolCache())
	opts := types.NewResolveOptions()
	opts.Version = []string{">=1.0"}
	spec := ConfigToolSpec{Tools: []string{"foo-config-1", "foo-config-2"}}
	dep, err := adapter.Resolve(context.Background(), "foo", hostMachine(), opts, spec)
	require.NoError(t, err)
	assert.Equal(t, "2.0", dep.Version)
}

func TestConfigToolVersionConstraintBestMismatch(t *testing.T) {
	runner := newFakeRunner()
	runner.ok("foo-config --version", "1.4\n")

	adapter := NewConfigToolAdapter(runner, testFinder("foo-config"), NewToolCache())
	opts := types.NewResolveOptions()
	opts.Version = []string{">=2.0"}
	_, err := adapter.Resolve(context.Background(), "foo", hostMachine(), opts, ConfigToolSpec{Tools: []string{"foo-config"}})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "1.4")
}

func TestConfigToolVersionlessAcceptedWithoutConstraint(t *testing.T) {
	runner := newFakeRunner()
	runner.fail("bare-config --version", "unknown option\n")
	runner.ok("bare-config --help", "usage: bare-config\n")

	adapter := NewConfigToolAdapter(runner, testFinder("bare-config"), NewToolCache())
	spec := ConfigToolSpec{Tools: []string{"bare-config"}, SkipVersionArg: "--help"}
	dep, err := adapter.Resolve(context.Background(), "bare", hostMachine(), types.NewResolveOptions(), spec)
	require.NoError(t, err)
	assert.Equal(t, types.VersionUnknown, dep.Version)
}

func TestConfigToolVersionlessRejectedWithConstraint(t *testing.T) {
	runner := newFakeRunner()
	runner.fail("bare-config --version", "unknown option\n")
	runner.ok("bare-config --help", "usage: bare-config\n")

	adapter := NewConfigToolAdapter(runner, testFinder("bare-config"), NewToolCache())
	opts := types.NewResolveOptions()
	opts.Version = []string{">=1.0"}
	spec := ConfigToolSpec{Tools: []string{"bare-config"}, SkipVersionArg: "--help"}
	_, err := adapter.Resolve(context.Background(), "bare", hostMachine(), opts, spec)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
}

func TestConfigToolMissingEverywhere(t *testing.T) {
	runner := newFakeRunner()
	adapter := NewConfigToolAdapter(runner, testFinder(), NewToolCache())
	_, err := adapter.Resolve(context.Background(), "foo", hostMachine(), types.NewResolveOptions(), ConfigToolSpec{Tools: []string{"foo-config"}})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestConfigToolGetVariable(t *testing.T) {
	runner := newFakeRunner()
	runner.ok("foo-config --version", "1.0\n")
	runner.ok("foo-config --prefix", "/opt/foo\n")

	adapter := NewConfigToolAdapter(runner, testFinder("foo-config"), NewToolCache())
	spec := ConfigToolSpec{Tools: []string{"foo-config"}}
	value, err := adapter.GetVariable(context.Background(), "foo", hostMachine(), types.NewResolveOptions(), spec, "prefix", "")
	require.NoError(t, err)
	assert.Equal(t, "/opt/foo", value)
}

func TestConfigToolGetVariableHonorsToolsOverride(t *testing.T) {
	runner := newFakeRunner()
	runner.ok("custom-config --version", "1.0\n")
	runner.ok("custom-config --prefix", "/opt/custom\n")

	adapter := NewConfigToolAdapter(runner, testFinder("custom-config"), NewToolCache())
	opts := types.NewResolveOptions()
	opts.Tools = []string{"custom-config"}
	spec := ConfigToolSpec{Tools: []string{"foo-config"}}
	value, err := adapter.GetVariable(context.Background(), "foo", hostMachine(), opts, spec, "prefix", "")
	require.NoError(t, err)
	assert.Equal(t, "/opt/custom", value)
}
