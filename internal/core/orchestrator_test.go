package core

import (
	"context"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depscout/internal/types"
)

func darwinPair() types.MachinePair {
	machine := types.MachineInfo{System: "darwin", CPU: "arm64"}
	build, host := machine, machine
	build.Choice = types.MachineBuild
	host.Choice = types.MachineHost
	return types.MachinePair{Build: build, Host: host}
}

func linuxPair() types.MachinePair {
	machine := types.MachineInfo{System: "linux", CPU: "amd64"}
	build, host := machine, machine
	build.Choice = types.MachineBuild
	host.Choice = types.MachineHost
	return types.MachinePair{Build: build, Host: host}
}

// recordingStrategies wires every method to a scripted outcome and
// records the order candidates actually ran in.
type recordingStrategies struct {
	ran      []types.Method
	outcomes map[types.Method]func() (types.ResolvedDependency, error)
}

func newRecordingStrategies() *recordingStrategies {
	return &recordingStrategies{outcomes: map[types.Method]func() (types.ResolvedDependency, error){}}
}

func (r *recordingStrategies) notFound(method types.Method) {
	r.outcomes[method] = func() (types.ResolvedDependency, error) {
		return types.ResolvedDependency{}, NotFound("dep", "scripted miss")
	}
}

func (r *recordingStrategies) found(method types.Method, version string) {
	r.outcomes[method] = func() (types.ResolvedDependency, error) {
		return types.ResolvedDependency{Found: true, Version: version}, nil
	}
}

func (r *recordingStrategies) builder(method types.Method) StrategyBuilder {
	return func(name string, machine types.MachineInfo, opts types.ResolveOptions) Candidate {
		return Candidate{
			Method: method,
			Try: func(ctx context.Context) (types.ResolvedDependency, error) {
				r.ran = append(r.ran, method)
				outcome, ok := r.outcomes[method]
				if !ok {
					return types.ResolvedDependency{}, NotFound(name, "no scripted outcome")
				}
				return outcome()
			},
		}
	}
}

func (r *recordingStrategies) strategies() Strategies {
	return Strategies{
		PkgConfig:      r.builder(types.MethodPkgConfig),
		ConfigTool:     r.builder(types.MethodConfigTool),
		CMake:          r.builder(types.MethodCMake),
		ExtraFramework: r.builder(types.MethodExtraFramework),
		System:         r.builder(types.MethodSystem),
	}
}

// ---------------------------------------------------------------------------
// candidate ordering
// ---------------------------------------------------------------------------

func TestResolveDefaultOrderingOnDarwin(t *testing.T) {
	rec := newRecordingStrategies()
	rec.notFound(types.MethodPkgConfig)
	rec.notFound(types.MethodExtraFramework)
	rec.notFound(types.MethodCMake)
	o := NewOrchestrator(NewRegistry(), rec.strategies(), darwinPair())

	opts := types.NewResolveOptions()
	opts.Required = false
	_, err := o.Resolve(context.Background(), "foo", opts)
	require.NoError(t, err)

	want := []types.Method{types.MethodPkgConfig, types.MethodExtraFramework, types.MethodCMake}
	assert.Equal(t, want, rec.ran)
}

func TestResolveFrameworkFilteredOffDarwin(t *testing.T) {
	rec := newRecordingStrategies()
	rec.notFound(types.MethodPkgConfig)
	rec.notFound(types.MethodCMake)
	o := NewOrchestrator(NewRegistry(), rec.strategies(), linuxPair())

	opts := types.NewResolveOptions()
	opts.Required = false
	_, err := o.Resolve(context.Background(), "foo", opts)
	require.NoError(t, err)

	assert.Equal(t, []types.Method{types.MethodPkgConfig, types.MethodCMake}, rec.ran)
}

func TestResolveStopsAtFirstSuccess(t *testing.T) {
	rec := newRecordingStrategies()
	rec.notFound(types.MethodPkgConfig)
	rec.found(types.MethodCMake, "1.0")
	o := NewOrchestrator(NewRegistry(), rec.strategies(), linuxPair())

	dep, err := o.Resolve(context.Background(), "foo", types.NewResolveOptions())
	require.NoError(t, err)
	assert.True(t, dep.Found)
	assert.Equal(t, types.MethodCMake, dep.Method)
	assert.Equal(t, []types.Method{types.MethodPkgConfig, types.MethodCMake}, rec.ran)
}

// ---------------------------------------------------------------------------
// failure semantics
// ---------------------------------------------------------------------------

func TestResolveRequiredSurfacesFirstError(t *testing.T) {
	rec := newRecordingStrategies()
	rec.outcomes[types.MethodPkgConfig] = func() (types.ResolvedDependency, error) {
		return types.ResolvedDependency{}, NotFound("widget", "package not registered")
	}
	rec.notFound(types.MethodCMake)
	o := NewOrchestrator(NewRegistry(), rec.strategies(), linuxPair())

	_, err := o.Resolve(context.Background(), "widget", types.NewResolveOptions())
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "widget")
}

func TestResolveOptionalReturnsSentinel(t *testing.T) {
	rec := newRecordingStrategies()
	rec.notFound(types.MethodPkgConfig)
	rec.notFound(types.MethodCMake)
	o := NewOrchestrator(NewRegistry(), rec.strategies(), linuxPair())

	opts := types.NewResolveOptions()
	opts.Required = false
	dep, err := o.Resolve(context.Background(), "foo", opts)
	require.NoError(t, err)
	assert.False(t, dep.Found)
	assert.Equal(t, "foo", dep.Name)
	assert.Equal(t, types.VersionUnknown, dep.Version)
}

func TestResolveHardErrorPropagatesImmediately(t *testing.T) {
	rec := newRecordingStrategies()
	rec.outcomes[types.MethodPkgConfig] = func() (types.ResolvedDependency, error) {
		return types.ResolvedDependency{}, EngineBug("broken candidate")
	}
	rec.found(types.MethodCMake, "1.0")
	o := NewOrchestrator(NewRegistry(), rec.strategies(), linuxPair())

	_, err := o.Resolve(context.Background(), "foo", types.NewResolveOptions())
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInternal, errbuilder.CodeOf(err))
	// The later candidate must never have run.
	assert.Equal(t, []types.Method{types.MethodPkgConfig}, rec.ran)
}

// ---------------------------------------------------------------------------
// method override
// ---------------------------------------------------------------------------

func TestResolveUnknownMethodToken(t *testing.T) {
	rec := newRecordingStrategies()
	o := NewOrchestrator(NewRegistry(), rec.strategies(), linuxPair())

	opts := types.NewResolveOptions()
	opts.Method = types.Method("qmake")
	_, err := o.Resolve(context.Background(), "foo", opts)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	assert.Empty(t, rec.ran)
}

func TestResolveMethodOverrideRestrictsCandidates(t *testing.T) {
	rec := newRecordingStrategies()
	rec.found(types.MethodCMake, "1.0")
	o := NewOrchestrator(NewRegistry(), rec.strategies(), linuxPair())

	opts := types.NewResolveOptions()
	opts.Method = types.MethodCMake
	dep, err := o.Resolve(context.Background(), "foo", opts)
	require.NoError(t, err)
	assert.True(t, dep.Found)
	assert.Equal(t, []types.Method{types.MethodCMake}, rec.ran)
}

func TestResolveMethodUnsupportedByHandler(t *testing.T) {
	rec := newRecordingStrategies()
	registry := NewRegistry()
	require.NoError(t, registry.Register("zlib", Handler{
		Methods: []types.Method{types.MethodPkgConfig, types.MethodSystem},
	}))
	o := NewOrchestrator(registry, rec.strategies(), linuxPair())

	opts := types.NewResolveOptions()
	opts.Method = types.MethodCMake
	_, err := o.Resolve(context.Background(), "zlib", opts)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

// ---------------------------------------------------------------------------
// version gate and cache
// ---------------------------------------------------------------------------

func TestResolveVersionMismatchRequired(t *testing.T) {
	rec := newRecordingStrategies()
	rec.found(types.MethodPkgConfig, "2.0")
	rec.notFound(types.MethodCMake)
	o := NewOrchestrator(NewRegistry(), rec.strategies(), linuxPair())

	opts := types.NewResolveOptions()
	opts.Version = []string{">=3.0"}
	_, err := o.Resolve(context.Background(), "widget", opts)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "2.0")
	assert.Contains(t, err.Error(), ">=3.0")
}

func TestResolveVersionMismatchOptional(t *testing.T) {
	rec := newRecordingStrategies()
	rec.found(types.MethodPkgConfig, "2.0")
	rec.notFound(types.MethodCMake)
	o := NewOrchestrator(NewRegistry(), rec.strategies(), linuxPair())

	opts := types.NewResolveOptions()
	opts.Version = []string{">=3.0"}
	opts.Required = false
	dep, err := o.Resolve(context.Background(), "widget", opts)
	require.NoError(t, err)
	assert.False(t, dep.Found)
}

func TestResolveCachesByIdentity(t *testing.T) {
	rec := newRecordingStrategies()
	rec.found(types.MethodPkgConfig, "2.0")
	o := NewOrchestrator(NewRegistry(), rec.strategies(), linuxPair())

	_, err := o.Resolve(context.Background(), "foo", types.NewResolveOptions())
	require.NoError(t, err)
	_, err = o.Resolve(context.Background(), "foo", types.NewResolveOptions())
	require.NoError(t, err)

	assert.Len(t, rec.ran, 1, "second request must reuse the cached resolution")
}

func TestResolveCacheHitStillGatesVersion(t *testing.T) {
	rec := newRecordingStrategies()
	rec.found(types.MethodPkgConfig, "2.0")
	o := NewOrchestrator(NewRegistry(), rec.strategies(), linuxPair())

	_, err := o.Resolve(context.Background(), "foo", types.NewResolveOptions())
	require.NoError(t, err)

	// Same identity, stricter constraint: the cached hit must fail the
	// gate instead of being handed out.
	opts := types.NewResolveOptions()
	opts.Version = []string{">=3.0"}
	_, err = o.Resolve(context.Background(), "foo", opts)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
	assert.Len(t, rec.ran, 1)
}

func TestResolveCacheHitAttachesIncludeType(t *testing.T) {
	rec := newRecordingStrategies()
	rec.outcomes[types.MethodPkgConfig] = func() (types.ResolvedDependency, error) {
		return types.ResolvedDependency{
			Found:       true,
			Version:     "1.0",
			CompileArgs: []string{"-I/usr/include/foo"},
		}, nil
	}
	o := NewOrchestrator(NewRegistry(), rec.strategies(), linuxPair())

	_, err := o.Resolve(context.Background(), "foo", types.NewResolveOptions())
	require.NoError(t, err)

	opts := types.NewResolveOptions()
	opts.IncludeType = types.IncludeTypeSystem
	dep, err := o.Resolve(context.Background(), "foo", opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"-isystem/usr/include/foo"}, dep.EffectiveCompileArgs())
}

// ---------------------------------------------------------------------------
// registry dispatch
// ---------------------------------------------------------------------------

func TestResolveFactoryHandler(t *testing.T) {
	rec := newRecordingStrategies()
	registry := NewRegistry()
	factoryRan := false
	require.NoError(t, registry.Register("python", Handler{
		Factory: func(ctx context.Context, name string, machine types.MachineInfo, opts types.ResolveOptions) ([]Candidate, error) {
			return []Candidate{{
				Method: types.MethodConfigTool,
				Try: func(ctx context.Context) (types.ResolvedDependency, error) {
					factoryRan = true
					return types.ResolvedDependency{Found: true, Version: "3.11.2"}, nil
				},
			}}, nil
		},
	}))
	o := NewOrchestrator(registry, rec.strategies(), linuxPair())

	dep, err := o.Resolve(context.Background(), "Python", types.NewResolveOptions())
	require.NoError(t, err)
	assert.True(t, factoryRan, "registry lookup must be case-insensitive")
	assert.Equal(t, types.MethodConfigTool, dep.Method)
}

func TestResolveLanguageRequiresAllowList(t *testing.T) {
	rec := newRecordingStrategies()
	rec.found(types.MethodPkgConfig, "1.0")
	registry := NewRegistry()
	o := NewOrchestrator(registry, rec.strategies(), linuxPair())

	opts := types.NewResolveOptions()
	opts.Language = "cpp"
	_, err := o.Resolve(context.Background(), "foo", opts)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	registry.AllowLanguage("foo")
	_, err = o.Resolve(context.Background(), "foo", opts)
	require.NoError(t, err)
}
