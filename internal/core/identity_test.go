package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"depscout/internal/types"
)

func TestIdentityIgnoresOutcomeOnlyOptions(t *testing.T) {
	base := types.NewResolveOptions()

	withVersion := base
	withVersion.Version = []string{">=1.0"}
	withVersion.Required = false
	withVersion.IncludeType = types.IncludeTypeSystem
	withVersion.NotFoundMessage = "install libfoo-dev"

	assert.Equal(t, Identity("foo", base), Identity("foo", withVersion))
}

func TestIdentityDistinguishesLookupOptions(t *testing.T) {
	base := types.NewResolveOptions()
	seen := map[string]struct{}{Identity("foo", base): {}}

	variants := []func(*types.ResolveOptions){
		func(o *types.ResolveOptions) { o.Static = true },
		func(o *types.ResolveOptions) { o.Native = true },
		func(o *types.ResolveOptions) { o.Method = types.MethodCMake },
		func(o *types.ResolveOptions) { o.Language = "cpp" },
		func(o *types.ResolveOptions) { o.Modules = []string{"Core"} },
		func(o *types.ResolveOptions) { o.Tools = []string{"llvm-config-15"} },
		func(o *types.ResolveOptions) { o.DefineVariable = []string{"prefix", "/opt"} },
	}
	for i, mutate := range variants {
		opts := types.NewResolveOptions()
		mutate(&opts)
		id := Identity("foo", opts)
		_, dup := seen[id]
		assert.False(t, dup, "variant %d collided: %s", i, id)
		seen[id] = struct{}{}
	}
}

func TestIdentityListOrderDoesNotMatter(t *testing.T) {
	a := types.NewResolveOptions()
	a.Modules = []string{"Widgets", "Core", "Core"}
	b := types.NewResolveOptions()
	b.Modules = []string{"Core", "Widgets"}

	assert.Equal(t, Identity("qt5", a), Identity("qt5", b))
}

func TestIdentityIsAPlainString(t *testing.T) {
	opts := types.NewResolveOptions()
	opts.Modules = []string{"Core"}

	// Two independent computations must agree, making the key safe to
	// persist across runs.
	assert.Equal(t, Identity("qt5", opts), Identity("qt5", opts))
	assert.NotEmpty(t, Identity("qt5", opts))
}
