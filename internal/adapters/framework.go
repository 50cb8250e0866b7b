package adapters

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"depscout/internal/core"
	"depscout/internal/ports"
	"depscout/internal/types"
)

// defaultFrameworkPaths are searched when the caller supplies none.
var defaultFrameworkPaths = []string{
	"/Library/Frameworks",
	"/System/Library/Frameworks",
}

// FrameworkAdapter finds macOS framework bundles. The name match is
// case-insensitive since bundle capitalization rarely matches what
// build files ask for.
type FrameworkAdapter struct {
	Compiler ports.CompilerPort
	Paths    []string
}

func NewFrameworkAdapter(compiler ports.CompilerPort, paths []string) *FrameworkAdapter {
	if len(paths) == 0 {
		paths = defaultFrameworkPaths
	}
	return &FrameworkAdapter{Compiler: compiler, Paths: paths}
}

func (a *FrameworkAdapter) Resolve(ctx context.Context, name string, machine types.MachineInfo, opts types.ResolveOptions) (types.ResolvedDependency, error) {
	if !machine.IsDarwin() {
		return types.ResolvedDependency{}, core.NotFound(name, "frameworks exist only on darwin")
	}
	// The compiler knows additional search roots; its answer wins when
	// it has one.
	if a.Compiler != nil {
		if linkArgs := a.Compiler.FindFramework(name, a.Paths, true); len(linkArgs) > 0 {
			return types.ResolvedDependency{
				Found:    true,
				Name:     name,
				Version:  types.VersionUnknown,
				LinkArgs: linkArgs,
			}, nil
		}
	}
	for _, dir := range a.Paths {
		bundle, ok := findBundle(dir, name)
		if !ok {
			continue
		}
		dep := types.ResolvedDependency{
			Found:   true,
			Name:    name,
			Version: types.VersionUnknown,
			LinkArgs: []string{
				"-F" + dir,
				"-framework", strings.TrimSuffix(filepath.Base(bundle), ".framework"),
			},
		}
		if headers := headersDir(bundle); headers != "" {
			dep.CompileArgs = []string{"-I" + headers}
		}
		log.Ctx(ctx).Debug().
			Str("dependency", name).
			Str("bundle", bundle).
			Msg("found framework")
		return dep, nil
	}
	return types.ResolvedDependency{}, core.NotFound(name, "no framework bundle found in %v", a.Paths)
}

func findBundle(dir string, name string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	want := strings.ToLower(name) + ".framework"
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if strings.ToLower(entry.Name()) == want {
			return filepath.Join(dir, entry.Name()), true
		}
	}
	return "", false
}

// headersDir locates the bundle's header directory, falling back to
// the current version's headers when the top-level symlink is absent.
func headersDir(bundle string) string {
	direct := filepath.Join(bundle, "Headers")
	if info, err := os.Stat(direct); err == nil && info.IsDir() {
		return direct
	}
	versioned := filepath.Join(bundle, "Versions", "Current", "Headers")
	if info, err := os.Stat(versioned); err == nil && info.IsDir() {
		return versioned
	}
	versions, err := os.ReadDir(filepath.Join(bundle, "Versions"))
	if err != nil {
		return ""
	}
	for _, v := range versions {
		candidate := filepath.Join(bundle, "Versions", v.Name(), "Headers")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	return ""
}
