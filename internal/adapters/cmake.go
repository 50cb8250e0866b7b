package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"depscout/internal/core"
	"depscout/internal/shared"
	"depscout/internal/types"
)

// cmakeSystemInfo is the per-machine search environment for the
// preliminary filesystem check, computed once per run.
type cmakeSystemInfo struct {
	// SearchRoots are install prefixes scanned for package config
	// files.
	SearchRoots []string
	// LibDirNames are the library directory basenames probed under
	// each root.
	LibDirNames []string
}

// CMakeAdapter resolves a dependency by configuring a synthesized
// one-file project that calls find_package and reconstructing the
// result from the configure trace.
type CMakeAdapter struct {
	Executor *CMakeExecutor
	// sysInfo caches the search environment per machine.
	sysInfo map[types.MachineChoice]cmakeSystemInfo
	goos    string
	// PreferDebug selects the DEBUG imported configuration when a
	// target declares one.
	PreferDebug bool
}

func NewCMakeAdapter(executor *CMakeExecutor, goos string) *CMakeAdapter {
	return &CMakeAdapter{
		Executor: executor,
		sysInfo:  map[types.MachineChoice]cmakeSystemInfo{},
		goos:     goos,
	}
}

func (a *CMakeAdapter) systemInfo(machine types.MachineInfo) cmakeSystemInfo {
	if info, ok := a.sysInfo[machine.Choice]; ok {
		return info
	}
	roots := filepath.SplitList(os.Getenv("CMAKE_PREFIX_PATH"))
	roots = append(roots, "/usr", "/usr/local")
	if machine.IsDarwin() {
		roots = append(roots, "/opt/homebrew", "/Library/Frameworks", "/System/Library/Frameworks")
	}
	info := cmakeSystemInfo{
		SearchRoots: shared.Dedup(roots),
		LibDirNames: []string{"lib", "lib64", "lib32", "libx32", "share"},
	}
	if arch := machine.CPU; arch != "" {
		info.LibDirNames = append([]string{"lib/" + arch + "-linux-gnu"}, info.LibDirNames...)
	}
	a.sysInfo[machine.Choice] = info
	return info
}

// preliminaryFound checks the filesystem for any sign of the package
// before paying for a configure run. It mirrors what find_package
// would look at: Find<Name>.cmake on the module path, <Name>Config
// style files under the prefix roots, and framework or app bundles on
// Apple platforms.
func (a *CMakeAdapter) preliminaryFound(name string, machine types.MachineInfo) bool {
	lname := strings.ToLower(name)
	for _, dir := range filepath.SplitList(os.Getenv("CMAKE_MODULE_PATH")) {
		if dirHasFileFold(dir, "find"+lname+".cmake") {
			return true
		}
	}
	info := a.systemInfo(machine)
	for _, root := range info.SearchRoots {
		if machine.IsDarwin() {
			if dirHasFileFold(root, lname+".framework") || dirHasFileFold(root, lname+".app") {
				return true
			}
		}
		for _, libdir := range info.LibDirNames {
			cmakeDir := filepath.Join(root, libdir, "cmake")
			entries, err := os.ReadDir(cmakeDir)
			if err != nil {
				continue
			}
			for _, entry := range entries {
				if !strings.EqualFold(entry.Name(), name) && !strings.HasPrefix(strings.ToLower(entry.Name()), lname+"-") {
					continue
				}
				pkgDir := filepath.Join(cmakeDir, entry.Name())
				if dirHasFileFold(pkgDir, lname+"config.cmake") || dirHasFileFold(pkgDir, lname+"-config.cmake") {
					return true
				}
			}
		}
	}
	return false
}

// dirHasFileFold reports whether dir contains an entry equal to want
// under case folding.
func dirHasFileFold(dir string, want string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if strings.EqualFold(entry.Name(), want) {
			return true
		}
	}
	return false
}

// Resolve runs the traced lookup.
func (a *CMakeAdapter) Resolve(ctx context.Context, name string, machine types.MachineInfo, opts types.ResolveOptions) (types.ResolvedDependency, error) {
	cmakebin := a.Executor.Locate(ctx, machine)
	if !cmakebin.Found() {
		return types.ResolvedDependency{}, core.NotFound(name, "cmake not found or unusable")
	}
	if !a.preliminaryFound(name, machine) {
		return types.ResolvedDependency{}, core.NotFound(name, "no cmake package files found on disk")
	}

	sourceDir, err := a.writeProject(name, opts)
	if err != nil {
		return types.ResolvedDependency{}, core.ToolFailure(cmakeTool, err)
	}
	defer os.RemoveAll(sourceDir)

	args := []string{
		"--trace-expand",
		"--trace-format=human",
		"--no-warn-unused-cli",
		"-DCMAKE_FIND_PACKAGE_PREFER_CONFIG=ON",
	}
	result, err := a.Executor.Configure(ctx, machine, sourceDir, filepath.Join(sourceDir, "build"), args, nil)
	if err != nil {
		return types.ResolvedDependency{}, err
	}

	// The trace lands on stderr regardless of the configure outcome,
	// and a failed find_package in a REQUIRED-less project still
	// configures cleanly. A hard configure failure means no usable
	// trace.
	if result.ExitCode != 0 && !strings.Contains(result.Stderr, "find_package") {
		return types.ResolvedDependency{}, core.NotFound(name, "cmake configure failed: %s", lastLine(result.Stderr))
	}

	trace := NewCMakeTraceParser()
	trace.Parse(ctx, result.Stderr)

	if found := trace.VarString("PACKAGE_FOUND"); strings.EqualFold(found, "false") || found == "0" {
		return types.ResolvedDependency{}, core.NotFound(name, "find_package reported the package missing")
	}

	dep := types.ResolvedDependency{
		Found:     true,
		Name:      name,
		Version:   a.traceVersion(trace, name),
		Variables: map[string]string{},
	}

	targets, err := a.selectTargets(ctx, trace, name, opts)
	if err != nil {
		return types.ResolvedDependency{}, err
	}
	if len(targets) == 0 {
		if !a.legacyVars(trace, name, &dep) {
			return types.ResolvedDependency{}, core.NotFound(name,
				"trace contains no matching target and no legacy variables (targets: %v)", trace.TargetNames())
		}
		return dep, nil
	}

	var merged targetData
	for _, target := range targets {
		data := resolveTargetData(ctx, trace, target, a.PreferDebug, a.goos == "windows")
		merged.IncludeDirs = append(merged.IncludeDirs, data.IncludeDirs...)
		merged.Defines = append(merged.Defines, data.Defines...)
		merged.CompileOpts = append(merged.CompileOpts, data.CompileOpts...)
		merged.LinkArgs = append(merged.LinkArgs, data.LinkArgs...)
		merged.LinkFlags = append(merged.LinkFlags, data.LinkFlags...)
	}

	var compile []string
	for _, dir := range merged.IncludeDirs {
		compile = append(compile, "-I"+dir)
	}
	compile = append(compile, merged.Defines...)
	compile = append(compile, merged.CompileOpts...)
	dep.CompileArgs = shared.SortedDedup(compile)
	dep.LinkArgs = shared.SortedDedup(append(merged.LinkFlags, merged.LinkArgs...))
	return dep, nil
}

// writeProject synthesizes the minimal project whose configure trace
// carries the find_package data.
func (a *CMakeAdapter) writeProject(name string, opts types.ResolveOptions) (string, error) {
	dir, err := os.MkdirTemp("", "depscout-cmake-")
	if err != nil {
		return "", err
	}
	languages := "NONE"
	if opts.Language != "" {
		switch opts.Language {
		case "c":
			languages = "C"
		case "cpp":
			languages = "CXX"
		case "fortran":
			languages = "Fortran"
		}
	}
	findArgs := name
	if components := append(append([]string{}, opts.Modules...), opts.Components...); len(components) > 0 {
		findArgs += " COMPONENTS " + strings.Join(components, " ")
	}
	content := fmt.Sprintf(`cmake_minimum_required(VERSION %s)
project(probe LANGUAGES %s)
find_package(%s QUIET)
set(PACKAGE_FOUND ${%s_FOUND})
set(PACKAGE_VERSION ${%s_VERSION})
`, minCMakeVersion.String(), languages, findArgs, name, name)
	if err := os.WriteFile(filepath.Join(dir, "CMakeLists.txt"), []byte(content), 0o644); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return dir, nil
}

func (a *CMakeAdapter) traceVersion(trace *CMakeTraceParser, name string) string {
	for _, v := range []string{"PACKAGE_VERSION", name + "_VERSION", strings.ToUpper(name) + "_VERSION"} {
		if version := trace.VarString(v); version != "" {
			return version
		}
	}
	return types.VersionUnknown
}

// selectTargets picks the imported targets to walk. Caller-requested
// modules must all exist; without a request the usual name::name
// shapes are guessed.
func (a *CMakeAdapter) selectTargets(ctx context.Context, trace *CMakeTraceParser, name string, opts types.ResolveOptions) ([]string, error) {
	if len(opts.Modules) > 0 {
		var out []string
		for _, module := range opts.Modules {
			if _, ok := trace.Target(module); !ok {
				return nil, core.ConfigError(
					"dependency %s has no cmake module %q (available: %v)", name, module, trace.TargetNames())
			}
			out = append(out, module)
		}
		for _, module := range opts.OptionalModules {
			if _, ok := trace.Target(module); ok {
				out = append(out, module)
			}
		}
		return out, nil
	}

	guesses := []string{
		name + "::" + name,
		name,
		strings.ReplaceAll(name, "-", "") + "::" + strings.ReplaceAll(name, "-", ""),
	}
	for _, guess := range guesses {
		if target, ok := trace.Target(guess); ok {
			log.Ctx(ctx).Debug().
				Str("dependency", name).
				Str("target", target.Name).
				Msg("guessed cmake target")
			return []string{guess}, nil
		}
	}
	return nil, nil
}

// legacyVars falls back to the flat <NAME>_INCLUDE_DIRS,
// <NAME>_DEFINITIONS and <NAME>_LIBRARIES variables older find modules
// export.
func (a *CMakeAdapter) legacyVars(trace *CMakeTraceParser, name string, dep *types.ResolvedDependency) bool {
	upper := strings.ToUpper(name)
	var includes, definitions, libraries []string
	for _, candidate := range []string{name, upper} {
		includes = append(includes, trace.Var(candidate+"_INCLUDE_DIRS")...)
		includes = append(includes, trace.Var(candidate+"_INCLUDE_DIR")...)
		definitions = append(definitions, trace.Var(candidate+"_DEFINITIONS")...)
		libraries = append(libraries, trace.Var(candidate+"_LIBRARIES")...)
		libraries = append(libraries, trace.Var(candidate+"_LIBS")...)
	}
	if len(includes) == 0 && len(definitions) == 0 && len(libraries) == 0 {
		return false
	}
	var compile []string
	for _, dir := range includes {
		compile = append(compile, "-I"+dir)
	}
	for _, def := range definitions {
		if !strings.HasPrefix(def, "-D") {
			def = "-D" + def
		}
		compile = append(compile, def)
	}
	dep.CompileArgs = shared.SortedDedup(compile)
	var link []string
	var data targetData
	for _, lib := range libraries {
		appendLinkItem(&data, lib, a.goos == "windows")
	}
	link = append(link, data.LinkArgs...)
	dep.LinkArgs = shared.SortedDedup(link)
	return true
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
