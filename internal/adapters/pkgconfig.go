package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
	"github.com/rs/zerolog/log"

	"depscout/internal/core"
	"depscout/internal/ports"
	"depscout/internal/shared"
	"depscout/internal/types"
)

// PkgConfigAdapter discovers dependencies through a pkg-config style
// package-metadata tool.
type PkgConfigAdapter struct {
	Runner   ports.RunnerPort
	Compiler ports.CompilerPort
	Finder   *ProgramFinder
	Tools    *ToolCache
	// goos overrides runtime.GOOS in tests.
	goos string
}

func NewPkgConfigAdapter(runner ports.RunnerPort, compiler ports.CompilerPort, finder *ProgramFinder, tools *ToolCache) *PkgConfigAdapter {
	return &PkgConfigAdapter{
		Runner:   runner,
		Compiler: compiler,
		Finder:   finder,
		Tools:    tools,
		goos:     runtime.GOOS,
	}
}

const pkgConfigTool = "pkg-config"

// locate finds the pkg-config binary for a machine, memoized for the
// whole run. The PKG_CONFIG environment variable overrides the default
// name; a machine-file entry overrides both.
func (a *PkgConfigAdapter) locate(ctx context.Context, machine types.MachineInfo) Program {
	return a.Tools.Locate(pkgConfigTool, machine.Choice, func() Program {
		name := pkgConfigTool
		if override := os.Getenv("PKG_CONFIG"); override != "" {
			name = override
		}
		program := a.Finder.FindFirst(pkgConfigTool, machine, []string{name}, nil)
		if !program.Found() {
			return program
		}
		result, err := a.Runner.Run(ctx, append(program.Command, "--version"), nil)
		if err != nil || result.ExitCode != 0 {
			log.Ctx(ctx).Warn().
				Str("tool", strings.Join(program.Command, " ")).
				Msg("found pkg-config but could not run it")
			return Program{Name: pkgConfigTool}
		}
		log.Ctx(ctx).Debug().
			Str("path", program.Path()).
			Str("version", strings.TrimSpace(result.Stdout)).
			Msg("found pkg-config")
		return program
	})
}

// Resolve performs one full pkg-config lookup.
func (a *PkgConfigAdapter) Resolve(ctx context.Context, name string, machine types.MachineInfo, opts types.ResolveOptions) (types.ResolvedDependency, error) {
	pkgbin := a.locate(ctx, machine)
	if !pkgbin.Found() {
		return types.ResolvedDependency{}, core.NotFound(name, "pkg-config not found")
	}

	result, err := a.call(ctx, pkgbin, nil, "--modversion", name)
	if err != nil {
		return types.ResolvedDependency{}, core.ToolFailure(pkgConfigTool, err)
	}
	if result.ExitCode != 0 {
		return types.ResolvedDependency{}, core.NotFound(name, "package not registered with pkg-config")
	}
	version := strings.TrimSpace(result.Stdout)

	dep := types.ResolvedDependency{
		Found:     true,
		Name:      name,
		Version:   version,
		Variables: map[string]string{},
	}

	compileArgs, err := a.cflags(ctx, pkgbin, name)
	if err != nil {
		return types.ResolvedDependency{}, err
	}
	dep.CompileArgs = compileArgs

	if err := a.libs(ctx, pkgbin, name, opts, &dep); err != nil {
		return types.ResolvedDependency{}, err
	}

	if prefix, err := a.variable(ctx, pkgbin, name, "prefix", nil); err == nil && prefix != "" {
		dep.Variables["prefix"] = prefix
	}
	return dep, nil
}

func (a *PkgConfigAdapter) call(ctx context.Context, pkgbin Program, env []string, args ...string) (ports.RunResult, error) {
	return a.Runner.Run(ctx, append(pkgbin.Command, args...), env)
}

// cflags queries compile flags. Fortran compilers do not search system
// include paths on their own, so system -I flags must not be
// suppressed there.
func (a *PkgConfigAdapter) cflags(ctx context.Context, pkgbin Program, name string) ([]string, error) {
	var env []string
	if a.Compiler != nil && a.Compiler.Language() == "fortran" {
		env = []string{"PKG_CONFIG_ALLOW_SYSTEM_CFLAGS=1"}
	}
	result, err := a.call(ctx, pkgbin, env, "--cflags", name)
	if err != nil {
		return nil, core.ToolFailure(pkgConfigTool, err)
	}
	if result.ExitCode != 0 {
		return nil, core.MalformedOutput(pkgConfigTool, "could not generate compile args for %s: %s", name, result.Stderr)
	}
	args, err := splitFlags(result.Stdout)
	if err != nil {
		return nil, core.MalformedOutput(pkgConfigTool, "unparseable cflags output for %s", name)
	}
	return a.convertMinGWPaths(args), nil
}

// libs queries link flags twice: the default clean form feeds library
// resolution, and the raw form (system paths forced in) is kept
// separately for consumers that need unfiltered flags.
func (a *PkgConfigAdapter) libs(ctx context.Context, pkgbin Program, name string, opts types.ResolveOptions, dep *types.ResolvedDependency) error {
	args := []string{"--libs"}
	if opts.Static {
		args = append(args, "--static")
	}
	args = append(args, name)

	clean, err := a.call(ctx, pkgbin, nil, args...)
	if err != nil {
		return core.ToolFailure(pkgConfigTool, err)
	}
	if clean.ExitCode != 0 {
		return core.MalformedOutput(pkgConfigTool, "could not generate link args for %s: %s", name, clean.Stderr)
	}
	raw, err := a.call(ctx, pkgbin, []string{"PKG_CONFIG_ALLOW_SYSTEM_LIBS=1"}, args...)
	if err != nil {
		return core.ToolFailure(pkgConfigTool, err)
	}
	if raw.ExitCode != 0 {
		return core.MalformedOutput(pkgConfigTool, "could not generate raw link args for %s: %s", name, raw.Stderr)
	}

	rawTokens, err := splitFlags(raw.Stdout)
	if err != nil {
		return core.MalformedOutput(pkgConfigTool, "unparseable libs output for %s", name)
	}
	dep.RawLinkArgs = a.convertMinGWPaths(rawTokens)

	cleanTokens, err := splitFlags(clean.Stdout)
	if err != nil {
		return core.MalformedOutput(pkgConfigTool, "unparseable libs output for %s", name)
	}
	linkArgs, err := a.resolveLibs(ctx, pkgbin, name, a.convertMinGWPaths(cleanTokens), opts)
	if err != nil {
		return err
	}
	dep.LinkArgs = linkArgs
	return nil
}

// resolveLibs separates search-path flags from library flags, orders
// the search paths (tool prefix first, then the PKG_CONFIG_PATH
// reference ordering) and resolves every -l token to an absolute path
// where the compiler can find one. Unresolved libraries keep their
// bare flag plus the search paths, since the linker may still find
// them through its defaults.
func (a *PkgConfigAdapter) resolveLibs(ctx context.Context, pkgbin Program, name string, tokens []string, opts types.ResolveOptions) ([]string, error) {
	var libPaths []string
	var rest []string
	for _, token := range tokens {
		if strings.HasPrefix(token, "-L") && len(token) > 2 {
			libPaths = append(libPaths, token[2:])
			continue
		}
		rest = append(rest, token)
	}
	prefix := ""
	if len(libPaths) > 0 {
		prefix = a.prefixHint(ctx, pkgbin, name)
	}
	ordered := orderLibPaths(libPaths, prefix, filepath.SplitList(os.Getenv("PKG_CONFIG_PATH")))

	var out []string
	keepPaths := false
	notFound := map[string]struct{}{}
	for _, token := range rest {
		switch {
		case strings.HasPrefix(token, "-l") && len(token) > 2:
			libname := token[2:]
			var found []string
			if a.Compiler != nil {
				found = a.Compiler.FindLibrary(libname, ordered, opts.LibType())
			}
			if len(found) > 0 {
				out = append(out, found...)
				continue
			}
			if _, warned := notFound[libname]; !warned {
				notFound[libname] = struct{}{}
				log.Ctx(ctx).Warn().
					Str("dependency", name).
					Str("library", libname).
					Msg("library not found in search paths, keeping bare flag")
			}
			keepPaths = true
			out = append(out, token)
		case strings.HasSuffix(token, ".la"):
			shlib, err := a.libtoolSharedLib(token)
			if err != nil {
				return nil, err
			}
			out = append(out, shlib)
		default:
			out = append(out, token)
		}
	}
	if keepPaths {
		// Prepend: -L order matters to some linkers.
		prefixed := make([]string, 0, len(ordered)+len(out))
		for _, p := range ordered {
			prefixed = append(prefixed, "-L"+p)
		}
		out = append(prefixed, out...)
	}
	return out, nil
}

func (a *PkgConfigAdapter) prefixHint(ctx context.Context, pkgbin Program, name string) string {
	result, err := a.call(ctx, pkgbin, nil, "--variable=prefix", name)
	if err != nil || result.ExitCode != 0 {
		return ""
	}
	return strings.TrimSpace(result.Stdout)
}

// orderLibPaths sorts library search paths: paths under the package's
// own prefix always come first, and the remainder follow the reference
// ordering of the external path list so the root listed earlier wins
// when two library versions are installed.
func orderLibPaths(paths []string, prefix string, reference []string) []string {
	paths = shared.Dedup(paths)
	type entry struct {
		path string
		pos  int
	}
	var prefixed []string
	var others []entry
	for i, p := range paths {
		if prefix != "" && strings.HasPrefix(p, prefix) {
			prefixed = append(prefixed, p)
			continue
		}
		pos := len(reference) + i
		for ri, ref := range reference {
			if p == ref {
				pos = ri
				break
			}
		}
		others = append(others, entry{path: p, pos: pos})
	}
	sort.SliceStable(others, func(i, j int) bool { return others[i].pos < others[j].pos })
	out := append([]string(nil), prefixed...)
	for _, e := range others {
		out = append(out, e.path)
	}
	return out
}

// libtoolSharedLib substitutes the real shared object for a libtool
// archive reference. Darwin records absolute install paths, so the
// libdir field wins there; elsewhere the library lives next to the .la
// file, either directly or under .libs.
func (a *PkgConfigAdapter) libtoolSharedLib(laFile string) (string, error) {
	dlname := extractLaField(laFile, "dlname")
	if dlname == "" {
		return "", core.MalformedOutput(pkgConfigTool, "libtool archive %s has no dlname field", laFile)
	}
	if a.goos == "darwin" {
		libdir := extractLaField(laFile, "libdir")
		if libdir == "" {
			return filepath.Base(dlname), nil
		}
		return filepath.Join(libdir, filepath.Base(dlname)), nil
	}
	base := filepath.Base(dlname)
	dir := filepath.Dir(laFile)
	direct := filepath.Join(dir, base)
	if fileExists(direct) {
		return direct, nil
	}
	nested := filepath.Join(dir, ".libs", base)
	if fileExists(nested) {
		return nested, nil
	}
	return "", core.MalformedOutput(pkgConfigTool,
		"libtool archive %s references %s but the shared library path could not be computed", laFile, dlname)
}

func extractLaField(laFile string, field string) string {
	data, err := os.ReadFile(laFile)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok || key != field {
			continue
		}
		return strings.Trim(value, "'\"")
	}
	return ""
}

// GetVariable queries a named pkg-config variable, optionally defining
// an extra variable first. An empty result is disambiguated from a
// missing variable through the variable listing.
func (a *PkgConfigAdapter) GetVariable(ctx context.Context, name string, machine types.MachineInfo, variable string, opts types.ResolveOptions, def string) (string, error) {
	pkgbin := a.locate(ctx, machine)
	if !pkgbin.Found() {
		return "", core.NotFound(name, "pkg-config not found")
	}
	value, err := a.variable(ctx, pkgbin, name, variable, opts.DefineVariable)
	if err != nil {
		return "", err
	}
	if value != "" {
		return value, nil
	}
	exists, err := a.variableExists(ctx, pkgbin, name, variable)
	if err != nil {
		return "", err
	}
	if exists {
		return "", nil
	}
	if def != "" {
		return def, nil
	}
	log.Ctx(ctx).Warn().
		Str("dependency", name).
		Str("variable", variable).
		Msg("pkg-config variable not defined")
	return "", nil
}

func (a *PkgConfigAdapter) variable(ctx context.Context, pkgbin Program, name string, variable string, define []string) (string, error) {
	args := []string{}
	if len(define) == 2 {
		args = append(args, "--define-variable="+define[0]+"="+define[1])
	}
	args = append(args, "--variable="+variable, name)
	result, err := a.call(ctx, pkgbin, nil, args...)
	if err != nil {
		return "", core.ToolFailure(pkgConfigTool, err)
	}
	if result.ExitCode != 0 {
		return "", core.NotFound(name, "pkg-config variable query failed: %s", result.Stderr)
	}
	return strings.TrimSpace(result.Stdout), nil
}

var variableListLine = regexp.MustCompile(`(?m)^(\S+)$`)

func (a *PkgConfigAdapter) variableExists(ctx context.Context, pkgbin Program, name string, variable string) (bool, error) {
	result, err := a.call(ctx, pkgbin, nil, "--print-variables", name)
	if err != nil {
		return false, core.ToolFailure(pkgConfigTool, err)
	}
	for _, match := range variableListLine.FindAllString(result.Stdout, -1) {
		if strings.TrimSpace(match) == variable {
			return true, nil
		}
	}
	return false, nil
}

// splitFlags splits tool output honoring shell quoting.
func splitFlags(out string) ([]string, error) {
	parser := shellwords.NewParser()
	return parser.Parse(strings.TrimSpace(out))
}

// convertMinGWPaths rewrites MinGW-style /c/foo paths into drive-letter
// form on Windows. Other absolute-looking paths stay untouched so a
// wrong path surfaces a linker error instead of being silently
// rewritten.
func (a *PkgConfigAdapter) convertMinGWPaths(args []string) []string {
	if a.goos != "windows" {
		return args
	}
	out := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "-L/"):
			out = append(out, "-L"+drivePath(arg[2:]))
		case strings.HasPrefix(arg, "-I/"):
			out = append(out, "-I"+drivePath(arg[2:]))
		case strings.HasPrefix(arg, "/"):
			out = append(out, drivePath(arg))
		default:
			out = append(out, arg)
		}
	}
	return out
}

// drivePath converts /c/foo to c:/foo when the first component is a
// single letter.
func drivePath(path string) string {
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)
	if len(parts) == 2 && len(parts[0]) == 1 {
		return fmt.Sprintf("%s:/%s", parts[0], parts[1])
	}
	return path
}
