package types

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// ResolvedDependency is the canonical output of a resolution attempt.
// Adapters construct it once; afterwards it is treated as immutable
// except for the documented Partial derivation.
type ResolvedDependency struct {
	Found   bool
	Name    string
	Method  Method
	Version string

	CompileArgs []string
	LinkArgs    []string
	// RawLinkArgs keeps the unresolved, pre-search-path link flags for
	// consumers that need the unfiltered form.
	RawLinkArgs []string

	// Sources are companion files some libraries require to be compiled
	// directly into the consumer.
	Sources []string

	SubDependencies []ResolvedDependency

	// Variables holds tool-specific key/value facts such as an install
	// prefix.
	Variables map[string]string

	IncludeType IncludeType
}

// NotFoundDependency is the canonical always-not-found sentinel.
func NotFoundDependency(name string) ResolvedDependency {
	return ResolvedDependency{
		Name:        name,
		Version:     VersionUnknown,
		IncludeType: IncludeTypePreserve,
	}
}

// EffectiveCompileArgs returns the compile args with the include-type
// rewrite applied. Preserve returns the args untouched.
func (d ResolvedDependency) EffectiveCompileArgs() []string {
	switch d.IncludeType {
	case IncludeTypeSystem:
		return rewriteIncludes(d.CompileArgs, "-I", "-isystem")
	case IncludeTypeNonSystem:
		return rewriteIncludes(d.CompileArgs, "-isystem", "-I")
	default:
		return append([]string(nil), d.CompileArgs...)
	}
}

func rewriteIncludes(args []string, from string, to string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if strings.HasPrefix(arg, from) {
			out = append(out, to+arg[len(from):])
			continue
		}
		out = append(out, arg)
	}
	return out
}

// Variable returns a named tool fact, falling back to def when it is
// non-empty. Asking a not-found dependency without a default fails.
func (d ResolvedDependency) Variable(name string, def string) (string, error) {
	if !d.Found {
		if def != "" {
			return def, nil
		}
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("dependency %s was not found, variable %q is undefined", d.Name, name))
	}
	if value, ok := d.Variables[name]; ok {
		return value, nil
	}
	if def != "" {
		return def, nil
	}
	return "", errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("variable %q is not defined for dependency %s", name, d.Name))
}

// PartialSpec selects which facets a Partial derivation keeps.
type PartialSpec struct {
	CompileArgs bool
	LinkArgs    bool
	Links       bool
	Includes    bool
	Sources     bool
}

// Partial returns a shallow filtered copy retaining only the requested
// facets. The receiver is never mutated, so deriving twice from the same
// source yields equal results.
func (d ResolvedDependency) Partial(keep PartialSpec) ResolvedDependency {
	out := ResolvedDependency{
		Found:       d.Found,
		Name:        d.Name,
		Method:      d.Method,
		Version:     d.Version,
		IncludeType: d.IncludeType,
	}
	for _, arg := range d.CompileArgs {
		isInclude := strings.HasPrefix(arg, "-I") || strings.HasPrefix(arg, "-isystem")
		if keep.CompileArgs || (keep.Includes && isInclude) {
			out.CompileArgs = append(out.CompileArgs, arg)
		}
	}
	for _, arg := range d.LinkArgs {
		isLink := strings.HasPrefix(arg, "-l") || strings.HasSuffix(arg, ".a") ||
			strings.HasSuffix(arg, ".so") || strings.HasSuffix(arg, ".dylib") ||
			strings.HasSuffix(arg, ".lib") || strings.HasSuffix(arg, ".dll")
		if keep.LinkArgs || (keep.Links && isLink) {
			out.LinkArgs = append(out.LinkArgs, arg)
		}
	}
	if keep.Sources {
		out.Sources = append(out.Sources, d.Sources...)
	}
	for _, sub := range d.SubDependencies {
		out.SubDependencies = append(out.SubDependencies, sub.Partial(keep))
	}
	return out
}
