package core

import (
	"fmt"
	"sort"
	"strings"

	"depscout/internal/types"
)

// Identity derives the stable cache/dedup key for a dependency request.
// It is a pure function: two requests differing only in keys that do not
// affect what gets found (version constraints, required, include type,
// the not-found message) map to the same identity, and list-valued
// options are canonicalized so element order never matters. The result
// is a plain string so it survives process restarts.
func Identity(name string, opts types.ResolveOptions) string {
	parts := []string{name, "machine=" + string(opts.Machine())}
	if opts.Static {
		parts = append(parts, "static=true")
	}
	if opts.Method != types.MethodAuto {
		parts = append(parts, "method="+string(opts.Method))
	}
	if opts.Language != "" {
		parts = append(parts, "language="+opts.Language)
	}
	parts = appendSet(parts, "modules", opts.Modules)
	parts = appendSet(parts, "optional_modules", opts.OptionalModules)
	parts = appendSet(parts, "components", opts.Components)
	parts = appendSet(parts, "tools", opts.Tools)
	if len(opts.DefineVariable) == 2 {
		parts = append(parts, fmt.Sprintf("define_variable=%s=%s", opts.DefineVariable[0], opts.DefineVariable[1]))
	}
	return strings.Join(parts, "|")
}

func appendSet(parts []string, key string, values []string) []string {
	if len(values) == 0 {
		return parts
	}
	set := map[string]struct{}{}
	for _, v := range values {
		set[v] = struct{}{}
	}
	uniq := make([]string, 0, len(set))
	for v := range set {
		uniq = append(uniq, v)
	}
	sort.Strings(uniq)
	return append(parts, key+"="+strings.Join(uniq, ","))
}
