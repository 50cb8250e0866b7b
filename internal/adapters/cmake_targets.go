package adapters

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// targetData accumulates the flags contributed by one target and its
// transitive interface link closure.
type targetData struct {
	IncludeDirs []string
	Defines     []string
	CompileOpts []string
	LinkArgs    []string
	LinkFlags   []string
}

// resolveTargetData walks an imported target: interface include
// directories, definitions and options, the imported artifact location
// (per-configuration properties win, with the caller's build type
// preferred and RELEASE as the fallback, and IMPORTED_IMPLIB beating
// IMPORTED_LOCATION), then the link closure through LINK_LIBRARIES and
// INTERFACE_LINK_LIBRARIES. Cycles are cut through the visited set.
func resolveTargetData(ctx context.Context, trace *CMakeTraceParser, name string, preferDebug bool, isWindows bool) targetData {
	var data targetData
	visited := map[string]struct{}{}
	walkTarget(ctx, trace, name, preferDebug, isWindows, visited, &data)
	return data
}

func walkTarget(ctx context.Context, trace *CMakeTraceParser, name string, preferDebug bool, isWindows bool, visited map[string]struct{}, data *targetData) {
	key := strings.ToLower(name)
	if _, seen := visited[key]; seen {
		return
	}
	visited[key] = struct{}{}

	target, ok := trace.Target(name)
	if !ok {
		if strings.Contains(name, "::") {
			log.Ctx(ctx).Warn().
				Str("target", name).
				Msg("link closure references a target the trace never declared")
		}
		appendLinkItem(data, name, isWindows)
		return
	}

	props := target.Properties
	data.IncludeDirs = append(data.IncludeDirs, props["INTERFACE_INCLUDE_DIRECTORIES"]...)
	data.IncludeDirs = append(data.IncludeDirs, props["INTERFACE_SYSTEM_INCLUDE_DIRECTORIES"]...)
	for _, def := range props["INTERFACE_COMPILE_DEFINITIONS"] {
		if !strings.HasPrefix(def, "-D") {
			def = "-D" + def
		}
		data.Defines = append(data.Defines, def)
	}
	data.CompileOpts = append(data.CompileOpts, props["INTERFACE_COMPILE_OPTIONS"]...)
	data.LinkFlags = append(data.LinkFlags, props["INTERFACE_LINK_OPTIONS"]...)

	if location := importedArtifact(props, preferDebug); location != "" {
		data.LinkArgs = append(data.LinkArgs, location)
	} else if target.Imported && target.Type != "INTERFACE" && target.Type != "CUSTOM" {
		log.Ctx(ctx).Warn().
			Str("target", target.Name).
			Msg("imported target has no usable artifact location")
	}

	for _, dep := range props["LINK_LIBRARIES"] {
		walkTarget(ctx, trace, dep, preferDebug, isWindows, visited, data)
	}
	for _, dep := range props["INTERFACE_LINK_LIBRARIES"] {
		walkTarget(ctx, trace, dep, preferDebug, isWindows, visited, data)
	}
}

// importedArtifact picks the artifact path from the IMPORTED property
// family. The configuration is chosen from IMPORTED_CONFIGURATIONS:
// the caller's build type when listed, RELEASE otherwise, then the
// first declared one. The import library always beats the runtime
// location since that is what the linker consumes.
func importedArtifact(props map[string][]string, preferDebug bool) string {
	config := pickConfiguration(props["IMPORTED_CONFIGURATIONS"], preferDebug)
	candidates := []string{"IMPORTED_IMPLIB", "IMPORTED_LOCATION"}
	for _, base := range candidates {
		if config != "" {
			if v := props[base+"_"+config]; len(v) > 0 {
				return v[0]
			}
		}
		if v := props[base]; len(v) > 0 {
			return v[0]
		}
		// The requested config may be absent even when declared; any
		// per-config value is better than nothing.
		for prop, v := range props {
			if strings.HasPrefix(prop, base+"_") && len(v) > 0 {
				return v[0]
			}
		}
	}
	return ""
}

func pickConfiguration(configs []string, preferDebug bool) string {
	want := "RELEASE"
	if preferDebug {
		want = "DEBUG"
	}
	for _, c := range configs {
		if strings.EqualFold(c, want) {
			return strings.ToUpper(c)
		}
	}
	for _, c := range configs {
		if strings.EqualFold(c, "RELEASE") {
			return "RELEASE"
		}
	}
	if len(configs) > 0 {
		return strings.ToUpper(configs[0])
	}
	return ""
}

// appendLinkItem classifies a link-closure entry that is not a known
// target: paths and flags pass through, bare names become a linker
// library reference in the platform's spelling.
func appendLinkItem(data *targetData, item string, isWindows bool) {
	switch {
	case item == "":
	case strings.HasPrefix(item, "-"):
		data.LinkArgs = append(data.LinkArgs, item)
	case strings.ContainsAny(item, "/\\"):
		data.LinkArgs = append(data.LinkArgs, item)
	case strings.Contains(item, "::"):
		data.LinkArgs = append(data.LinkArgs, item)
	case isWindows:
		if !strings.HasSuffix(strings.ToLower(item), ".lib") {
			item += ".lib"
		}
		data.LinkArgs = append(data.LinkArgs, item)
	default:
		data.LinkArgs = append(data.LinkArgs, "-l"+item)
	}
}
