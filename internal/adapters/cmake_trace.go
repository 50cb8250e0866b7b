package adapters

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// CMakeTarget is one target reconstructed from a trace.
type CMakeTarget struct {
	Name       string
	Type       string
	Imported   bool
	Properties map[string][]string
}

// CMakeTraceParser reconstructs variables and targets from the
// human-format trace a traced configure run writes to stderr. Only the
// commands that affect dependency data are interpreted; everything
// else is skipped.
type CMakeTraceParser struct {
	Vars    map[string][]string
	targets map[string]*CMakeTarget
}

func NewCMakeTraceParser() *CMakeTraceParser {
	return &CMakeTraceParser{
		Vars:    map[string][]string{},
		targets: map[string]*CMakeTarget{},
	}
}

// traceLine matches one trace record:
//
//	/path/to/file.cmake(123):  set(FOO bar )
var traceLine = regexp.MustCompile(`^(.*\.(?:cmake|txt))\(([0-9]+)\):\s+(\w+)\((.*)\)\s*$`)

// Parse consumes a whole trace. Unparseable lines are ignored, since
// the trace interleaves with regular tool chatter.
func (p *CMakeTraceParser) Parse(ctx context.Context, trace string) {
	for _, line := range strings.Split(trace, "\n") {
		m := traceLine.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		fn := strings.ToLower(m[3])
		args := splitTraceArgs(stripGeneratorExpressions(m[4]))
		switch fn {
		case "set":
			p.handleSet(args)
		case "unset":
			p.handleUnset(args)
		case "add_executable":
			p.handleAddExecutable(args)
		case "add_library":
			p.handleAddLibrary(args)
		case "add_custom_target":
			p.handleAddCustomTarget(args)
		case "set_property":
			p.handleSetProperty(ctx, args)
		case "set_target_properties":
			p.handleSetTargetProperties(ctx, args)
		}
	}
}

// splitTraceArgs splits a traced argument list on whitespace while
// keeping quoted segments together.
func splitTraceArgs(raw string) []string {
	var out []string
	var cur strings.Builder
	inQuote := false
	for _, r := range raw {
		switch {
		case r == '"':
			inQuote = !inQuote
		case !inQuote && (r == ' ' || r == '\t'):
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// genExpr matches one innermost generator expression.
var genExpr = regexp.MustCompile(`\$<[^<>]*>`)

// stripGeneratorExpressions evaluates the trivial generator
// expressions and drops the rest. Config-dependent data is picked up
// later from the per-config IMPORTED properties instead, so dropping
// an expression here loses nothing the walker needs.
func stripGeneratorExpressions(s string) string {
	for strings.Contains(s, "$<") {
		replaced := genExpr.ReplaceAllStringFunc(s, func(expr string) string {
			body := expr[2 : len(expr)-1]
			op, val, hasVal := strings.Cut(body, ":")
			switch op {
			case "1", "BUILD_INTERFACE", "INSTALL_INTERFACE":
				if hasVal {
					return val
				}
				return ""
			case "0":
				return ""
			default:
				return ""
			}
		})
		if replaced == s {
			break
		}
		s = replaced
	}
	return s
}

func (p *CMakeTraceParser) handleSet(args []string) {
	if len(args) == 0 {
		return
	}
	name := args[0]
	values := args[1:]
	// set(... CACHE type docstring) stores the cache metadata after
	// the value; PARENT_SCOPE carries no value change we care about.
	for i, a := range values {
		if a == "CACHE" {
			values = values[:i]
			break
		}
		if a == "PARENT_SCOPE" {
			return
		}
	}
	if len(values) == 0 {
		delete(p.Vars, name)
		return
	}
	p.Vars[name] = splitCMakeList(values)
}

func (p *CMakeTraceParser) handleUnset(args []string) {
	if len(args) > 0 {
		delete(p.Vars, args[0])
	}
}

func (p *CMakeTraceParser) handleAddExecutable(args []string) {
	if len(args) == 0 {
		return
	}
	imported := containsArg(args, "IMPORTED")
	p.targets[strings.ToLower(args[0])] = &CMakeTarget{
		Name:       args[0],
		Type:       "EXECUTABLE",
		Imported:   imported,
		Properties: map[string][]string{},
	}
}

func (p *CMakeTraceParser) handleAddLibrary(args []string) {
	if len(args) == 0 {
		return
	}
	// add_library(name ALIAS other) introduces no data of its own.
	if len(args) == 3 && args[1] == "ALIAS" {
		if aliased, ok := p.targets[strings.ToLower(args[2])]; ok {
			p.targets[strings.ToLower(args[0])] = aliased
		}
		return
	}
	typ := "STATIC"
	if len(args) > 1 {
		switch args[1] {
		case "STATIC", "SHARED", "MODULE", "OBJECT", "INTERFACE", "UNKNOWN":
			typ = args[1]
		}
	}
	p.targets[strings.ToLower(args[0])] = &CMakeTarget{
		Name:       args[0],
		Type:       typ,
		Imported:   containsArg(args, "IMPORTED"),
		Properties: map[string][]string{},
	}
}

func (p *CMakeTraceParser) handleAddCustomTarget(args []string) {
	if len(args) == 0 {
		return
	}
	p.targets[strings.ToLower(args[0])] = &CMakeTarget{
		Name:       args[0],
		Type:       "CUSTOM",
		Properties: map[string][]string{},
	}
}

// handleSetProperty interprets set_property(TARGET t APPEND PROPERTY
// name values...). Non-target scopes are skipped.
func (p *CMakeTraceParser) handleSetProperty(ctx context.Context, args []string) {
	if len(args) < 2 || args[0] != "TARGET" {
		return
	}
	args = args[1:]
	var targets []string
	for len(args) > 0 && args[0] != "PROPERTY" && args[0] != "APPEND" && args[0] != "APPEND_STRING" {
		targets = append(targets, args[0])
		args = args[1:]
	}
	doAppend := false
	for len(args) > 0 && args[0] != "PROPERTY" {
		if args[0] == "APPEND" || args[0] == "APPEND_STRING" {
			doAppend = true
		}
		args = args[1:]
	}
	if len(args) < 2 {
		return
	}
	prop := args[1]
	values := splitCMakeList(args[2:])
	for _, name := range targets {
		target, ok := p.targets[strings.ToLower(name)]
		if !ok {
			log.Ctx(ctx).Debug().Str("target", name).Msg("trace sets property on unknown target")
			continue
		}
		if doAppend {
			target.Properties[prop] = append(target.Properties[prop], values...)
		} else {
			target.Properties[prop] = values
		}
	}
}

// handleSetTargetProperties interprets set_target_properties(t...
// PROPERTIES k v k v ...).
func (p *CMakeTraceParser) handleSetTargetProperties(ctx context.Context, args []string) {
	var targets []string
	for len(args) > 0 && args[0] != "PROPERTIES" {
		targets = append(targets, args[0])
		args = args[1:]
	}
	if len(args) == 0 {
		return
	}
	args = args[1:]
	for len(args) >= 2 {
		prop, value := args[0], args[1]
		args = args[2:]
		for _, name := range targets {
			target, ok := p.targets[strings.ToLower(name)]
			if !ok {
				log.Ctx(ctx).Debug().Str("target", name).Msg("trace sets property on unknown target")
				continue
			}
			target.Properties[prop] = splitCMakeList([]string{value})
		}
	}
}

// Target looks a target up case-insensitively.
func (p *CMakeTraceParser) Target(name string) (*CMakeTarget, bool) {
	t, ok := p.targets[strings.ToLower(name)]
	return t, ok
}

// TargetNames lists known targets in their declared spelling.
func (p *CMakeTraceParser) TargetNames() []string {
	out := make([]string, 0, len(p.targets))
	for _, t := range p.targets {
		out = append(out, t.Name)
	}
	return out
}

// Var returns a trace variable as a flat list.
func (p *CMakeTraceParser) Var(name string) []string {
	return p.Vars[name]
}

// VarString returns a trace variable joined back into one value.
func (p *CMakeTraceParser) VarString(name string) string {
	return strings.Join(p.Vars[name], ";")
}

// splitCMakeList expands embedded ;-separated list values.
func splitCMakeList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ";") {
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func containsArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}
