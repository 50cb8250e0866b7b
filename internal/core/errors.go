// Package core implements the dependency resolution engine: request
// identity, the version constraint gate, the factory registry and the
// multi-strategy resolution orchestrator.
package core

import (
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"depscout/internal/types"
)

// The error taxonomy is expressed through errbuilder codes:
//
//	CodeNotFound           one strategy could not find the dependency
//	CodeFailedPrecondition the found version fails the constraint
//	CodeUnavailable        an external tool could not be spawned or
//	                       exited unexpectedly
//	CodeDataLoss           tool output could not be parsed
//	CodeInvalidArgument    caller-supplied options are invalid
//	CodeInternal           an engine invariant was violated
//
// The first four are local to one candidate attempt; the orchestrator
// advances past them. The last two always propagate.

// NotFound builds a soft "this strategy did not find it" error.
func NotFound(name string, format string, args ...any) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("dependency %s: %s", name, fmt.Sprintf(format, args...)))
}

// VersionMismatch builds a constraint failure naming both sides.
func VersionMismatch(name string, found string, notMet []string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("dependency %s: found version %q but need %v", name, found, notMet))
}

// ToolFailure wraps a spawn error or unexpected non-zero exit.
func ToolFailure(tool string, cause error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg(fmt.Sprintf("could not run %s", tool)).
		WithCause(cause)
}

// MalformedOutput marks tool output the adapter could not parse.
func MalformedOutput(tool string, format string, args ...any) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeDataLoss).
		WithMsg(fmt.Sprintf("%s: %s", tool, fmt.Sprintf(format, args...)))
}

// ConfigError marks invalid caller-supplied options.
func ConfigError(format string, args ...any) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf(format, args...))
}

// EngineBug marks an invariant violation inside the engine itself.
func EngineBug(format string, args ...any) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf(format, args...))
}

// IsSoftFailure reports whether the orchestrator may advance to the
// next candidate after this error.
func IsSoftFailure(err error) bool {
	switch errbuilder.CodeOf(err) {
	case errbuilder.CodeNotFound,
		errbuilder.CodeFailedPrecondition,
		errbuilder.CodeUnavailable,
		errbuilder.CodeDataLoss:
		return true
	default:
		return false
	}
}

// methodNames renders a tried-strategies list for failure messages.
func methodNames(methods []types.Method) []string {
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		out = append(out, string(m))
	}
	return out
}
