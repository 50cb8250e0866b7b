package types

import (
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// ResolveOptions is the typed keyword bag attached to a dependency
// request. Zero values mean "not given"; Required defaults to true via
// NewResolveOptions.
type ResolveOptions struct {
	// Version holds constraint expressions such as ">=1.2" or "<2.0".
	Version []string
	// Required escalates resolution failure to a hard error.
	Required bool
	// Static prefers static libraries during library resolution.
	Static bool
	// Method restricts discovery to a single strategy; MethodAuto tries
	// the default ordered list.
	Method Method
	// Native selects the build machine instead of the host machine.
	Native bool
	// Modules, OptionalModules and Components name sub-components with
	// adapter-specific semantics.
	Modules         []string
	OptionalModules []string
	Components      []string
	// Language restricts which compiler drives discovery. Only accepted
	// for dependencies on the registry's language allow-list.
	Language string
	// IncludeType selects the post-hoc include flag rewriting.
	IncludeType IncludeType
	// Tools overrides the config-tool executable basenames.
	Tools []string
	// DefineVariable is an optional name/value pair defined in the
	// package registry before variable queries.
	DefineVariable []string
	// NotFoundMessage is shown verbatim on failure; it never affects
	// lookup or caching.
	NotFoundMessage string
	// Silent suppresses per-dependency progress logging.
	Silent bool
}

// NewResolveOptions returns the option defaults for a request.
func NewResolveOptions() ResolveOptions {
	return ResolveOptions{
		Required:    true,
		Method:      MethodAuto,
		IncludeType: IncludeTypePreserve,
	}
}

// Machine maps the native flag to a machine choice.
func (o ResolveOptions) Machine() MachineChoice {
	if o.Native {
		return MachineBuild
	}
	return MachineHost
}

// LibType derives the library finder preference from the static flag.
func (o ResolveOptions) LibType() LibType {
	if o.Static {
		return LibTypePreferStatic
	}
	return LibTypePreferShared
}

// Validate rejects malformed option values before any lookup starts.
func (o ResolveOptions) Validate() error {
	valid := false
	for _, m := range KnownMethods {
		if o.Method == m {
			valid = true
			break
		}
	}
	if !valid {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("method %q is invalid, allowed methods are %v", o.Method, KnownMethods))
	}
	switch o.IncludeType {
	case IncludeTypePreserve, IncludeTypeSystem, IncludeTypeNonSystem:
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("include_type %q is invalid", o.IncludeType))
	}
	if len(o.DefineVariable) != 0 && len(o.DefineVariable) != 2 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("define_variable must be a name and a value")
	}
	return nil
}
