package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"depscout/internal/policies"
	"depscout/internal/types"
)

// StrategyBuilder produces one candidate for a dependency request. The
// app layer injects one builder per discovery strategy so the engine
// stays free of adapter wiring.
type StrategyBuilder func(name string, machine types.MachineInfo, opts types.ResolveOptions) Candidate

// Strategies is the closed set of discovery strategies known to the
// orchestrator.
type Strategies struct {
	PkgConfig      StrategyBuilder
	ConfigTool     StrategyBuilder
	CMake          StrategyBuilder
	ExtraFramework StrategyBuilder
	System         StrategyBuilder
}

func (s Strategies) builder(method types.Method) StrategyBuilder {
	switch method {
	case types.MethodPkgConfig:
		return s.PkgConfig
	case types.MethodConfigTool:
		return s.ConfigTool
	case types.MethodCMake:
		return s.CMake
	case types.MethodExtraFramework:
		return s.ExtraFramework
	case types.MethodSystem:
		return s.System
	default:
		return nil
	}
}

// defaultMethods is the auto-detection ordering. The generated-project
// trace strategy goes last: it is the slowest and least reliable of the
// three defaults.
var defaultMethods = []types.Method{
	types.MethodPkgConfig,
	types.MethodExtraFramework,
	types.MethodCMake,
}

// Orchestrator resolves dependency requests by trying an ordered list
// of strategy candidates until one succeeds.
type Orchestrator struct {
	Registry   *Registry
	Strategies Strategies
	Machines   types.MachinePair
	Policy     policies.MethodPolicy

	// resolved memoizes successful lookups by request identity. The
	// version gate still runs per request since two requests sharing an
	// identity may carry different constraints.
	resolved map[string]types.ResolvedDependency
}

func NewOrchestrator(registry *Registry, strategies Strategies, machines types.MachinePair) *Orchestrator {
	return &Orchestrator{
		Registry:   registry,
		Strategies: strategies,
		Machines:   machines,
		Policy:     policies.NewMethodPolicy(),
		resolved:   map[string]types.ResolvedDependency{},
	}
}

// Resolve finds one dependency. Required failures come back as errors;
// optional failures come back as the not-found sentinel with a nil
// error. Errors carrying CodeInvalidArgument or CodeInternal indicate a
// caller or engine bug and are never downgraded.
func (o *Orchestrator) Resolve(ctx context.Context, name string, opts types.ResolveOptions) (types.ResolvedDependency, error) {
	if strings.TrimSpace(name) == "" {
		return types.ResolvedDependency{}, ConfigError("dependency name must not be empty")
	}
	if err := opts.Validate(); err != nil {
		return types.ResolvedDependency{}, err
	}
	if opts.Language != "" && !o.Registry.AcceptsLanguage(name) {
		return types.ResolvedDependency{}, ConfigError("%s dependency does not accept the language keyword", name)
	}
	machine := o.Machines.Get(opts.Machine())

	identity := Identity(name, opts)
	if dep, ok := o.resolved[identity]; ok {
		log.Ctx(ctx).Debug().Str("dependency", name).Msg("reusing cached resolution")
		return o.accept(dep, name, opts)
	}

	candidates, err := o.buildCandidates(ctx, name, machine, opts)
	if err != nil {
		return types.ResolvedDependency{}, err
	}

	var firstErr error
	var tried []types.Method
	for _, candidate := range candidates {
		dep, err := candidate.Try(ctx)
		if err != nil {
			if !IsSoftFailure(err) {
				return types.ResolvedDependency{}, err
			}
			log.Ctx(ctx).Debug().
				Str("dependency", name).
				Str("method", string(candidate.Method)).
				Err(err).
				Msg("strategy failed")
			if firstErr == nil {
				firstErr = err
			}
			tried = append(tried, candidate.Method)
			continue
		}
		if err := GateVersion(&dep, opts.Version); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			tried = append(tried, candidate.Method)
			continue
		}
		if !dep.Found {
			tried = append(tried, candidate.Method)
			continue
		}
		dep.Name = name
		dep.Method = candidate.Method
		o.resolved[identity] = dep
		if !opts.Silent {
			log.Ctx(ctx).Info().
				Str("dependency", name).
				Str("method", string(candidate.Method)).
				Str("version", dep.Version).
				Msg("dependency found")
		}
		return o.accept(dep, name, opts)
	}

	return o.exhausted(ctx, name, opts, tried, firstErr)
}

// accept finalizes a resolved dependency for one request: the version
// gate runs even for cache hits, and the include-type view is attached
// per request.
func (o *Orchestrator) accept(dep types.ResolvedDependency, name string, opts types.ResolveOptions) (types.ResolvedDependency, error) {
	if err := GateVersion(&dep, opts.Version); err != nil {
		if opts.Required {
			return types.ResolvedDependency{}, err
		}
		return types.NotFoundDependency(name), nil
	}
	dep.IncludeType = opts.IncludeType
	return dep, nil
}

func (o *Orchestrator) exhausted(ctx context.Context, name string, opts types.ResolveOptions, tried []types.Method, firstErr error) (types.ResolvedDependency, error) {
	log.Ctx(ctx).Debug().
		Str("dependency", name).
		Strs("tried", methodNames(tried)).
		Msg("dependency not found")
	if !opts.Required {
		return types.NotFoundDependency(name), nil
	}
	// Surface the highest-priority strategy's failure: it came from the
	// preferred detection method and is the most informative.
	if firstErr != nil {
		return types.ResolvedDependency{}, firstErr
	}
	msg := fmt.Sprintf("dependency %q not found", name)
	if len(tried) > 0 {
		msg += fmt.Sprintf(" (tried %s)", strings.Join(methodNames(tried), ", "))
	}
	if opts.NotFoundMessage != "" {
		msg += "\n" + opts.NotFoundMessage
	}
	return types.ResolvedDependency{}, errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(msg)
}

// buildCandidates constructs the ordered candidate list: an explicit
// method override restricts it, a registry handler specializes it, and
// the platform policy filters it.
func (o *Orchestrator) buildCandidates(ctx context.Context, name string, machine types.MachineInfo, opts types.ResolveOptions) ([]Candidate, error) {
	if handler, ok := o.Registry.Lookup(name); ok {
		return o.candidatesFromHandler(ctx, name, machine, opts, handler)
	}

	methods := defaultMethods
	if opts.Method != types.MethodAuto {
		if err := o.Policy.ValidateToken(opts.Method); err != nil {
			return nil, err
		}
		methods = []types.Method{opts.Method}
	}
	return o.candidatesFromMethods(name, machine, opts, methods)
}

func (o *Orchestrator) candidatesFromHandler(ctx context.Context, name string, machine types.MachineInfo, opts types.ResolveOptions, handler Handler) ([]Candidate, error) {
	if handler.Factory != nil {
		candidates, err := handler.Factory(ctx, name, machine, opts)
		if err != nil {
			return nil, err
		}
		if opts.Method != types.MethodAuto {
			if err := o.Policy.ValidateToken(opts.Method); err != nil {
				return nil, err
			}
			filtered := make([]Candidate, 0, len(candidates))
			for _, c := range candidates {
				if c.Method == opts.Method {
					filtered = append(filtered, c)
				}
			}
			if len(filtered) == 0 {
				return nil, ConfigError("dependency %s does not support method %q", name, opts.Method)
			}
			candidates = filtered
		}
		return o.filterCandidates(candidates, machine), nil
	}

	methods := handler.Methods
	if handler.Method != "" {
		methods = []types.Method{handler.Method}
	}
	if opts.Method != types.MethodAuto {
		if err := o.Policy.ValidateToken(opts.Method); err != nil {
			return nil, err
		}
		supported := false
		for _, m := range methods {
			if m == opts.Method {
				supported = true
				break
			}
		}
		if !supported {
			return nil, ConfigError("dependency %s does not support method %q", name, opts.Method)
		}
		methods = []types.Method{opts.Method}
	}
	return o.candidatesFromMethods(name, machine, opts, methods)
}

func (o *Orchestrator) candidatesFromMethods(name string, machine types.MachineInfo, opts types.ResolveOptions, methods []types.Method) ([]Candidate, error) {
	methods = o.Policy.Filter(methods, machine)
	candidates := make([]Candidate, 0, len(methods))
	for _, method := range methods {
		builder := o.Strategies.builder(method)
		if builder == nil {
			return nil, EngineBug("no strategy builder wired for method %q", method)
		}
		candidates = append(candidates, builder(name, machine, opts))
	}
	return candidates, nil
}

func (o *Orchestrator) filterCandidates(candidates []Candidate, machine types.MachineInfo) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if o.Policy.Applicable(c.Method, machine) {
			out = append(out, c)
		}
	}
	return out
}
