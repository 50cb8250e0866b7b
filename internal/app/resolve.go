package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"depscout/internal/core"
	"depscout/internal/types"
)

// ResolveRequest is the CLI-facing shape of one dependency lookup.
type ResolveRequest struct {
	Name            string
	Version         []string
	Required        bool
	Static          bool
	Method          string
	Machine         string
	Language        string
	Modules         []string
	OptionalModules []string
	Components      []string
	IncludeType     string
	Tools           []string
	NotFoundMessage string
	Silent          bool
}

// ResolveResult carries the resolved dependency plus the identity the
// run cached it under.
type ResolveResult struct {
	Dependency types.ResolvedDependency
	Identity   string
}

func (s *Service) Resolve(ctx context.Context, req ResolveRequest) (ResolveResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return ResolveResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("dependency name is required")
	}

	opts := types.NewResolveOptions()
	opts.Version = req.Version
	opts.Required = req.Required
	opts.Static = req.Static
	opts.Modules = req.Modules
	opts.OptionalModules = req.OptionalModules
	opts.Components = req.Components
	opts.Language = req.Language
	opts.Tools = req.Tools
	opts.NotFoundMessage = req.NotFoundMessage
	opts.Silent = req.Silent
	if req.Method != "" {
		opts.Method = types.Method(strings.ToLower(req.Method))
	}
	if req.Machine != "" {
		opts.Native = strings.EqualFold(req.Machine, string(types.MachineBuild))
	}
	if req.IncludeType != "" {
		opts.IncludeType = types.IncludeType(strings.ToLower(req.IncludeType))
	}

	dep, err := s.orchestrator.Resolve(ctx, name, opts)
	if err != nil {
		return ResolveResult{}, err
	}
	return ResolveResult{
		Dependency: dep,
		Identity:   core.Identity(name, opts),
	}, nil
}
