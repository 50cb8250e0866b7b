package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"depscout/internal/types"
)

// LocateRequest asks where a tool would be found for a machine.
type LocateRequest struct {
	Name       string
	Machine    string
	Candidates []string
	SearchDirs []string
}

// LocateResult reports every candidate probed, found or not, so the
// command doubles as a lookup diagnostic.
type LocateResult struct {
	Name    string
	Found   bool
	Command []string
	Probed  []string
	Machine types.MachineChoice
}

func (s *Service) Locate(ctx context.Context, req LocateRequest) (LocateResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return LocateResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("program name is required")
	}
	choice := types.MachineHost
	if strings.EqualFold(req.Machine, string(types.MachineBuild)) {
		choice = types.MachineBuild
	}
	machine := s.Machines.Get(choice)

	result := LocateResult{Name: name, Machine: choice}
	for _, program := range s.Finder.Find(name, machine, req.Candidates, req.SearchDirs) {
		result.Probed = append(result.Probed, program.Name)
		if program.Found() && !result.Found {
			result.Found = true
			result.Command = program.Command
		}
	}
	log.Ctx(ctx).Debug().
		Str("program", name).
		Bool("found", result.Found).
		Msg("program lookup")
	return result, nil
}
