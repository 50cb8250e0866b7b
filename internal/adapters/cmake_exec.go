package adapters

import (
	"context"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"

	"depscout/internal/core"
	"depscout/internal/ports"
	"depscout/internal/types"
)

const cmakeTool = "cmake"

// minCMakeVersion is the floor below which the trace flags this
// adapter depends on are missing or unreliable.
var minCMakeVersion = semver.MustParse("3.14.0")

// CMakeExecutor locates and runs the cmake binary for one machine.
// Location and version probing happen once per run; individual calls
// go through the caching runner so repeated identical invocations are
// free.
type CMakeExecutor struct {
	Runner ports.RunnerPort
	Finder *ProgramFinder
	Tools  *ToolCache

	// generator remembers the first backend that produced a working
	// configure run, so later lookups skip the failed ones.
	generator string
	triedGens bool
}

func NewCMakeExecutor(runner ports.RunnerPort, finder *ProgramFinder, tools *ToolCache) *CMakeExecutor {
	return &CMakeExecutor{Runner: runner, Finder: finder, Tools: tools}
}

// Locate returns the cmake binary for the machine, or an unfound
// handle. Binaries that are present but too old are rejected here so
// every caller sees the same answer.
func (e *CMakeExecutor) Locate(ctx context.Context, machine types.MachineInfo) Program {
	return e.Tools.Locate(cmakeTool, machine.Choice, func() Program {
		program := e.Finder.FindFirst(cmakeTool, machine, nil, nil)
		if !program.Found() {
			return program
		}
		result, err := e.Runner.Run(ctx, append(program.Command, "--version"), nil)
		if err != nil || result.ExitCode != 0 {
			log.Ctx(ctx).Warn().
				Str("tool", strings.Join(program.Command, " ")).
				Msg("found cmake but could not run it")
			return Program{Name: cmakeTool}
		}
		version := parseCMakeVersion(result.Stdout)
		if version == "" {
			log.Ctx(ctx).Warn().Msg("cmake did not report a parseable version")
			return Program{Name: cmakeTool}
		}
		if v, err := semver.NewVersion(version); err == nil && v.LessThan(minCMakeVersion) {
			log.Ctx(ctx).Warn().
				Str("version", version).
				Str("required", minCMakeVersion.String()).
				Msg("cmake is too old for dependency tracing")
			return Program{Name: cmakeTool}
		}
		log.Ctx(ctx).Debug().
			Str("path", program.Path()).
			Str("version", version).
			Msg("found cmake")
		return program
	})
}

// parseCMakeVersion extracts the version number from the first line of
// cmake --version output ("cmake version 3.27.4").
func parseCMakeVersion(out string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	fields := strings.Fields(line)
	for _, f := range fields {
		if len(f) > 0 && f[0] >= '0' && f[0] <= '9' {
			return sanitizeVersion(f)
		}
	}
	return ""
}

// generatorCandidates is tried in order until one configures cleanly.
// The empty string lets cmake pick its platform default.
var generatorCandidates = []string{"", "Ninja", "Unix Makefiles"}

// Configure runs a traced configure of the project in sourceDir. It
// walks the generator candidates on the first call and reuses the
// winner afterwards. The returned result is from the successful run.
func (e *CMakeExecutor) Configure(ctx context.Context, machine types.MachineInfo, sourceDir string, buildDir string, args []string, env []string) (ports.RunResult, error) {
	program := e.Locate(ctx, machine)
	if !program.Found() {
		return ports.RunResult{}, core.NotFound(cmakeTool, "cmake not found or unusable")
	}

	candidates := generatorCandidates
	if e.triedGens {
		candidates = []string{e.generator}
	}

	var lastResult ports.RunResult
	var lastErr error
	for _, gen := range candidates {
		cmd := append([]string{}, program.Command...)
		cmd = append(cmd, args...)
		if gen != "" {
			cmd = append(cmd, "-G", gen)
		}
		cmd = append(cmd, "-S", sourceDir, "-B", buildDir)
		result, err := e.Runner.Run(ctx, cmd, env)
		if err != nil {
			lastErr = err
			continue
		}
		if result.ExitCode == 0 {
			if !e.triedGens {
				e.triedGens = true
				e.generator = gen
				log.Ctx(ctx).Debug().Str("generator", gen).Msg("cmake generator selected")
			}
			return result, nil
		}
		lastResult = result
	}
	if lastErr != nil {
		return ports.RunResult{}, core.ToolFailure(cmakeTool, lastErr)
	}
	return lastResult, nil
}
