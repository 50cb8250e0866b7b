package adapters

import (
	"context"
	"strings"

	"depscout/internal/ports"
	"depscout/internal/types"
)

// fakeRunner serves scripted subprocess results. Keys are the command
// vector joined by spaces, prefixed with any env overrides so the
// two-phase queries can be told apart.
type fakeRunner struct {
	responses map[string]ports.RunResult
	spawnErrs map[string]error
	calls     []string
	// fallback answers commands the script table does not cover, for
	// invocations that embed unpredictable paths.
	fallback func(cmd []string, env []string) (ports.RunResult, bool)
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		responses: map[string]ports.RunResult{},
		spawnErrs: map[string]error{},
	}
}

func runnerKey(cmd []string, env []string) string {
	parts := append(append([]string{}, env...), cmd...)
	return strings.Join(parts, " ")
}

func (f *fakeRunner) on(key string, result ports.RunResult) {
	f.responses[key] = result
}

func (f *fakeRunner) ok(key string, stdout string) {
	f.responses[key] = ports.RunResult{Stdout: stdout}
}

func (f *fakeRunner) fail(key string, stderr string) {
	f.responses[key] = ports.RunResult{ExitCode: 1, Stderr: stderr}
}

func (f *fakeRunner) Run(_ context.Context, cmd []string, env []string) (ports.RunResult, error) {
	key := runnerKey(cmd, env)
	f.calls = append(f.calls, key)
	if err, ok := f.spawnErrs[key]; ok {
		return ports.RunResult{}, err
	}
	if result, ok := f.responses[key]; ok {
		return result, nil
	}
	if f.fallback != nil {
		if result, ok := f.fallback(cmd, env); ok {
			return result, nil
		}
	}
	return ports.RunResult{ExitCode: 1, Stderr: "unscripted command: " + key}, nil
}

var _ ports.RunnerPort = (*fakeRunner)(nil)

// fakeCompiler answers library and header probes from fixed tables.
type fakeCompiler struct {
	libs       map[string][]string
	headers    map[string]bool
	defines    map[string]string
	frameworks map[string][]string
	language   string

	lastSearchPaths []string
}

func newFakeCompiler() *fakeCompiler {
	return &fakeCompiler{
		libs:       map[string][]string{},
		headers:    map[string]bool{},
		defines:    map[string]string{},
		frameworks: map[string][]string{},
		language:   "c",
	}
}

func (f *fakeCompiler) FindLibrary(name string, searchPaths []string, libType types.LibType) []string {
	f.lastSearchPaths = searchPaths
	return f.libs[name]
}

func (f *fakeCompiler) HasHeader(name string, prefix string, extraArgs []string) (bool, bool) {
	return f.headers[name], false
}

func (f *fakeCompiler) GetDefine(macro string, prefix string, extraArgs []string) (string, bool) {
	value, ok := f.defines[macro]
	return value, ok
}

func (f *fakeCompiler) DefaultIncludeDirs() []string { return nil }

func (f *fakeCompiler) FindFramework(name string, paths []string, allowSystem bool) []string {
	return f.frameworks[name]
}

func (f *fakeCompiler) Language() string { return f.language }

var _ ports.CompilerPort = (*fakeCompiler)(nil)

// testFinder builds a ProgramFinder whose named tools resolve through
// the override table, keeping tests off the real filesystem.
func testFinder(tools ...string) *ProgramFinder {
	table := NewMachineFileAdapter()
	for _, tool := range tools {
		table.Set(types.MachineHost, tool, []string{tool})
		table.Set(types.MachineBuild, tool, []string{tool})
	}
	return NewProgramFinder(table)
}

func hostMachine() types.MachineInfo {
	return types.MachineInfo{Choice: types.MachineHost, System: "linux", CPU: "amd64"}
}

func darwinMachine() types.MachineInfo {
	return types.MachineInfo{Choice: types.MachineHost, System: "darwin", CPU: "arm64"}
}

// countingRunner wraps another runner and counts real invocations.
type countingRunner struct {
	inner ports.RunnerPort
	runs  int
}

func (c *countingRunner) Run(ctx context.Context, cmd []string, env []string) (ports.RunResult, error) {
	c.runs++
	return c.inner.Run(ctx, cmd, env)
}
