package ports

import "context"

// RunResult captures one external process invocation.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// Cached reports whether the result was served from the
	// subprocess-output cache without spawning.
	Cached bool
}

// RunnerPort spawns an external command and waits for it. Env entries
// are KEY=VALUE pairs overriding the inherited environment; a nil env
// means inherit unchanged. A spawn failure (missing executable,
// permission error) is returned as an error, a non-zero exit is not.
type RunnerPort interface {
	Run(ctx context.Context, cmd []string, env []string) (RunResult, error)
}
