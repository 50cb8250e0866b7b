// Package adapters implements the discovery strategies and the
// process/filesystem plumbing they share: the external program locator,
// the caching subprocess runner, and one adapter per strategy.
package adapters

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"depscout/internal/ports"
	"depscout/internal/shared"
)

// ExecRunner spawns commands on the host.
type ExecRunner struct{}

func NewExecRunner() ExecRunner {
	return ExecRunner{}
}

func (r ExecRunner) Run(ctx context.Context, cmd []string, env []string) (ports.RunResult, error) {
	if len(cmd) == 0 || cmd[0] == "" {
		return ports.RunResult{}, shared.CommandError("", os.ErrNotExist)
	}
	var stdout, stderr strings.Builder
	c := exec.CommandContext(ctx, cmd[0], cmd[1:]...)
	if env != nil {
		c.Env = append(os.Environ(), env...)
	}
	c.Stdout = &stdout
	c.Stderr = &stderr
	err := c.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// Spawn failure: missing executable or permissions.
			return ports.RunResult{}, err
		}
	}
	result := ports.RunResult{
		ExitCode: c.ProcessState.ExitCode(),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	log.Ctx(ctx).Debug().
		Strs("cmd", cmd).
		Int("exit", result.ExitCode).
		Msg("spawned external tool")
	return result, nil
}

// cacheKeyVars are the registry search-path variables that must be part
// of the subprocess cache key: two configured search roots must never
// collide in the cache.
var cacheKeyVars = []string{
	"PKG_CONFIG_PATH",
	"PKG_CONFIG_LIBDIR",
	"PKG_CONFIG_SYSROOT_DIR",
	"PKG_CONFIG_ALLOW_SYSTEM_CFLAGS",
	"PKG_CONFIG_ALLOW_SYSTEM_LIBS",
	"CMAKE_PREFIX_PATH",
}

// CachedRunner memoizes subprocess output process-wide, keyed by
// command vector plus an environment snapshot. Entries are append-only
// for the lifetime of a run; execution is single-threaded so no
// locking is layered on top of the cache's own.
type CachedRunner struct {
	inner ports.RunnerPort
	cache *lru.Cache[string, ports.RunResult]
}

const runnerCacheSize = 4096

func NewCachedRunner(inner ports.RunnerPort) *CachedRunner {
	cache, _ := lru.New[string, ports.RunResult](runnerCacheSize)
	return &CachedRunner{inner: inner, cache: cache}
}

func (r *CachedRunner) Run(ctx context.Context, cmd []string, env []string) (ports.RunResult, error) {
	key := r.key(cmd, env)
	if result, ok := r.cache.Get(key); ok {
		result.Cached = true
		return result, nil
	}
	result, err := r.inner.Run(ctx, cmd, env)
	if err != nil {
		return ports.RunResult{}, err
	}
	r.cache.Add(key, result)
	return result, nil
}

func (r *CachedRunner) key(cmd []string, env []string) string {
	environ := os.Environ()
	environ = append(environ, env...)
	return strings.Join(cmd, "\x00") + "\x01" + shared.EnvSnapshot(environ, cacheKeyVars...)
}

var _ ports.RunnerPort = ExecRunner{}
var _ ports.RunnerPort = (*CachedRunner)(nil)
