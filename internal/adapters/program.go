package adapters

import (
	"bufio"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"depscout/internal/ports"
	"depscout/internal/types"
)

// Program is a located external executable. Command is the invocation
// vector and may encode an interpreter prefix for shebang scripts.
type Program struct {
	Name    string
	Command []string
}

// Found reports whether the program was located. A handle is found iff
// its first command token is non-empty.
func (p Program) Found() bool {
	return len(p.Command) > 0 && p.Command[0] != ""
}

// Path returns the path of the script or binary being run. For shebang
// scripts this is the last command element, not the interpreter.
func (p Program) Path() string {
	if !p.Found() {
		return ""
	}
	return p.Command[len(p.Command)-1]
}

// windowsExts are the extensions Windows can execute without an
// interpreter.
var windowsExts = []string{"exe", "msc", "com", "bat", "cmd"}

// ProgramFinder locates executables, honoring explicit per-machine
// overrides and platform quirks. It never returns an error: absence is
// an unfound Program so the caller can continue to the next candidate.
type ProgramFinder struct {
	Binaries ports.BinaryTablePort
	// CrossFallback permits falling back to default binary names when
	// locating tools for a cross machine.
	CrossFallback bool
	// goos overrides runtime.GOOS in tests.
	goos string
}

func NewProgramFinder(binaries ports.BinaryTablePort) *ProgramFinder {
	return &ProgramFinder{Binaries: binaries, CrossFallback: true, goos: runtime.GOOS}
}

func (f *ProgramFinder) isWindows() bool {
	return f.goos == "windows"
}

// Find yields one handle per candidate, in priority order. An explicit
// override for the machine wins outright and is never second-guessed.
func (f *ProgramFinder) Find(name string, machine types.MachineInfo, candidates []string, searchDirs []string) []Program {
	if f.Binaries != nil {
		if command, ok := f.Binaries.Lookup(machine.Choice, name); ok {
			return []Program{{Name: name, Command: append([]string(nil), command...)}}
		}
	}
	if machine.IsCross && !f.CrossFallback {
		return nil
	}
	if len(candidates) == 0 {
		candidates = []string{name}
	}
	out := make([]Program, 0, len(candidates))
	for _, candidate := range candidates {
		out = append(out, f.search(candidate, searchDirs))
	}
	return out
}

// FindFirst returns the first found handle, or an unfound one.
func (f *ProgramFinder) FindFirst(name string, machine types.MachineInfo, candidates []string, searchDirs []string) Program {
	for _, p := range f.Find(name, machine, candidates, searchDirs) {
		if p.Found() {
			return p
		}
	}
	return Program{Name: name}
}

func (f *ProgramFinder) search(name string, searchDirs []string) Program {
	// Multi-token or absolute commands are used as-is.
	if strings.ContainsAny(name, " \t") {
		return Program{Name: name, Command: strings.Fields(name)}
	}
	if filepath.IsAbs(name) {
		if cmd := f.commandFor(name); cmd != nil {
			return Program{Name: name, Command: cmd}
		}
		if f.isWindows() {
			// Absolute path without extension: technically wrong but it
			// works in MinGW shells, so people rely on it.
			for _, ext := range windowsExts {
				trial := name + "." + ext
				if fileExists(trial) {
					return Program{Name: name, Command: []string{trial}}
				}
			}
		}
		return Program{Name: name}
	}
	for _, dir := range searchDirs {
		if cmd := f.searchDir(name, dir); cmd != nil {
			return Program{Name: name, Command: cmd}
		}
	}
	if path, err := exec.LookPath(name); err == nil {
		if f.isWindows() {
			if cmd := f.windowsSpecialCases(path); cmd != nil {
				return Program{Name: name, Command: cmd}
			}
			return Program{Name: name}
		}
		return Program{Name: name, Command: []string{path}}
	}
	if f.isWindows() {
		// Interpreted scripts without an extension are invisible to a
		// normal PATH search, so walk PATH entries by hand.
		for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
			if cmd := f.searchDir(name, dir); cmd != nil {
				return Program{Name: name, Command: cmd}
			}
		}
	}
	return Program{Name: name}
}

func (f *ProgramFinder) searchDir(name string, dir string) []string {
	if dir == "" {
		return nil
	}
	trial := filepath.Join(dir, name)
	if fileExists(trial) {
		return f.commandFor(trial)
	}
	if f.isWindows() {
		for _, ext := range windowsExts {
			trialExt := trial + "." + ext
			if fileExists(trialExt) {
				return []string{trialExt}
			}
		}
	}
	return nil
}

// commandFor turns an existing file into an invocation vector: directly
// when executable, via its shebang interpreter otherwise.
func (f *ProgramFinder) commandFor(path string) []string {
	if f.isExecutable(path) {
		return []string{path}
	}
	return f.shebangToCommand(path)
}

func (f *ProgramFinder) isExecutable(path string) bool {
	if f.isWindows() {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		for _, we := range windowsExts {
			if ext == we {
				return true
			}
		}
		return false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}

// shebangToCommand reads the interpreter line of a script. A located
// file that is not independently executable but has a parseable
// interpreter directive still counts as found, with the interpreter
// prepended.
func (f *ProgramFinder) shebangToCommand(script string) []string {
	file, err := os.Open(script)
	if err != nil {
		return nil
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		return nil
	}
	first := strings.TrimSpace(scanner.Text())
	if !strings.HasPrefix(first, "#!") {
		return nil
	}
	// Everything before the first space is the interpreter, the rest is
	// a single argument.
	line, _, _ := strings.Cut(first[2:], "#")
	parts := strings.SplitN(strings.TrimSpace(line), " ", 2)
	if len(parts) == 0 || parts[0] == "" {
		return nil
	}
	commands := parts
	if f.isWindows() {
		// Windows has no UNIX paths; keep only the basename of the
		// interpreter and drop an env indirection.
		if strings.HasPrefix(commands[0], "/") {
			commands[0] = commands[0][strings.LastIndex(commands[0], "/")+1:]
		}
		if commands[0] == "env" && len(commands) > 1 {
			commands = commands[1:]
		}
	}
	return append(commands, script)
}

// windowsSpecialCases handles PATH hits that cannot be run directly: a
// PATHEXT match with a non-native extension needs its shebang
// interpreter, and app-execution-alias redirectors must be replaced by
// the real interpreter location.
func (f *ProgramFinder) windowsSpecialCases(path string) []string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, we := range windowsExts {
		if ext == we {
			if alias := f.resolveExecutionAlias(path); alias != nil {
				return alias
			}
			return []string{path}
		}
	}
	return f.shebangToCommand(path)
}

// resolveExecutionAlias detects the WindowsApps redirector stubs that
// the PATH search can return for store-installed interpreters and
// substitutes the real interpreter found elsewhere on PATH.
func (f *ProgramFinder) resolveExecutionAlias(path string) []string {
	if !strings.Contains(strings.ToLower(path), "windowsapps") {
		return nil
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if strings.Contains(strings.ToLower(dir), "windowsapps") {
			continue
		}
		for _, ext := range windowsExts {
			trial := filepath.Join(dir, base+"."+ext)
			if fileExists(trial) {
				return []string{trial}
			}
		}
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
