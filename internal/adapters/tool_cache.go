package adapters

import (
	"depscout/internal/types"
)

// ToolCache remembers program lookups per (tool, machine) for the
// lifetime of a run so many dependency requests share one filesystem
// probe. Writes are first-wins: a negative result is remembered too.
type ToolCache struct {
	entries map[toolKey]Program
}

type toolKey struct {
	name    string
	machine types.MachineChoice
}

func NewToolCache() *ToolCache {
	return &ToolCache{entries: map[toolKey]Program{}}
}

// Locate returns the cached handle for a tool, running locate on a
// miss. The first stored result wins for the rest of the run.
func (c *ToolCache) Locate(name string, machine types.MachineChoice, locate func() Program) Program {
	key := toolKey{name: name, machine: machine}
	if program, ok := c.entries[key]; ok {
		return program
	}
	program := locate()
	c.entries[key] = program
	return program
}
