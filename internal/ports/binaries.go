package ports

import "depscout/internal/types"

// BinaryTablePort answers explicit per-machine binary overrides, the
// machine-file analog of a cross file. Lookup returns the override
// command vector for a tool name, or false when no entry exists.
type BinaryTablePort interface {
	Lookup(machine types.MachineChoice, name string) ([]string, bool)
}
