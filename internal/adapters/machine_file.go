package adapters

import (
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"depscout/internal/ports"
	"depscout/internal/types"
)

// machineFile is the on-disk shape of a machine file: per-machine
// binary override tables, the cross-file analog.
//
//	binaries:
//	  host:
//	    pkg-config: /usr/aarch64-linux-gnu/bin/pkg-config
//	    cmake: [cmake, -DCMAKE_TOOLCHAIN_FILE=/opt/tc.cmake]
type machineFile struct {
	Binaries map[string]map[string]binaryEntry `yaml:"binaries"`
}

// binaryEntry accepts either a single string or a command list.
type binaryEntry struct {
	command []string
}

func (e *binaryEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		e.command = []string{s}
		return nil
	default:
		return node.Decode(&e.command)
	}
}

// MachineFileAdapter resolves explicit binary overrides loaded from a
// machine file.
type MachineFileAdapter struct {
	binaries map[types.MachineChoice]map[string][]string
}

// NewMachineFileAdapter returns an adapter with no overrides.
func NewMachineFileAdapter() *MachineFileAdapter {
	return &MachineFileAdapter{binaries: map[types.MachineChoice]map[string][]string{}}
}

// LoadMachineFile parses a machine file from disk.
func LoadMachineFile(path string) (*MachineFileAdapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("machine file not found").
			WithCause(err)
	}
	var parsed machineFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse machine file yaml").
			WithCause(err)
	}
	adapter := NewMachineFileAdapter()
	for machine, entries := range parsed.Binaries {
		choice := types.MachineChoice(machine)
		if choice != types.MachineBuild && choice != types.MachineHost {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("machine file binaries keys must be build or host")
		}
		table := map[string][]string{}
		for name, entry := range entries {
			table[name] = entry.command
		}
		adapter.binaries[choice] = table
	}
	return adapter, nil
}

// Set installs one override programmatically.
func (a *MachineFileAdapter) Set(machine types.MachineChoice, name string, command []string) {
	if a.binaries[machine] == nil {
		a.binaries[machine] = map[string][]string{}
	}
	a.binaries[machine][name] = command
}

func (a *MachineFileAdapter) Lookup(machine types.MachineChoice, name string) ([]string, bool) {
	command, ok := a.binaries[machine][name]
	return command, ok
}

var _ ports.BinaryTablePort = (*MachineFileAdapter)(nil)
