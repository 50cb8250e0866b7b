package types

import "runtime"

// MachineInfo describes one machine in the build/host pair.
type MachineInfo struct {
	Choice  MachineChoice
	System  string // GOOS-style system name
	CPU     string // GOARCH-style architecture name
	IsCross bool   // true when this machine differs from the build machine
}

func (m MachineInfo) IsDarwin() bool {
	return m.System == "darwin"
}

func (m MachineInfo) IsWindows() bool {
	return m.System == "windows"
}

// NativeMachine returns the machine depscout itself runs on.
func NativeMachine(choice MachineChoice) MachineInfo {
	return MachineInfo{
		Choice: choice,
		System: runtime.GOOS,
		CPU:    runtime.GOARCH,
	}
}

// MachinePair holds both machines of a configuration run. For native
// builds the two entries are identical.
type MachinePair struct {
	Build MachineInfo
	Host  MachineInfo
}

// Get selects the machine for the given choice.
func (p MachinePair) Get(choice MachineChoice) MachineInfo {
	if choice == MachineBuild {
		return p.Build
	}
	return p.Host
}

// NativePair returns a non-cross machine pair for the current platform.
func NativePair() MachinePair {
	return MachinePair{
		Build: NativeMachine(MachineBuild),
		Host:  NativeMachine(MachineHost),
	}
}
