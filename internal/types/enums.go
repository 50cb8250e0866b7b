package types

// Method identifies one dependency discovery strategy.
type Method string

const (
	MethodAuto           Method = "auto"
	MethodPkgConfig      Method = "pkg-config"
	MethodConfigTool     Method = "config-tool"
	MethodCMake          Method = "cmake"
	MethodExtraFramework Method = "extraframework"
	MethodSystem         Method = "system"
)

// KnownMethods lists every valid method token, auto included.
var KnownMethods = []Method{
	MethodAuto,
	MethodPkgConfig,
	MethodConfigTool,
	MethodCMake,
	MethodExtraFramework,
	MethodSystem,
}

// MachineChoice selects which machine a dependency is resolved for.
type MachineChoice string

const (
	MachineBuild MachineChoice = "build"
	MachineHost  MachineChoice = "host"
)

// IncludeType controls the post-hoc rewriting of include flags.
type IncludeType string

const (
	IncludeTypePreserve  IncludeType = "preserve"
	IncludeTypeSystem    IncludeType = "system"
	IncludeTypeNonSystem IncludeType = "non-system"
)

// LibType expresses the static/shared link preference passed to the
// compiler's library finder.
type LibType string

const (
	LibTypePreferShared LibType = "prefer-shared"
	LibTypePreferStatic LibType = "prefer-static"
	LibTypeShared       LibType = "shared"
	LibTypeStatic       LibType = "static"
)

// ConstraintOp is a version constraint operator token.
type ConstraintOp string

const (
	ConstraintOpNone ConstraintOp = ""
	ConstraintOpEq   ConstraintOp = "="
	ConstraintOpEq2  ConstraintOp = "=="
	ConstraintOpNe   ConstraintOp = "!="
	ConstraintOpGte  ConstraintOp = ">="
	ConstraintOpLte  ConstraintOp = "<="
	ConstraintOpGt   ConstraintOp = ">"
	ConstraintOpLt   ConstraintOp = "<"
)

// VersionUnknown marks a dependency whose tool reported no version.
const VersionUnknown = "unknown"
