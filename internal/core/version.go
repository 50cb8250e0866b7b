package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	debversion "github.com/knqyf263/go-deb-version"

	"depscout/internal/types"
)

// opTokens is the ordered list of constraint operators tried during
// parsing. Longer tokens must precede shorter ones to avoid false
// matches (">=" before ">").
var opTokens = []types.ConstraintOp{
	types.ConstraintOpGte,
	types.ConstraintOpLte,
	types.ConstraintOpEq2,
	types.ConstraintOpNe,
	types.ConstraintOpEq,
	types.ConstraintOpGt,
	types.ConstraintOpLt,
}

// Constraint is one parsed version constraint expression.
type Constraint struct {
	Op      types.ConstraintOp
	Version string
}

func (c Constraint) String() string {
	return string(c.Op) + c.Version
}

// ParseConstraint parses an expression like ">=1.2". A bare version with
// no operator is treated as an exact match.
func ParseConstraint(raw string) (Constraint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Constraint{}, ConfigError("empty version constraint")
	}
	for _, op := range opTokens {
		if strings.HasPrefix(raw, string(op)) {
			version := strings.TrimSpace(raw[len(op):])
			if version == "" {
				return Constraint{}, ConfigError("invalid version constraint: %s", raw)
			}
			return Constraint{Op: op, Version: version}, nil
		}
	}
	return Constraint{Op: types.ConstraintOpEq, Version: raw}, nil
}

// CompareVersions orders two version strings using Debian vercmp
// semantics, which match the rpm-like ordering the engine needs
// ("2.10" sorts after "2.9"). Unparseable versions compare equal.
func CompareVersions(a string, b string) int {
	v1, err := debversion.NewVersion(a)
	if err != nil {
		return 0
	}
	v2, err := debversion.NewVersion(b)
	if err != nil {
		return 0
	}
	return v1.Compare(v2)
}

func (c Constraint) satisfiedBy(found string) bool {
	cmp := CompareVersions(found, c.Version)
	switch c.Op {
	case types.ConstraintOpEq, types.ConstraintOpEq2:
		return cmp == 0
	case types.ConstraintOpNe:
		return cmp != 0
	case types.ConstraintOpGte:
		return cmp >= 0
	case types.ConstraintOpLte:
		return cmp <= 0
	case types.ConstraintOpGt:
		return cmp > 0
	case types.ConstraintOpLt:
		return cmp < 0
	default:
		return false
	}
}

// VersionCheck is the outcome of evaluating a found version against a
// constraint list.
type VersionCheck struct {
	Satisfied bool
	NotMet    []string
	Met       []string
}

// CheckVersion evaluates every constraint. An unknown found version can
// never satisfy a non-empty constraint list.
func CheckVersion(found string, constraints []string) (VersionCheck, error) {
	if len(constraints) == 0 {
		return VersionCheck{Satisfied: true}, nil
	}
	if found == "" || found == types.VersionUnknown {
		return VersionCheck{NotMet: append([]string(nil), constraints...)}, nil
	}
	check := VersionCheck{Satisfied: true}
	for _, raw := range constraints {
		constraint, err := ParseConstraint(raw)
		if err != nil {
			return VersionCheck{}, err
		}
		if constraint.satisfiedBy(found) {
			check.Met = append(check.Met, raw)
		} else {
			check.Satisfied = false
			check.NotMet = append(check.NotMet, raw)
		}
	}
	return check, nil
}

// GateVersion applies the resolution-time version policy to an adapter
// result: a found dependency must also satisfy the requested
// constraints before it is accepted. The returned error distinguishes
// "unknown version found" from a plain mismatch.
func GateVersion(dep *types.ResolvedDependency, constraints []string) error {
	if !dep.Found || len(constraints) == 0 {
		return nil
	}
	check, err := CheckVersion(dep.Version, constraints)
	if err != nil {
		return err
	}
	if check.Satisfied {
		return nil
	}
	if dep.Version == "" || dep.Version == types.VersionUnknown {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("dependency %s: version is unknown but %v is required", dep.Name, constraints))
	}
	msg := fmt.Sprintf("dependency %s: found version %q but need %v", dep.Name, dep.Version, check.NotMet)
	if len(check.Met) > 0 {
		msg += fmt.Sprintf("; matched: %v", check.Met)
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(msg)
}
