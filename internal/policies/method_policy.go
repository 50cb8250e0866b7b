// Package policies holds the applicability rules the orchestrator
// consults while constructing candidate lists.
package policies

import (
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"depscout/internal/types"
)

// MethodPolicy validates method tokens and filters strategies that
// cannot possibly apply on a given machine.
type MethodPolicy struct{}

func NewMethodPolicy() MethodPolicy {
	return MethodPolicy{}
}

// ValidateToken checks a method override against the fixed enumeration.
func (p MethodPolicy) ValidateToken(method types.Method) error {
	for _, m := range types.KnownMethods {
		if method == m {
			return nil
		}
	}
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("method %q is invalid, allowed methods are %v", method, types.KnownMethods))
}

// Applicable reports whether a strategy can work on the target machine
// at all. Framework search only exists on Darwin.
func (p MethodPolicy) Applicable(method types.Method, machine types.MachineInfo) bool {
	if method == types.MethodExtraFramework {
		return machine.IsDarwin()
	}
	return true
}

// Filter removes inapplicable strategies, preserving order.
func (p MethodPolicy) Filter(methods []types.Method, machine types.MachineInfo) []types.Method {
	out := make([]types.Method, 0, len(methods))
	for _, m := range methods {
		if p.Applicable(m, machine) {
			out = append(out, m)
		}
	}
	return out
}
