package policies

import (
	"testing"

	errbuilder "github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depscout/internal/types"
)

func TestValidateToken(t *testing.T) {
	policy := NewMethodPolicy()

	for _, method := range types.KnownMethods {
		assert.NoError(t, policy.ValidateToken(method))
	}

	err := policy.ValidateToken(types.Method("qmake"))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "qmake")
}

func TestFilterDropsFrameworksOffDarwin(t *testing.T) {
	policy := NewMethodPolicy()
	methods := []types.Method{types.MethodPkgConfig, types.MethodExtraFramework, types.MethodCMake}

	linux := types.MachineInfo{Choice: types.MachineHost, System: "linux"}
	assert.Equal(t,
		[]types.Method{types.MethodPkgConfig, types.MethodCMake},
		policy.Filter(methods, linux))

	darwin := types.MachineInfo{Choice: types.MachineHost, System: "darwin"}
	assert.Equal(t, methods, policy.Filter(methods, darwin))
}
