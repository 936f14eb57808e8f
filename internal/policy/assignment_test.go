package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTryAssignUnassignedRecord(t *testing.T) {
	require.NoError(t, TryAssign(nil, 7))
}

func TestTryAssignRejectsForeignHandler(t *testing.T) {
	current := int64(7)
	require.ErrorIs(t, TryAssign(&current, 9), ErrAlreadyAssigned)
}

func TestTryAssignRejectsRepeatedClaimBySelf(t *testing.T) {
	current := int64(7)
	require.ErrorIs(t, TryAssign(&current, 7), ErrAlreadyAssigned)
}
