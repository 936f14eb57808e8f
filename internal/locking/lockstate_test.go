package locking

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitops/feedback-api/internal/models"
)

func idp(v int64) *int64 { return &v }

func TestNewCardLockInitialState(t *testing.T) {
	// Unassigned record renders locked.
	assert.True(t, NewCardLock(7, nil).Locked())

	// A record handled by someone else renders locked.
	assert.True(t, NewCardLock(7, idp(9)).Locked())

	// The handler's own card renders unlocked.
	assert.False(t, NewCardLock(7, idp(7)).Locked())
}

func TestRequestUnlockUnassignedTriggersClaim(t *testing.T) {
	lock := NewCardLock(7, nil)
	require.Equal(t, DecisionClaim, lock.RequestUnlock())
	// The lock stays closed until the claim resolves.
	assert.True(t, lock.Locked())
}

func TestRequestUnlockForeignHandlerDeniedLocally(t *testing.T) {
	lock := NewCardLock(7, idp(9))
	require.Equal(t, DecisionDenied, lock.RequestUnlock())
	assert.True(t, lock.Locked())
}

func TestRequestUnlockOwnRecordOpensLocally(t *testing.T) {
	lock := NewCardLock(7, idp(7))
	lock.Lock()
	require.Equal(t, DecisionUnlocked, lock.RequestUnlock())
	assert.False(t, lock.Locked())
}

func TestResolveClaimSuccessAdoptsServerHandler(t *testing.T) {
	lock := NewCardLock(7, nil)
	require.Equal(t, DecisionClaim, lock.RequestUnlock())

	feedback := lock.ResolveClaim(idp(7), nil)
	assert.Equal(t, FeedbackNone, feedback)
	assert.False(t, lock.Locked())
	require.NotNil(t, lock.HandlerID())
	assert.Equal(t, int64(7), *lock.HandlerID())
}

func TestResolveClaimConflictRevertsAndShakes(t *testing.T) {
	lock := NewCardLock(7, nil)
	require.Equal(t, DecisionClaim, lock.RequestUnlock())

	feedback := lock.ResolveClaim(nil, errors.New("record already has a handler"))
	assert.Equal(t, FeedbackShake, feedback)
	assert.True(t, lock.Locked())
}

func TestReconcileRelockSignalForcesLock(t *testing.T) {
	lock := NewCardLock(7, idp(7))
	require.False(t, lock.Locked())

	// Another staff member reopened the record: the poll payload carries no
	// handler and the relock marker.
	lock.Reconcile(nil, models.ActionRelockUI)
	assert.True(t, lock.Locked())
	assert.Nil(t, lock.HandlerID())
}

func TestReconcileWithoutSignalKeepsFlag(t *testing.T) {
	lock := NewCardLock(7, idp(7))
	lock.Reconcile(idp(7), "")
	assert.False(t, lock.Locked())

	lockClosed := NewCardLock(7, nil)
	lockClosed.Reconcile(idp(9), "")
	assert.True(t, lockClosed.Locked())
	require.NotNil(t, lockClosed.HandlerID())
	assert.Equal(t, int64(9), *lockClosed.HandlerID())
}
