// Package locking models the per-card edit lock a dashboard client keeps
// while working on a feedback record. The server protocol is authoritative;
// this model only encodes the reconciliation rules every client must follow:
// claim before unlocking an unassigned card, revert on a lost claim, and
// force the lock back on when a response carries the relock signal.
package locking

import "github.com/transitops/feedback-api/internal/models"

// Decision is the outcome of a local unlock attempt.
type Decision int

const (
	// DecisionDenied means the card belongs to another staff member; no
	// server call is made.
	DecisionDenied Decision = iota
	// DecisionClaim means the card is unassigned and a claim request must
	// be sent before the lock opens.
	DecisionClaim
	// DecisionUnlocked means the lock opened locally (the caller already
	// holds the record).
	DecisionUnlocked
)

// Feedback is the UI signal attached to a lock change.
type Feedback int

const (
	FeedbackNone Feedback = iota
	// FeedbackShake replays the negative-feedback animation after a claim
	// was lost to another staff member.
	FeedbackShake
)

// CardLock tracks the edit-lock state for one record in one client session.
type CardLock struct {
	staffID   int64
	handlerID *int64
	locked    bool
}

// NewCardLock initialises the lock from the record as first rendered: locked
// unless the viewing staff member already handles the record.
func NewCardLock(staffID int64, handlerID *int64) *CardLock {
	return &CardLock{
		staffID:   staffID,
		handlerID: copyID(handlerID),
		locked:    handlerID == nil || *handlerID != staffID,
	}
}

// Locked reports the current lock flag.
func (l *CardLock) Locked() bool {
	return l.locked
}

// HandlerID returns the local copy of the record's handler.
func (l *CardLock) HandlerID() *int64 {
	return l.handlerID
}

// RequestUnlock is the locked→unlocked toggle. It never talks to the server;
// it only decides whether a claim call is required, allowed locally, or
// rejected outright because someone else holds the record.
func (l *CardLock) RequestUnlock() Decision {
	if !l.locked {
		return DecisionUnlocked
	}
	switch {
	case l.handlerID == nil:
		return DecisionClaim
	case *l.handlerID == l.staffID:
		l.locked = false
		return DecisionUnlocked
	default:
		return DecisionDenied
	}
}

// ResolveClaim applies the outcome of the claim call issued after
// DecisionClaim. On success the handler is taken from the server response
// and the lock opens; on any failure the optimistic state reverts and the
// shake feedback fires. The client never retries on its own.
func (l *CardLock) ResolveClaim(handlerID *int64, err error) Feedback {
	if err != nil {
		l.locked = true
		return FeedbackShake
	}
	l.handlerID = copyID(handlerID)
	l.locked = false
	return FeedbackNone
}

// Reconcile folds any server payload (poll refresh or mutation response)
// into the local state. A payload carrying the relock signal forces the lock
// back on regardless of its current value; this is how another staff
// member's reopen propagates to a card still open in a different tab.
func (l *CardLock) Reconcile(handlerID *int64, actionRequired string) {
	l.handlerID = copyID(handlerID)
	if actionRequired == models.ActionRelockUI {
		l.locked = true
	}
}

// Lock forces the flag on, e.g. when the card is closed in the UI.
func (l *CardLock) Lock() {
	l.locked = true
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
