// Package policy holds the pure decision rules of the feedback lifecycle:
// which status transitions are legal, which field writes they derive, and
// when a record may be claimed. Nothing in this package touches the database.
package policy

import (
	"errors"
	"time"

	"github.com/transitops/feedback-api/internal/models"
)

// Sentinel errors returned by policy decisions. Callers translate them into
// the HTTP error taxonomy at the service boundary.
var (
	ErrInvalidStatus        = errors.New("invalid status value")
	ErrAlreadyAssigned      = errors.New("record already assigned")
	ErrClarificationMissing = errors.New("clarification type required for terminal status")
	ErrDetailsNotAllowed    = errors.New("internal details only apply to complaints")
)

// AllowDetails rejects internal-detail writes on records that are not
// complaints. Compliments and suggestions share the lifecycle but carry no
// handling fields.
func AllowDetails(kind models.RecordKind, hasDetails bool) error {
	if hasDetails && kind != models.KindComplaint {
		return ErrDetailsNotAllowed
	}
	return nil
}

// Writes is the set of derived field writes a status transition produces.
// Pointer fields are written when non-nil; Clear* flags force a NULL write.
type Writes struct {
	Status           models.RecordStatus
	CompletedAt      *time.Time
	ClearCompletedAt bool
	ClearHandler     bool
	Relock           bool
}

// Normalize maps the nullable stored status onto its effective value. Rows
// the intake process created without a status read as OPEN.
func Normalize(raw *models.RecordStatus) models.RecordStatus {
	if raw == nil || *raw == "" {
		return models.StatusOpen
	}
	return *raw
}

// Transition validates a requested status change against the current row
// state and derives the field writes to apply. Rules, in order: terminal
// statuses stamp the completion time; returning to OPEN clears it, and when
// the record was closed additionally releases the handler and signals the
// client relock. IN_PROGRESS writes the status alone.
func Transition(current, requested models.RecordStatus, now time.Time) (Writes, error) {
	if !requested.Valid() {
		return Writes{}, ErrInvalidStatus
	}

	writes := Writes{Status: requested}
	switch {
	case requested.Terminal():
		ts := now.UTC()
		writes.CompletedAt = &ts
	case requested == models.StatusOpen:
		writes.ClearCompletedAt = true
		if current.Terminal() {
			writes.ClearHandler = true
			writes.Relock = true
		}
	}
	return writes, nil
}

// RequireClarification gates terminal transitions on complaints: the
// clarification type must either already be saved on the row or arrive with
// the same request. Compliments and suggestions carry no handling details
// and pass unconditionally.
func RequireClarification(kind models.RecordKind, requested models.RecordStatus, saved, incoming *models.ClarificationType) error {
	if kind != models.KindComplaint || !requested.Terminal() {
		return nil
	}
	if incoming != nil && incoming.Valid() {
		return nil
	}
	if saved != nil && saved.Valid() {
		return nil
	}
	return ErrClarificationMissing
}
