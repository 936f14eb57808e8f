package policy

// TryAssign decides whether a claim on the record may proceed. A claim is
// allowed only while no handler is set; an assigned record is never handed
// over directly, not even to its current handler. Reassignment happens only
// through the reopen path, which releases the handler first.
//
// The check is only meaningful against row values read under the same lock
// as the subsequent handler write; callers must not pass cached state.
func TryAssign(currentHandlerID *int64, staffID int64) error {
	if currentHandlerID != nil {
		return ErrAlreadyAssigned
	}
	return nil
}
