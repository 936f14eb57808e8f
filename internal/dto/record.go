package dto

// UpdateRecordRequest is the single mutation payload for a feedback record.
// Every field except the path id is optional; only fields present in the
// body are applied (partial-update semantics). A request may combine a
// status change, a self-assignment claim and internal-detail edits in one
// atomic operation.
type UpdateRecordRequest struct {
	Status          *string               `json:"status,omitempty"`
	AssignSelf      bool                  `json:"assignSelf,omitempty"`
	InternalDetails *InternalDetailsPatch `json:"internalDetails,omitempty"`
}

// InternalDetailsPatch carries the complaint-only handling fields. Nil
// pointers are left untouched in storage. RefundAmount arrives as free text
// and is normalised leniently (decimal comma accepted, junk stores NULL).
type InternalDetailsPatch struct {
	GeneralNotes             *string `json:"generalNotes,omitempty"`
	ClarificationType        *string `json:"clarificationType,omitempty"`
	TeamLeadInformed         *bool   `json:"teamLeadInformed,omitempty"`
	DepartmentHeadInformed   *bool   `json:"departmentHeadInformed,omitempty"`
	ForwardedToSubcontractor *bool   `json:"forwardedToSubcontractor,omitempty"`
	ForwardedToInsurance     *bool   `json:"forwardedToInsurance,omitempty"`
	MoneyRefunded            *bool   `json:"moneyRefunded,omitempty"`
	RefundAmount             *string `json:"refundAmount,omitempty"`
}

// Empty reports whether the patch carries no fields at all.
func (p *InternalDetailsPatch) Empty() bool {
	if p == nil {
		return true
	}
	return p.GeneralNotes == nil &&
		p.ClarificationType == nil &&
		p.TeamLeadInformed == nil &&
		p.DepartmentHeadInformed == nil &&
		p.ForwardedToSubcontractor == nil &&
		p.ForwardedToInsurance == nil &&
		p.MoneyRefunded == nil &&
		p.RefundAmount == nil
}

// RecordQuery captures the list endpoint's filter parameters.
type RecordQuery struct {
	Kind     string `form:"kind"`
	Status   string `form:"status"`
	Handler  *int64 `form:"handler"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}
