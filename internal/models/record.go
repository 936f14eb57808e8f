package models

import "time"

// RecordKind discriminates the three feedback intake channels. Compliments
// and suggestions run through the same lifecycle as complaints but carry no
// internal handling details.
type RecordKind string

const (
	KindComplaint  RecordKind = "COMPLAINT"
	KindCompliment RecordKind = "COMPLIMENT"
	KindSuggestion RecordKind = "SUGGESTION"
)

// Valid reports whether the kind is one of the known intake channels.
func (k RecordKind) Valid() bool {
	switch k {
	case KindComplaint, KindCompliment, KindSuggestion:
		return true
	}
	return false
}

// RecordStatus enumerates the lifecycle states of a feedback record. Rows
// created by the intake process carry a NULL status which reads as OPEN.
type RecordStatus string

const (
	StatusOpen       RecordStatus = "OPEN"
	StatusInProgress RecordStatus = "IN_PROGRESS"
	StatusResolved   RecordStatus = "RESOLVED"
	StatusRejected   RecordStatus = "REJECTED"
)

// Valid reports whether the status is a known lifecycle state.
func (s RecordStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether the status closes the record. Reopening from a
// terminal status releases the handler.
func (s RecordStatus) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// ClarificationType describes how the customer was informed of the outcome.
type ClarificationType string

const (
	ClarificationWritten ClarificationType = "WRITTEN"
	ClarificationPhone   ClarificationType = "PHONE"
)

// Valid reports whether the clarification type is known.
func (c ClarificationType) Valid() bool {
	return c == ClarificationWritten || c == ClarificationPhone
}

// ActionRelockUI instructs clients to force their local edit lock back on.
// It is emitted when a record returns from a terminal status to OPEN and is
// never persisted.
const ActionRelockUI = "relock_ui"

// Record is a feedback row as stored; the status column is normalised to
// OPEN at read time.
type Record struct {
	ID            int64        `db:"id" json:"id"`
	Kind          RecordKind   `db:"kind" json:"kind"`
	Status        RecordStatus `db:"status" json:"status"`
	HandlerID     *int64       `db:"handler_id" json:"handlerId"`
	CompletedAt   *time.Time   `db:"completed_at" json:"completedAt"`
	Subject       string       `db:"subject" json:"subject"`
	Body          string       `db:"body" json:"body"`
	ReporterName  string       `db:"reporter_name" json:"reporterName"`
	ReporterEmail string       `db:"reporter_email" json:"reporterEmail"`
	CreatedAt     time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updatedAt"`
}

// InternalDetails groups the complaint-only handling fields. All fields are
// nullable in storage; a nil pointer means the field was never set.
type InternalDetails struct {
	GeneralNotes             *string            `db:"general_notes" json:"generalNotes"`
	ClarificationType        *ClarificationType `db:"clarification_type" json:"clarificationType"`
	TeamLeadInformed         *bool              `db:"team_lead_informed" json:"teamLeadInformed"`
	DepartmentHeadInformed   *bool              `db:"department_head_informed" json:"departmentHeadInformed"`
	ForwardedToSubcontractor *bool              `db:"forwarded_to_subcontractor" json:"forwardedToSubcontractor"`
	ForwardedToInsurance     *bool              `db:"forwarded_to_insurance" json:"forwardedToInsurance"`
	MoneyRefunded            *bool              `db:"money_refunded" json:"moneyRefunded"`
	RefundAmount             *float64           `db:"refund_amount" json:"refundAmount"`
}

// RecordDetail is the full record shape returned by mutations and single-row
// reads, joined with the handler's display name. ActionRequired is a
// response-only marker and never hits the database.
type RecordDetail struct {
	Record
	InternalDetails
	HandlerName    *string `db:"handler_name" json:"handlerName"`
	ActionRequired string  `db:"-" json:"actionRequired,omitempty"`
}

// RecordFilter captures list criteria for the dashboard poll endpoint.
type RecordFilter struct {
	Kind      RecordKind
	Status    []RecordStatus
	HandlerID *int64
	Search    string
	Page      int
	PageSize  int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
