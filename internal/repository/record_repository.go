package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/transitops/feedback-api/internal/models"
	"github.com/transitops/feedback-api/internal/policy"
)

// RecordRepository manages persistence for feedback records. All mutations
// go through Mutate, which serialises concurrent writers on a row lock.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository constructs a new repository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// recordColumns is the shared projection for detail reads. The stored status
// is nullable; reads normalise it to OPEN.
const recordColumns = `r.id, r.kind, COALESCE(r.status, 'OPEN') AS status, r.handler_id, r.completed_at,
	r.subject, r.body, r.reporter_name, r.reporter_email,
	r.general_notes, r.clarification_type, r.team_lead_informed, r.department_head_informed,
	r.forwarded_to_subcontractor, r.forwarded_to_insurance, r.money_refunded, r.refund_amount,
	r.created_at, r.updated_at,
	s.full_name AS handler_name`

// DetailWrites groups the internal-detail columns of one mutation. Nil
// pointers leave the column untouched; SetRefundAmount with a nil value
// writes NULL (lenient-parse outcome for unusable input).
type DetailWrites struct {
	GeneralNotes             *string
	ClarificationType        *models.ClarificationType
	TeamLeadInformed         *bool
	DepartmentHeadInformed   *bool
	ForwardedToSubcontractor *bool
	ForwardedToInsurance     *bool
	MoneyRefunded            *bool
	RefundAmount             *float64
	SetRefundAmount          bool
}

func (d DetailWrites) hasWrites() bool {
	return d.GeneralNotes != nil ||
		d.ClarificationType != nil ||
		d.TeamLeadInformed != nil ||
		d.DepartmentHeadInformed != nil ||
		d.ForwardedToSubcontractor != nil ||
		d.ForwardedToInsurance != nil ||
		d.MoneyRefunded != nil ||
		d.SetRefundAmount
}

// MutateParams describes one logical update request: an optional status
// change, an optional self-assignment claim and optional detail writes.
type MutateParams struct {
	RequestedStatus *models.RecordStatus
	AssignTo        *int64
	Details         DetailWrites
	Now             time.Time
}

// Mutate executes the update protocol as a single transaction. The target
// row is locked with SELECT ... FOR UPDATE before any decision runs, so the
// assignment guard and the status policy always see committed state, not a
// stale copy. On any failure the transaction rolls back and no partial
// writes become visible.
//
// Sentinels crossing this boundary: sql.ErrNoRows when the id does not
// exist, policy.ErrAlreadyAssigned when a claim loses the race,
// policy.ErrClarificationMissing when a complaint is closed without a
// clarification type, policy.ErrDetailsNotAllowed when detail writes target
// a non-complaint.
func (r *RecordRepository) Mutate(ctx context.Context, id int64, params MutateParams) (detail *models.RecordDetail, err error) {
	now := params.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin record mutation: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var row struct {
		Kind              models.RecordKind         `db:"kind"`
		Status            *models.RecordStatus      `db:"status"`
		HandlerID         *int64                    `db:"handler_id"`
		ClarificationType *models.ClarificationType `db:"clarification_type"`
	}
	const lockQuery = `SELECT kind, status, handler_id, clarification_type FROM records WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &row, lockQuery, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("lock record %d: %w", id, err)
	}

	if err = policy.AllowDetails(row.Kind, params.Details.hasWrites()); err != nil {
		return nil, err
	}

	if params.AssignTo != nil {
		if err = policy.TryAssign(row.HandlerID, *params.AssignTo); err != nil {
			return nil, err
		}
	}

	var writes policy.Writes
	if params.RequestedStatus != nil {
		requested := *params.RequestedStatus
		if err = policy.RequireClarification(row.Kind, requested, row.ClarificationType, params.Details.ClarificationType); err != nil {
			return nil, err
		}
		writes, err = policy.Transition(policy.Normalize(row.Status), requested, now)
		if err != nil {
			return nil, err
		}
	}

	setParts := []string{}
	args := []interface{}{}
	addSet := func(column string, value interface{}) {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	switch {
	case writes.ClearHandler:
		// Reopening a closed record releases the handler unconditionally,
		// claim or not.
		setParts = append(setParts, "handler_id = NULL")
	case params.AssignTo != nil:
		addSet("handler_id", *params.AssignTo)
	}

	if params.RequestedStatus != nil {
		addSet("status", writes.Status)
		if writes.CompletedAt != nil {
			addSet("completed_at", *writes.CompletedAt)
		} else if writes.ClearCompletedAt {
			setParts = append(setParts, "completed_at = NULL")
		}
	}

	d := params.Details
	if d.GeneralNotes != nil {
		addSet("general_notes", *d.GeneralNotes)
	}
	if d.ClarificationType != nil {
		addSet("clarification_type", *d.ClarificationType)
	}
	if d.TeamLeadInformed != nil {
		addSet("team_lead_informed", *d.TeamLeadInformed)
	}
	if d.DepartmentHeadInformed != nil {
		addSet("department_head_informed", *d.DepartmentHeadInformed)
	}
	if d.ForwardedToSubcontractor != nil {
		addSet("forwarded_to_subcontractor", *d.ForwardedToSubcontractor)
	}
	if d.ForwardedToInsurance != nil {
		addSet("forwarded_to_insurance", *d.ForwardedToInsurance)
	}
	if d.MoneyRefunded != nil {
		addSet("money_refunded", *d.MoneyRefunded)
	}
	if d.SetRefundAmount {
		if d.RefundAmount != nil {
			addSet("refund_amount", *d.RefundAmount)
		} else {
			setParts = append(setParts, "refund_amount = NULL")
		}
	}

	addSet("updated_at", now)

	args = append(args, id)
	updateQuery := fmt.Sprintf("UPDATE records SET %s WHERE id = $%d", strings.Join(setParts, ", "), len(args))
	if _, err = tx.ExecContext(ctx, updateQuery, args...); err != nil {
		return nil, fmt.Errorf("update record %d: %w", id, err)
	}

	var updated models.RecordDetail
	readQuery := fmt.Sprintf("SELECT %s FROM records r LEFT JOIN staff s ON s.id = r.handler_id WHERE r.id = $1", recordColumns)
	if err = tx.GetContext(ctx, &updated, readQuery, id); err != nil {
		return nil, fmt.Errorf("reread record %d: %w", id, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit record mutation: %w", err)
	}
	if writes.Relock {
		updated.ActionRequired = models.ActionRelockUI
	}
	return &updated, nil
}

// GetByID fetches a record with its handler's display name.
func (r *RecordRepository) GetByID(ctx context.Context, id int64) (*models.RecordDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM records r LEFT JOIN staff s ON s.id = r.handler_id WHERE r.id = $1", recordColumns)
	var detail models.RecordDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns records matching the filter, newest first.
func (r *RecordRepository) List(ctx context.Context, filter models.RecordFilter) ([]models.RecordDetail, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		where = append(where, fmt.Sprintf("r.kind = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		where = append(where, fmt.Sprintf("COALESCE(r.status, 'OPEN') IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.HandlerID != nil {
		args = append(args, *filter.HandlerID)
		where = append(where, fmt.Sprintf("r.handler_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(r.subject ILIKE $%d OR r.body ILIKE $%d)", len(args), len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM records r LEFT JOIN staff s ON s.id = r.handler_id
WHERE %s ORDER BY r.created_at DESC, r.id DESC LIMIT %d OFFSET %d`, recordColumns, whereClause, size, offset)
	var records []models.RecordDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM records r WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}
	return records, total, nil
}
