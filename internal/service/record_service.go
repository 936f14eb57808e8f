package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/transitops/feedback-api/internal/dto"
	"github.com/transitops/feedback-api/internal/models"
	"github.com/transitops/feedback-api/internal/policy"
	"github.com/transitops/feedback-api/internal/repository"
	appErrors "github.com/transitops/feedback-api/pkg/errors"
)

const recordListCachePattern = "records:list:*"

type recordStore interface {
	Mutate(ctx context.Context, id int64, params repository.MutateParams) (*models.RecordDetail, error)
	GetByID(ctx context.Context, id int64) (*models.RecordDetail, error)
	List(ctx context.Context, filter models.RecordFilter) ([]models.RecordDetail, int, error)
}

type auditRecorder interface {
	Record(log *models.AuditLog)
}

// RecordService orchestrates feedback record reads and the single mutation
// endpoint. All lifecycle and assignment decisions happen inside the
// repository transaction; the service validates the payload shape, maps
// sentinel errors onto the HTTP taxonomy and handles caching and audit.
type RecordService struct {
	repo        recordStore
	cache       *CacheService
	audit       auditRecorder
	metrics     *MetricsService
	logger      *zap.Logger
	maxPageSize int
}

// NewRecordService constructs the service.
func NewRecordService(repo recordStore, cache *CacheService, audit auditRecorder, metrics *MetricsService, logger *zap.Logger, maxPageSize int) *RecordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	return &RecordService{repo: repo, cache: cache, audit: audit, metrics: metrics, logger: logger, maxPageSize: maxPageSize}
}

// Update applies one partial update to a record: an optional status change,
// an optional self-assignment claim and optional internal-detail edits, all
// in a single transaction. There are no automatic retries; a losing claim
// surfaces as a conflict for the caller to handle.
func (s *RecordService) Update(ctx context.Context, id int64, req dto.UpdateRecordRequest, actor *models.JWTClaims) (*models.RecordDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if req.Status == nil && !req.AssignSelf && req.InternalDetails.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request contains no fields to update")
	}

	params := repository.MutateParams{}

	if req.Status != nil {
		status := models.RecordStatus(strings.ToUpper(strings.TrimSpace(*req.Status)))
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status: %s", *req.Status))
		}
		params.RequestedStatus = &status
	}

	if req.AssignSelf {
		staffID := actor.StaffID
		params.AssignTo = &staffID
	}

	if details := req.InternalDetails; !details.Empty() {
		writes, err := buildDetailWrites(details)
		if err != nil {
			return nil, err
		}
		params.Details = writes
	}

	detail, err := s.repo.Mutate(ctx, id, params)
	if err != nil {
		return nil, s.mapMutateError(id, err)
	}

	if s.metrics != nil {
		s.metrics.RecordMutation("success")
		if detail.ActionRequired == models.ActionRelockUI {
			s.metrics.RecordRelockSignal()
		}
	}

	if s.cache.Enabled() {
		if err := s.cache.Invalidate(ctx, recordListCachePattern); err != nil {
			s.logger.Warn("record list cache invalidation failed", zap.Int64("record_id", id), zap.Error(err))
		}
	}

	s.emitAudit(req, detail, actor)
	return detail, nil
}

// Get returns one record with its handler name.
func (s *RecordService) Get(ctx context.Context, id int64) (*models.RecordDetail, error) {
	detail, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}
	return detail, nil
}

type recordListPage struct {
	Records []models.RecordDetail `json:"records"`
	Total   int                   `json:"total"`
}

// List returns records matching the query, with pagination metadata. List
// reads are served from a short-lived cache; any mutation invalidates it.
func (s *RecordService) List(ctx context.Context, query dto.RecordQuery) ([]models.RecordDetail, *models.Pagination, error) {
	filter, err := buildRecordFilter(query, s.maxPageSize)
	if err != nil {
		return nil, nil, err
	}

	cacheKey := recordListCacheKey(filter)
	if s.cache.Enabled() {
		var page recordListPage
		if hit, _ := s.cache.Get(ctx, cacheKey, &page); hit {
			return page.Records, paginationFor(filter, page.Total), nil
		}
	}

	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list records")
	}

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, cacheKey, recordListPage{Records: records, Total: total}, 0)
	}
	return records, paginationFor(filter, total), nil
}

func (s *RecordService) mapMutateError(id int64, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if s.metrics != nil {
			s.metrics.RecordMutation("not_found")
		}
		return appErrors.ErrNotFound
	case errors.Is(err, policy.ErrAlreadyAssigned):
		if s.metrics != nil {
			s.metrics.RecordMutation("conflict")
			s.metrics.RecordAssignmentConflict()
		}
		return appErrors.ErrAlreadyAssigned
	case errors.Is(err, policy.ErrInvalidStatus):
		if s.metrics != nil {
			s.metrics.RecordMutation("invalid")
		}
		return appErrors.Clone(appErrors.ErrValidation, "unknown status")
	case errors.Is(err, policy.ErrClarificationMissing):
		if s.metrics != nil {
			s.metrics.RecordMutation("clarification_missing")
		}
		return appErrors.ErrClarificationMissing
	case errors.Is(err, policy.ErrDetailsNotAllowed):
		if s.metrics != nil {
			s.metrics.RecordMutation("invalid")
		}
		return appErrors.Clone(appErrors.ErrValidation, "internal details only apply to complaints")
	default:
		if s.metrics != nil {
			s.metrics.RecordMutation("error")
		}
		s.logger.Error("record mutation failed", zap.Int64("record_id", id), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update record")
	}
}

func (s *RecordService) emitAudit(req dto.UpdateRecordRequest, detail *models.RecordDetail, actor *models.JWTClaims) {
	if s.audit == nil {
		return
	}
	action := models.AuditActionRecordUpdate
	if req.AssignSelf {
		action = models.AuditActionRecordClaim
	}
	resourceID := strconv.FormatInt(detail.ID, 10)
	payload, _ := json.Marshal(req)
	s.audit.Record(&models.AuditLog{
		StaffID:    &actor.StaffID,
		Action:     action,
		Resource:   "record",
		ResourceID: &resourceID,
		NewValues:  payload,
	})
}

// buildDetailWrites translates the wire patch into storage writes. The
// refund amount is parsed leniently: a decimal comma is accepted, and input
// that still fails to parse stores NULL rather than failing the request.
func buildDetailWrites(patch *dto.InternalDetailsPatch) (repository.DetailWrites, error) {
	writes := repository.DetailWrites{
		GeneralNotes:             patch.GeneralNotes,
		TeamLeadInformed:         patch.TeamLeadInformed,
		DepartmentHeadInformed:   patch.DepartmentHeadInformed,
		ForwardedToSubcontractor: patch.ForwardedToSubcontractor,
		ForwardedToInsurance:     patch.ForwardedToInsurance,
		MoneyRefunded:            patch.MoneyRefunded,
	}

	if patch.ClarificationType != nil {
		clarification := models.ClarificationType(strings.ToUpper(strings.TrimSpace(*patch.ClarificationType)))
		if !clarification.Valid() {
			return repository.DetailWrites{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown clarification type: %s", *patch.ClarificationType))
		}
		writes.ClarificationType = &clarification
	}

	if patch.RefundAmount != nil {
		writes.SetRefundAmount = true
		writes.RefundAmount = parseRefundAmount(*patch.RefundAmount)
	}
	return writes, nil
}

func parseRefundAmount(raw string) *float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	normalized := strings.ReplaceAll(trimmed, ",", ".")
	amount, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return nil
	}
	return &amount
}

func buildRecordFilter(query dto.RecordQuery, maxPageSize int) (models.RecordFilter, error) {
	filter := models.RecordFilter{
		HandlerID: query.Handler,
		Search:    strings.TrimSpace(query.Search),
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	if query.Kind != "" {
		kind := models.RecordKind(strings.ToUpper(strings.TrimSpace(query.Kind)))
		if !kind.Valid() {
			return models.RecordFilter{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown kind: %s", query.Kind))
		}
		filter.Kind = kind
	}
	if query.Status != "" {
		for _, part := range strings.Split(query.Status, ",") {
			status := models.RecordStatus(strings.ToUpper(strings.TrimSpace(part)))
			if !status.Valid() {
				return models.RecordFilter{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status: %s", part))
			}
			filter.Status = append(filter.Status, status)
		}
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}
	return filter, nil
}

func recordListCacheKey(filter models.RecordFilter) string {
	statuses := make([]string, len(filter.Status))
	for i, status := range filter.Status {
		statuses[i] = string(status)
	}
	handler := "-"
	if filter.HandlerID != nil {
		handler = strconv.FormatInt(*filter.HandlerID, 10)
	}
	return fmt.Sprintf("records:list:%s:%s:%s:%s:%d:%d",
		filter.Kind, strings.Join(statuses, "|"), handler, filter.Search, filter.Page, filter.PageSize)
}

func paginationFor(filter models.RecordFilter, total int) *models.Pagination {
	return &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
}
