package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/transitops/feedback-api/internal/dto"
	"github.com/transitops/feedback-api/internal/models"
	appErrors "github.com/transitops/feedback-api/pkg/errors"
	"github.com/transitops/feedback-api/pkg/response"
)

type recordService interface {
	Update(ctx context.Context, id int64, req dto.UpdateRecordRequest, actor *models.JWTClaims) (*models.RecordDetail, error)
	Get(ctx context.Context, id int64) (*models.RecordDetail, error)
	List(ctx context.Context, query dto.RecordQuery) ([]models.RecordDetail, *models.Pagination, error)
}

// RecordHandler exposes REST endpoints for feedback records.
type RecordHandler struct {
	service recordService
}

// NewRecordHandler constructs the handler.
func NewRecordHandler(service recordService) *RecordHandler {
	return &RecordHandler{service: service}
}

// Update godoc
// @Summary Update a feedback record
// @Description Applies a partial update: status change, self-assignment claim and internal-detail edits, all in one atomic operation. When a closed record is reopened the response carries actionRequired=relock_ui.
// @Tags Records
// @Accept json
// @Produce json
// @Param id path int true "Record ID"
// @Param payload body dto.UpdateRecordRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /records/{id} [patch]
func (h *RecordHandler) Update(c *gin.Context) {
	id, err := recordIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid update payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	detail, err := h.service.Update(c.Request.Context(), id, req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Get godoc
// @Summary Get one feedback record
// @Tags Records
// @Produce json
// @Param id path int true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /records/{id} [get]
func (h *RecordHandler) Get(c *gin.Context) {
	id, err := recordIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// List godoc
// @Summary List feedback records
// @Tags Records
// @Produce json
// @Param kind query string false "Record kind"
// @Param status query string false "Comma separated statuses"
// @Param handler query int false "Handler staff ID"
// @Param search query string false "Subject/body search"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /records [get]
func (h *RecordHandler) List(c *gin.Context) {
	var query dto.RecordQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	records, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

func recordIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid record id")
	}
	return id, nil
}
