package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pontoflow/ponto-api/internal/dto"
	"github.com/pontoflow/ponto-api/internal/models"
	"github.com/pontoflow/ponto-api/internal/service"
	appErrors "github.com/pontoflow/ponto-api/pkg/errors"
	"github.com/pontoflow/ponto-api/pkg/response"
)

type punchService interface {
	Commit(ctx context.Context, req dto.CommitPunchRequest, actor *models.JWTClaims) (*dto.CommitPunchResponse, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.TimeEvent, error)
	List(ctx context.Context, query dto.PunchQuery, actor *models.JWTClaims) ([]models.TimeEventRecord, *models.Pagination, error)
}

// PunchHandler exposes REST endpoints for committing and reading punches.
type PunchHandler struct {
	service punchService
	metrics *service.MetricsService
}

// NewPunchHandler constructs the handler.
func NewPunchHandler(svc punchService, metrics *service.MetricsService) *PunchHandler {
	return &PunchHandler{service: svc, metrics: metrics}
}

// Commit godoc
// @Summary Register a punch
// @Tags Punches
// @Accept json
// @Produce json
// @Param payload body dto.CommitPunchRequest true "Punch payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /punches [post]
func (h *PunchHandler) Commit(c *gin.Context) {
	var req dto.CommitPunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid punch payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	resp, err := h.service.Commit(c.Request.Context(), req, claims)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrDuplicatePunch) {
			h.metrics.RecordPunchRejected(appErrors.FromError(err).Code)
		}
		response.Error(c, err)
		return
	}
	h.metrics.RecordPunchCommitted()
	response.JSON(c, http.StatusCreated, resp, nil)
}

// Get godoc
// @Summary Get a punch by ID
// @Tags Punches
// @Produce json
// @Param id path string true "Punch ID"
// @Success 200 {object} response.Envelope
// @Router /punches/{id} [get]
func (h *PunchHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	event, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// List godoc
// @Summary List punches
// @Tags Punches
// @Produce json
// @Param employeeId query string false "Employee ID"
// @Param kind query string false "Punch kind"
// @Param from query string false "Start of period (RFC3339)"
// @Param to query string false "End of period (RFC3339)"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /punches [get]
func (h *PunchHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.PunchQuery{
		EmployeeID: strings.TrimSpace(c.Query("employeeId")),
		SortOrder:  c.Query("sort"),
	}
	if raw := c.Query("kind"); raw != "" {
		kind := models.PunchKind(strings.ToUpper(raw))
		query.Kind = &kind
	}
	if raw := c.Query("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from timestamp"))
			return
		}
		query.DateFrom = &ts
	}
	if raw := c.Query("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to timestamp"))
			return
		}
		query.DateTo = &ts
	}
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "50"))

	records, pagination, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}
