package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pontoflow/ponto-api/internal/dto"
	"github.com/pontoflow/ponto-api/internal/models"
	"github.com/pontoflow/ponto-api/internal/service"
	appErrors "github.com/pontoflow/ponto-api/pkg/errors"
	"github.com/pontoflow/ponto-api/pkg/response"
)

type adjustmentService interface {
	Submit(ctx context.Context, req dto.CreateAdjustmentRequest, actor *models.JWTClaims) (*dto.AdjustmentResponse, error)
	Resolve(ctx context.Context, id string, req dto.ResolveAdjustmentRequest, actor *models.JWTClaims) (*dto.AdjustmentResponse, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.AdjustmentRequest, error)
	List(ctx context.Context, query dto.AdjustmentQuery, actor *models.JWTClaims) ([]models.AdjustmentRequest, error)
}

// AdjustmentHandler exposes REST endpoints for the amendment workflow.
type AdjustmentHandler struct {
	service adjustmentService
	metrics *service.MetricsService
}

// NewAdjustmentHandler constructs the handler.
func NewAdjustmentHandler(svc adjustmentService, metrics *service.MetricsService) *AdjustmentHandler {
	return &AdjustmentHandler{service: svc, metrics: metrics}
}

// Create godoc
// @Summary Submit an adjustment request
// @Tags Adjustments
// @Accept json
// @Produce json
// @Param payload body dto.CreateAdjustmentRequest true "Adjustment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /adjustments [post]
func (h *AdjustmentHandler) Create(c *gin.Context) {
	var req dto.CreateAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid adjustment payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	resp, err := h.service.Submit(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	if resp.Request.Status == models.AdjustmentStatusAutoApplied {
		h.metrics.RecordAdjustmentResolved(string(resp.Request.Status))
	}
	response.JSON(c, http.StatusCreated, resp, nil)
}

// Resolve godoc
// @Summary Approve or reject an adjustment request
// @Tags Adjustments
// @Accept json
// @Produce json
// @Param id path string true "Adjustment ID"
// @Param payload body dto.ResolveAdjustmentRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /adjustments/{id}/resolve [post]
func (h *AdjustmentHandler) Resolve(c *gin.Context) {
	var req dto.ResolveAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	resp, err := h.service.Resolve(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordAdjustmentResolved(string(resp.Request.Status))
	response.JSON(c, http.StatusOK, resp, nil)
}

// Get godoc
// @Summary Get adjustment request detail
// @Tags Adjustments
// @Produce json
// @Param id path string true "Adjustment ID"
// @Success 200 {object} response.Envelope
// @Router /adjustments/{id} [get]
func (h *AdjustmentHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// List godoc
// @Summary List adjustment requests
// @Tags Adjustments
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param originalEventId query string false "Original punch ID"
// @Success 200 {object} response.Envelope
// @Router /adjustments [get]
func (h *AdjustmentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.AdjustmentQuery{
		OriginalEventID: strings.TrimSpace(c.Query("originalEventId")),
		RequestedBy:     strings.TrimSpace(c.Query("requestedBy")),
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.AdjustmentStatus, 0, len(parts))
		for _, part := range parts {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			statuses = append(statuses, models.AdjustmentStatus(part))
		}
		query.Status = statuses
	}
	query.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	query.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	requests, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}
