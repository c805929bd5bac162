package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pontoflow/ponto-api/internal/models"
	"github.com/pontoflow/ponto-api/internal/service"
	appErrors "github.com/pontoflow/ponto-api/pkg/errors"
	"github.com/pontoflow/ponto-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context, actor *models.JWTClaims, day time.Time) (*models.CompanyDaySummary, error)
}

// DashboardHandler exposes the company activity summary and the admin
// metrics snapshot.
type DashboardHandler struct {
	service dashboardService
	metrics *service.MetricsService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(svc dashboardService, metrics *service.MetricsService) *DashboardHandler {
	return &DashboardHandler{service: svc, metrics: metrics}
}

// Summary godoc
// @Summary Company punch activity for one day
// @Tags Dashboard
// @Produce json
// @Param day query string false "Day (YYYY-MM-DD, defaults to today)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	day := time.Now().UTC()
	if raw := c.Query("day"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid day, expected YYYY-MM-DD"))
			return
		}
		day = parsed
	}
	summary, err := h.service.Summary(c.Request.Context(), claims, day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// SystemMetrics godoc
// @Summary Point-in-time system metrics snapshot
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/metrics [get]
func (h *DashboardHandler) SystemMetrics(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
