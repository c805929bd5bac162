package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pontoflow/ponto-api/internal/dto"
	"github.com/pontoflow/ponto-api/internal/models"
	"github.com/pontoflow/ponto-api/internal/service"
	appErrors "github.com/pontoflow/ponto-api/pkg/errors"
	"github.com/pontoflow/ponto-api/pkg/response"
)

type reportService interface {
	Mirror(ctx context.Context, query dto.MirrorReportQuery, actor *models.JWTClaims) (*service.ReportFile, error)
	Receipt(ctx context.Context, eventID string, actor *models.JWTClaims) (*service.ReportFile, error)
}

// ReportHandler streams rendered exports to the client.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs the handler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Mirror godoc
// @Summary Download the punch mirror for a period
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param employeeId query string false "Employee ID"
// @Param from query string true "Start of period (RFC3339)"
// @Param to query string true "End of period (RFC3339)"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /reports/mirror [get]
func (h *ReportHandler) Mirror(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.MirrorReportQuery{
		EmployeeID: strings.TrimSpace(c.Query("employeeId")),
		Format:     c.DefaultQuery("format", "csv"),
	}
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from timestamp"))
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to timestamp"))
		return
	}
	query.From = from
	query.To = to

	file, err := h.service.Mirror(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// Receipt godoc
// @Summary Download the receipt PDF for a punch
// @Tags Reports
// @Produce application/pdf
// @Param id path string true "Punch ID"
// @Success 200 {file} binary
// @Router /punches/{id}/receipt [get]
func (h *ReportHandler) Receipt(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	file, err := h.service.Receipt(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
