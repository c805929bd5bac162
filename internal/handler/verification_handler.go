package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pontoflow/ponto-api/internal/dto"
	"github.com/pontoflow/ponto-api/internal/service"
	appErrors "github.com/pontoflow/ponto-api/pkg/errors"
	"github.com/pontoflow/ponto-api/pkg/response"
)

type verificationService interface {
	Verify(ctx context.Context, code string) (*dto.VerifyResponse, error)
}

// VerificationHandler exposes the public verification endpoint used to check
// a receipt code against the stored record.
type VerificationHandler struct {
	service verificationService
	metrics *service.MetricsService
}

// NewVerificationHandler constructs the handler.
func NewVerificationHandler(svc verificationService, metrics *service.MetricsService) *VerificationHandler {
	return &VerificationHandler{service: svc, metrics: metrics}
}

// Verify godoc
// @Summary Verify a punch receipt code
// @Tags Verification
// @Accept json
// @Produce json
// @Param payload body dto.VerifyRequest true "Verification code"
// @Success 200 {object} response.Envelope
// @Router /verify [post]
func (h *VerificationHandler) Verify(c *gin.Context) {
	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "verification code is required"))
		return
	}
	resp, err := h.service.Verify(c.Request.Context(), req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordVerification(resp.Valid)
	response.JSON(c, http.StatusOK, resp, nil)
}
