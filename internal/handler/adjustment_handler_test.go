package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/pontoflow/ponto-api/internal/dto"
	internalmiddleware "github.com/pontoflow/ponto-api/internal/middleware"
	"github.com/pontoflow/ponto-api/internal/models"
	appErrors "github.com/pontoflow/ponto-api/pkg/errors"
)

type adjustmentServiceMock struct {
	resolved   string
	resolveErr error
}

func (m *adjustmentServiceMock) Submit(ctx context.Context, req dto.CreateAdjustmentRequest, actor *models.JWTClaims) (*dto.AdjustmentResponse, error) {
	return &dto.AdjustmentResponse{
		Request: models.AdjustmentRequest{ID: "adjustment-1", Status: models.AdjustmentStatusPending},
	}, nil
}

func (m *adjustmentServiceMock) Resolve(ctx context.Context, id string, req dto.ResolveAdjustmentRequest, actor *models.JWTClaims) (*dto.AdjustmentResponse, error) {
	m.resolved = id
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	return &dto.AdjustmentResponse{
		Request: models.AdjustmentRequest{ID: id, Status: models.AdjustmentStatusApproved},
	}, nil
}

func (m *adjustmentServiceMock) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.AdjustmentRequest, error) {
	return nil, appErrors.ErrNotFound
}

func (m *adjustmentServiceMock) List(ctx context.Context, query dto.AdjustmentQuery, actor *models.JWTClaims) ([]models.AdjustmentRequest, error) {
	return nil, nil
}

func TestAdjustmentHandlerResolve(t *testing.T) {
	mockSvc := &adjustmentServiceMock{}
	handler := NewAdjustmentHandler(mockSvc, nil)
	router := authedRouter(&models.JWTClaims{UserID: "user-1", CompanyID: "company-1", Role: models.RoleManager})
	router.POST("/adjustments/:id/resolve", handler.Resolve)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/adjustments/adjustment-1/resolve", bytes.NewReader([]byte(`{"approve":true}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "adjustment-1", mockSvc.resolved)
}

func TestAdjustmentHandlerResolveAlreadyResolved(t *testing.T) {
	mockSvc := &adjustmentServiceMock{resolveErr: appErrors.ErrInvalidTransition}
	handler := NewAdjustmentHandler(mockSvc, nil)
	router := authedRouter(&models.JWTClaims{UserID: "user-1", CompanyID: "company-1", Role: models.RoleManager})
	router.POST("/adjustments/:id/resolve", handler.Resolve)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/adjustments/adjustment-1/resolve", bytes.NewReader([]byte(`{"approve":false}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAdjustmentHandlerResolveForbidden(t *testing.T) {
	handler := NewAdjustmentHandler(&adjustmentServiceMock{}, nil)
	router := authedRouter(&models.JWTClaims{UserID: "user-2", CompanyID: "company-1", Role: models.RoleEmployee})
	router.POST("/adjustments/:id/resolve",
		internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager),
		handler.Resolve)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/adjustments/adjustment-1/resolve", bytes.NewReader([]byte(`{"approve":true}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdjustmentHandlerResolveUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAdjustmentHandler(&adjustmentServiceMock{}, nil)
	router := gin.New()
	router.POST("/adjustments/:id/resolve",
		internalmiddleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager),
		handler.Resolve)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/adjustments/adjustment-1/resolve", bytes.NewReader([]byte(`{"approve":true}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
