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

type punchServiceMock struct {
	captured  dto.CommitPunchRequest
	commitErr error
}

func (m *punchServiceMock) Commit(ctx context.Context, req dto.CommitPunchRequest, actor *models.JWTClaims) (*dto.CommitPunchResponse, error) {
	m.captured = req
	if m.commitErr != nil {
		return nil, m.commitErr
	}
	return &dto.CommitPunchResponse{
		Event:            models.TimeEvent{ID: "event-1", EmployeeID: req.EmployeeID, Kind: req.Kind},
		VerificationCode: "code",
	}, nil
}

func (m *punchServiceMock) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.TimeEvent, error) {
	return nil, appErrors.ErrNotFound
}

func (m *punchServiceMock) List(ctx context.Context, query dto.PunchQuery, actor *models.JWTClaims) ([]models.TimeEventRecord, *models.Pagination, error) {
	return nil, nil, nil
}

func authedRouter(claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, claims)
		c.Next()
	})
	return router
}

func validPunchPayload() []byte {
	return []byte(`{"employeeId":"employee-1","kind":"ENTRY","occurredAt":"2026-02-10T08:01:00Z"}`)
}

func TestPunchHandlerCommit(t *testing.T) {
	mockSvc := &punchServiceMock{}
	handler := NewPunchHandler(mockSvc, nil)
	router := authedRouter(&models.JWTClaims{UserID: "user-1", CompanyID: "company-1", Role: models.RoleManager})
	router.POST("/punches", handler.Commit)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/punches", bytes.NewReader(validPunchPayload()))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "employee-1", mockSvc.captured.EmployeeID)
	require.Equal(t, models.PunchEntry, mockSvc.captured.Kind)
}

func TestPunchHandlerCommitDuplicate(t *testing.T) {
	mockSvc := &punchServiceMock{commitErr: appErrors.ErrDuplicatePunch}
	handler := NewPunchHandler(mockSvc, nil)
	router := authedRouter(&models.JWTClaims{UserID: "user-1", CompanyID: "company-1", Role: models.RoleManager})
	router.POST("/punches", handler.Commit)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/punches", bytes.NewReader(validPunchPayload()))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestPunchHandlerCommitMalformedPayload(t *testing.T) {
	handler := NewPunchHandler(&punchServiceMock{}, nil)
	router := authedRouter(&models.JWTClaims{UserID: "user-1", CompanyID: "company-1", Role: models.RoleManager})
	router.POST("/punches", handler.Commit)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/punches", bytes.NewReader([]byte(`{"employeeId":`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPunchHandlerCommitUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPunchHandler(&punchServiceMock{}, nil)
	router := gin.New()
	router.POST("/punches", handler.Commit)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/punches", bytes.NewReader(validPunchPayload()))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
