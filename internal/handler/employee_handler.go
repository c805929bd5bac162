package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pontoflow/ponto-api/internal/models"
	appErrors "github.com/pontoflow/ponto-api/pkg/errors"
	"github.com/pontoflow/ponto-api/pkg/response"
)

type employeeService interface {
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Employee, error)
	List(ctx context.Context, filter models.EmployeeFilter, actor *models.JWTClaims) ([]models.Employee, *models.Pagination, error)
	Create(ctx context.Context, employee *models.Employee, actor *models.JWTClaims) error
	Update(ctx context.Context, employee *models.Employee, actor *models.JWTClaims) error
}

// EmployeeHandler exposes REST endpoints for employee administration.
type EmployeeHandler struct {
	service employeeService
}

// NewEmployeeHandler constructs the handler.
func NewEmployeeHandler(svc employeeService) *EmployeeHandler {
	return &EmployeeHandler{service: svc}
}

// Get godoc
// @Summary Get an employee by ID
// @Tags Employees
// @Produce json
// @Param id path string true "Employee ID"
// @Success 200 {object} response.Envelope
// @Router /employees/{id} [get]
func (h *EmployeeHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	employee, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employee, nil)
}

// List godoc
// @Summary List employees
// @Tags Employees
// @Produce json
// @Param search query string false "Name or registration search"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /employees [get]
func (h *EmployeeHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.EmployeeFilter{
		Search: strings.TrimSpace(c.Query("search")),
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid active flag"))
			return
		}
		filter.Active = &active
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	employees, pagination, err := h.service.List(c.Request.Context(), filter, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employees, pagination)
}

// Create godoc
// @Summary Register a new employee
// @Tags Employees
// @Accept json
// @Produce json
// @Param payload body models.Employee true "Employee payload"
// @Success 201 {object} response.Envelope
// @Router /employees [post]
func (h *EmployeeHandler) Create(c *gin.Context) {
	var employee models.Employee
	if err := c.ShouldBindJSON(&employee); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid employee payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Create(c.Request.Context(), &employee, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, employee, nil)
}

// Update godoc
// @Summary Update an employee
// @Tags Employees
// @Accept json
// @Produce json
// @Param id path string true "Employee ID"
// @Param payload body models.Employee true "Employee payload"
// @Success 200 {object} response.Envelope
// @Router /employees/{id} [put]
func (h *EmployeeHandler) Update(c *gin.Context) {
	var employee models.Employee
	if err := c.ShouldBindJSON(&employee); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid employee payload"))
		return
	}
	employee.ID = c.Param("id")
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Update(c.Request.Context(), &employee, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, employee, nil)
}
