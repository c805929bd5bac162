package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pontoflow/ponto-api/internal/models"
	appErrors "github.com/pontoflow/ponto-api/pkg/errors"
)

type employeeStore interface {
	GetByID(ctx context.Context, id string) (*models.Employee, error)
	List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error)
	Create(ctx context.Context, employee *models.Employee) error
	Update(ctx context.Context, employee *models.Employee) error
}

// EmployeeService manages employee records within a tenant.
type EmployeeService struct {
	repo      employeeStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEmployeeService constructs the service.
func NewEmployeeService(repo employeeStore, validate *validator.Validate, logger *zap.Logger) *EmployeeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EmployeeService{repo: repo, validator: validate, logger: logger}
}

// Get returns one employee enforcing tenant scope.
func (s *EmployeeService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Employee, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	employee, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	if employee.CompanyID != actor.CompanyID && actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.ErrNotFound
	}
	return employee, nil
}

// List returns the company's employees.
func (s *EmployeeService) List(ctx context.Context, filter models.EmployeeFilter, actor *models.JWTClaims) ([]models.Employee, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter.CompanyID = actor.CompanyID
	employees, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list employees")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return employees, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create registers a new employee in the actor's company.
func (s *EmployeeService) Create(ctx context.Context, employee *models.Employee, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleSuperAdmin, models.RoleAdmin:
	default:
		return appErrors.ErrForbidden
	}
	if employee.FullName == "" || employee.Registration == "" {
		return appErrors.Clone(appErrors.ErrValidation, "full name and registration are required")
	}
	employee.CompanyID = actor.CompanyID
	employee.Active = true
	if err := s.repo.Create(ctx, employee); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create employee")
	}
	return nil
}

// Update changes mutable employee fields.
func (s *EmployeeService) Update(ctx context.Context, employee *models.Employee, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleSuperAdmin, models.RoleAdmin:
	default:
		return appErrors.ErrForbidden
	}
	existing, err := s.Get(ctx, employee.ID, actor)
	if err != nil {
		return err
	}
	employee.CompanyID = existing.CompanyID
	if err := s.repo.Update(ctx, employee); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update employee")
	}
	return nil
}
