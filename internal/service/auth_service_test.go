package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pontoflow/ponto-api/internal/models"
	appErrors "github.com/pontoflow/ponto-api/pkg/errors"
)

type userRepoStub struct {
	users     map[string]*models.User
	lastLogin map[string]time.Time
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{users: make(map[string]*models.User), lastLogin: make(map[string]time.Time)}
}

func (s *userRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			copy := *user
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	s.lastLogin[id] = ts
	return nil
}

type companyRepoStub struct {
	companies map[string]*models.Company
}

func (s *companyRepoStub) GetByID(ctx context.Context, id string) (*models.Company, error) {
	if company, ok := s.companies[id]; ok {
		copy := *company
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func authConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "ponto-api",
	}
}

func seedUser(repo *userRepoStub, password string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	employeeID := "employee-1"
	user := &models.User{
		ID:           "user-1",
		CompanyID:    "company-1",
		Email:        "maria@example.com",
		PasswordHash: string(hash),
		FullName:     "Maria Souza",
		Role:         models.RoleEmployee,
		EmployeeID:   &employeeID,
		Active:       true,
	}
	repo.users[user.ID] = user
	return user
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newUserRepoStub()
	user := seedUser(repo, "s3cret")
	audit := &auditStub{}
	svc := NewAuthService(repo, nil, audit, nil, nil, authConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "s3cret"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, user.ID, resp.User.ID)
	require.Equal(t, "company-1", resp.User.CompanyID)
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionLogin, audit.logs[0].Action)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, "company-1", claims.CompanyID)
	require.Equal(t, "employee-1", claims.EmployeeID)
	require.Equal(t, models.RoleEmployee, claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := newUserRepoStub()
	user := seedUser(repo, "s3cret")
	svc := NewAuthService(repo, nil, nil, nil, nil, authConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "wrong"})
	require.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := newUserRepoStub()
	user := seedUser(repo, "s3cret")
	user.Active = false
	svc := NewAuthService(repo, nil, nil, nil, nil, authConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "s3cret"})
	require.True(t, appErrors.Is(err, appErrors.ErrInactiveAccount))
}

func TestAuthServiceLoginSuspendedCompany(t *testing.T) {
	repo := newUserRepoStub()
	user := seedUser(repo, "s3cret")
	companies := &companyRepoStub{companies: map[string]*models.Company{
		"company-1": {ID: "company-1", Name: "Acme Ltda", Active: false},
	}}
	svc := NewAuthService(repo, companies, nil, nil, nil, authConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "s3cret"})
	require.True(t, appErrors.Is(err, appErrors.ErrInactiveAccount))
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(newUserRepoStub(), nil, nil, nil, nil, authConfig())

	_, err := svc.ValidateToken("garbage.token.value")
	require.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
