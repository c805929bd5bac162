package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pontoflow/ponto-api/internal/models"
)

func TestAdjustmentCreateAssignsDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdjustmentRepository(db)

	mock.ExpectExec("INSERT INTO adjustment_requests").WillReturnResult(sqlmock.NewResult(1, 1))

	request := models.AdjustmentRequest{
		CompanyID:       "company-1",
		OriginalEventID: "evt-1",
		Changes:         []byte(`{"kind":"EXIT"}`),
		Reason:          models.ReasonWrongKind,
		Description:     "punched entry instead of exit",
		RequestedBy:     "user-1",
	}
	err := repo.Create(context.Background(), &request)
	require.NoError(t, err)
	assert.NotEmpty(t, request.ID)
	assert.Equal(t, models.AdjustmentStatusPending, request.Status)
	assert.False(t, request.RequestedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustmentCreateMapsUniqueViolation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdjustmentRepository(db)

	mock.ExpectExec("INSERT INTO adjustment_requests").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "adjustment_requests_pending_original_event_idx"})

	request := models.AdjustmentRequest{
		CompanyID:       "company-1",
		OriginalEventID: "evt-1",
		Changes:         []byte(`{}`),
		Reason:          models.ReasonOther,
		Description:     "second request for the same event",
		RequestedBy:     "user-1",
	}
	err := repo.Create(context.Background(), &request)
	require.ErrorIs(t, err, ErrPendingExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustmentResolveCAS(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdjustmentRepository(db)

	mock.ExpectExec("UPDATE adjustment_requests SET status = (.+) WHERE id = (.+) AND status = 'PENDING'").
		WillReturnResult(sqlmock.NewResult(0, 1))

	now := time.Now().UTC()
	derived := "evt-2"
	err := repo.Resolve(context.Background(), ResolveAdjustmentParams{
		ID:               "adj-1",
		Status:           models.AdjustmentStatusApproved,
		ResolvedBy:       "manager-1",
		ResolvedAt:       now,
		OriginalSnapshot: []byte(`{"id":"evt-1"}`),
		Diff:             []byte(`{"kind":{"from":"ENTRY","to":"EXIT"}}`),
		DiffComputedAt:   &now,
		DerivedEventID:   &derived,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustmentResolveAlreadyResolved(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdjustmentRepository(db)

	// Another resolver won the race, the CAS matches zero rows.
	mock.ExpectExec("UPDATE adjustment_requests SET status = (.+) WHERE id = (.+) AND status = 'PENDING'").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Resolve(context.Background(), ResolveAdjustmentParams{
		ID:         "adj-1",
		Status:     models.AdjustmentStatusRejected,
		ResolvedBy: "manager-2",
		ResolvedAt: time.Now().UTC(),
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustmentApplyResolutionCommitsBoth(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdjustmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE adjustment_requests SET status = (.+) WHERE id = (.+) AND status = 'PENDING'").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO time_events").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	now := time.Now().UTC()
	derived := derivedEvent("evt-2", "adj-1", "evt-1")
	err := repo.ApplyResolution(context.Background(), ResolveAdjustmentParams{
		ID:               "adj-1",
		Status:           models.AdjustmentStatusApproved,
		ResolvedBy:       "manager-1",
		ResolvedAt:       now,
		OriginalSnapshot: []byte(`{"id":"evt-1"}`),
		Diff:             []byte(`{"kind":{"from":"ENTRY","to":"EXIT"}}`),
		DiffComputedAt:   &now,
		DerivedEventID:   &derived.ID,
	}, derived)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustmentApplyResolutionRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdjustmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE adjustment_requests SET status = (.+) WHERE id = (.+) AND status = 'PENDING'").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO time_events").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	now := time.Now().UTC()
	derived := derivedEvent("evt-2", "adj-1", "evt-1")
	err := repo.ApplyResolution(context.Background(), ResolveAdjustmentParams{
		ID:             "adj-1",
		Status:         models.AdjustmentStatusApproved,
		ResolvedBy:     "manager-1",
		ResolvedAt:     now,
		DerivedEventID: &derived.ID,
	}, derived)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustmentApplyResolutionLostRace(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdjustmentRepository(db)

	// Another resolver already won: the CAS matches nothing and the
	// derived event is never inserted.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE adjustment_requests SET status = (.+) WHERE id = (.+) AND status = 'PENDING'").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	derived := derivedEvent("evt-2", "adj-1", "evt-1")
	err := repo.ApplyResolution(context.Background(), ResolveAdjustmentParams{
		ID:         "adj-1",
		Status:     models.AdjustmentStatusApproved,
		ResolvedBy: "manager-1",
		ResolvedAt: time.Now().UTC(),
	}, derived)
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustmentCreateAppliedSingleTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdjustmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO adjustment_requests").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO time_events").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	now := time.Now().UTC()
	resolver := "user-1"
	derived := derivedEvent("evt-2", "adj-1", "evt-1")
	request := models.AdjustmentRequest{
		ID:              "adj-1",
		CompanyID:       "company-1",
		OriginalEventID: "evt-1",
		Changes:         []byte(`{"kind":"EXIT"}`),
		Reason:          models.ReasonWrongKind,
		Description:     "punched entry instead of exit",
		Status:          models.AdjustmentStatusAutoApplied,
		RequestedBy:     resolver,
		RequestedAt:     now,
		ResolvedBy:      &resolver,
		ResolvedAt:      &now,
		DerivedEventID:  &derived.ID,
	}
	err := repo.CreateApplied(context.Background(), &request, derived)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func derivedEvent(id, adjustmentID, originalID string) *models.TimeEvent {
	now := time.Now().UTC()
	return &models.TimeEvent{
		ID:              id,
		CompanyID:       "company-1",
		EmployeeID:      "employee-1",
		ActorID:         "manager-1",
		Kind:            models.PunchExit,
		OccurredAt:      now.Add(-time.Hour),
		CommittedAt:     now,
		Fingerprint:     "fp",
		AdjustmentID:    &adjustmentID,
		OriginalEventID: &originalID,
	}
}

func TestAdjustmentHasPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdjustmentRepository(db)

	rows := sqlmock.NewRows([]string{"exists"}).AddRow(true)
	mock.ExpectQuery("SELECT EXISTS").WithArgs("evt-1").WillReturnRows(rows)

	pending, err := repo.HasPending(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.True(t, pending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustmentList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdjustmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "company_id", "original_event_id", "changes", "reason", "description",
		"evidence_refs", "status", "requested_by", "requested_at", "resolved_by", "resolved_at",
		"original_snapshot", "diff", "diff_computed_at", "derived_event_id",
	}).AddRow("adj-1", "company-1", "evt-1", []byte(`{}`), "OTHER", "desc",
		nil, "PENDING", "user-1", now, nil, nil, nil, nil, nil, nil)
	mock.ExpectQuery("SELECT (.+) FROM adjustment_requests WHERE company_id = (.+) AND status IN (.+) ORDER BY requested_at DESC").
		WithArgs("company-1", models.AdjustmentStatusPending).
		WillReturnRows(rows)

	requests, err := repo.List(context.Background(), models.AdjustmentFilter{
		CompanyID: "company-1",
		Status:    []models.AdjustmentStatus{models.AdjustmentStatusPending},
	})
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, models.AdjustmentStatusPending, requests[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
