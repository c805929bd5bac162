package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pontoflow/ponto-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestTimeEventInsertAssignsDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimeEventRepository(db)

	mock.ExpectExec("INSERT INTO time_events").WillReturnResult(sqlmock.NewResult(1, 1))

	event := models.TimeEvent{
		CompanyID:   "company-1",
		EmployeeID:  "employee-1",
		ActorID:     "employee-1",
		Kind:        models.PunchEntry,
		OccurredAt:  time.Now(),
		Fingerprint: "fp",
	}
	err := repo.Insert(context.Background(), &event)
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.CommittedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeEventGetByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimeEventRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "company_id", "employee_id", "actor_id", "kind", "occurred_at", "committed_at",
		"latitude", "longitude", "ip_address", "device_id", "photo_ref", "tag_ref", "fingerprint",
		"adjustment_id", "original_event_id",
	}).AddRow("evt-1", "company-1", "employee-1", "employee-1", string(models.PunchEntry), now, now,
		nil, nil, nil, nil, nil, nil, "fp", nil, nil)
	mock.ExpectQuery("SELECT (.+) FROM time_events WHERE id =").
		WithArgs("evt-1").
		WillReturnRows(rows)

	event, err := repo.GetByID(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "evt-1", event.ID)
	assert.Equal(t, models.PunchEntry, event.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeEventFindCompanyEventsInRange(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimeEventRepository(db)

	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	rows := sqlmock.NewRows([]string{
		"id", "company_id", "employee_id", "actor_id", "kind", "occurred_at", "committed_at",
		"latitude", "longitude", "ip_address", "device_id", "photo_ref", "tag_ref", "fingerprint",
		"adjustment_id", "original_event_id",
	}).
		AddRow("evt-1", "company-1", "employee-1", "employee-1", "ENTRY", from.Add(8*time.Hour), from.Add(8*time.Hour), nil, nil, nil, nil, nil, nil, "fp1", nil, nil).
		AddRow("evt-2", "company-1", "employee-2", "employee-2", "ENTRY", from.Add(9*time.Hour), from.Add(9*time.Hour), nil, nil, nil, nil, nil, nil, "fp2", nil, nil)
	mock.ExpectQuery("SELECT (.+) FROM time_events\\s+WHERE company_id = (.+) ORDER BY occurred_at ASC").
		WithArgs("company-1", from, to).
		WillReturnRows(rows)

	events, err := repo.FindCompanyEventsInRange(context.Background(), "company-1", from, to)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeEventList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimeEventRepository(db)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM time_events te WHERE te.company_id = $1")).
		WithArgs("company-1").
		WillReturnRows(countRows)

	now := time.Now()
	listRows := sqlmock.NewRows([]string{
		"id", "company_id", "employee_id", "actor_id", "kind", "occurred_at", "committed_at",
		"latitude", "longitude", "ip_address", "device_id", "photo_ref", "tag_ref", "fingerprint",
		"adjustment_id", "original_event_id", "employee_name",
	}).AddRow("evt-1", "company-1", "employee-1", "employee-1", "ENTRY", now, now,
		nil, nil, nil, nil, nil, nil, "fp", nil, nil, "Maria Souza")
	mock.ExpectQuery("SELECT te.id, (.+) FROM time_events te\\s+JOIN employees e ON").
		WithArgs("company-1").
		WillReturnRows(listRows)

	records, total, err := repo.List(context.Background(), models.TimeEventFilter{CompanyID: "company-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, "Maria Souza", records[0].EmployeeName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeEventDaySummary(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTimeEventRepository(db)

	day := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"total_punches", "derived_punches", "employees_punched", "pending_adjustments"}).
		AddRow(42, 3, 17, 2)
	mock.ExpectQuery("SELECT\\s+COUNT\\(\\*\\) AS total_punches").
		WithArgs("company-1", from, from.Add(24*time.Hour)).
		WillReturnRows(rows)

	summary, err := repo.DaySummary(context.Background(), "company-1", day)
	require.NoError(t, err)
	assert.Equal(t, 42, summary.TotalPunches)
	assert.Equal(t, 3, summary.DerivedPunches)
	assert.Equal(t, 17, summary.EmployeesPunched)
	assert.Equal(t, 2, summary.PendingAdjustments)
	assert.NoError(t, mock.ExpectationsWereMet())
}
