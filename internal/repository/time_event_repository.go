package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pontoflow/ponto-api/internal/models"
)

// TimeEventRepository persists committed punches. The table is append-only:
// there is deliberately no update method, a committed event can only be
// superseded by inserting a derived event.
type TimeEventRepository struct {
	db *sqlx.DB
}

// NewTimeEventRepository constructs the repository.
func NewTimeEventRepository(db *sqlx.DB) *TimeEventRepository {
	return &TimeEventRepository{db: db}
}

const timeEventColumns = `id, company_id, employee_id, actor_id, kind, occurred_at, committed_at,
       latitude, longitude, ip_address, device_id, photo_ref, tag_ref, fingerprint,
       adjustment_id, original_event_id`

const insertTimeEventQuery = `INSERT INTO time_events
	(id, company_id, employee_id, actor_id, kind, occurred_at, committed_at,
	 latitude, longitude, ip_address, device_id, photo_ref, tag_ref, fingerprint,
	 adjustment_id, original_event_id)
	VALUES (:id, :company_id, :employee_id, :actor_id, :kind, :occurred_at, :committed_at,
	 :latitude, :longitude, :ip_address, :device_id, :photo_ref, :tag_ref, :fingerprint,
	 :adjustment_id, :original_event_id)`

// insertTimeEvent runs the append against the given executor, which lets the
// adjustment workflow insert derived events inside its own transaction.
func insertTimeEvent(ctx context.Context, e sqlx.ExtContext, event *models.TimeEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CommittedAt.IsZero() {
		event.CommittedAt = time.Now().UTC()
	}
	if _, err := sqlx.NamedExecContext(ctx, e, insertTimeEventQuery, event); err != nil {
		return fmt.Errorf("insert time event: %w", err)
	}
	return nil
}

// Insert commits a new time event row.
func (r *TimeEventRepository) Insert(ctx context.Context, event *models.TimeEvent) error {
	return insertTimeEvent(ctx, r.db, event)
}

// GetByID fetches a single committed event.
func (r *TimeEventRepository) GetByID(ctx context.Context, id string) (*models.TimeEvent, error) {
	query := `SELECT ` + timeEventColumns + ` FROM time_events WHERE id = $1`
	var event models.TimeEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// FindCompanyEventsInRange returns all committed events for a company inside
// the window, oldest first. Used by duplicate detection, which needs the
// subject's own events plus recent events of colleagues for the
// device/location reuse check.
func (r *TimeEventRepository) FindCompanyEventsInRange(ctx context.Context, companyID string, from, to time.Time) ([]models.TimeEvent, error) {
	query := `SELECT ` + timeEventColumns + ` FROM time_events
	WHERE company_id = $1 AND occurred_at >= $2 AND occurred_at < $3
	ORDER BY occurred_at ASC`
	var events []models.TimeEvent
	if err := r.db.SelectContext(ctx, &events, query, companyID, from, to); err != nil {
		return nil, fmt.Errorf("find company events: %w", err)
	}
	return events, nil
}

// List returns paginated events matching the filter together with the total
// count.
func (r *TimeEventRepository) List(ctx context.Context, filter models.TimeEventFilter) ([]models.TimeEventRecord, int, error) {
	conditions := []string{"te.company_id = $1"}
	args := []interface{}{filter.CompanyID}

	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		conditions = append(conditions, fmt.Sprintf("te.employee_id = $%d", len(args)))
	}
	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		conditions = append(conditions, fmt.Sprintf("te.kind = $%d", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		conditions = append(conditions, fmt.Sprintf("te.occurred_at >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		conditions = append(conditions, fmt.Sprintf("te.occurred_at < $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")

	countQuery := "SELECT COUNT(*) FROM time_events te WHERE " + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count time events: %w", err)
	}

	order := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}

	query := fmt.Sprintf(`SELECT te.id, te.company_id, te.employee_id, te.actor_id, te.kind,
       te.occurred_at, te.committed_at, te.latitude, te.longitude, te.ip_address,
       te.device_id, te.photo_ref, te.tag_ref, te.fingerprint, te.adjustment_id,
       te.original_event_id, e.full_name AS employee_name
	FROM time_events te
	JOIN employees e ON e.id = te.employee_id
	WHERE %s
	ORDER BY te.occurred_at %s
	LIMIT %d OFFSET %d`, where, order, size, (page-1)*size)

	var records []models.TimeEventRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list time events: %w", err)
	}
	return records, total, nil
}

// DaySummary aggregates punch activity for a company day.
func (r *TimeEventRepository) DaySummary(ctx context.Context, companyID string, day time.Time) (*models.CompanyDaySummary, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.Add(24 * time.Hour)

	const query = `SELECT
	  COUNT(*) AS total_punches,
	  COUNT(*) FILTER (WHERE adjustment_id IS NOT NULL) AS derived_punches,
	  COUNT(DISTINCT employee_id) AS employees_punched,
	  (SELECT COUNT(*) FROM adjustment_requests ar
	     WHERE ar.company_id = $1 AND ar.status = 'PENDING') AS pending_adjustments
	FROM time_events
	WHERE company_id = $1 AND occurred_at >= $2 AND occurred_at < $3`

	summary := models.CompanyDaySummary{CompanyID: companyID, Date: from}
	if err := r.db.GetContext(ctx, &summary, query, companyID, from, to); err != nil {
		return nil, fmt.Errorf("day summary: %w", err)
	}
	return &summary, nil
}
