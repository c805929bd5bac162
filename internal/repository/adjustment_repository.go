package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pontoflow/ponto-api/internal/models"
)

// ErrPendingExists is returned when creating a request would violate the
// one-pending-per-original-event rule. The rule is backed by a partial unique
// index on (original_event_id) WHERE status = 'PENDING', so concurrent
// submissions cannot slip past a read-then-write check.
var ErrPendingExists = errors.New("a pending adjustment already exists for this event")

// AdjustmentRepository persists amendment workflow data.
type AdjustmentRepository struct {
	db *sqlx.DB
}

// NewAdjustmentRepository constructs the repository.
func NewAdjustmentRepository(db *sqlx.DB) *AdjustmentRepository {
	return &AdjustmentRepository{db: db}
}

const adjustmentColumns = `id, company_id, original_event_id, changes, reason, description,
       evidence_refs, status, requested_by, requested_at, resolved_by, resolved_at,
       original_snapshot, diff, diff_computed_at, derived_event_id`

const insertAdjustmentQuery = `INSERT INTO adjustment_requests
	(id, company_id, original_event_id, changes, reason, description, evidence_refs,
	 status, requested_by, requested_at, resolved_by, resolved_at,
	 original_snapshot, diff, diff_computed_at, derived_event_id)
	VALUES (:id, :company_id, :original_event_id, :changes, :reason, :description, :evidence_refs,
	 :status, :requested_by, :requested_at, :resolved_by, :resolved_at,
	 :original_snapshot, :diff, :diff_computed_at, :derived_event_id)`

// Create inserts a new adjustment request row.
func (r *AdjustmentRepository) Create(ctx context.Context, request *models.AdjustmentRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.AdjustmentStatusPending
	}
	if request.RequestedAt.IsZero() {
		request.RequestedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, insertAdjustmentQuery, request); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrPendingExists
		}
		return fmt.Errorf("create adjustment request: %w", err)
	}
	return nil
}

// CreateApplied inserts an already-resolved request together with its derived
// event in a single transaction. Auto-applied requests go through here so
// that no reader ever observes them as PENDING and a failed derived insert
// cannot strand a pending row.
func (r *AdjustmentRepository) CreateApplied(ctx context.Context, request *models.AdjustmentRequest, derived *models.TimeEvent) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.RequestedAt.IsZero() {
		request.RequestedAt = time.Now().UTC()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin applied adjustment: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()
	if _, err := sqlx.NamedExecContext(ctx, tx, insertAdjustmentQuery, request); err != nil {
		return fmt.Errorf("create applied adjustment: %w", err)
	}
	if err := insertTimeEvent(ctx, tx, derived); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit applied adjustment: %w", err)
	}
	commit = true
	return nil
}

// GetByID fetches an adjustment request by identifier.
func (r *AdjustmentRepository) GetByID(ctx context.Context, id string) (*models.AdjustmentRequest, error) {
	query := `SELECT ` + adjustmentColumns + ` FROM adjustment_requests WHERE id = $1`
	var request models.AdjustmentRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// HasPending reports whether the original event already has a pending
// request.
func (r *AdjustmentRepository) HasPending(ctx context.Context, originalEventID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM adjustment_requests
	WHERE original_event_id = $1 AND status = 'PENDING')`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, originalEventID); err != nil {
		return false, fmt.Errorf("check pending adjustment: %w", err)
	}
	return exists, nil
}

// List returns adjustment requests matching the filter, latest first.
func (r *AdjustmentRepository) List(ctx context.Context, filter models.AdjustmentFilter) ([]models.AdjustmentRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 5)
	builder.WriteString(`SELECT ` + adjustmentColumns + ` FROM adjustment_requests`)

	conditions := make([]string, 0, 4)
	if filter.CompanyID != "" {
		args = append(args, filter.CompanyID)
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", len(args)))
	}
	if filter.OriginalEventID != "" {
		args = append(args, filter.OriginalEventID)
		conditions = append(conditions, fmt.Sprintf("original_event_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("requested_by = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY requested_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.AdjustmentRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list adjustment requests: %w", err)
	}
	return requests, nil
}

// ResolveAdjustmentParams groups the columns written on resolution.
type ResolveAdjustmentParams struct {
	ID               string
	Status           models.AdjustmentStatus
	ResolvedBy       string
	ResolvedAt       time.Time
	OriginalSnapshot []byte
	Diff             []byte
	DiffComputedAt   *time.Time
	DerivedEventID   *string
}

func resolveQuery(params ResolveAdjustmentParams) string {
	setParts := []string{
		"status = :status",
		"resolved_by = :resolved_by",
		"resolved_at = :resolved_at",
	}
	if len(params.OriginalSnapshot) > 0 {
		setParts = append(setParts, "original_snapshot = :original_snapshot")
	}
	if len(params.Diff) > 0 {
		setParts = append(setParts, "diff = :diff", "diff_computed_at = :diff_computed_at")
	}
	if params.DerivedEventID != nil {
		setParts = append(setParts, "derived_event_id = :derived_event_id")
	}
	return fmt.Sprintf("UPDATE adjustment_requests SET %s WHERE id = :id AND status = '%s'",
		strings.Join(setParts, ", "),
		models.AdjustmentStatusPending,
	)
}

func resolveArgs(params ResolveAdjustmentParams) map[string]interface{} {
	return map[string]interface{}{
		"id":                params.ID,
		"status":            params.Status,
		"resolved_by":       params.ResolvedBy,
		"resolved_at":       params.ResolvedAt,
		"original_snapshot": params.OriginalSnapshot,
		"diff":              params.Diff,
		"diff_computed_at":  params.DiffComputedAt,
		"derived_event_id":  params.DerivedEventID,
	}
}

// resolvePending runs the CAS against the given executor. The WHERE clause
// re-checks the current status, so of two concurrent resolutions exactly one
// wins and the loser observes sql.ErrNoRows.
func resolvePending(ctx context.Context, e sqlx.ExtContext, params ResolveAdjustmentParams) error {
	result, err := sqlx.NamedExecContext(ctx, e, resolveQuery(params), resolveArgs(params))
	if err != nil {
		return fmt.Errorf("resolve adjustment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check resolve rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Resolve transitions the request out of PENDING without touching the event
// log. Used for rejections, which never materialise a derived event.
func (r *AdjustmentRepository) Resolve(ctx context.Context, params ResolveAdjustmentParams) error {
	return resolvePending(ctx, r.db, params)
}

// ApplyResolution runs the status CAS and the derived event insert in one
// transaction: either the request turns terminal and the derived event
// exists, or neither happened. A lost CAS race surfaces as sql.ErrNoRows and
// rolls the insert back with it.
func (r *AdjustmentRepository) ApplyResolution(ctx context.Context, params ResolveAdjustmentParams, derived *models.TimeEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply resolution: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()
	if err := resolvePending(ctx, tx, params); err != nil {
		return err
	}
	if err := insertTimeEvent(ctx, tx, derived); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit apply resolution: %w", err)
	}
	commit = true
	return nil
}
