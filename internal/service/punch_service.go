package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pontoflow/ponto-api/internal/dto"
	"github.com/pontoflow/ponto-api/internal/duplicate"
	"github.com/pontoflow/ponto-api/internal/integrity"
	"github.com/pontoflow/ponto-api/internal/models"
	"github.com/pontoflow/ponto-api/pkg/config"
	appErrors "github.com/pontoflow/ponto-api/pkg/errors"
)

// futureSkew tolerates clock drift between punch devices and the platform.
const futureSkew = 5 * time.Minute

type punchEventStore interface {
	Insert(ctx context.Context, event *models.TimeEvent) error
	GetByID(ctx context.Context, id string) (*models.TimeEvent, error)
	FindCompanyEventsInRange(ctx context.Context, companyID string, from, to time.Time) ([]models.TimeEvent, error)
	List(ctx context.Context, filter models.TimeEventFilter) ([]models.TimeEventRecord, int, error)
}

type auditTrail interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// PunchService commits punches: it runs duplicate detection against the
// day's history, derives the integrity fingerprint, and persists the event
// within a bounded timeout.
type PunchService struct {
	events    punchEventStore
	audit     auditTrail
	engine    *integrity.Engine
	publisher notificationPublisher
	validator *validator.Validate
	logger    *zap.Logger

	strategy  duplicate.Strategy
	detectCfg duplicate.Config
	timeout   time.Duration
}

// NewPunchService constructs the service.
func NewPunchService(events punchEventStore, audit auditTrail, engine *integrity.Engine, publisher notificationPublisher, validate *validator.Validate, logger *zap.Logger, cfg config.PunchConfig) *PunchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	strategy := duplicate.Strategy(strings.ToUpper(cfg.Strategy))
	if !strategy.Valid() {
		strategy = duplicate.StrategyHybrid
	}
	timeout := cfg.PersistenceTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PunchService{
		events:    events,
		audit:     audit,
		engine:    engine,
		publisher: publisher,
		validator: validate,
		logger:    logger,
		strategy:  strategy,
		detectCfg: duplicate.Config{
			MinInterval:     cfg.MinInterval,
			KindWindow:      cfg.KindWindow,
			DeviceWindow:    cfg.DeviceWindow,
			LocationRadiusM: cfg.LocationRadiusM,
		},
		timeout: timeout,
	}
}

// Commit registers a punch for an employee.
func (s *PunchService) Commit(ctx context.Context, req dto.CommitPunchRequest, actor *models.JWTClaims) (*dto.CommitPunchResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid punch payload")
	}
	if !req.Kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported punch kind: "+string(req.Kind))
	}
	if actor.Role == models.RoleEmployee && actor.EmployeeID != req.EmployeeID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "employees can only punch for themselves")
	}
	now := time.Now().UTC()
	if req.OccurredAt.After(now.Add(futureSkew)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "occurrence timestamp is in the future")
	}

	candidate := models.TimeEvent{
		CompanyID:  actor.CompanyID,
		EmployeeID: req.EmployeeID,
		ActorID:    actor.UserID,
		Kind:       req.Kind,
		OccurredAt: req.OccurredAt.UTC(),
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		DeviceID:   req.DeviceID,
		PhotoRef:   req.PhotoRef,
		TagRef:     req.TagRef,
	}

	dayStart := time.Date(candidate.OccurredAt.Year(), candidate.OccurredAt.Month(), candidate.OccurredAt.Day(), 0, 0, 0, 0, time.UTC)
	history, err := s.events.FindCompanyEventsInRange(ctx, actor.CompanyID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependencyFailed.Code, appErrors.ErrDependencyFailed.Status, "failed to load punch history")
	}

	verdict := duplicate.Detect(candidate, history, s.detectCfg, s.strategy)
	if len(verdict.Errors) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, strings.Join(verdict.Errors, "; "))
	}
	if verdict.IsDuplicate {
		s.emitAudit(ctx, actor, models.AuditActionPunchRejected, "time_event", verdict.MatchedEventID,
			[]byte(fmt.Sprintf(`{"duplicate_type":%q,"matched_event_id":%q}`, verdict.Type, verdict.MatchedEventID)))
		return nil, appErrors.Clone(appErrors.ErrDuplicatePunch,
			fmt.Sprintf("duplicate punch (%s) matching event %s", verdict.Type, verdict.MatchedEventID))
	}

	candidate.ID = uuid.NewString()
	candidate.CommittedAt = now
	result, err := s.engine.Compute(integrity.ModeAdvanced, candidate)
	if err != nil {
		return nil, err
	}
	candidate.Fingerprint = result.Fingerprint

	persistCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.events.Insert(persistCtx, &candidate); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, appErrors.Wrap(err, appErrors.ErrDependencyFailed.Code, appErrors.ErrDependencyFailed.Status, "punch persistence timed out")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist punch")
	}

	s.emitAudit(ctx, actor, models.AuditActionPunchCommit, "time_event", candidate.ID, nil)
	s.notify(ctx, Notification{
		Type:       NotifyPunchCommitted,
		CompanyID:  candidate.CompanyID,
		EmployeeID: candidate.EmployeeID,
		ResourceID: candidate.ID,
		Payload: map[string]interface{}{
			"kind":        candidate.Kind,
			"occurred_at": candidate.OccurredAt,
		},
	})

	return &dto.CommitPunchResponse{
		Event:            candidate,
		VerificationCode: result.Code,
		CodeExpiresAt:    result.ExpiresAt,
		Warnings:         verdict.Warnings,
	}, nil
}

// Get returns a committed punch enforcing tenant and role scope.
func (s *PunchService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.TimeEvent, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load punch")
	}
	if event.CompanyID != actor.CompanyID {
		return nil, appErrors.ErrNotFound
	}
	if actor.Role == models.RoleEmployee && event.EmployeeID != actor.EmployeeID {
		return nil, appErrors.ErrForbidden
	}
	return event, nil
}

// List returns punches for the actor's company.
func (s *PunchService) List(ctx context.Context, query dto.PunchQuery, actor *models.JWTClaims) ([]models.TimeEventRecord, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter := models.TimeEventFilter{
		CompanyID:  actor.CompanyID,
		EmployeeID: query.EmployeeID,
		Kind:       query.Kind,
		DateFrom:   query.DateFrom,
		DateTo:     query.DateTo,
		Page:       query.Page,
		PageSize:   query.PageSize,
		SortOrder:  query.SortOrder,
	}
	if actor.Role == models.RoleEmployee {
		filter.EmployeeID = actor.EmployeeID
	}
	records, total, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list punches")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return records, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *PunchService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, resource, resourceID string, newValues []byte) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		CompanyID: &actor.CompanyID,
		UserID:    &actor.UserID,
		Action:    action,
		Resource:  resource,
		NewValues: newValues,
	}
	if resourceID != "" {
		log.ResourceID = &resourceID
	}
	if err := s.audit.Create(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

// notify publishes best-effort: a saturated or failing dispatcher is logged
// and never fails the punch.
func (s *PunchService) notify(ctx context.Context, n Notification) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, n); err != nil {
		s.logger.Warn("failed to publish notification", zap.String("type", n.Type), zap.Error(err))
	}
}
