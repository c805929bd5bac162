package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pontoflow/ponto-api/internal/dto"
	"github.com/pontoflow/ponto-api/internal/integrity"
	"github.com/pontoflow/ponto-api/internal/models"
	"github.com/pontoflow/ponto-api/internal/repository"
	"github.com/pontoflow/ponto-api/pkg/config"
	appErrors "github.com/pontoflow/ponto-api/pkg/errors"
)

type adjustmentStore interface {
	Create(ctx context.Context, request *models.AdjustmentRequest) error
	CreateApplied(ctx context.Context, request *models.AdjustmentRequest, derived *models.TimeEvent) error
	GetByID(ctx context.Context, id string) (*models.AdjustmentRequest, error)
	HasPending(ctx context.Context, originalEventID string) (bool, error)
	List(ctx context.Context, filter models.AdjustmentFilter) ([]models.AdjustmentRequest, error)
	Resolve(ctx context.Context, params repository.ResolveAdjustmentParams) error
	ApplyResolution(ctx context.Context, params repository.ResolveAdjustmentParams, derived *models.TimeEvent) error
}

type adjustmentEventStore interface {
	GetByID(ctx context.Context, id string) (*models.TimeEvent, error)
}

// AdjustmentService runs the amendment workflow. Originals are never
// modified: an approved request produces a new derived event that supersedes
// the original, and the request row carries the snapshot and diff for audit.
type AdjustmentService struct {
	adjustments adjustmentStore
	events      adjustmentEventStore
	audit       auditTrail
	publisher   notificationPublisher
	validator   *validator.Validate
	logger      *zap.Logger
	policy      config.AmendmentConfig
	timeout     time.Duration
}

// NewAdjustmentService constructs the service.
func NewAdjustmentService(adjustments adjustmentStore, events adjustmentEventStore, audit auditTrail, publisher notificationPublisher, validate *validator.Validate, logger *zap.Logger, policy config.AmendmentConfig) *AdjustmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if policy.MinDescription <= 0 {
		policy.MinDescription = 10
	}
	timeout := policy.PersistenceTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AdjustmentService{
		adjustments: adjustments,
		events:      events,
		audit:       audit,
		publisher:   publisher,
		validator:   validate,
		logger:      logger,
		policy:      policy,
		timeout:     timeout,
	}
}

// Submit opens an amendment request against a committed punch. When the
// tenant does not require approval the request is applied immediately and
// comes back as AUTO_APPLIED.
func (s *AdjustmentService) Submit(ctx context.Context, req dto.CreateAdjustmentRequest, actor *models.JWTClaims) (*dto.AdjustmentResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid adjustment payload")
	}
	if !req.Reason.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported adjustment reason: "+string(req.Reason))
	}
	if req.Changes.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one proposed change is required")
	}
	if req.Changes.Kind != nil && !req.Changes.Kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported punch kind: "+string(*req.Changes.Kind))
	}
	if len(strings.TrimSpace(req.Description)) < s.policy.MinDescription {
		return nil, appErrors.Clone(appErrors.ErrPolicyViolation,
			fmt.Sprintf("description must have at least %d characters", s.policy.MinDescription))
	}

	original, err := s.loadScopedEvent(ctx, req.OriginalEventID, actor)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleEmployee && original.EmployeeID != actor.EmployeeID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "employees can only amend their own punches")
	}
	if s.policy.MaxAgeDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -s.policy.MaxAgeDays)
		if original.OccurredAt.Before(cutoff) {
			return nil, appErrors.Clone(appErrors.ErrPolicyViolation,
				fmt.Sprintf("punches older than %d days cannot be amended", s.policy.MaxAgeDays))
		}
	}
	if !effectiveChange(req.Changes, original) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "proposed changes match the committed punch")
	}

	pending, err := s.adjustments.HasPending(ctx, original.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending adjustments")
	}
	if pending {
		return nil, pendingAdjustmentError()
	}

	changes, err := json.Marshal(req.Changes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode proposed changes")
	}
	request := &models.AdjustmentRequest{
		ID:              uuid.NewString(),
		CompanyID:       actor.CompanyID,
		OriginalEventID: original.ID,
		Changes:         changes,
		Reason:          req.Reason,
		Description:     strings.TrimSpace(req.Description),
		EvidenceRefs:    req.EvidenceRefs,
		Status:          models.AdjustmentStatusPending,
		RequestedBy:     actor.UserID,
		RequestedAt:     time.Now().UTC(),
	}

	if s.policy.RequireApproval {
		persistCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		if err := s.adjustments.Create(persistCtx, request); err != nil {
			return nil, s.submitError(err)
		}

		s.emitAudit(ctx, actor, models.AuditActionAdjustmentCreate, request.ID, changes)
		s.notify(ctx, Notification{
			Type:       NotifyAdjustmentCreated,
			CompanyID:  request.CompanyID,
			EmployeeID: original.EmployeeID,
			ResourceID: request.ID,
		})
		return &dto.AdjustmentResponse{Request: *request}, nil
	}

	// No approval required: materialise the derived event up front and insert
	// the request already terminal, so it is never observable as PENDING.
	derived, err := s.materialize(request, original, actor.UserID, models.AdjustmentStatusAutoApplied)
	if err != nil {
		return nil, err
	}
	persistCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.adjustments.CreateApplied(persistCtx, request, derived); err != nil {
		return nil, s.submitError(err)
	}

	s.emitAudit(ctx, actor, models.AuditActionAdjustmentCreate, request.ID, changes)
	s.notify(ctx, Notification{
		Type:       NotifyAdjustmentCreated,
		CompanyID:  request.CompanyID,
		EmployeeID: original.EmployeeID,
		ResourceID: request.ID,
	})
	s.notify(ctx, Notification{
		Type:       NotifyAdjustmentResolved,
		CompanyID:  request.CompanyID,
		EmployeeID: original.EmployeeID,
		ResourceID: request.ID,
		Payload:    map[string]interface{}{"status": request.Status},
	})
	return &dto.AdjustmentResponse{Request: *request, DerivedEvent: derived}, nil
}

// submitError maps persistence failures on the submit path. The unique index
// on pending requests backs up the HasPending fast path, so a lost insert
// race still comes back as the same policy violation.
func (s *AdjustmentService) submitError(err error) error {
	switch {
	case errors.Is(err, repository.ErrPendingExists):
		return pendingAdjustmentError()
	case errors.Is(err, context.DeadlineExceeded):
		return appErrors.Wrap(err, appErrors.ErrDependencyFailed.Code, appErrors.ErrDependencyFailed.Status, "adjustment persistence timed out")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create adjustment request")
	}
}

func pendingAdjustmentError() error {
	return appErrors.Clone(appErrors.ErrPolicyViolation, "PENDING_ADJUSTMENT_EXISTS: a pending adjustment already exists for this punch")
}

// effectiveChange reports whether at least one proposed field actually
// differs from the committed value. Changes.Empty catches the all-nil
// payload; this catches proposals that merely restate the original.
func effectiveChange(changes models.ProposedChanges, original *models.TimeEvent) bool {
	if changes.Kind != nil && *changes.Kind != original.Kind {
		return true
	}
	if changes.OccurredAt != nil && !changes.OccurredAt.Equal(original.OccurredAt) {
		return true
	}
	if changes.Latitude != nil && (original.Latitude == nil || *changes.Latitude != *original.Latitude) {
		return true
	}
	if changes.Longitude != nil && (original.Longitude == nil || *changes.Longitude != *original.Longitude) {
		return true
	}
	if changes.DeviceID != nil && (original.DeviceID == nil || *changes.DeviceID != *original.DeviceID) {
		return true
	}
	return false
}

// Resolve records the reviewer decision on a pending request.
func (s *AdjustmentService) Resolve(ctx context.Context, id string, req dto.ResolveAdjustmentRequest, actor *models.JWTClaims) (*dto.AdjustmentResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager:
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only managers can resolve adjustments")
	}

	request, err := s.adjustments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load adjustment request")
	}
	if request.CompanyID != actor.CompanyID && actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.ErrNotFound
	}
	if request.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "adjustment request already resolved")
	}

	response := &dto.AdjustmentResponse{}
	if req.Approve {
		original, err := s.loadScopedEvent(ctx, request.OriginalEventID, actor)
		if err != nil {
			return nil, err
		}
		derived, err := s.materialize(request, original, actor.UserID, models.AdjustmentStatusApproved)
		if err != nil {
			return nil, err
		}
		persistCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		if err := s.adjustments.ApplyResolution(persistCtx, repository.ResolveAdjustmentParams{
			ID:               request.ID,
			Status:           request.Status,
			ResolvedBy:       actor.UserID,
			ResolvedAt:       *request.ResolvedAt,
			OriginalSnapshot: request.OriginalSnapshot,
			Diff:             request.Diff,
			DiffComputedAt:   request.DiffComputedAt,
			DerivedEventID:   request.DerivedEventID,
		}, derived); err != nil {
			return nil, s.resolveError(err)
		}
		response.DerivedEvent = derived
	} else {
		now := time.Now().UTC()
		persistCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		if err := s.adjustments.Resolve(persistCtx, repository.ResolveAdjustmentParams{
			ID:         request.ID,
			Status:     models.AdjustmentStatusRejected,
			ResolvedBy: actor.UserID,
			ResolvedAt: now,
		}); err != nil {
			return nil, s.resolveError(err)
		}
		request.Status = models.AdjustmentStatusRejected
		request.ResolvedBy = &actor.UserID
		request.ResolvedAt = &now
	}

	s.emitAudit(ctx, actor, models.AuditActionAdjustmentResolve, request.ID,
		[]byte(fmt.Sprintf(`{"status":%q}`, request.Status)))
	s.notify(ctx, Notification{
		Type:       NotifyAdjustmentResolved,
		CompanyID:  request.CompanyID,
		ResourceID: request.ID,
		Payload:    map[string]interface{}{"status": request.Status},
	})

	response.Request = *request
	return response, nil
}

// Get returns a request enforcing tenant and role scope.
func (s *AdjustmentService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.AdjustmentRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.adjustments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load adjustment request")
	}
	if request.CompanyID != actor.CompanyID && actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.ErrNotFound
	}
	if actor.Role == models.RoleEmployee && request.RequestedBy != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return request, nil
}

// List returns requests visible to the actor.
func (s *AdjustmentService) List(ctx context.Context, query dto.AdjustmentQuery, actor *models.JWTClaims) ([]models.AdjustmentRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.AdjustmentFilter{
		CompanyID:       actor.CompanyID,
		OriginalEventID: query.OriginalEventID,
		Status:          query.Status,
		RequestedBy:     query.RequestedBy,
		Limit:           query.Limit,
		Offset:          query.Offset,
	}
	if actor.Role == models.RoleEmployee {
		filter.RequestedBy = actor.UserID
	}
	requests, err := s.adjustments.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list adjustment requests")
	}
	return requests, nil
}

// resolveError maps persistence failures on the resolution paths. A lost CAS
// race surfaces as sql.ErrNoRows from the repository.
func (s *AdjustmentService) resolveError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrInvalidTransition, "adjustment request already resolved")
	case errors.Is(err, context.DeadlineExceeded):
		return appErrors.Wrap(err, appErrors.ErrDependencyFailed.Code, appErrors.ErrDependencyFailed.Status, "adjustment persistence timed out")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve adjustment")
	}
}

// materialize builds the derived event, the original snapshot and the diff,
// and marks the request resolved in memory. Nothing is persisted here: the
// caller hands the pieces to the repository so that the status change and the
// derived event insert land in one transaction.
func (s *AdjustmentService) materialize(request *models.AdjustmentRequest, original *models.TimeEvent, resolverID string, status models.AdjustmentStatus) (*models.TimeEvent, error) {
	var changes models.ProposedChanges
	if err := json.Unmarshal(request.Changes, &changes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode proposed changes")
	}

	now := time.Now().UTC()
	derived := &models.TimeEvent{
		ID:              uuid.NewString(),
		CompanyID:       original.CompanyID,
		EmployeeID:      original.EmployeeID,
		ActorID:         resolverID,
		Kind:            original.Kind,
		OccurredAt:      original.OccurredAt,
		CommittedAt:     now,
		Latitude:        original.Latitude,
		Longitude:       original.Longitude,
		IPAddress:       original.IPAddress,
		DeviceID:        original.DeviceID,
		PhotoRef:        original.PhotoRef,
		TagRef:          original.TagRef,
		AdjustmentID:    &request.ID,
		OriginalEventID: &original.ID,
	}
	diff := map[string]models.FieldChange{}
	if changes.Kind != nil && *changes.Kind != original.Kind {
		diff["kind"] = models.FieldChange{From: string(original.Kind), To: string(*changes.Kind)}
		derived.Kind = *changes.Kind
	}
	if changes.OccurredAt != nil && !changes.OccurredAt.Equal(original.OccurredAt) {
		diff["occurred_at"] = models.FieldChange{
			From: original.OccurredAt.UTC().Format(time.RFC3339Nano),
			To:   changes.OccurredAt.UTC().Format(time.RFC3339Nano),
		}
		derived.OccurredAt = changes.OccurredAt.UTC()
	}
	if changes.Latitude != nil && (original.Latitude == nil || *changes.Latitude != *original.Latitude) {
		diff["latitude"] = models.FieldChange{From: floatString(original.Latitude), To: floatString(changes.Latitude)}
		derived.Latitude = changes.Latitude
	}
	if changes.Longitude != nil && (original.Longitude == nil || *changes.Longitude != *original.Longitude) {
		diff["longitude"] = models.FieldChange{From: floatString(original.Longitude), To: floatString(changes.Longitude)}
		derived.Longitude = changes.Longitude
	}
	if changes.DeviceID != nil && (original.DeviceID == nil || *changes.DeviceID != *original.DeviceID) {
		diff["device_id"] = models.FieldChange{From: stringValue(original.DeviceID), To: *changes.DeviceID}
		derived.DeviceID = changes.DeviceID
	}

	fingerprint, err := integrity.Fingerprint(*derived)
	if err != nil {
		return nil, err
	}
	derived.Fingerprint = fingerprint

	snapshot, err := json.Marshal(original)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to snapshot original event")
	}
	diffJSON, err := json.Marshal(diff)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode diff")
	}

	request.Status = status
	request.ResolvedBy = &resolverID
	request.ResolvedAt = &now
	request.OriginalSnapshot = snapshot
	request.Diff = diffJSON
	request.DiffComputedAt = &now
	request.DerivedEventID = &derived.ID
	return derived, nil
}

func (s *AdjustmentService) loadScopedEvent(ctx context.Context, id string, actor *models.JWTClaims) (*models.TimeEvent, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "original punch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load original punch")
	}
	if event.CompanyID != actor.CompanyID && actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "original punch not found")
	}
	return event, nil
}

func (s *AdjustmentService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, resourceID string, newValues []byte) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Create(ctx, &models.AuditLog{
		CompanyID:  &actor.CompanyID,
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "adjustment_request",
		ResourceID: &resourceID,
		NewValues:  newValues,
	}); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func (s *AdjustmentService) notify(ctx context.Context, n Notification) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, n); err != nil {
		s.logger.Warn("failed to publish notification", zap.String("type", n.Type), zap.Error(err))
	}
}

func floatString(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
