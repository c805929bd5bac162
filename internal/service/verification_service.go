package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/pontoflow/ponto-api/internal/dto"
	"github.com/pontoflow/ponto-api/internal/integrity"
	"github.com/pontoflow/ponto-api/internal/models"
	appErrors "github.com/pontoflow/ponto-api/pkg/errors"
)

type verificationEventStore interface {
	GetByID(ctx context.Context, id string) (*models.TimeEvent, error)
}

// VerificationService checks verification codes against stored punches. A
// code that fails any check produces a negative result rather than an error;
// errors are reserved for infrastructure failures.
type VerificationService struct {
	events verificationEventStore
	signer *integrity.CodeSigner
	audit  auditTrail
	logger *zap.Logger
}

// NewVerificationService constructs the service.
func NewVerificationService(events verificationEventStore, signer *integrity.CodeSigner, audit auditTrail, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{events: events, signer: signer, audit: audit, logger: logger}
}

// Verify validates the code's signature and expiry, then recomputes the
// stored event's fingerprint and compares all three.
func (s *VerificationService) Verify(ctx context.Context, code string) (*dto.VerifyResponse, error) {
	decoded, err := s.signer.Validate(code)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrValidation) || appErrors.Is(err, appErrors.ErrIntegrity) {
			return s.invalid(ctx, "", appErrors.FromError(err).Message), nil
		}
		return nil, err
	}

	event, err := s.events.GetByID(ctx, decoded.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.invalid(ctx, decoded.EventID, "referenced punch does not exist"), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load punch")
	}

	if err := integrity.Verify(*event); err != nil {
		s.emitAudit(ctx, event, false)
		return s.invalid(ctx, event.ID, "stored punch failed its integrity check"), nil
	}
	if decoded.Fingerprint != event.Fingerprint {
		s.emitAudit(ctx, event, false)
		return s.invalid(ctx, event.ID, "code does not match the stored punch"), nil
	}

	s.emitAudit(ctx, event, true)
	return &dto.VerifyResponse{
		Valid:       true,
		EventID:     event.ID,
		Fingerprint: event.Fingerprint,
		Event:       event,
	}, nil
}

func (s *VerificationService) invalid(ctx context.Context, eventID, reason string) *dto.VerifyResponse {
	s.logger.Info("verification failed", zap.String("event_id", eventID), zap.String("reason", reason))
	return &dto.VerifyResponse{Valid: false, EventID: eventID, Reason: reason}
}

func (s *VerificationService) emitAudit(ctx context.Context, event *models.TimeEvent, valid bool) {
	if s.audit == nil {
		return
	}
	payload := []byte(`{"valid":true}`)
	if !valid {
		payload = []byte(`{"valid":false}`)
	}
	if err := s.audit.Create(ctx, &models.AuditLog{
		CompanyID:  &event.CompanyID,
		Action:     models.AuditActionIntegrityCheck,
		Resource:   "time_event",
		ResourceID: &event.ID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
