package dto

import (
	"github.com/pontoflow/ponto-api/internal/models"
)

// CreateAdjustmentRequest is the payload for opening an amendment request
// against a committed punch.
type CreateAdjustmentRequest struct {
	OriginalEventID string                  `json:"originalEventId" validate:"required"`
	Changes         models.ProposedChanges  `json:"changes"`
	Reason          models.AdjustmentReason `json:"reason" validate:"required"`
	Description     string                  `json:"description" validate:"required"`
	EvidenceRefs    *string                 `json:"evidenceRefs"`
}

// ResolveAdjustmentRequest captures the reviewer decision.
type ResolveAdjustmentRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

// AdjustmentQuery mirrors the supported listing filters.
type AdjustmentQuery struct {
	OriginalEventID string
	Status          []models.AdjustmentStatus
	RequestedBy     string
	Limit           int
	Offset          int
}

// AdjustmentResponse pairs a request with the derived event when resolution
// produced one.
type AdjustmentResponse struct {
	Request      models.AdjustmentRequest `json:"request"`
	DerivedEvent *models.TimeEvent        `json:"derivedEvent,omitempty"`
}
