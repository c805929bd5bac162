package models

import "time"

// AdjustmentStatus captures workflow states for amendment requests.
type AdjustmentStatus string

const (
	AdjustmentStatusPending     AdjustmentStatus = "PENDING"
	AdjustmentStatusApproved    AdjustmentStatus = "APPROVED"
	AdjustmentStatusRejected    AdjustmentStatus = "REJECTED"
	AdjustmentStatusAutoApplied AdjustmentStatus = "AUTO_APPLIED"
)

// Terminal reports whether the status admits no further transition.
func (s AdjustmentStatus) Terminal() bool {
	switch s {
	case AdjustmentStatusApproved, AdjustmentStatusRejected, AdjustmentStatusAutoApplied:
		return true
	default:
		return false
	}
}

// AdjustmentReason enumerates accepted justification codes.
type AdjustmentReason string

const (
	ReasonSystemError      AdjustmentReason = "SYSTEM_ERROR"
	ReasonForgotToPunch    AdjustmentReason = "FORGOT_TO_PUNCH"
	ReasonEquipmentFailure AdjustmentReason = "EQUIPMENT_FAILURE"
	ReasonWrongKind        AdjustmentReason = "WRONG_KIND"
	ReasonLocationError    AdjustmentReason = "LOCATION_ERROR"
	ReasonOther            AdjustmentReason = "OTHER"
)

// Valid returns true when the reason is part of the closed enumeration.
func (r AdjustmentReason) Valid() bool {
	switch r {
	case ReasonSystemError, ReasonForgotToPunch, ReasonEquipmentFailure,
		ReasonWrongKind, ReasonLocationError, ReasonOther:
		return true
	default:
		return false
	}
}

// ProposedChanges carries the partial replacement values of an adjustment.
// Nil fields are left untouched on the original event.
type ProposedChanges struct {
	Kind       *PunchKind `json:"kind,omitempty"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
	DeviceID   *string    `json:"device_id,omitempty"`
}

// Empty reports whether no replacement value is proposed at all.
func (c ProposedChanges) Empty() bool {
	return c.Kind == nil && c.OccurredAt == nil && c.Latitude == nil &&
		c.Longitude == nil && c.DeviceID == nil
}

// FieldChange records one entry of the audit diff.
type FieldChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// AdjustmentRequest is a justified amendment of a committed time event. The
// original event stays read-only for the lifetime of the request; resolution
// produces a new derived event instead of touching the original row.
type AdjustmentRequest struct {
	ID              string           `db:"id" json:"id"`
	CompanyID       string           `db:"company_id" json:"company_id"`
	OriginalEventID string           `db:"original_event_id" json:"original_event_id"`
	Changes         []byte           `db:"changes" json:"changes"`
	Reason          AdjustmentReason `db:"reason" json:"reason"`
	Description     string           `db:"description" json:"description"`
	EvidenceRefs    *string          `db:"evidence_refs" json:"evidence_refs,omitempty"`
	Status          AdjustmentStatus `db:"status" json:"status"`
	RequestedBy     string           `db:"requested_by" json:"requested_by"`
	RequestedAt     time.Time        `db:"requested_at" json:"requested_at"`
	ResolvedBy      *string          `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time       `db:"resolved_at" json:"resolved_at,omitempty"`

	// Audit trail payload filled when the request is applied.
	OriginalSnapshot []byte     `db:"original_snapshot" json:"original_snapshot,omitempty"`
	Diff             []byte     `db:"diff" json:"diff,omitempty"`
	DiffComputedAt   *time.Time `db:"diff_computed_at" json:"diff_computed_at,omitempty"`
	DerivedEventID   *string    `db:"derived_event_id" json:"derived_event_id,omitempty"`
}

// AdjustmentFilter constrains listing queries.
type AdjustmentFilter struct {
	CompanyID       string
	OriginalEventID string
	Status          []AdjustmentStatus
	RequestedBy     string
	Limit           int
	Offset          int
}
