package dto

import (
	"time"

	"github.com/pontoflow/ponto-api/internal/models"
)

// CommitPunchRequest is the payload for registering a punch.
type CommitPunchRequest struct {
	EmployeeID string           `json:"employeeId" validate:"required"`
	Kind       models.PunchKind `json:"kind" validate:"required"`
	OccurredAt time.Time        `json:"occurredAt" validate:"required"`
	Latitude   *float64         `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude  *float64         `json:"longitude" validate:"omitempty,min=-180,max=180"`
	DeviceID   *string          `json:"deviceId"`
	PhotoRef   *string          `json:"photoRef"`
	TagRef     *string          `json:"tagRef"`
}

// CommitPunchResponse carries the committed event together with its
// verification material.
type CommitPunchResponse struct {
	Event            models.TimeEvent `json:"event"`
	VerificationCode string           `json:"verificationCode"`
	CodeExpiresAt    time.Time        `json:"codeExpiresAt"`
	Warnings         []string         `json:"warnings,omitempty"`
}

// PunchQuery mirrors the supported listing filters.
type PunchQuery struct {
	EmployeeID string
	Kind       *models.PunchKind
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
	SortOrder  string
}

// VerifyRequest asks the platform to validate a verification code against the
// stored event.
type VerifyRequest struct {
	Code string `json:"code" validate:"required"`
}

// VerifyResponse is the outcome of a verification check.
type VerifyResponse struct {
	Valid       bool              `json:"valid"`
	Reason      string            `json:"reason,omitempty"`
	EventID     string            `json:"eventId,omitempty"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Event       *models.TimeEvent `json:"event,omitempty"`
}
