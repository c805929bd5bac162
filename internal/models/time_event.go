package models

import "time"

// PunchKind enumerates the supported time-clock event kinds.
type PunchKind string

const (
	PunchEntry      PunchKind = "ENTRY"
	PunchExit       PunchKind = "EXIT"
	PunchBreakStart PunchKind = "BREAK_START"
	PunchBreakEnd   PunchKind = "BREAK_END"
)

// Valid returns true when the kind is a supported value.
func (k PunchKind) Valid() bool {
	switch k {
	case PunchEntry, PunchExit, PunchBreakStart, PunchBreakEnd:
		return true
	default:
		return false
	}
}

// TimeEvent is a committed punch. Rows are append-only: a committed event is
// never updated, it can only be superseded by a derived event produced by an
// approved adjustment.
type TimeEvent struct {
	ID          string    `db:"id" json:"id"`
	CompanyID   string    `db:"company_id" json:"company_id"`
	EmployeeID  string    `db:"employee_id" json:"employee_id"`
	ActorID     string    `db:"actor_id" json:"actor_id"`
	Kind        PunchKind `db:"kind" json:"kind"`
	OccurredAt  time.Time `db:"occurred_at" json:"occurred_at"`
	CommittedAt time.Time `db:"committed_at" json:"committed_at"`
	Latitude    *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude   *float64  `db:"longitude" json:"longitude,omitempty"`
	IPAddress   *string   `db:"ip_address" json:"ip_address,omitempty"`
	DeviceID    *string   `db:"device_id" json:"device_id,omitempty"`
	PhotoRef    *string   `db:"photo_ref" json:"photo_ref,omitempty"`
	TagRef      *string   `db:"tag_ref" json:"tag_ref,omitempty"`
	Fingerprint string    `db:"fingerprint" json:"fingerprint"`

	// Set only on derived events produced by the adjustment workflow.
	AdjustmentID    *string `db:"adjustment_id" json:"adjustment_id,omitempty"`
	OriginalEventID *string `db:"original_event_id" json:"original_event_id,omitempty"`
}

// Derived reports whether the event was produced by an approved adjustment.
func (e *TimeEvent) Derived() bool {
	return e != nil && e.AdjustmentID != nil
}

// TimeEventFilter constrains listing queries.
type TimeEventFilter struct {
	CompanyID  string
	EmployeeID string
	Kind       *PunchKind
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
	SortOrder  string
}

// TimeEventRecord extends a punch row with employee metadata for listings.
type TimeEventRecord struct {
	TimeEvent
	EmployeeName string `db:"employee_name" json:"employee_name"`
}
