package dto

import "time"

// MirrorReportQuery selects the period of a punch mirror export.
type MirrorReportQuery struct {
	EmployeeID string    `json:"employeeId"`
	From       time.Time `json:"from" validate:"required"`
	To         time.Time `json:"to" validate:"required"`
	Format     string    `json:"format" validate:"omitempty,oneof=csv pdf"`
}
