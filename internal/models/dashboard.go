package models

import "time"

// CompanyDaySummary aggregates punch activity for a company on one day.
type CompanyDaySummary struct {
	CompanyID          string    `json:"company_id"`
	Date               time.Time `json:"date"`
	TotalPunches       int       `db:"total_punches" json:"total_punches"`
	DerivedPunches     int       `db:"derived_punches" json:"derived_punches"`
	EmployeesPunched   int       `db:"employees_punched" json:"employees_punched"`
	PendingAdjustments int       `db:"pending_adjustments" json:"pending_adjustments"`
}
