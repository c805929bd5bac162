package models

import "time"

// Company is a tenant. Every punch and adjustment is scoped to one company.
type Company struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CNPJ      string    `db:"cnpj" json:"cnpj"`
	Timezone  string    `db:"timezone" json:"timezone"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Employee is the subject of time events within a company.
type Employee struct {
	ID           string    `db:"id" json:"id"`
	CompanyID    string    `db:"company_id" json:"company_id"`
	FullName     string    `db:"full_name" json:"full_name"`
	Registration string    `db:"registration" json:"registration"`
	CPF          string    `db:"cpf" json:"cpf"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// EmployeeFilter captures filtering criteria for listing employees.
type EmployeeFilter struct {
	CompanyID string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
}
