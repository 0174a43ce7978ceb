package models

import "time"

// Organization is the top-level tenant.
type Organization struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Acronym   string    `db:"acronym" json:"acronym"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Campus is a sub-unit of an organization.
type Campus struct {
	ID             string       `db:"id" json:"id"`
	Name           string       `db:"name" json:"name"`
	OrganizationID string       `db:"organization_id" json:"organizationId"`
	CreatedAt      time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updatedAt"`
	Departments    []Department `db:"-" json:"departments"`
}

// Department is a sub-unit of a campus.
type Department struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CampusID  string    `db:"campus_id" json:"campusId"`
	Icon      *string   `db:"icon" json:"icon,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// OrganizationTree is an organization with its campuses and their departments.
type OrganizationTree struct {
	Organization
	Campuses []Campus `json:"campuses"`
}
