package models

import (
	"strings"
	"time"
)

// User represents a person known to Folio. IDs are issued by the identity provider.
type User struct {
	ID             string    `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	FirstName      string    `db:"first_name" json:"firstName"`
	MiddleName     *string   `db:"middle_name" json:"middleName,omitempty"`
	LastName       string    `db:"last_name" json:"lastName"`
	ImageURL       *string   `db:"image_url" json:"imageUrl,omitempty"`
	OrganizationID *string   `db:"organization_id" json:"organizationId,omitempty"`
	CampusID       *string   `db:"campus_id" json:"campusId,omitempty"`
	DepartmentID   *string   `db:"department_id" json:"departmentId,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// FullName joins first and last name, falling back to the email.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// UserWithRoles pairs a user with the roles assigned to them.
type UserWithRoles struct {
	User
	Roles []Role `json:"roles"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes total pages for the given window.
func NewPagination(page, perPage, total int) *Pagination {
	pages := 0
	if perPage > 0 {
		pages = (total + perPage - 1) / perPage
	}
	return &Pagination{Page: page, PerPage: perPage, TotalCount: total, TotalPages: pages}
}
