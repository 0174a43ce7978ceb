package models

import "time"

// Log is an append-only audit record.
type Log struct {
	ID             string    `db:"id" json:"id"`
	UserID         *string   `db:"user_id" json:"userId,omitempty"`
	UserName       *string   `db:"user_name" json:"userName,omitempty"`
	OrganizationID string    `db:"organization_id" json:"organizationId"`
	Action         string    `db:"action" json:"action"`
	UserRole       string    `db:"user_role" json:"userRole"`
	TargetName     *string   `db:"target_name" json:"targetName,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// LogFilter pages through an organization's audit trail.
type LogFilter struct {
	OrganizationID string
	Page           int
	Limit          int
}
