package models

import "time"

// DispositionAction is the terminal action applied once retention ends.
type DispositionAction string

const (
	DispositionArchive DispositionAction = "ARCHIVE"
	DispositionDestroy DispositionAction = "DESTROY"
)

// Valid reports whether the action is supported.
func (a DispositionAction) Valid() bool {
	return a == DispositionArchive || a == DispositionDestroy
}

// DocumentType classifies documents and carries their retention schedule.
type DocumentType struct {
	ID                     string            `db:"id" json:"id"`
	Name                   string            `db:"name" json:"name"`
	Color                  string            `db:"color" json:"color"`
	ActiveRetentionYears   int               `db:"active_retention_years" json:"activeRetentionDuration"`
	InactiveRetentionYears int               `db:"inactive_retention_years" json:"inactiveRetentionDuration"`
	DispositionAction      DispositionAction `db:"disposition_action" json:"dispositionAction"`
	OrganizationID         string            `db:"organization_id" json:"organizationId"`
	CreatedAt              time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt              time.Time         `db:"updated_at" json:"updatedAt"`
}

// Snapshot copies the current schedule for stamping onto a new document.
func (t DocumentType) Snapshot() RetentionSnapshot {
	return RetentionSnapshot{
		ActiveYears:   t.ActiveRetentionYears,
		InactiveYears: t.InactiveRetentionYears,
		Action:        t.DispositionAction,
	}
}
