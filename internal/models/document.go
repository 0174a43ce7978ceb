package models

import "time"

// RetentionSnapshot is the retention schedule captured when a document is created.
type RetentionSnapshot struct {
	ActiveYears   int               `json:"activeRetentionDuration"`
	InactiveYears int               `json:"inactiveRetentionDuration"`
	Action        DispositionAction `json:"dispositionAction"`
}

// DispositionStatus records an executed terminal action.
type DispositionStatus string

const (
	DispositionStatusArchived  DispositionStatus = "ARCHIVED"
	DispositionStatusDestroyed DispositionStatus = "DESTROYED"
)

// Document is a managed file record.
type Document struct {
	ID                    string             `db:"id" json:"id"`
	Title                 string             `db:"title" json:"title"`
	StorageKey            string             `db:"storage_key" json:"storageKey"`
	StorageBucket         string             `db:"storage_bucket" json:"storageBucket"`
	FileType              *string            `db:"file_type" json:"fileType,omitempty"`
	FileSize              *int64             `db:"file_size" json:"fileSize,omitempty"`
	OrganizationID        string             `db:"organization_id" json:"organizationId"`
	UploadedByID          string             `db:"uploaded_by_id" json:"uploadedById"`
	HeldByID              string             `db:"held_by_id" json:"heldById"`
	DocumentTypeID        *string            `db:"document_type_id" json:"documentTypeId,omitempty"`
	ActiveRetention       *int               `db:"active_retention_snapshot" json:"activeRetentionSnapshot,omitempty"`
	InactiveRetention     *int               `db:"inactive_retention_snapshot" json:"inactiveRetentionSnapshot,omitempty"`
	DispositionAction     *DispositionAction `db:"disposition_action_snapshot" json:"dispositionActionSnapshot,omitempty"`
	DispositionStatus     *DispositionStatus `db:"disposition_status" json:"dispositionStatus,omitempty"`
	DispositionExecutedAt *time.Time         `db:"disposition_executed_at" json:"dispositionExecutedAt,omitempty"`
	ControlNumber         *string            `db:"control_number" json:"controlNumber,omitempty"`
	InTransit             bool               `db:"in_transit" json:"inTransit"`
	IntendedHolderID      *string            `db:"intended_holder_id" json:"intendedHolderId,omitempty"`
	ReviewRequesterID     *string            `db:"review_requester_id" json:"reviewRequesterId,omitempty"`
	CreatedAt             time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time          `db:"updated_at" json:"updatedAt"`

	Tags            []Tag           `db:"-" json:"tags"`
	LifecycleStatus LifecycleStatus `db:"-" json:"lifecycleStatus"`
}

// Snapshot returns the stamped retention schedule, or nil when the document has no type.
func (d Document) Snapshot() *RetentionSnapshot {
	if d.ActiveRetention == nil || d.InactiveRetention == nil || d.DispositionAction == nil {
		return nil
	}
	return &RetentionSnapshot{
		ActiveYears:   *d.ActiveRetention,
		InactiveYears: *d.InactiveRetention,
		Action:        *d.DispositionAction,
	}
}

// ApplySnapshot stamps the schedule onto a document that has not been persisted yet.
func (d *Document) ApplySnapshot(s RetentionSnapshot) {
	active, inactive, action := s.ActiveYears, s.InactiveYears, s.Action
	d.ActiveRetention = &active
	d.InactiveRetention = &inactive
	d.DispositionAction = &action
}

// Lifecycle derives the lifecycle status at now.
func (d Document) Lifecycle(now time.Time) LifecycleStatus {
	return DeriveLifecycleStatus(d.CreatedAt, d.Snapshot(), d.DispositionStatus, now)
}

// IsHeldBy reports whether the user uploaded or currently holds the document.
func (d Document) IsHeldBy(userID string) bool {
	return d.UploadedByID == userID || d.HeldByID == userID
}

// HasTag reports whether a tag with the given id is attached.
func (d Document) HasTag(tagID string) bool {
	for _, tag := range d.Tags {
		if tag.ID == tagID {
			return true
		}
	}
	return false
}

// DocumentFilter scopes document listing queries.
type DocumentFilter struct {
	OrganizationID string
	// ScopeUserID limits results to documents uploaded or held by the user. Empty means organization-wide.
	ScopeUserID    string
	Lifecycle      *LifecycleStatus
	Search         string
	DocumentTypeID string
	Page           int
	PerPage        int
	Now            time.Time
}

// RegisterEntry is one row of the retention register export.
type RegisterEntry struct {
	Document
	DocumentTypeName *string `db:"document_type_name" json:"documentTypeName,omitempty"`
	HolderName       string  `db:"holder_name" json:"holderName"`
}
