package models

import (
	"strings"
	"time"
)

// Global status tag names seeded by the schema.
const (
	TagForReview     = "for review"
	TagCommunication = "communication"
	TagApproved      = "approved"
	TagReturned      = "returned"
	TagDisapproved   = "disapproved"
)

// Tag is a label, either global or scoped to one organization.
type Tag struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	IsGlobal       bool      `db:"is_global" json:"isGlobal"`
	IsLocked       bool      `db:"is_locked" json:"isLocked"`
	OrganizationID *string   `db:"organization_id" json:"organizationId,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	DocumentCount  *int      `db:"document_count" json:"documentCount,omitempty"`
}

// IsProtected reports whether the tag can never be deleted.
func (t Tag) IsProtected() bool {
	return t.IsGlobal || t.IsLocked
}

// Is compares the tag name case-insensitively.
func (t Tag) Is(name string) bool {
	return strings.EqualFold(t.Name, name)
}

// IsReviewOutcomeTag reports whether the name is applied only by the review workflow.
func IsReviewOutcomeTag(name string) bool {
	switch strings.ToLower(name) {
	case TagApproved, TagReturned, TagDisapproved:
		return true
	default:
		return false
	}
}

// DocumentTag is the typed join between a document and a tag.
type DocumentTag struct {
	DocumentID string `db:"document_id" json:"documentId"`
	TagID      string `db:"tag_id" json:"tagId"`
}
