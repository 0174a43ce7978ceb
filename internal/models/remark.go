package models

import "time"

// ReviewStatus is the outcome recorded by a document review.
type ReviewStatus string

const (
	ReviewApproved    ReviewStatus = "approved"
	ReviewReturned    ReviewStatus = "returned"
	ReviewDisapproved ReviewStatus = "disapproved"
)

// Valid reports whether the status is a known review outcome.
func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewApproved, ReviewReturned, ReviewDisapproved:
		return true
	default:
		return false
	}
}

// Remark is one entry of a document's review trail.
type Remark struct {
	ID         string       `db:"id" json:"id"`
	DocumentID string       `db:"document_id" json:"documentId"`
	AuthorID   string       `db:"author_id" json:"authorId"`
	AuthorName string       `db:"author_name" json:"authorName,omitempty"`
	Status     ReviewStatus `db:"status" json:"status"`
	Content    *string      `db:"content" json:"content,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"createdAt"`
}
