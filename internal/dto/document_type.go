package dto

import "github.com/noah-isme/folio-api/internal/models"

// CreateDocumentTypeRequest defines a classification and its retention schedule.
type CreateDocumentTypeRequest struct {
	Name                   string                   `json:"name" validate:"required,max=100"`
	Color                  string                   `json:"color" validate:"required,max=32"`
	ActiveRetentionYears   int                      `json:"activeRetentionDuration" validate:"min=0,max=200"`
	InactiveRetentionYears int                      `json:"inactiveRetentionDuration" validate:"min=0,max=200"`
	DispositionAction      models.DispositionAction `json:"dispositionAction" validate:"required,oneof=ARCHIVE DESTROY"`
}

// UpdateDocumentTypeRequest patches a document type. Existing documents keep their snapshot.
type UpdateDocumentTypeRequest struct {
	Name                   *string                   `json:"name" validate:"omitempty,min=1,max=100"`
	Color                  *string                   `json:"color" validate:"omitempty,max=32"`
	ActiveRetentionYears   *int                      `json:"activeRetentionDuration" validate:"omitempty,min=0,max=200"`
	InactiveRetentionYears *int                      `json:"inactiveRetentionDuration" validate:"omitempty,min=0,max=200"`
	DispositionAction      *models.DispositionAction `json:"dispositionAction" validate:"omitempty,oneof=ARCHIVE DESTROY"`
}
