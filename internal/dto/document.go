package dto

import "github.com/noah-isme/folio-api/internal/models"

// CreateDocumentRequest registers a previously uploaded object as a document.
type CreateDocumentRequest struct {
	Title          string  `json:"title" validate:"required,max=255"`
	StorageKey     string  `json:"storageKey" validate:"required"`
	StorageBucket  string  `json:"storageBucket" validate:"required"`
	FileType       *string `json:"fileType"`
	FileSize       *int64  `json:"fileSize" validate:"omitempty,min=0"`
	DocumentTypeID *string `json:"documentTypeId" validate:"omitempty,uuid"`
	ControlNumber  *string `json:"controlNumber" validate:"omitempty,max=64"`
}

// DocumentQuery mirrors supported listing filters.
type DocumentQuery struct {
	Page           int    `form:"page"`
	PerPage        int    `form:"perPage"`
	Lifecycle      string `form:"lifecycle"`
	Search         string `form:"search"`
	DocumentTypeID string `form:"documentTypeId"`
}

// DocumentListResponse is the paged listing result.
type DocumentListResponse struct {
	Documents  []models.Document `json:"documents"`
	TotalCount int               `json:"totalCount"`
	// Window is the resolved page, reported in the envelope.
	Window *models.Pagination `json:"-"`
}

// SendDocumentRequest moves a document into transit toward a recipient.
type SendDocumentRequest struct {
	RecipientID string   `json:"recipientId" validate:"required"`
	TagIDs      []string `json:"tagIds" validate:"omitempty,dive,uuid"`
	// TagsToKeep lists currently attached tags that survive the send.
	TagsToKeep []string `json:"tagsToKeep" validate:"omitempty,dive,uuid"`
}

// SendMultipleRequest sends several documents to one recipient atomically.
type SendMultipleRequest struct {
	DocumentIDs []string `json:"documentIds" validate:"required,min=1,dive,uuid"`
	RecipientID string   `json:"recipientId" validate:"required"`
	TagIDs      []string `json:"tagIds" validate:"omitempty,dive,uuid"`
}

// ReviewDocumentRequest records a review outcome with optional forwarding.
type ReviewDocumentRequest struct {
	Status            models.ReviewStatus `json:"status" validate:"required,oneof=approved returned disapproved"`
	Remarks           *string             `json:"remarks" validate:"omitempty,max=2000"`
	ForwardTo         *string             `json:"forwardTo"`
	ReturnToRequester bool                `json:"returnToRequester"`
}

// SignedURLResponse carries a short-lived download link.
type SignedURLResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
}

// UploadResponse identifies a freshly stored object.
type UploadResponse struct {
	StorageBucket string `json:"storageBucket"`
	StorageKey    string `json:"storageKey"`
	FileType      string `json:"fileType"`
	FileSize      int64  `json:"fileSize"`
}
