package dto

// TagRequest creates or renames an organization tag.
type TagRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}
