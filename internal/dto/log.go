package dto

import "github.com/noah-isme/folio-api/internal/models"

// LogQuery pages through audit logs.
type LogQuery struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// LogListResponse is one page of audit logs.
type LogListResponse struct {
	Logs       []models.Log       `json:"logs"`
	TotalCount int                `json:"totalCount"`
	TotalPages int                `json:"totalPages"`
	Window     *models.Pagination `json:"-"`
}
