package dto

import "github.com/noah-isme/folio-api/internal/models"

// MeResponse describes the authenticated caller.
type MeResponse struct {
	models.User
	Roles        []models.Role       `json:"roles"`
	Capabilities models.Capabilities `json:"capabilities"`
}
