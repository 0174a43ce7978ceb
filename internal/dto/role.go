package dto

import "github.com/noah-isme/folio-api/internal/models"

// CreateRoleRequest defines a campus role. Omitted capabilities default from the level.
type CreateRoleRequest struct {
	Name               string           `json:"name" validate:"required,max=100"`
	Level              models.RoleLevel `json:"level" validate:"required,min=1,max=4"`
	CampusID           string           `json:"campusId" validate:"required,uuid"`
	CanManageUsers     *bool            `json:"canManageUsers"`
	CanManageRoles     *bool            `json:"canManageRoles"`
	CanManageDocuments *bool            `json:"canManageDocuments"`
}

// UpdateRoleRequest patches a role. Changing the level without explicit capabilities re-derives them.
type UpdateRoleRequest struct {
	Name               *string           `json:"name" validate:"omitempty,min=1,max=100"`
	Level              *models.RoleLevel `json:"level" validate:"omitempty,min=1,max=4"`
	CanManageUsers     *bool             `json:"canManageUsers"`
	CanManageRoles     *bool             `json:"canManageRoles"`
	CanManageDocuments *bool             `json:"canManageDocuments"`
}
