package dto

// CreateOrganizationRequest founds a new organization.
type CreateOrganizationRequest struct {
	Name    string `json:"name" validate:"required,max=150"`
	Acronym string `json:"acronym" validate:"required,max=20"`
}

// CreateCampusRequest adds a campus to the caller's organization.
type CreateCampusRequest struct {
	Name string `json:"name" validate:"required,max=150"`
}

// CreateDepartmentRequest adds a department to a campus.
type CreateDepartmentRequest struct {
	Name string  `json:"name" validate:"required,max=150"`
	Icon *string `json:"icon" validate:"omitempty,max=64"`
}

// AssignRoleRequest optionally places the user in a department while assigning.
type AssignRoleRequest struct {
	DepartmentID *string `json:"departmentId" validate:"omitempty,uuid"`
}
