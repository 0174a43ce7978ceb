package models

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims is the session token payload issued by the identity provider.
// The subject claim carries the Folio user id.
type JWTClaims struct {
	Email      string `json:"email,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller resolved once per request.
// It is never mutated after the auth middleware builds it.
type Principal struct {
	UserID         string       `json:"userId"`
	Email          string       `json:"email"`
	FirstName      string       `json:"firstName"`
	LastName       string       `json:"lastName"`
	OrganizationID string       `json:"organizationId,omitempty"`
	CampusID       string       `json:"campusId,omitempty"`
	DepartmentID   string       `json:"departmentId,omitempty"`
	RoleNames      []string     `json:"roleNames"`
	Capabilities   Capabilities `json:"capabilities"`
}

// NewPrincipal builds the request principal from the stored user and its roles.
func NewPrincipal(user *User, roles []Role) *Principal {
	p := &Principal{
		UserID:       user.ID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		RoleNames:    make([]string, 0, len(roles)),
		Capabilities: EffectiveCapabilities(roles),
	}
	if user.OrganizationID != nil {
		p.OrganizationID = *user.OrganizationID
	}
	if user.CampusID != nil {
		p.CampusID = *user.CampusID
	}
	if user.DepartmentID != nil {
		p.DepartmentID = *user.DepartmentID
	}
	for _, role := range roles {
		p.RoleNames = append(p.RoleNames, role.Name)
	}
	return p
}

// Can reports whether the principal holds the capability through any role.
func (p *Principal) Can(capability Capability) bool {
	return p != nil && p.Capabilities.Has(capability)
}

// HasOrganization reports whether the caller belongs to an organization.
func (p *Principal) HasOrganization() bool {
	return p != nil && p.OrganizationID != ""
}

// RoleLabel is the comma separated role list recorded on audit entries.
func (p *Principal) RoleLabel() string {
	if p == nil {
		return ""
	}
	return strings.Join(p.RoleNames, ", ")
}

// FullName returns the caller's display name.
func (p *Principal) FullName() string {
	return User{FirstName: p.FirstName, LastName: p.LastName, Email: p.Email}.FullName()
}
