package models

import "time"

// RoleLevel ranks roles within a campus. Level 1 is the department leader.
type RoleLevel int

const (
	RoleLevelLeader   RoleLevel = 1
	RoleLevelCoLeader RoleLevel = 2
	RoleLevelElder    RoleLevel = 3
	RoleLevelMember   RoleLevel = 4
)

// Valid reports whether the level is within 1..4.
func (l RoleLevel) Valid() bool {
	return l >= RoleLevelLeader && l <= RoleLevelMember
}

// String returns the display name of the level.
func (l RoleLevel) String() string {
	switch l {
	case RoleLevelLeader:
		return "Leader"
	case RoleLevelCoLeader:
		return "Co-Leader"
	case RoleLevelElder:
		return "Elder"
	case RoleLevelMember:
		return "Member"
	default:
		return "Unknown"
	}
}

// Capability names one of the three permission bits a role can grant.
type Capability string

const (
	CapabilityManageUsers     Capability = "manage_users"
	CapabilityManageRoles     Capability = "manage_roles"
	CapabilityManageDocuments Capability = "manage_documents"
)

// Capabilities is an effective permission set.
type Capabilities struct {
	ManageUsers     bool `json:"canManageUsers"`
	ManageRoles     bool `json:"canManageRoles"`
	ManageDocuments bool `json:"canManageDocuments"`
}

// Has reports whether the capability is granted.
func (c Capabilities) Has(capability Capability) bool {
	switch capability {
	case CapabilityManageUsers:
		return c.ManageUsers
	case CapabilityManageRoles:
		return c.ManageRoles
	case CapabilityManageDocuments:
		return c.ManageDocuments
	default:
		return false
	}
}

// Union ORs each capability with other.
func (c Capabilities) Union(other Capabilities) Capabilities {
	return Capabilities{
		ManageUsers:     c.ManageUsers || other.ManageUsers,
		ManageRoles:     c.ManageRoles || other.ManageRoles,
		ManageDocuments: c.ManageDocuments || other.ManageDocuments,
	}
}

// DefaultCapabilities derives capabilities from a role level.
func DefaultCapabilities(level RoleLevel) Capabilities {
	switch level {
	case RoleLevelLeader:
		return Capabilities{ManageUsers: true, ManageRoles: true, ManageDocuments: true}
	case RoleLevelCoLeader:
		return Capabilities{ManageDocuments: true}
	default:
		return Capabilities{}
	}
}

// Role is a named permission bundle scoped to a campus.
type Role struct {
	ID                 string    `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	Level              RoleLevel `db:"level" json:"level"`
	CanManageUsers     bool      `db:"can_manage_users" json:"canManageUsers"`
	CanManageRoles     bool      `db:"can_manage_roles" json:"canManageRoles"`
	CanManageDocuments bool      `db:"can_manage_documents" json:"canManageDocuments"`
	CampusID           string    `db:"campus_id" json:"campusId"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `db:"updated_at" json:"updatedAt"`
}

// Capabilities returns the role's permission bits.
func (r Role) Capabilities() Capabilities {
	return Capabilities{
		ManageUsers:     r.CanManageUsers,
		ManageRoles:     r.CanManageRoles,
		ManageDocuments: r.CanManageDocuments,
	}
}

// EffectiveCapabilities ORs the capabilities of every role.
func EffectiveCapabilities(roles []Role) Capabilities {
	var caps Capabilities
	for _, role := range roles {
		caps = caps.Union(role.Capabilities())
	}
	return caps
}

// UserRole is the typed join between a user and an assigned role.
type UserRole struct {
	UserID       string    `db:"user_id" json:"userId"`
	RoleID       string    `db:"role_id" json:"roleId"`
	DepartmentID *string   `db:"department_id" json:"departmentId,omitempty"`
	IsLeader     bool      `db:"is_leader" json:"isLeader"`
	AssignedAt   time.Time `db:"assigned_at" json:"assignedAt"`
}

// DepartmentLeader identifies the user currently holding a level-1 role in a department.
type DepartmentLeader struct {
	UserID    string `db:"user_id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Email     string `db:"email"`
}

// DisplayName returns a human readable name for error messages.
func (l DepartmentLeader) DisplayName() string {
	return User{FirstName: l.FirstName, LastName: l.LastName, Email: l.Email}.FullName()
}
