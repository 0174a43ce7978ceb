package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/folio-api/internal/models"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

const (
	roleColumns = `id, name, level, can_manage_users, can_manage_roles, can_manage_documents, campus_id, created_at, updated_at`

	insertRoleQuery = `INSERT INTO roles (id, name, level, can_manage_users, can_manage_roles, can_manage_documents, campus_id, created_at, updated_at)
VALUES (:id, :name, :level, :can_manage_users, :can_manage_roles, :can_manage_documents, :campus_id, :created_at, :updated_at)`

	leaderIndex        = "user_roles_one_leader_per_department"
	roleNameConstraint = "roles_campus_id_name_key"
)

// RoleRepository manages roles and their assignment to users.
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository constructs the repository.
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// UserRoleRow pairs a role with the user holding it.
type UserRoleRow struct {
	UserID string `db:"user_id"`
	models.Role
}

// AssignRoleParams describes a role assignment inside an organization.
type AssignRoleParams struct {
	OrganizationID string
	UserID         string
	RoleID         string
	// DepartmentID moves the user into the department before the assignment when set.
	DepartmentID *string
}

// Create inserts a role.
func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	role.CreatedAt, role.UpdatedAt = now, now
	if _, err := r.db.NamedExecContext(ctx, insertRoleQuery, role); err != nil {
		if isUniqueViolation(err, roleNameConstraint) {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("role %q already exists in this campus", role.Name))
		}
		return fmt.Errorf("create role: %w", err)
	}
	return nil
}

// FindByID returns a role only when its campus belongs to the organization.
func (r *RoleRepository) FindByID(ctx context.Context, organizationID, id string) (*models.Role, error) {
	const query = `SELECT ro.id, ro.name, ro.level, ro.can_manage_users, ro.can_manage_roles, ro.can_manage_documents, ro.campus_id, ro.created_at, ro.updated_at
FROM roles ro
JOIN campuses c ON c.id = ro.campus_id
WHERE ro.id = $1 AND c.organization_id = $2`
	var role models.Role
	if err := r.db.GetContext(ctx, &role, query, id, organizationID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &role, nil
}

// ListByCampus returns the campus roles ordered by level then name.
func (r *RoleRepository) ListByCampus(ctx context.Context, campusID string) ([]models.Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles WHERE campus_id = $1 ORDER BY level ASC, name ASC`
	var roles []models.Role
	if err := r.db.SelectContext(ctx, &roles, query, campusID); err != nil {
		return nil, fmt.Errorf("list campus roles: %w", err)
	}
	return roles, nil
}

// ListByOrganization returns roles across all campuses of the organization.
func (r *RoleRepository) ListByOrganization(ctx context.Context, organizationID string) ([]models.Role, error) {
	const query = `SELECT ro.id, ro.name, ro.level, ro.can_manage_users, ro.can_manage_roles, ro.can_manage_documents, ro.campus_id, ro.created_at, ro.updated_at
FROM roles ro
JOIN campuses c ON c.id = ro.campus_id
WHERE c.organization_id = $1
ORDER BY ro.level ASC, ro.name ASC`
	var roles []models.Role
	if err := r.db.SelectContext(ctx, &roles, query, organizationID); err != nil {
		return nil, fmt.Errorf("list organization roles: %w", err)
	}
	return roles, nil
}

// ListByUser returns the roles assigned to a user.
func (r *RoleRepository) ListByUser(ctx context.Context, userID string) ([]models.Role, error) {
	const query = `SELECT ro.id, ro.name, ro.level, ro.can_manage_users, ro.can_manage_roles, ro.can_manage_documents, ro.campus_id, ro.created_at, ro.updated_at
FROM user_roles ur
JOIN roles ro ON ro.id = ur.role_id
WHERE ur.user_id = $1
ORDER BY ro.level ASC, ro.name ASC`
	var roles []models.Role
	if err := r.db.SelectContext(ctx, &roles, query, userID); err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	return roles, nil
}

// ListByUsers returns role assignments for several users in one query.
func (r *RoleRepository) ListByUsers(ctx context.Context, userIDs []string) ([]UserRoleRow, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT ur.user_id, ro.id, ro.name, ro.level, ro.can_manage_users, ro.can_manage_roles, ro.can_manage_documents, ro.campus_id, ro.created_at, ro.updated_at
FROM user_roles ur
JOIN roles ro ON ro.id = ur.role_id
WHERE ur.user_id = ANY($1)
ORDER BY ro.level ASC, ro.name ASC`
	var rows []UserRoleRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(userIDs)); err != nil {
		return nil, fmt.Errorf("list roles for users: %w", err)
	}
	return rows, nil
}

// Update persists role changes and keeps the leader flag of its holders in step with the level.
func (r *RoleRepository) Update(ctx context.Context, role *models.Role) (err error) {
	role.UpdatedAt = time.Now().UTC()
	isLeader := role.Level == models.RoleLevelLeader

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin role update transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const lockHolders = `SELECT department_id FROM user_roles WHERE role_id = $1 FOR UPDATE`
	var holderDepartments []sql.NullString
	if err = tx.SelectContext(ctx, &holderDepartments, lockHolders, role.ID); err != nil {
		return fmt.Errorf("lock role holders: %w", err)
	}

	if isLeader && len(holderDepartments) > 0 {
		for _, dep := range holderDepartments {
			if !dep.Valid {
				err = appErrors.Clone(appErrors.ErrPreconditionFailed, "every holder of a leader role must belong to a department")
				return err
			}
		}
		var leader models.DepartmentLeader
		const existingLeader = `SELECT u.id AS user_id, u.first_name, u.last_name, u.email
FROM user_roles ur
JOIN users u ON u.id = ur.user_id
WHERE ur.is_leader AND ur.role_id <> $1
  AND ur.department_id IN (SELECT department_id FROM user_roles WHERE role_id = $1)
LIMIT 1`
		err = tx.GetContext(ctx, &leader, existingLeader, role.ID)
		if err == nil {
			err = leaderConflict(leader)
			return err
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check department leaders: %w", err)
		}
		err = nil
	}

	const updateRole = `UPDATE roles SET name = :name, level = :level, can_manage_users = :can_manage_users,
can_manage_roles = :can_manage_roles, can_manage_documents = :can_manage_documents, updated_at = :updated_at
WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, updateRole, role); err != nil {
		if isUniqueViolation(err, roleNameConstraint) {
			err = appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("role %q already exists in this campus", role.Name))
			return err
		}
		return fmt.Errorf("update role: %w", err)
	}

	const syncLeaders = `UPDATE user_roles SET is_leader = $2 WHERE role_id = $1`
	if _, err = tx.ExecContext(ctx, syncLeaders, role.ID, isLeader); err != nil {
		if isUniqueViolation(err, leaderIndex) {
			err = appErrors.Clone(appErrors.ErrPreconditionFailed, "two holders of this role share a department; a department can only have one leader")
			return err
		}
		return fmt.Errorf("sync role leaders: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit role update: %w", err)
	}
	return nil
}

// Delete removes a role of the organization. Assignments cascade.
func (r *RoleRepository) Delete(ctx context.Context, organizationID, id string) error {
	const query = `DELETE FROM roles ro USING campuses c WHERE ro.id = $1 AND ro.campus_id = c.id AND c.organization_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, organizationID)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check role delete rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Assign grants a role to a user. The department row is locked so the
// existing-leader check and the writes cannot interleave with another
// assignment. Moving a user to another department carries every assignment
// with them, leader rows included, so a leader being moved is checked against
// the target department like a new one.
func (r *RoleRepository) Assign(ctx context.Context, params AssignRoleParams) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin role assignment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var level models.RoleLevel
	const roleLevel = `SELECT ro.level FROM roles ro JOIN campuses c ON c.id = ro.campus_id WHERE ro.id = $1 AND c.organization_id = $2`
	if err = tx.GetContext(ctx, &level, roleLevel, params.RoleID, params.OrganizationID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("load role level: %w", err)
	}

	var current sql.NullString
	const lockUser = `SELECT department_id FROM users WHERE id = $1 AND organization_id = $2 FOR UPDATE`
	if err = tx.GetContext(ctx, &current, lockUser, params.UserID, params.OrganizationID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock user: %w", err)
	}

	var departmentID *string
	if current.Valid {
		departmentID = &current.String
	}
	moving := params.DepartmentID != nil && (!current.Valid || current.String != *params.DepartmentID)
	if params.DepartmentID != nil {
		departmentID = params.DepartmentID
	}
	isLeader := level == models.RoleLevelLeader
	if isLeader && departmentID == nil {
		err = appErrors.Clone(appErrors.ErrPreconditionFailed, "user must belong to a department to hold a leader role")
		return err
	}

	leads := isLeader
	if isLeader || moving {
		var otherLeaderRoles int
		const heldLeaderRoles = `SELECT COUNT(*) FROM user_roles WHERE user_id = $1 AND is_leader AND role_id <> $2`
		if err = tx.GetContext(ctx, &otherLeaderRoles, heldLeaderRoles, params.UserID, params.RoleID); err != nil {
			return fmt.Errorf("count held leader roles: %w", err)
		}
		if isLeader && otherLeaderRoles > 0 {
			err = appErrors.Clone(appErrors.ErrPreconditionFailed, "user already holds a leader role")
			return err
		}
		leads = leads || otherLeaderRoles > 0
	}

	if departmentID != nil {
		var lockedID string
		const lockDepartment = `SELECT d.id FROM departments d JOIN campuses c ON c.id = d.campus_id
WHERE d.id = $1 AND c.organization_id = $2 FOR UPDATE OF d`
		if err = tx.GetContext(ctx, &lockedID, lockDepartment, *departmentID, params.OrganizationID); err != nil {
			if err == sql.ErrNoRows {
				return err
			}
			return fmt.Errorf("lock department: %w", err)
		}
	}

	if leads {
		var leader models.DepartmentLeader
		const existingLeader = `SELECT u.id AS user_id, u.first_name, u.last_name, u.email
FROM user_roles ur
JOIN users u ON u.id = ur.user_id
WHERE ur.department_id = $1 AND ur.is_leader AND ur.user_id <> $2
LIMIT 1`
		err = tx.GetContext(ctx, &leader, existingLeader, *departmentID, params.UserID)
		if err == nil {
			err = leaderConflict(leader)
			return err
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check department leader: %w", err)
		}
		err = nil
	}

	now := time.Now().UTC()
	if moving {
		const moveUser = `UPDATE users SET department_id = $2, updated_at = $3 WHERE id = $1`
		if _, err = tx.ExecContext(ctx, moveUser, params.UserID, *params.DepartmentID, now); err != nil {
			return fmt.Errorf("move user to department: %w", err)
		}
		const moveAssignments = `UPDATE user_roles SET department_id = $2 WHERE user_id = $1`
		if _, err = tx.ExecContext(ctx, moveAssignments, params.UserID, *params.DepartmentID); err != nil {
			if isUniqueViolation(err, leaderIndex) {
				err = appErrors.Clone(appErrors.ErrPreconditionFailed, "department already has a leader")
				return err
			}
			return fmt.Errorf("move role assignments: %w", err)
		}
	}

	const grant = `INSERT INTO user_roles (user_id, role_id, department_id, is_leader, assigned_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, role_id) DO UPDATE SET department_id = EXCLUDED.department_id, is_leader = EXCLUDED.is_leader`
	if _, err = tx.ExecContext(ctx, grant, params.UserID, params.RoleID, departmentID, isLeader, now); err != nil {
		if isUniqueViolation(err, leaderIndex) {
			err = appErrors.Clone(appErrors.ErrPreconditionFailed, "department already has a leader")
			return err
		}
		return fmt.Errorf("grant role: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit role assignment: %w", err)
	}
	return nil
}

// Unassign removes a role from a user inside the organization.
func (r *RoleRepository) Unassign(ctx context.Context, organizationID, userID, roleID string) error {
	const query = `DELETE FROM user_roles ur USING roles ro, campuses c
WHERE ur.role_id = ro.id AND ro.campus_id = c.id AND c.organization_id = $3 AND ur.user_id = $1 AND ur.role_id = $2`
	res, err := r.db.ExecContext(ctx, query, userID, roleID, organizationID)
	if err != nil {
		return fmt.Errorf("unassign role: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check unassign rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func leaderConflict(leader models.DepartmentLeader) *appErrors.Error {
	return appErrors.Clone(appErrors.ErrPreconditionFailed,
		fmt.Sprintf("department already has a leader: %s", leader.DisplayName()))
}
