package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/folio-api/internal/models"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

// DefaultMemberRoleName is the role given to users who join an organization.
const DefaultMemberRoleName = "User"

const organizationNameConstraint = "organizations_name_key"

// OrganizationRepository persists organizations, campuses and departments.
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository constructs the repository.
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// FoundingParams holds the rows created together with a new organization.
type FoundingParams struct {
	Organization *models.Organization
	Campus       *models.Campus
	AdminRole    *models.Role
	FounderID    string
}

// CreateWithFounder inserts the organization, its first campus and admin role, and enrolls the founder.
func (r *OrganizationRepository) CreateWithFounder(ctx context.Context, params FoundingParams) (err error) {
	now := time.Now().UTC()
	org, campus, role := params.Organization, params.Campus, params.AdminRole
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	if campus.ID == "" {
		campus.ID = uuid.NewString()
	}
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	org.CreatedAt, org.UpdatedAt = now, now
	campus.OrganizationID = org.ID
	campus.CreatedAt, campus.UpdatedAt = now, now
	role.CampusID = campus.ID
	role.CreatedAt, role.UpdatedAt = now, now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin organization transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertOrg = `INSERT INTO organizations (id, name, acronym, created_at, updated_at)
VALUES (:id, :name, :acronym, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertOrg, org); err != nil {
		if isUniqueViolation(err, organizationNameConstraint) {
			err = appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("organization %q already exists", org.Name))
			return err
		}
		return fmt.Errorf("insert organization: %w", err)
	}
	if _, err = tx.NamedExecContext(ctx, insertCampusQuery, campus); err != nil {
		return fmt.Errorf("insert campus: %w", err)
	}
	if _, err = tx.NamedExecContext(ctx, insertRoleQuery, role); err != nil {
		return fmt.Errorf("insert admin role: %w", err)
	}

	const enroll = `UPDATE users SET organization_id = $2, campus_id = $3, updated_at = $4 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, enroll, params.FounderID, org.ID, campus.ID, now); err != nil {
		return fmt.Errorf("enroll founder: %w", err)
	}
	const grant = `INSERT INTO user_roles (user_id, role_id, is_leader, assigned_at) VALUES ($1, $2, FALSE, $3)`
	if _, err = tx.ExecContext(ctx, grant, params.FounderID, role.ID, now); err != nil {
		return fmt.Errorf("grant admin role: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit organization: %w", err)
	}
	return nil
}

// Join enrolls a user into the organization's first campus with the default member role.
func (r *OrganizationRepository) Join(ctx context.Context, organizationID, userID string) (role *models.Role, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin join transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var campusID string
	const firstCampus = `SELECT id FROM campuses WHERE organization_id = $1 ORDER BY created_at ASC, id ASC LIMIT 1 FOR UPDATE`
	if err = tx.GetContext(ctx, &campusID, firstCampus, organizationID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock organization campus: %w", err)
	}

	now := time.Now().UTC()
	var memberRole models.Role
	const findRole = `SELECT ` + roleColumns + ` FROM roles WHERE campus_id = $1 AND name = $2`
	err = tx.GetContext(ctx, &memberRole, findRole, campusID, DefaultMemberRoleName)
	switch {
	case err == sql.ErrNoRows:
		memberRole = models.Role{
			ID:        uuid.NewString(),
			Name:      DefaultMemberRoleName,
			Level:     models.RoleLevelMember,
			CampusID:  campusID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err = tx.NamedExecContext(ctx, insertRoleQuery, &memberRole); err != nil {
			return nil, fmt.Errorf("insert member role: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("find member role: %w", err)
	}

	const enroll = `UPDATE users SET organization_id = $2, campus_id = $3, updated_at = $4 WHERE id = $1 AND organization_id IS NULL`
	res, err := tx.ExecContext(ctx, enroll, userID, organizationID, campusID, now)
	if err != nil {
		return nil, fmt.Errorf("enroll member: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check enroll rows: %w", err)
	}
	if affected == 0 {
		return nil, ErrAlreadyMember
	}
	const grant = `INSERT INTO user_roles (user_id, role_id, is_leader, assigned_at) VALUES ($1, $2, FALSE, $3)
ON CONFLICT (user_id, role_id) DO NOTHING`
	if _, err = tx.ExecContext(ctx, grant, userID, memberRole.ID, now); err != nil {
		return nil, fmt.Errorf("grant member role: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit join: %w", err)
	}
	return &memberRole, nil
}

// FindByID retrieves one organization.
func (r *OrganizationRepository) FindByID(ctx context.Context, id string) (*models.Organization, error) {
	const query = `SELECT id, name, acronym, created_at, updated_at FROM organizations WHERE id = $1`
	var org models.Organization
	if err := r.db.GetContext(ctx, &org, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find organization: %w", err)
	}
	return &org, nil
}

// ListCampuses returns the organization's campuses ordered by name.
func (r *OrganizationRepository) ListCampuses(ctx context.Context, organizationID string) ([]models.Campus, error) {
	const query = `SELECT id, name, organization_id, created_at, updated_at FROM campuses WHERE organization_id = $1 ORDER BY name ASC`
	var campuses []models.Campus
	if err := r.db.SelectContext(ctx, &campuses, query, organizationID); err != nil {
		return nil, fmt.Errorf("list campuses: %w", err)
	}
	return campuses, nil
}

// ListDepartments returns every department under the organization's campuses.
func (r *OrganizationRepository) ListDepartments(ctx context.Context, organizationID string) ([]models.Department, error) {
	const query = `SELECT d.id, d.name, d.campus_id, d.icon, d.created_at, d.updated_at
FROM departments d
JOIN campuses c ON c.id = d.campus_id
WHERE c.organization_id = $1
ORDER BY d.name ASC`
	var departments []models.Department
	if err := r.db.SelectContext(ctx, &departments, query, organizationID); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// FindCampus returns a campus only when it belongs to the organization.
func (r *OrganizationRepository) FindCampus(ctx context.Context, organizationID, campusID string) (*models.Campus, error) {
	const query = `SELECT id, name, organization_id, created_at, updated_at FROM campuses WHERE id = $1 AND organization_id = $2`
	var campus models.Campus
	if err := r.db.GetContext(ctx, &campus, query, campusID, organizationID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find campus: %w", err)
	}
	return &campus, nil
}

// FindDepartment returns a department only when it belongs to the organization.
func (r *OrganizationRepository) FindDepartment(ctx context.Context, organizationID, departmentID string) (*models.Department, error) {
	const query = `SELECT d.id, d.name, d.campus_id, d.icon, d.created_at, d.updated_at
FROM departments d
JOIN campuses c ON c.id = d.campus_id
WHERE d.id = $1 AND c.organization_id = $2`
	var department models.Department
	if err := r.db.GetContext(ctx, &department, query, departmentID, organizationID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find department: %w", err)
	}
	return &department, nil
}

const insertCampusQuery = `INSERT INTO campuses (id, name, organization_id, created_at, updated_at)
VALUES (:id, :name, :organization_id, :created_at, :updated_at)`

// CreateCampus inserts a campus.
func (r *OrganizationRepository) CreateCampus(ctx context.Context, campus *models.Campus) error {
	if campus.ID == "" {
		campus.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	campus.CreatedAt, campus.UpdatedAt = now, now
	if _, err := r.db.NamedExecContext(ctx, insertCampusQuery, campus); err != nil {
		return fmt.Errorf("create campus: %w", err)
	}
	return nil
}

// CreateDepartment inserts a department.
func (r *OrganizationRepository) CreateDepartment(ctx context.Context, department *models.Department) error {
	if department.ID == "" {
		department.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	department.CreatedAt, department.UpdatedAt = now, now
	const query = `INSERT INTO departments (id, name, campus_id, icon, created_at, updated_at)
VALUES (:id, :name, :campus_id, :icon, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, department); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}
