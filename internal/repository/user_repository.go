package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/folio-api/internal/models"
)

const userColumns = `id, email, first_name, middle_name, last_name, image_url, organization_id, campus_id, department_id, created_at, updated_at`

// UserRepository provides database access for users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// FindInOrganization returns the user only when they belong to the organization.
func (r *UserRepository) FindInOrganization(ctx context.Context, organizationID, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND organization_id = $2 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id, organizationID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user in organization: %w", err)
	}
	return &user, nil
}

// Create inserts a user provisioned from identity provider claims.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	const query = `INSERT INTO users (id, email, first_name, middle_name, last_name, image_url, organization_id, campus_id, department_id, created_at, updated_at)
VALUES (:id, :email, :first_name, :middle_name, :last_name, :image_url, :organization_id, :campus_id, :department_id, :created_at, :updated_at)
ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// ListByOrganization returns every member of the organization ordered by name.
func (r *UserRepository) ListByOrganization(ctx context.Context, organizationID string) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE organization_id = $1 ORDER BY first_name ASC, last_name ASC`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, organizationID); err != nil {
		return nil, fmt.Errorf("list organization users: %w", err)
	}
	return users, nil
}

// RemoveFromOrganization drops the user's roles in the organization and clears their membership.
func (r *UserRepository) RemoveFromOrganization(ctx context.Context, organizationID, userID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove member transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const deleteRoles = `DELETE FROM user_roles ur USING roles ro, campuses c
WHERE ur.role_id = ro.id AND ro.campus_id = c.id AND c.organization_id = $1 AND ur.user_id = $2`
	if _, err = tx.ExecContext(ctx, deleteRoles, organizationID, userID); err != nil {
		return fmt.Errorf("delete member roles: %w", err)
	}

	const clearMembership = `UPDATE users SET organization_id = NULL, campus_id = NULL, department_id = NULL, updated_at = $3
WHERE id = $1 AND organization_id = $2`
	res, err := tx.ExecContext(ctx, clearMembership, userID, organizationID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("clear membership: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check membership rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit remove member: %w", err)
	}
	return nil
}
