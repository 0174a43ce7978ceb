package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/folio-api/internal/models"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

var leaderColumns = []string{"user_id", "first_name", "last_name", "email"}

func expectLeaderAssignmentPrelude(mock sqlmock.Sqlmock, userID string) {
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT ro.level FROM roles ro")).
		WithArgs("role-leader", "org-1").
		WillReturnRows(sqlmock.NewRows([]string{"level"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT department_id FROM users WHERE id = $1 AND organization_id = $2 FOR UPDATE")).
		WithArgs(userID, "org-1").
		WillReturnRows(sqlmock.NewRows([]string{"department_id"}).AddRow("dept-d"))
	expectHeldLeaderRoles(mock, userID, "role-leader", 0)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT d.id FROM departments d")).
		WithArgs("dept-d", "org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("dept-d"))
}

func expectHeldLeaderRoles(mock sqlmock.Sqlmock, userID, roleID string, count int) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM user_roles WHERE user_id = $1 AND is_leader AND role_id <> $2")).
		WithArgs(userID, roleID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
}

func expectMemberMove(mock sqlmock.Sqlmock, userID, from, to string, heldLeaderRoles int) {
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT ro.level FROM roles ro")).
		WithArgs("role-member", "org-1").
		WillReturnRows(sqlmock.NewRows([]string{"level"}).AddRow(4))
	current := sqlmock.NewRows([]string{"department_id"})
	if from == "" {
		current.AddRow(nil)
	} else {
		current.AddRow(from)
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT department_id FROM users")).
		WithArgs(userID, "org-1").
		WillReturnRows(current)
	expectHeldLeaderRoles(mock, userID, "role-member", heldLeaderRoles)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT d.id FROM departments d")).
		WithArgs(to, "org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(to))
}

func TestRoleRepositoryAssignLeaderToEmptyDepartment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)

	expectLeaderAssignmentPrelude(mock, "user-a")
	mock.ExpectQuery("FROM user_roles ur\\s+JOIN users u").
		WithArgs("dept-d", "user-a").
		WillReturnRows(sqlmock.NewRows(leaderColumns))
	mock.ExpectExec("INSERT INTO user_roles").
		WithArgs("user-a", "role-leader", "dept-d", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Assign(context.Background(), AssignRoleParams{OrganizationID: "org-1", UserID: "user-a", RoleID: "role-leader"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepositoryAssignSecondLeaderNamesExistingLeader(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)

	expectLeaderAssignmentPrelude(mock, "user-b")
	mock.ExpectQuery("FROM user_roles ur\\s+JOIN users u").
		WithArgs("dept-d", "user-b").
		WillReturnRows(sqlmock.NewRows(leaderColumns).AddRow("user-a", "Ana", "Reyes", "ana@example.com"))
	mock.ExpectRollback()

	err := repo.Assign(context.Background(), AssignRoleParams{OrganizationID: "org-1", UserID: "user-b", RoleID: "role-leader"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
	assert.Contains(t, err.Error(), "Ana Reyes")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepositoryAssignLeaderIndexBackstop(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)

	expectLeaderAssignmentPrelude(mock, "user-b")
	mock.ExpectQuery("FROM user_roles ur\\s+JOIN users u").WillReturnRows(sqlmock.NewRows(leaderColumns))
	mock.ExpectExec("INSERT INTO user_roles").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "user_roles_one_leader_per_department"})
	mock.ExpectRollback()

	err := repo.Assign(context.Background(), AssignRoleParams{OrganizationID: "org-1", UserID: "user-b", RoleID: "role-leader"})
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepositoryAssignLeaderRequiresDepartment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT ro.level FROM roles ro")).
		WillReturnRows(sqlmock.NewRows([]string{"level"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT department_id FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"department_id"}).AddRow(nil))
	mock.ExpectRollback()

	err := repo.Assign(context.Background(), AssignRoleParams{OrganizationID: "org-1", UserID: "user-c", RoleID: "role-leader"})
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
	assert.Contains(t, err.Error(), "department")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepositoryAssignMemberRoleMovesDepartment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)
	dept := "dept-e"

	expectMemberMove(mock, "user-c", "", dept, 0)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET department_id = $2")).
		WithArgs("user-c", dept, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_roles SET department_id = $2 WHERE user_id = $1")).
		WithArgs("user-c", dept).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO user_roles").
		WithArgs("user-c", "role-member", dept, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Assign(context.Background(), AssignRoleParams{OrganizationID: "org-1", UserID: "user-c", RoleID: "role-member", DepartmentID: &dept})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepositoryAssignMovingLeaderIntoLedDepartmentConflicts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)
	target := "dept-d2"

	expectMemberMove(mock, "user-a", "dept-d1", target, 1)
	mock.ExpectQuery("FROM user_roles ur\\s+JOIN users u").
		WithArgs(target, "user-a").
		WillReturnRows(sqlmock.NewRows(leaderColumns).AddRow("user-b", "Ben", "Santos", "ben@example.com"))
	mock.ExpectRollback()

	err := repo.Assign(context.Background(), AssignRoleParams{OrganizationID: "org-1", UserID: "user-a", RoleID: "role-member", DepartmentID: &target})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
	assert.Contains(t, err.Error(), "Ben Santos")
	// Neither the user nor the leader row moves.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepositoryAssignMovingLeaderCarriesLeaderRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)
	target := "dept-d2"

	expectMemberMove(mock, "user-a", "dept-d1", target, 1)
	mock.ExpectQuery("FROM user_roles ur\\s+JOIN users u").
		WithArgs(target, "user-a").
		WillReturnRows(sqlmock.NewRows(leaderColumns))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET department_id = $2")).
		WithArgs("user-a", target, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_roles SET department_id = $2 WHERE user_id = $1")).
		WithArgs("user-a", target).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO user_roles").
		WithArgs("user-a", "role-member", target, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Assign(context.Background(), AssignRoleParams{OrganizationID: "org-1", UserID: "user-a", RoleID: "role-member", DepartmentID: &target})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepositoryAssignMovingLeaderIndexBackstop(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)
	target := "dept-d2"

	expectMemberMove(mock, "user-a", "dept-d1", target, 1)
	mock.ExpectQuery("FROM user_roles ur\\s+JOIN users u").WillReturnRows(sqlmock.NewRows(leaderColumns))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET department_id = $2")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_roles SET department_id = $2 WHERE user_id = $1")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "user_roles_one_leader_per_department"})
	mock.ExpectRollback()

	err := repo.Assign(context.Background(), AssignRoleParams{OrganizationID: "org-1", UserID: "user-a", RoleID: "role-member", DepartmentID: &target})
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepositoryAssignSecondLeaderRoleToSameUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT ro.level FROM roles ro")).
		WithArgs("role-leader", "org-1").
		WillReturnRows(sqlmock.NewRows([]string{"level"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT department_id FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"department_id"}).AddRow("dept-d"))
	expectHeldLeaderRoles(mock, "user-a", "role-leader", 1)
	mock.ExpectRollback()

	err := repo.Assign(context.Background(), AssignRoleParams{OrganizationID: "org-1", UserID: "user-a", RoleID: "role-leader"})
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
	assert.Contains(t, err.Error(), "already holds a leader role")
	assert.NotContains(t, err.Error(), "department already has a leader")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepositoryUpdateToLeaderConflicts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT department_id FROM user_roles WHERE role_id = $1 FOR UPDATE")).
		WithArgs("role-1").
		WillReturnRows(sqlmock.NewRows([]string{"department_id"}).AddRow("dept-d"))
	mock.ExpectQuery("WHERE ur.is_leader AND ur.role_id <> \\$1").
		WithArgs("role-1").
		WillReturnRows(sqlmock.NewRows(leaderColumns).AddRow("user-a", "Ana", "Reyes", "ana@example.com"))
	mock.ExpectRollback()

	role := &models.Role{ID: "role-1", Name: "Head", Level: models.RoleLevelLeader}
	err := repo.Update(context.Background(), role)
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
	assert.Contains(t, err.Error(), "Ana Reyes")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleRepositoryUnassignMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRoleRepository(db)

	mock.ExpectExec("DELETE FROM user_roles ur USING roles ro, campuses c").
		WithArgs("user-1", "role-1", "org-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Unassign(context.Background(), "org-1", "user-1", "role-1")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
