package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/folio-api/internal/models"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

var documentTypeColumnNames = []string{"id", "name", "color", "active_retention_years", "inactive_retention_years", "disposition_action", "organization_id", "created_at", "updated_at"}

func TestDocumentTypeRepositoryListByOrganization(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentTypeRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(documentTypeColumnNames).
		AddRow("dt-1", "Contracts", "#aa0000", 3, 7, "ARCHIVE", "org-1", now, now).
		AddRow("dt-2", "Payroll", "#00aa00", 0, 5, "DESTROY", "org-1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM document_types WHERE organization_id = $1 ORDER BY name ASC")).
		WithArgs("org-1").
		WillReturnRows(rows)

	types, err := repo.ListByOrganization(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, 3, types[0].ActiveRetentionYears)
	assert.Equal(t, models.DispositionDestroy, types[1].DispositionAction)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentTypeRepositoryFindByIDScopesOrganization(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentTypeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM document_types WHERE id = $1 AND organization_id = $2")).
		WithArgs("dt-9", "org-2").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "org-2", "dt-9")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentTypeRepositoryCreateDuplicateName(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentTypeRepository(db)

	mock.ExpectExec("INSERT INTO document_types").WillReturnError(&pq.Error{Code: uniqueViolation})

	err := repo.Create(context.Background(), &models.DocumentType{Name: "Contracts", OrganizationID: "org-1", DispositionAction: models.DispositionArchive})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Contracts")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentTypeRepositoryUpdateTouchesOnlyTypes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentTypeRepository(db)

	mock.ExpectExec("UPDATE document_types SET").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), &models.DocumentType{ID: "dt-1", OrganizationID: "org-1", Name: "Contracts", ActiveRetentionYears: 10}))

	mock.ExpectExec("UPDATE document_types SET").WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Update(context.Background(), &models.DocumentType{ID: "dt-404", OrganizationID: "org-1", Name: "Ghost"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentTypeRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewDocumentTypeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM document_types WHERE id = $1 AND organization_id = $2")).
		WithArgs("dt-1", "org-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "org-1", "dt-1"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
