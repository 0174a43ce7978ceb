package service

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/folio-api/internal/models"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

func TestRequirePermission(t *testing.T) {
	assert.NoError(t, RequirePermission(managerPrincipal(), models.CapabilityManageDocuments))

	err := RequirePermission(memberPrincipal("u-2"), models.CapabilityManageRoles)
	appErr := assertAppError(t, err, appErrors.ErrForbidden)
	assert.Equal(t, "missing permission: manage_roles", appErr.Message)

	assert.ErrorIs(t, RequirePermission(nil, models.CapabilityManageUsers), appErrors.ErrUnauthorized)
}

func TestRequireOrganization(t *testing.T) {
	orphan := memberPrincipal("u-3")
	orphan.OrganizationID = ""
	assertAppError(t, requireOrganization(orphan), appErrors.ErrForbidden)
	assert.NoError(t, requireOrganization(memberPrincipal("u-3")))
}

func TestMapRepoError(t *testing.T) {
	assert.Nil(t, mapRepoError(nil, "x", "y"))
	assertAppError(t, mapRepoError(sql.ErrNoRows, "role not found", "boom"), appErrors.ErrNotFound)

	typed := appErrors.Clone(appErrors.ErrPreconditionFailed, "department already has a leader")
	assert.Same(t, typed, mapRepoError(typed, "x", "y"))

	appErr := assertAppError(t, mapRepoError(errors.New("conn reset"), "x", "failed to load"), appErrors.ErrInternal)
	assert.Equal(t, "failed to load", appErr.Message)
}
