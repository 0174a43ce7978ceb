package service

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/folio-api/internal/models"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
)

// RequirePermission fails with FORBIDDEN unless the principal holds the capability.
func RequirePermission(principal *models.Principal, capability models.Capability) error {
	if principal == nil {
		return appErrors.ErrUnauthorized
	}
	if !principal.Can(capability) {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("missing permission: %s", capability))
	}
	return nil
}

// requireOrganization rejects callers that have not joined an organization yet.
func requireOrganization(principal *models.Principal) error {
	if principal == nil {
		return appErrors.ErrUnauthorized
	}
	if !principal.HasOrganization() {
		return appErrors.Clone(appErrors.ErrForbidden, "user does not belong to an organization")
	}
	return nil
}

// requireOrgPermission combines the organization and capability checks.
func requireOrgPermission(principal *models.Principal, capability models.Capability) error {
	if err := requireOrganization(principal); err != nil {
		return err
	}
	return RequirePermission(principal, capability)
}

// mapRepoError turns repository failures into the client taxonomy. Typed errors
// raised by repositories pass through untouched.
func mapRepoError(err error, notFound, internal string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return typed
	}
	return appErrors.Internal(err, internal)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func validateStruct(v *validator.Validate, payload interface{}, message string) error {
	if err := v.Struct(payload); err != nil {
		return validationError(err, message)
	}
	return nil
}
