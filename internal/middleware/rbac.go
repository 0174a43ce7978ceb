package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/folio-api/internal/models"
	"github.com/noah-isme/folio-api/internal/service"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
	"github.com/noah-isme/folio-api/pkg/response"
)

// RequireCapability blocks the route unless the principal holds the capability
// through at least one of their roles.
func RequireCapability(capability models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if err := service.RequirePermission(principal, capability); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireOrganization blocks callers that have not joined an organization.
func RequireOrganization() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !principal.HasOrganization() {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "user does not belong to an organization"))
			c.Abort()
			return
		}
		c.Next()
	}
}
