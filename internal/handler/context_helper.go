package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/folio-api/internal/middleware"
	"github.com/noah-isme/folio-api/internal/models"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
	"github.com/noah-isme/folio-api/pkg/response"
)

// principalFromContext returns the caller resolved by the JWT middleware and
// writes a 401 when it is missing.
func principalFromContext(c *gin.Context) (*models.Principal, bool) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return principal, true
}

// bindJSON decodes the request body and writes a 400 on malformed input.
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		bindJSONError(c, err)
		return false
	}
	return true
}

func bindJSONError(c *gin.Context, err error) {
	response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
}
