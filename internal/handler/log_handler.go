package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/folio-api/internal/dto"
	"github.com/noah-isme/folio-api/internal/models"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
	"github.com/noah-isme/folio-api/pkg/response"
)

type logService interface {
	GetLogs(ctx context.Context, actor *models.Principal, query dto.LogQuery) (*dto.LogListResponse, error)
}

// LogHandler exposes the organization audit trail.
type LogHandler struct {
	service logService
}

// NewLogHandler constructs the handler.
func NewLogHandler(svc logService) *LogHandler {
	return &LogHandler{service: svc}
}

// List godoc
// @Summary Audit logs
// @Tags Logs
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size (1-100, default 20)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /logs [get]
func (h *LogHandler) List(c *gin.Context) {
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	var query dto.LogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	logs, err := h.service.GetLogs(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, logs, logs.Window)
}
