package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/folio-api/internal/middleware"
	"github.com/noah-isme/folio-api/internal/models"
	appErrors "github.com/noah-isme/folio-api/pkg/errors"
	"github.com/noah-isme/folio-api/pkg/response"
)

type dashboardService interface {
	GetStats(ctx context.Context, actor *models.Principal) (*models.DashboardStats, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Stats godoc
// @Summary Dashboard statistics
// @Description Document counts, recent files and tag usage within the caller's scope
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	actor, ok := principalFromContext(c)
	if !ok {
		return
	}
	start := time.Now()
	stats, cacheHit, err := h.service.GetStats(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetMeta(c, middleware.MetaProcessingTime, time.Since(start).Milliseconds())
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}
