package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/paradox-backend/internal/response"
	"github.com/stemsi/paradox-backend/internal/service"
)

// DashboardHandler handles admin dashboard endpoints.
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetStats godoc
// GET /api/v1/admin/dashboard
// Returns participant totals, the average score and completions per round.
func (h *DashboardHandler) GetStats(c *gin.Context) {
	stats, err := h.dashboardService.GetStats(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}
