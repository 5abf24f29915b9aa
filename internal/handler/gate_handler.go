package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/paradox-backend/internal/config"
	"github.com/stemsi/paradox-backend/internal/lockdown"
	"github.com/stemsi/paradox-backend/internal/middleware"
	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/response"
	"github.com/stemsi/paradox-backend/internal/service"
	"github.com/stemsi/paradox-backend/internal/validator"
)

// GateHandler serves the entry/exit gate to participants and its settings
// to admins.
type GateHandler struct {
	gateService *service.GateService
	cfg         *config.Config
}

// NewGateHandler creates a new GateHandler.
func NewGateHandler(gateService *service.GateService, cfg *config.Config) *GateHandler {
	return &GateHandler{gateService: gateService, cfg: cfg}
}

// GetGateStatus godoc
// GET /api/v1/participant/gate
// Reports which passwords are configured and whether this session passed entry.
func (h *GateHandler) GetGateStatus(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	ctx := c.Request.Context()
	settings := h.gateService.Settings(ctx)
	response.Success(c, http.StatusOK, gin.H{
		"entry_password_required": settings.EntryPassword != "",
		"quit_password_required":  settings.QuitPassword != "",
		"entry_passed":            h.gateService.HasEntryPass(ctx, claims.ID),
	})
}

// SubmitEntry godoc
// POST /api/v1/participant/gate/entry
// Checks the entry password and records the pass for this session.
func (h *GateHandler) SubmitEntry(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.EntryGateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.gateService.VerifyEntry(c.Request.Context(), claims.ID, req.Password); err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"entry_passed": true})
}

// GetSettings godoc
// GET /api/v1/admin/gate
func (h *GateHandler) GetSettings(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"settings": h.gateService.Settings(c.Request.Context())})
}

// UpdateSettings godoc
// PUT /api/v1/admin/gate
func (h *GateHandler) UpdateSettings(c *gin.Context) {
	var req model.UpdateGateSettingsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	settings, err := h.gateService.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"settings": settings})
}

// DownloadLockdownProfile godoc
// GET /api/v1/admin/gate/lockdown-profile
// Renders the Safe Exam Browser profile with the current quit password.
func (h *GateHandler) DownloadLockdownProfile(c *gin.Context) {
	settings := h.gateService.Settings(c.Request.Context())
	profile, err := lockdown.GenerateConfig(h.cfg.PublicBaseURL, settings.QuitPassword)
	if err != nil {
		failFromError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+lockdown.ProfileFilename+`"`)
	c.Data(http.StatusOK, lockdown.ProfileContentType, []byte(profile))
}
