package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/paradox-backend/internal/middleware"
	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/response"
	"github.com/stemsi/paradox-backend/internal/service"
	"github.com/stemsi/paradox-backend/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService        *service.AuthService
	participantService *service.ParticipantService
	adminService       *service.AdminService
	gateService        *service.GateService
	roundService       *service.RoundService
	log                zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	authService *service.AuthService,
	participantService *service.ParticipantService,
	adminService *service.AdminService,
	gateService *service.GateService,
	roundService *service.RoundService,
	log zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:        authService,
		participantService: participantService,
		adminService:       adminService,
		gateService:        gateService,
		roundService:       roundService,
		log:                log.With().Str("component", "auth_handler").Logger(),
	}
}

func participantBody(p *model.Participant) gin.H {
	return gin.H{
		"id":               p.ID,
		"name":             p.Name,
		"email":            p.Email,
		"score":            p.Score,
		"rounds_completed": p.RoundsCompleted,
		"status":           p.Status,
	}
}

// Register godoc
// POST /api/v1/auth/participant/register
// Creates an account and signs it in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	participant, err := h.participantService.Register(c.Request.Context(), req)
	if err != nil {
		failFromError(c, err)
		return
	}

	token, err := h.authService.IssueParticipantToken(c.Request.Context(), participant.ID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"token":       token,
		"participant": participantBody(participant),
	})
}

// ParticipantLogin godoc
// POST /api/v1/auth/participant/login
// Checks email + password and opens a new session.
func (h *AuthHandler) ParticipantLogin(c *gin.Context) {
	var req model.ParticipantLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	participant, err := h.participantService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failFromError(c, err)
		return
	}

	token, err := h.authService.IssueParticipantToken(c.Request.Context(), participant.ID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":       token,
		"participant": participantBody(participant),
	})
}

// ParticipantLogout godoc
// POST /api/v1/auth/participant/logout
// Ends the session once the quit password (if any) matches. Any round in
// progress is dropped without submission.
func (h *AuthHandler) ParticipantLogout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.ParticipantLogoutRequest
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	ctx := c.Request.Context()
	if err := h.gateService.VerifyQuit(ctx, req.QuitPassword); err != nil {
		failFromError(c, err)
		return
	}

	if err := h.authService.RevokeParticipantSession(ctx, claims.ID); err != nil {
		failFromError(c, err)
		return
	}
	h.roundService.Abandon(claims.ParticipantID)
	// Status is advisory; the session is already gone.
	h.participantService.MarkInactive(context.WithoutCancel(ctx), claims.ParticipantID)

	response.Success(c, http.StatusOK, gin.H{})
}

// GetParticipantProfile godoc
// GET /api/v1/auth/participant/me
// Returns the signed-in participant's account and progress.
func (h *AuthHandler) GetParticipantProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	participant, err := h.participantService.GetByKey(c.Request.Context(), claims.ParticipantID)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"participant": participantBody(participant)})
}

// AdminLogin godoc
// POST /api/v1/auth/admin/login
// Validates username + password and returns a two-hour admin token.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req model.AdminLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	admin, err := h.adminService.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			h.log.Error().Err(err).Str("username", req.Username).Msg("admin login failed")
		}
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, expiresAt, err := h.authService.IssueAdminToken(admin.Username, admin.Role)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"admin": gin.H{
			"username": admin.Username,
			"role":     admin.Role,
		},
	})
}

// GetAdminProfile godoc
// GET /api/v1/auth/admin/me
// Returns the profile of the currently authenticated admin.
func (h *AuthHandler) GetAdminProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	admin, err := h.adminService.GetByUsername(c.Request.Context(), claims.Username)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"admin": gin.H{
			"username":   admin.Username,
			"role":       admin.Role,
			"created_at": admin.CreatedAt,
		},
		"expires_at": claims.ExpiresAt,
	})
}
