package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/response"
	"github.com/stemsi/paradox-backend/internal/service"
	"github.com/stemsi/paradox-backend/internal/validator"
)

// AdminGameHandler lets admins run the shared game session.
type AdminGameHandler struct {
	gameService *service.GameStateService
}

// NewAdminGameHandler creates a new AdminGameHandler.
func NewAdminGameHandler(gameService *service.GameStateService) *AdminGameHandler {
	return &AdminGameHandler{gameService: gameService}
}

// GetGame godoc
// GET /api/v1/admin/game
func (h *AdminGameHandler) GetGame(c *gin.Context) {
	game, err := h.gameService.Snapshot(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"game": game})
}

// StartGame godoc
// POST /api/v1/admin/game/start
// Opens the game for every participant at round 1.
func (h *AdminGameHandler) StartGame(c *gin.Context) {
	h.respond(c)(h.gameService.Start(c.Request.Context()))
}

// StopGame godoc
// POST /api/v1/admin/game/stop
func (h *AdminGameHandler) StopGame(c *gin.Context) {
	h.respond(c)(h.gameService.Stop(c.Request.Context()))
}

// SetActiveRound godoc
// PUT /api/v1/admin/game/round
func (h *AdminGameHandler) SetActiveRound(c *gin.Context) {
	var req model.SetActiveRoundRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.respond(c)(h.gameService.SetActiveRound(c.Request.Context(), req.Round))
}

// SendBroadcast godoc
// PUT /api/v1/admin/game/broadcast
// Sets or clears the banner shown to every participant.
func (h *AdminGameHandler) SendBroadcast(c *gin.Context) {
	var req model.BroadcastRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.respond(c)(h.gameService.SendBroadcast(c.Request.Context(), req.Message))
}

func (h *AdminGameHandler) respond(c *gin.Context) func(*model.GameSession, error) {
	return func(game *model.GameSession, err error) {
		if err != nil {
			failFromError(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"game": game})
	}
}
