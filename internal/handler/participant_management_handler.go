package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/response"
	"github.com/stemsi/paradox-backend/internal/service"
	"github.com/stemsi/paradox-backend/internal/validator"
)

// ParticipantManagementHandler handles admin-facing account moderation.
type ParticipantManagementHandler struct {
	participantService *service.ParticipantService
	roundService       *service.RoundService
	log                zerolog.Logger
}

// NewParticipantManagementHandler creates a new ParticipantManagementHandler.
func NewParticipantManagementHandler(
	participantService *service.ParticipantService,
	roundService *service.RoundService,
	log zerolog.Logger,
) *ParticipantManagementHandler {
	return &ParticipantManagementHandler{
		participantService: participantService,
		roundService:       roundService,
		log:                log.With().Str("component", "participant_management").Logger(),
	}
}

// ListParticipants godoc
// GET /api/v1/admin/participants
func (h *ParticipantManagementHandler) ListParticipants(c *gin.Context) {
	participants, err := h.participantService.List(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"participants": participants})
}

// GetParticipant godoc
// GET /api/v1/admin/participants/:id
func (h *ParticipantManagementHandler) GetParticipant(c *gin.Context) {
	participant, err := h.participantService.GetByKey(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"participant": participant})
}

// CreateParticipant godoc
// POST /api/v1/admin/participants
func (h *ParticipantManagementHandler) CreateParticipant(c *gin.Context) {
	var req model.CreateParticipantRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	participant, err := h.participantService.Create(c.Request.Context(), req)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"participant": participant})
}

// UpdateParticipant godoc
// PUT /api/v1/admin/participants/:id
// Edits name, progress and status, and optionally resets the password.
func (h *ParticipantManagementHandler) UpdateParticipant(c *gin.Context) {
	var req model.UpdateParticipantRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	participant, err := h.participantService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"participant": participant})
}

// DeleteParticipant godoc
// DELETE /api/v1/admin/participants/:id
// Removes the account and drops any round it has in progress.
func (h *ParticipantManagementHandler) DeleteParticipant(c *gin.Context) {
	id := c.Param("id")
	if err := h.participantService.Delete(c.Request.Context(), id); err != nil {
		failFromError(c, err)
		return
	}
	h.roundService.Abandon(id)

	h.log.Info().Str("participant_id", id).Msg("participant deleted")
	response.Success(c, http.StatusOK, gin.H{"message": "participant deleted successfully"})
}
