package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/response"
	"github.com/stemsi/paradox-backend/internal/service"
	"github.com/stemsi/paradox-backend/internal/validator"
)

// QuestionHandler handles question bank management endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// ListSlots godoc
// GET /api/v1/admin/questions
// Lists all nine slots with answer keys, marking slots served from defaults.
func (h *QuestionHandler) ListSlots(c *gin.Context) {
	slots, err := h.questionService.GetAllForAdmin(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"slots": slots})
}

// GetSlot godoc
// GET /api/v1/admin/questions/:type/:door
func (h *QuestionHandler) GetSlot(c *gin.Context) {
	var uri model.SlotURI
	if fields := validator.BindURI(c, &uri); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidSlot, fields)
		return
	}

	slot, err := h.questionService.Get(c.Request.Context(), model.RoundType(uri.Type), uri.Door)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"slot": slot})
}

// SaveSlot godoc
// PUT /api/v1/admin/questions/:type/:door
// Replaces a slot's questions after validating them.
func (h *QuestionHandler) SaveSlot(c *gin.Context) {
	var uri model.SlotURI
	if fields := validator.BindURI(c, &uri); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidSlot, fields)
		return
	}
	var req model.SaveQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	slot, err := h.questionService.Save(c.Request.Context(), model.RoundType(uri.Type), uri.Door, req.Questions)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"slot": slot})
}

// SeedDefaults godoc
// POST /api/v1/admin/questions/seed
// Fills every empty slot with the bundled questions.
func (h *QuestionHandler) SeedDefaults(c *gin.Context) {
	seeded, err := h.questionService.SeedIfEmpty(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"seeded": seeded})
}
