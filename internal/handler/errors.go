package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/paradox-backend/internal/progress"
	"github.com/stemsi/paradox-backend/internal/questionbank"
	"github.com/stemsi/paradox-backend/internal/repository"
	"github.com/stemsi/paradox-backend/internal/response"
	"github.com/stemsi/paradox-backend/internal/service"
)

type errMapping struct {
	err    error
	status int
	code   response.ErrCode
}

// errMappings pairs service sentinels with their HTTP status and code.
var errMappings = []errMapping{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrAccountExists, http.StatusConflict, response.ErrAccountExists},
	{repository.ErrDuplicateParticipant, http.StatusConflict, response.ErrAccountExists},
	{repository.ErrDuplicateAdmin, http.StatusConflict, response.ErrConflict},
	{service.ErrAccountNotFound, http.StatusNotFound, response.ErrAccountNotFound},
	{service.ErrIncorrectPassword, http.StatusUnauthorized, response.ErrIncorrectPassword},
	{service.ErrSessionInvalidated, http.StatusUnauthorized, response.ErrSessionInvalidated},
	{service.ErrIncorrectGatePassword, http.StatusForbidden, response.ErrIncorrectGatePassword},
	{service.ErrIncorrectQuitPassword, http.StatusForbidden, response.ErrIncorrectQuitPassword},
	{service.ErrInvalidRound, http.StatusBadRequest, response.ErrInvalidRound},
	{service.ErrGameNotStarted, http.StatusConflict, response.ErrGameNotStarted},
	{service.ErrRoundLocked, http.StatusForbidden, response.ErrRoundLocked},
	{service.ErrNoActiveAttempt, http.StatusNotFound, response.ErrNoActiveAttempt},
	{service.ErrAttemptRunning, http.StatusConflict, response.ErrAttemptState},
	{service.ErrInvalidLanguage, http.StatusBadRequest, response.ErrValidation},
	{progress.ErrAlreadySubmitted, http.StatusConflict, response.ErrAlreadySubmitted},
	{progress.ErrInvalidTransition, http.StatusConflict, response.ErrAttemptState},
	{progress.ErrQuestionIndex, http.StatusBadRequest, response.ErrInvalidID},
	{progress.ErrWrongRoundType, http.StatusBadRequest, response.ErrUnsupportedAction},
	{questionbank.ErrInvalidSlot, http.StatusBadRequest, response.ErrInvalidSlot},
}

// classify maps err to a status and code. Unknown errors are internal.
func classify(err error) (int, response.ErrCode) {
	for _, m := range errMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// failFromError writes the error response matching err. Invalid questions
// keep their detail so admins can see which entry is wrong.
func failFromError(c *gin.Context, err error) {
	if errors.Is(err, questionbank.ErrInvalidQuestion) {
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrInvalidQuestion, err.Error())
		return
	}
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.Fail(c, status, code)
}
