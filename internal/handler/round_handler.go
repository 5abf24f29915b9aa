package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/paradox-backend/internal/middleware"
	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/progress"
	"github.com/stemsi/paradox-backend/internal/response"
	"github.com/stemsi/paradox-backend/internal/service"
	"github.com/stemsi/paradox-backend/internal/validator"
	ws "github.com/stemsi/paradox-backend/internal/websocket"
)

// RoundHandler drives a participant's round attempt over REST and WebSocket.
type RoundHandler struct {
	roundService    *service.RoundService
	questionService *service.QuestionService
	log             zerolog.Logger
	upgrader        websocket.Upgrader
}

// NewRoundHandler creates a new RoundHandler.
func NewRoundHandler(roundService *service.RoundService, questionService *service.QuestionService, log zerolog.Logger, allowedOrigins []string) *RoundHandler {
	return &RoundHandler{
		roundService:    roundService,
		questionService: questionService,
		log:             log.With().Str("component", "round_handler").Logger(),
		upgrader:        ws.NewUpgrader(allowedOrigins),
	}
}

func participantID(c *gin.Context) (string, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil || claims.ParticipantID == "" {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return "", false
	}
	return claims.ParticipantID, true
}

func questionIndex(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return idx, true
}

// GetQuestions godoc
// GET /api/v1/participant/questions/:type/:door
// Returns a slot's questions with answer keys removed.
func (h *RoundHandler) GetQuestions(c *gin.Context) {
	var uri model.SlotURI
	if fields := validator.BindURI(c, &uri); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidSlot, fields)
		return
	}

	slot, err := h.questionService.GetForParticipant(c.Request.Context(), model.RoundType(uri.Type), uri.Door)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"slot": slot})
}

// StartRound godoc
// POST /api/v1/participant/rounds/:type/:door/start
// Opens an attempt behind a door, replacing any attempt in progress.
func (h *RoundHandler) StartRound(c *gin.Context) {
	pid, ok := participantID(c)
	if !ok {
		return
	}
	var uri model.SlotURI
	if fields := validator.BindURI(c, &uri); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrInvalidSlot, fields)
		return
	}

	ctx := c.Request.Context()
	t := model.RoundType(uri.Type)
	view, err := h.roundService.Start(ctx, pid, t, uri.Door)
	if err != nil {
		failFromError(c, err)
		return
	}
	slot, err := h.questionService.GetForParticipant(ctx, t, uri.Door)
	if err != nil {
		failFromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"attempt": view, "questions": slot.Questions})
}

// GetCurrent godoc
// GET /api/v1/participant/rounds/current
func (h *RoundHandler) GetCurrent(c *gin.Context) {
	pid, ok := participantID(c)
	if !ok {
		return
	}
	h.respondView(c)(h.roundService.Current(pid))
}

// SelectLanguage godoc
// POST /api/v1/participant/rounds/current/language
func (h *RoundHandler) SelectLanguage(c *gin.Context) {
	pid, ok := participantID(c)
	if !ok {
		return
	}
	var req model.SelectLanguageRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.respondView(c)(h.roundService.SelectLanguage(pid, req.Language))
}

// Begin godoc
// POST /api/v1/participant/rounds/current/begin
// Starts the countdown.
func (h *RoundHandler) Begin(c *gin.Context) {
	pid, ok := participantID(c)
	if !ok {
		return
	}
	h.respondView(c)(h.roundService.Begin(pid))
}

// Answer godoc
// POST /api/v1/participant/rounds/current/answers
// Records a quiz answer.
func (h *RoundHandler) Answer(c *gin.Context) {
	pid, ok := participantID(c)
	if !ok {
		return
	}
	var req model.QuizAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.respondView(c)(h.roundService.Answer(pid, req.Question, req.Option))
}

// RevealHint godoc
// POST /api/v1/participant/rounds/current/hints/:index
// Reveals a debug hint. The first reveal per question costs points.
func (h *RoundHandler) RevealHint(c *gin.Context) {
	pid, ok := participantID(c)
	if !ok {
		return
	}
	idx, ok := questionIndex(c)
	if !ok {
		return
	}
	h.respondView(c)(h.roundService.RevealHint(pid, idx))
}

// RunTests godoc
// POST /api/v1/participant/rounds/current/run/:index
// Queues a judge run; results arrive on the round stream or via GetCurrent.
func (h *RoundHandler) RunTests(c *gin.Context) {
	pid, ok := participantID(c)
	if !ok {
		return
	}
	idx, ok := questionIndex(c)
	if !ok {
		return
	}
	var req model.RunTestsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.roundService.RunTests(c.Request.Context(), pid, idx, req.Code)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"attempt": view})
}

// Submit godoc
// POST /api/v1/participant/rounds/current/submit
func (h *RoundHandler) Submit(c *gin.Context) {
	pid, ok := participantID(c)
	if !ok {
		return
	}
	summary, err := h.roundService.Submit(pid)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"summary": summary})
}

func (h *RoundHandler) respondView(c *gin.Context) func(progress.View, error) {
	return func(view progress.View, err error) {
		if err != nil {
			failFromError(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"attempt": view})
	}
}

// RoundStream godoc
// WS /ws/v1/participant/rounds/stream
// Accepts attempt actions and relays countdown ticks, test updates and the
// final submission.
func (h *RoundHandler) RoundStream(c *gin.Context) {
	pid, ok := participantID(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("participant_id", pid).Logger()
	wsLog.Info().Msg("round stream connected")

	events, stop := h.roundService.Watch(pid)
	defer stop()

	if view, err := h.roundService.Current(pid); err == nil {
		if err := ws.WriteTyped(conn, ws.AttemptResponse{Event: ws.EventAttempt, Attempt: view}); err != nil {
			return
		}
	}

	incoming := make(chan ws.RequestEnvelope)
	closed := make(chan struct{})
	go readActions(conn, incoming, closed, wsLog)

	ping := newPingTicker()
	defer ping.Stop()

	for {
		select {
		case <-closed:
			wsLog.Info().Msg("round stream closed")
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := ws.WriteTyped(conn, ws.ProgressResponse{Event: ws.EventProgress, Data: ev}); err != nil {
				return
			}

		case msg := <-incoming:
			if err := ws.WriteTyped(conn, h.handleAction(c, pid, msg)); err != nil {
				return
			}

		case <-ping.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		}
	}
}

// handleAction applies one client action and returns the reply to send.
func (h *RoundHandler) handleAction(c *gin.Context, pid string, msg ws.RequestEnvelope) any {
	var (
		view progress.View
		err  error
	)
	switch msg.Action {
	case ws.ActionPing:
		return ws.PongResponse{Event: ws.EventPong}
	case ws.ActionSelectLanguage:
		view, err = h.roundService.SelectLanguage(pid, msg.Language)
	case ws.ActionBegin:
		view, err = h.roundService.Begin(pid)
	case ws.ActionAnswer:
		view, err = h.roundService.Answer(pid, msg.Question, msg.Option)
	case ws.ActionRevealHint:
		view, err = h.roundService.RevealHint(pid, msg.Question)
	case ws.ActionRunTests:
		view, err = h.roundService.RunTests(c.Request.Context(), pid, msg.Question, msg.Code)
	case ws.ActionSubmit:
		if _, err = h.roundService.Submit(pid); err == nil {
			view, err = h.roundService.Current(pid)
		}
	default:
		err = errUnknownAction
	}

	if err != nil {
		_, code := classify(err)
		if errors.Is(err, errUnknownAction) {
			code = response.ErrUnsupportedAction
		}
		return ws.ErrorResponse{Event: ws.EventError, Code: string(code), Error: response.GetMessage(code)}
	}
	return ws.AttemptResponse{Event: ws.EventAttempt, Action: msg.Action, Attempt: view}
}

var errUnknownAction = errors.New("unknown action")
