package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/paradox-backend/internal/guard"
	"github.com/stemsi/paradox-backend/internal/middleware"
	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/response"
	"github.com/stemsi/paradox-backend/internal/service"
	"github.com/stemsi/paradox-backend/internal/validator"
	ws "github.com/stemsi/paradox-backend/internal/websocket"
)

// GameHandler serves the shared game session to participants.
type GameHandler struct {
	gameService *service.GameStateService
	access      *middleware.Access
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(gameService *service.GameStateService, access *middleware.Access, log zerolog.Logger, allowedOrigins []string) *GameHandler {
	return &GameHandler{
		gameService: gameService,
		access:      access,
		log:         log.With().Str("component", "game_handler").Logger(),
		upgrader:    ws.NewUpgrader(allowedOrigins),
	}
}

// navigationRequest names the screen class the client is about to show.
type navigationRequest struct {
	Route guard.RouteClass `json:"route" binding:"required"`
}

// GetSnapshot godoc
// GET /api/v1/participant/game
// Returns the current game session; clients poll this when push is unavailable.
func (h *GameHandler) GetSnapshot(c *gin.Context) {
	game, err := h.gameService.Snapshot(c.Request.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("game snapshot unavailable")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"game": game})
}

// Navigate godoc
// POST /api/v1/participant/navigation
// Evaluates the guard chain for the requested screen class.
func (h *GameHandler) Navigate(c *gin.Context) {
	var req navigationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if !req.Route.Valid() {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"route": "route is not a known screen class",
		})
		return
	}

	decision := guard.Evaluate(req.Route, h.access.GuardContext(c))
	response.Success(c, http.StatusOK, gin.H{"decision": decision})
}

// GameStream godoc
// WS /ws/v1/participant/game
// Pushes the game session on connect and on every change, each with the
// waiting-room decision so the client knows when to leave it.
func (h *GameHandler) GameStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	wsLog := h.log.With().Str("participant_id", claims.ParticipantID).Logger()
	wsLog.Debug().Msg("game stream connected")

	updates, unsubscribe := h.gameService.Subscribe(ctx)
	defer unsubscribe()

	incoming := make(chan ws.RequestEnvelope)
	closed := make(chan struct{})
	go readActions(conn, incoming, closed, wsLog)

	ping := newPingTicker()
	defer ping.Stop()

	for {
		select {
		case <-closed:
			wsLog.Debug().Msg("game stream closed")
			return

		case g, ok := <-updates:
			if !ok {
				return
			}
			if err := ws.WriteTyped(conn, h.gameState(c, g)); err != nil {
				wsLog.Debug().Err(err).Msg("game stream write failed")
				return
			}

		case msg := <-incoming:
			var out any = ws.PongResponse{Event: ws.EventPong}
			if msg.Action != ws.ActionPing {
				out = ws.ErrorResponse{Event: ws.EventError, Code: string(response.ErrUnsupportedAction), Error: "unknown action: " + string(msg.Action)}
			}
			if err := ws.WriteTyped(conn, out); err != nil {
				return
			}

		case <-ping.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		}
	}
}

func (h *GameHandler) gameState(c *gin.Context, g model.GameSession) ws.GameStateResponse {
	gc := h.access.GuardContext(c)
	gc.Game = &g
	return ws.GameStateResponse{
		Event:    ws.EventGameState,
		Game:     g,
		Decision: guard.Evaluate(guard.RouteWaitingRoom, gc),
	}
}
