package websocket

import (
	"github.com/stemsi/paradox-backend/internal/guard"
	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/progress"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing           Action = "ping"
	ActionSelectLanguage Action = "select_language"
	ActionBegin          Action = "begin"
	ActionAnswer         Action = "answer"
	ActionRevealHint     Action = "reveal_hint"
	ActionRunTests       Action = "run_tests"
	ActionSubmit         Action = "submit"
)

// RequestEnvelope carries every round-stream action. Fields unused by an
// action are ignored.
type RequestEnvelope struct {
	Action   Action         `json:"action"`
	Language model.Language `json:"language,omitempty"`
	Question int            `json:"question"`
	Option   int            `json:"option"`
	Code     string         `json:"code,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventPong      Event = "pong"
	EventGameState Event = "game_state"
	EventAttempt   Event = "attempt"
	EventProgress  Event = "progress"
)

// GameStateResponse is pushed on connect and on every game change. Decision
// tells a waiting-room client whether to move on.
type GameStateResponse struct {
	Event    Event             `json:"event"`
	Game     model.GameSession `json:"game"`
	Decision guard.Decision    `json:"decision"`
}

// AttemptResponse answers an action with the attempt's full view.
type AttemptResponse struct {
	Event   Event         `json:"event"`
	Action  Action        `json:"action"`
	Attempt progress.View `json:"attempt"`
}

// ProgressResponse relays an attempt event (tick, test update, hint, submission).
type ProgressResponse struct {
	Event Event          `json:"event"`
	Data  progress.Event `json:"data"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
