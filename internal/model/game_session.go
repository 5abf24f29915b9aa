package model

import "time"

// GameSession is the singleton record shared by every participant.
type GameSession struct {
	Started          bool       `json:"started"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	StoppedAt        *time.Time `json:"stopped_at,omitempty"`
	ActiveRound      int        `json:"active_round"`
	BroadcastMessage string     `json:"broadcast_message"`
	// Version increases by one on every mutation; subscribers use it to
	// drop duplicate or stale deliveries.
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetActiveRoundRequest is the admin payload for switching the active round.
type SetActiveRoundRequest struct {
	Round int `json:"round" binding:"required,min=1,max=3"`
}

// BroadcastRequest is the admin payload for the banner message. An empty
// message clears the banner.
type BroadcastRequest struct {
	Message string `json:"message" binding:"max=500"`
}
