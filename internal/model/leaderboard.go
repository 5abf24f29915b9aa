package model

import "time"

// LeaderboardEntry is one ranked participant.
type LeaderboardEntry struct {
	Rank            int               `json:"rank"`
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Score           int               `json:"score"`
	RoundsCompleted int               `json:"rounds_completed"`
	Status          ParticipantStatus `json:"status"`
	LastActive      time.Time         `json:"last_active"`
}

// DashboardStats summarises the participant population for admins.
type DashboardStats struct {
	TotalParticipants  int    `json:"total_participants"`
	ActiveParticipants int    `json:"active_participants"`
	AverageScore       int    `json:"average_score"`
	CompletedByRound   [3]int `json:"completed_by_round"`
}

// ProgressEvent is published whenever a participant's progress changes.
type ProgressEvent struct {
	Type            string `json:"type"`
	ParticipantID   string `json:"participant_id"`
	Score           int    `json:"score"`
	RoundsCompleted int    `json:"rounds_completed"`
}

// RoundActivity is the audit record of one round submission.
type RoundActivity struct {
	ParticipantID string    `json:"participant_id"`
	RoundType     RoundType `json:"round_type"`
	Door          int       `json:"door"`
	Score         int       `json:"score"`
	HintsUsed     int       `json:"hints_used"`
	Trigger       string    `json:"trigger"`
	RecordedAt    time.Time `json:"recorded_at"`
}
