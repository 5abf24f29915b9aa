package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ParticipantSessionKey returns the cache key for one participant login session.
func (r *CacheKeyStruct) ParticipantSessionKey(sessionID string) string {
	return fmt.Sprintf("participant:session:%s", sessionID)
}

// EntryPassKey returns the cache key marking that a session passed the entry gate.
func (r *CacheKeyStruct) EntryPassKey(sessionID string) string {
	return fmt.Sprintf("participant:session:%s:entry_pass", sessionID)
}

// GameStateKey returns the cache key holding the latest game session snapshot.
func (r *CacheKeyStruct) GameStateKey() string {
	return "game:state"
}

// GameStateChannel returns the Redis PubSub channel for game session changes.
func (r *CacheKeyStruct) GameStateChannel() string {
	return "game:state:events"
}

// LeaderboardChannel returns the Redis PubSub channel for participant score changes.
func (r *CacheKeyStruct) LeaderboardChannel() string {
	return "leaderboard:events"
}

// QuestionSlotKey returns the cache key for a question slot payload.
func (r *CacheKeyStruct) QuestionSlotKey(roundType string, door int) string {
	return fmt.Sprintf("questions:%s:door%d", roundType, door)
}

// RateLimitKey returns the counter key for one client in one limiter window.
func (r *CacheKeyStruct) RateLimitKey(scope, ip string, window int64) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", scope, ip, window)
}

var CacheKey = NewCacheKeyStruct()
