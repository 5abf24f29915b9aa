package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/paradox-backend/internal/config"
	"github.com/stemsi/paradox-backend/internal/response"
	"github.com/stemsi/paradox-backend/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // bounds each snapshot query inside the SSE loop
	// coalesceWindow groups bursts of progress events into one refresh.
	coalesceWindow = 500 * time.Millisecond

	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 500
)

// MonitorHandler serves the leaderboard, publicly and as a live admin stream.
type MonitorHandler struct {
	rdb                *redis.Client
	participantService *service.ParticipantService
	monitorService     *service.MonitorService
	log                zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(
	rdb *redis.Client,
	participantService *service.ParticipantService,
	monitorService *service.MonitorService,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		rdb:                rdb,
		participantService: participantService,
		monitorService:     monitorService,
		log:                log.With().Str("component", "monitor_handler").Logger(),
	}
}

// GetLeaderboard godoc
// GET /api/v1/participant/leaderboard?limit=50
func (h *MonitorHandler) GetLeaderboard(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLeaderboardLimit)))
	if err != nil || limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	limit = min(limit, maxLeaderboardLimit)

	entries, err := h.participantService.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"leaderboard": entries})
}

// LeaderboardSSE godoc
// GET /api/v1/admin/monitor
// Streams a snapshot on connect, forwards progress events as they are
// published, refreshes after bursts and periodically, and keeps the
// connection alive.
func (h *MonitorHandler) LeaderboardSSE(c *gin.Context) {
	reqCtx := c.Request.Context()

	// 1. SSE headers
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// 2. Subscribe before the snapshot so no event falls in between
	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.LeaderboardChannel())
	defer pubsub.Close()
	ch := pubsub.Channel()

	// 3. Initial snapshot
	h.sendSnapshot(c, reqCtx, "snapshot")

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	var coalesce <-chan time.Time
	dirty := false

	h.log.Info().Msg("Admin attached to leaderboard SSE")

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Msg("Admin disconnected from leaderboard SSE")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Forward raw JSON directly; no deserialization needed
			c.SSEvent("progress", msg.Payload)
			c.Writer.Flush()
			dirty = true
			if coalesce == nil {
				coalesce = time.After(coalesceWindow)
			}

		case <-coalesce:
			coalesce = nil
			h.sendSnapshot(c, reqCtx, "refresh")
			dirty = false

		case <-refreshTicker.C:
			if !dirty {
				continue // nothing changed since the last frame
			}
			h.sendSnapshot(c, reqCtx, "refresh")
			dirty = false

		case <-keepAliveTicker.C:
			c.SSEvent("ping", gin.H{"type": "ping"})
			c.Writer.Flush()
		}
	}
}

// sendSnapshot writes one full leaderboard frame.
func (h *MonitorHandler) sendSnapshot(c *gin.Context, parentCtx context.Context, kind string) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	snap, err := h.monitorService.Snapshot(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to build leaderboard snapshot")
		return
	}

	c.SSEvent(kind, snap)
	c.Writer.Flush()
}
