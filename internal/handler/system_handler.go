package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/paradox-backend/internal/config"
	"github.com/stemsi/paradox-backend/internal/database"
	"github.com/stemsi/paradox-backend/internal/response"
)

const healthTimeout = 2 * time.Second

// SystemHandler reports process health and worker queue depths.
type SystemHandler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		pool:      pool,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

// Health godoc
// GET /health
// Pings PostgreSQL and Redis; 503 when either is down.
func (h *SystemHandler) Health(c *gin.Context) {
	status := database.Check(c.Request.Context(), healthTimeout, map[string]database.Pinger{
		"postgres": h.pool,
		"redis": database.PingFunc(func(ctx context.Context) error {
			return h.rdb.Ping(ctx).Err()
		}),
	})

	code, overall := http.StatusOK, "ok"
	if !status.Healthy() {
		code, overall = http.StatusServiceUnavailable, "degraded"
		h.log.Warn().Interface("dependencies", status).Msg("health check failed")
	}
	c.JSON(code, gin.H{"status": overall, "dependencies": status})
}

type systemMetrics struct {
	Timestamp int64  `json:"timestamp"`
	Uptime    string `json:"uptime"`

	// Go Application
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapSys    uint64 `json:"heap_sys"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`
	NumCPU     int    `json:"num_cpu"`

	// Database pool
	DBAcquiredConns int32 `json:"db_acquired_conns"`
	DBTotalConns    int32 `json:"db_total_conns"`

	// Worker Queues
	QueueProgress int64 `json:"queue_progress"`
	QueueActivity int64 `json:"queue_activity"`
}

// GetMetrics godoc
// GET /api/v1/admin/system/metrics
func (h *SystemHandler) GetMetrics(c *gin.Context) {
	response.Success(c, http.StatusOK, h.collect(c.Request.Context()))
}

func (h *SystemHandler) collect(ctx context.Context) systemMetrics {
	m := systemMetrics{
		Timestamp: time.Now().Unix(),
		Uptime:    formatDuration(time.Since(h.startTime)),
		GoVersion: runtime.Version(),
		NumCPU:    runtime.NumCPU(),
	}

	// ── Go Runtime ──
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.Goroutines = runtime.NumGoroutine()
	m.HeapAlloc = ms.HeapAlloc
	m.HeapSys = ms.HeapSys
	m.NumGC = ms.NumGC

	// ── Pool ──
	stat := h.pool.Stat()
	m.DBAcquiredConns = stat.AcquiredConns()
	m.DBTotalConns = stat.TotalConns()

	// ── Worker Queues (pipelined LLEN) ──
	pipe := h.rdb.Pipeline()
	progressCmd := pipe.LLen(ctx, config.WorkerKey.PersistProgressQueue)
	activityCmd := pipe.LLen(ctx, config.WorkerKey.PersistActivityQueue)
	if _, err := pipe.Exec(ctx); err == nil {
		m.QueueProgress = progressCmd.Val()
		m.QueueActivity = activityCmd.Val()
	} else {
		h.log.Debug().Err(err).Msg("queue depth unavailable")
	}

	return m
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
