package service

import (
	"context"

	"github.com/stemsi/paradox-backend/internal/model"
	"golang.org/x/sync/errgroup"
)

// MonitorSnapshot is one frame of the admin live view.
type MonitorSnapshot struct {
	Leaderboard []model.LeaderboardEntry `json:"leaderboard"`
	Stats       *model.DashboardStats    `json:"stats,omitempty"`
}

// MonitorService assembles live monitoring frames.
type MonitorService struct {
	participants *ParticipantService
	dashboard    *DashboardService
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(participants *ParticipantService, dashboard *DashboardService) *MonitorService {
	return &MonitorService{participants: participants, dashboard: dashboard}
}

// Snapshot fetches the leaderboard and stats in parallel. The leaderboard is
// required; stats are best-effort.
func (s *MonitorService) Snapshot(ctx context.Context) (*MonitorSnapshot, error) {
	var (
		board []model.LeaderboardEntry
		stats *model.DashboardStats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		board, err = s.participants.Leaderboard(gctx, 0)
		return err
	})

	statsDone := make(chan struct{})
	go func() {
		defer close(statsDone)
		stats, _ = s.dashboard.GetStats(ctx)
	}()

	if err := g.Wait(); err != nil {
		return nil, err
	}
	<-statsDone
	return &MonitorSnapshot{Leaderboard: board, Stats: stats}, nil
}
