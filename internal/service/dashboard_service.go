package service

import (
	"context"

	"github.com/stemsi/paradox-backend/internal/model"
	"github.com/stemsi/paradox-backend/internal/repository"
	"golang.org/x/sync/errgroup"
)

// DashboardService aggregates participant statistics for admins.
type DashboardService struct {
	dashboardRepo *repository.DashboardRepository
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(dashboardRepo *repository.DashboardRepository) *DashboardService {
	return &DashboardService{dashboardRepo: dashboardRepo}
}

// GetStats runs the summary and completion queries concurrently.
func (s *DashboardService) GetStats(ctx context.Context) (*model.DashboardStats, error) {
	stats := &model.DashboardStats{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		stats.TotalParticipants, stats.ActiveParticipants, stats.AverageScore, err = s.dashboardRepo.GetSummaryCounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.CompletedByRound, err = s.dashboardRepo.GetCompletionCounts(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
