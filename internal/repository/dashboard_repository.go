package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DashboardRepository handles admin dashboard aggregates.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// GetSummaryCounts returns participant totals and the rounded average score.
func (r *DashboardRepository) GetSummaryCounts(ctx context.Context) (total, active, averageScore int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'active'),
			COALESCE(ROUND(AVG(score)), 0)::int
		 FROM participants`,
	).Scan(&total, &active, &averageScore)
	return
}

// GetCompletionCounts returns how many participants have completed at least
// round 1, 2 and 3 respectively.
func (r *DashboardRepository) GetCompletionCounts(ctx context.Context) ([3]int, error) {
	var counts [3]int
	err := r.pool.QueryRow(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE rounds_completed >= 1),
			COUNT(*) FILTER (WHERE rounds_completed >= 2),
			COUNT(*) FILTER (WHERE rounds_completed >= 3)
		 FROM participants`,
	).Scan(&counts[0], &counts[1], &counts[2])
	return counts, err
}
