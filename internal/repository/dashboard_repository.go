package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/oficios-api/internal/models"
)

// DashboardRepository aggregates lifecycle counters.
type DashboardRepository struct {
	db Queryer
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db Queryer) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Stats computes counters relative to now. Recent lists are not filled.
func (r *DashboardRepository) Stats(ctx context.Context, now time.Time) (*models.DashboardStats, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	const query = `SELECT
    (SELECT COUNT(*) FROM requests WHERE status = 'pending') AS pending_requests,
    (SELECT COUNT(*) FROM requests WHERE status = 'in_progress') AS in_progress_requests,
    (SELECT COUNT(*) FROM requests WHERE status = 'answered') AS answered_requests,
    (SELECT COUNT(*) FROM requests) AS total_requests,
    (SELECT COUNT(*) FROM responses) AS total_responses,
    (SELECT COUNT(*) FROM flagged_persons WHERE active) AS active_flagged_persons,
    (SELECT COUNT(*) FROM requests WHERE created_at >= $1) AS requests_this_month,
    (SELECT COUNT(*) FROM responses WHERE created_at >= $1) AS responses_this_month`

	var row struct {
		Pending        int `db:"pending_requests"`
		InProgress     int `db:"in_progress_requests"`
		Answered       int `db:"answered_requests"`
		TotalRequests  int `db:"total_requests"`
		TotalResponses int `db:"total_responses"`
		ActiveFlagged  int `db:"active_flagged_persons"`
		RequestsMonth  int `db:"requests_this_month"`
		ResponsesMonth int `db:"responses_this_month"`
	}
	if err := r.db.GetContext(ctx, &row, query, monthStart); err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return &models.DashboardStats{
		PendingRequests:      row.Pending,
		InProgressRequests:   row.InProgress,
		AnsweredRequests:     row.Answered,
		TotalRequests:        row.TotalRequests,
		TotalResponses:       row.TotalResponses,
		ActiveFlaggedPersons: row.ActiveFlagged,
		RequestsThisMonth:    row.RequestsMonth,
		ResponsesThisMonth:   row.ResponsesMonth,
	}, nil
}
