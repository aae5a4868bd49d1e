package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MonitorRepository provides data access for the live assessment monitoring
// feature: per-invitation progress and proctor event counts.
type MonitorRepository struct {
	pool *pgxpool.Pool
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(pool *pgxpool.Pool) *MonitorRepository {
	return &MonitorRepository{pool: pool}
}

// GetAnsweredCounts returns the autosaved answer count per invitation with
// at least one recorded answer for the given assessment.
func (r *MonitorRepository) GetAnsweredCounts(ctx context.Context, assessmentID uuid.UUID) (map[uuid.UUID]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.invitation_id, COUNT(*)
		 FROM answer_snapshots s
		 JOIN invitations i ON i.id = s.invitation_id
		 WHERE i.assessment_id = $1
		 GROUP BY s.invitation_id`, assessmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int64)
	for rows.Next() {
		var id uuid.UUID
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// GetProctorCounts returns the number of persisted proctor events per
// invitation for the given assessment.
func (r *MonitorRepository) GetProctorCounts(ctx context.Context, assessmentID uuid.UUID) (map[uuid.UUID]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT invitation_id, COUNT(*)
		 FROM proctor_events
		 WHERE assessment_id = $1
		 GROUP BY invitation_id`, assessmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int64)
	for rows.Next() {
		var id uuid.UUID
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}
