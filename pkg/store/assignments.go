package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/jordanlanch/leadrouter/pkg/database"
	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

// AssignmentStore keeps the append-only assignment audit trail.
type AssignmentStore struct {
	pool database.Pool
}

// NewAssignmentStore creates an assignment store backed by the given pool.
func NewAssignmentStore(pool database.Pool) *AssignmentStore {
	return &AssignmentStore{pool: pool}
}

// Record appends one audit row for a completed assignment.
func (s *AssignmentStore) Record(ctx context.Context, leadID, agentID string, method models.AssignMethod, algorithm models.Algorithm) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO lead_assignments (id, lead_id, agent_id, method, algorithm)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), leadID, agentID, method, algorithm,
	)
	if err != nil {
		return domain.NewStoreError(err)
	}
	return nil
}

// CountToday returns how many leads each agent received since midnight.
// Agents with no assignments are absent from the map.
func (s *AssignmentStore) CountToday(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT agent_id, count(*) FROM lead_assignments
		WHERE created_at >= date_trunc('day', now())
		GROUP BY agent_id`,
	)
	if err != nil {
		return nil, domain.NewStoreError(err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var agentID string
		var n int
		if err := rows.Scan(&agentID, &n); err != nil {
			return nil, domain.NewStoreError(err)
		}
		counts[agentID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError(err)
	}
	return counts, nil
}

// StatsToday aggregates today's audit rows by method and agent.
func (s *AssignmentStore) StatsToday(ctx context.Context) (*models.DistributionStats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT agent_id, method, count(*) FROM lead_assignments
		WHERE created_at >= date_trunc('day', now())
		GROUP BY agent_id, method`,
	)
	if err != nil {
		return nil, domain.NewStoreError(err)
	}
	defer rows.Close()

	stats := &models.DistributionStats{ByAgent: make(map[string]int)}
	for rows.Next() {
		var agentID string
		var method models.AssignMethod
		var n int
		if err := rows.Scan(&agentID, &method, &n); err != nil {
			return nil, domain.NewStoreError(err)
		}
		stats.Total += n
		stats.ByAgent[agentID] += n
		switch method {
		case models.MethodAutomatic:
			stats.Automatic += n
		case models.MethodManual:
			stats.Manual += n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError(err)
	}
	return stats, nil
}
