package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jordanlanch/leadrouter/pkg/database"
	"github.com/jordanlanch/leadrouter/pkg/domain"
)

// SessionStore tracks online sessions for the presence time accounting.
type SessionStore struct {
	pool database.Pool
}

// NewSessionStore creates a session store backed by the given pool.
func NewSessionStore(pool database.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Open starts a session for the agent unless one is already open. Going
// online twice in a row keeps the original session running.
func (s *SessionStore) Open(ctx context.Context, agentID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO online_sessions (id, agent_id)
		SELECT $1, $2
		WHERE NOT EXISTS (
			SELECT 1 FROM online_sessions WHERE agent_id = $2 AND ended_at IS NULL
		)`,
		uuid.NewString(), agentID,
	)
	if err != nil {
		return domain.NewStoreError(err)
	}
	return nil
}

// CloseOpen ends any open session for the agent.
func (s *SessionStore) CloseOpen(ctx context.Context, agentID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE online_sessions SET ended_at = now()
		WHERE agent_id = $1 AND ended_at IS NULL`,
		agentID,
	)
	if err != nil {
		return domain.NewStoreError(err)
	}
	return nil
}

// SecondsToday returns the seconds each agent spent online since midnight.
// Open sessions count up to now; sessions that started yesterday are
// clipped at midnight.
func (s *SessionStore) SecondsToday(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT agent_id, COALESCE(SUM(EXTRACT(EPOCH FROM (
			COALESCE(ended_at, now()) - GREATEST(started_at, date_trunc('day', now()))
		)))::bigint, 0)
		FROM online_sessions
		WHERE COALESCE(ended_at, now()) >= date_trunc('day', now())
		GROUP BY agent_id`,
	)
	if err != nil {
		return nil, domain.NewStoreError(err)
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var agentID string
		var seconds int64
		if err := rows.Scan(&agentID, &seconds); err != nil {
			return nil, domain.NewStoreError(err)
		}
		totals[agentID] = seconds
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError(err)
	}
	return totals, nil
}

// CloseStale ends open sessions whose agent's heartbeat went silent before
// the cutoff. Returns the number of sessions closed.
func (s *SessionStore) CloseStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE online_sessions os SET ended_at = now()
		FROM agents a
		WHERE os.agent_id = a.id AND os.ended_at IS NULL AND a.last_seen_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, domain.NewStoreError(err)
	}
	return tag.RowsAffected(), nil
}
