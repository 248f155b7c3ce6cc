package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jordanlanch/leadrouter/pkg/database"
	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

const agentColumns = `id, handle, name, role, online, password_hash, last_seen_at, created_at`

// AgentStore persists agents and their presence flags.
type AgentStore struct {
	pool database.Pool
}

// NewAgentStore creates an agent store backed by the given pool.
func NewAgentStore(pool database.Pool) *AgentStore {
	return &AgentStore{pool: pool}
}

func scanAgent(row pgx.Row) (*models.Agent, error) {
	var a models.Agent
	err := row.Scan(
		&a.ID, &a.Handle, &a.Name, &a.Role, &a.Online,
		&a.PasswordHash, &a.LastSeenAt, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new agent.
func (s *AgentStore) Create(ctx context.Context, agent *models.Agent) (*models.Agent, error) {
	if agent.ID == "" {
		agent.ID = uuid.NewString()
	}
	if agent.Role == "" {
		agent.Role = "agent"
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO agents (id, handle, name, role, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+agentColumns,
		agent.ID, agent.Handle, agent.Name, agent.Role, agent.PasswordHash,
	)
	created, err := scanAgent(row)
	if err != nil {
		return nil, domain.NewStoreError(err)
	}
	return created, nil
}

// Get fetches an agent by id.
func (s *AgentStore) Get(ctx context.Context, id string) (*models.Agent, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	agent, err := scanAgent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewNotFoundError("agent")
	}
	if err != nil {
		return nil, domain.NewStoreError(err)
	}
	return agent, nil
}

// GetByHandle fetches an agent by login handle.
func (s *AgentStore) GetByHandle(ctx context.Context, handle string) (*models.Agent, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE handle = $1`, handle)
	agent, err := scanAgent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewNotFoundError("agent")
	}
	if err != nil {
		return nil, domain.NewStoreError(err)
	}
	return agent, nil
}

// SetOnline flips the explicit presence flag and refreshes last_seen_at.
func (s *AgentStore) SetOnline(ctx context.Context, id string, online bool) (*models.Agent, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE agents SET online = $1, last_seen_at = now()
		WHERE id = $2
		RETURNING `+agentColumns,
		online, id,
	)
	agent, err := scanAgent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewNotFoundError("agent")
	}
	if err != nil {
		return nil, domain.NewStoreError(err)
	}
	return agent, nil
}

// Heartbeat refreshes last_seen_at without touching the online flag.
func (s *AgentStore) Heartbeat(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE agents SET last_seen_at = now() WHERE id = $1`, id)
	if err != nil {
		return domain.NewStoreError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("agent")
	}
	return nil
}

// ListAvailable returns agents that are explicitly online, carry an eligible
// role, and have a heartbeat newer than since. Ordering is deterministic so
// the round-robin cursor walks a stable sequence.
func (s *AgentStore) ListAvailable(ctx context.Context, since time.Time, roles []string) ([]*models.Agent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+agentColumns+` FROM agents
		WHERE online = true AND last_seen_at >= $1 AND role = ANY($2)
		ORDER BY last_seen_at DESC, id ASC`,
		since, roles,
	)
	if err != nil {
		return nil, domain.NewStoreError(err)
	}
	defer rows.Close()
	return collectAgents(rows)
}

// ListRecentlyActive returns agents with any activity after since, online or
// not, for the presence dashboard.
func (s *AgentStore) ListRecentlyActive(ctx context.Context, since time.Time) ([]*models.Agent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+agentColumns+` FROM agents
		WHERE last_seen_at >= $1
		ORDER BY online DESC, last_seen_at DESC, id ASC`,
		since,
	)
	if err != nil {
		return nil, domain.NewStoreError(err)
	}
	defer rows.Close()
	return collectAgents(rows)
}

func collectAgents(rows pgx.Rows) ([]*models.Agent, error) {
	var agents []*models.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, domain.NewStoreError(err)
		}
		agents = append(agents, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError(err)
	}
	return agents, nil
}
