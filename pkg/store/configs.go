package store

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/jordanlanch/leadrouter/pkg/database"
	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

// Key for the global automatic-distribution switch in system_configs.
const autoDistributionKey = "auto_distribution_enabled"

// ConfigStore persists per-agent distribution configs and system switches.
type ConfigStore struct {
	pool database.Pool
}

// NewConfigStore creates a config store backed by the given pool.
func NewConfigStore(pool database.Pool) *ConfigStore {
	return &ConfigStore{pool: pool}
}

// ListWeights returns configs with a positive weight, joined with the agent
// name for display. Zero-weight rows are excluded from distribution.
func (s *ConfigStore) ListWeights(ctx context.Context) ([]*models.DistributionConfig, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.agent_id, a.name, c.weight, c.category, c.updated_at
		FROM distribution_configs c
		JOIN agents a ON a.id = c.agent_id
		WHERE c.weight > 0
		ORDER BY c.agent_id ASC`,
	)
	if err != nil {
		return nil, domain.NewStoreError(err)
	}
	defer rows.Close()

	var configs []*models.DistributionConfig
	for rows.Next() {
		var c models.DistributionConfig
		if err := rows.Scan(&c.AgentID, &c.AgentName, &c.Weight, &c.Category, &c.UpdatedAt); err != nil {
			return nil, domain.NewStoreError(err)
		}
		configs = append(configs, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError(err)
	}
	return configs, nil
}

// Get returns one agent's distribution config.
func (s *ConfigStore) Get(ctx context.Context, agentID string) (*models.DistributionConfig, error) {
	var c models.DistributionConfig
	err := s.pool.QueryRow(ctx, `
		SELECT c.agent_id, a.name, c.weight, c.category, c.updated_at
		FROM distribution_configs c
		JOIN agents a ON a.id = c.agent_id
		WHERE c.agent_id = $1`,
		agentID,
	).Scan(&c.AgentID, &c.AgentName, &c.Weight, &c.Category, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewNotFoundError("distribution config")
	}
	if err != nil {
		return nil, domain.NewStoreError(err)
	}
	return &c, nil
}

// Upsert writes an agent's weight and category, latest write wins.
func (s *ConfigStore) Upsert(ctx context.Context, agentID string, weight int, category models.Category) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO distribution_configs (agent_id, weight, category, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (agent_id)
		DO UPDATE SET weight = EXCLUDED.weight, category = EXCLUDED.category, updated_at = now()`,
		agentID, weight, category,
	)
	if err != nil {
		return domain.NewStoreError(err)
	}
	return nil
}

// AutoDistributionEnabled reads the global switch. A missing or
// unparseable row means disabled; an admin has to turn distribution on
// explicitly before a fresh deployment hands out leads.
func (s *ConfigStore) AutoDistributionEnabled(ctx context.Context) (bool, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM system_configs WHERE key = $1`, autoDistributionKey,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, domain.NewStoreError(err)
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return false, nil
	}
	return enabled, nil
}

// SetAutoDistribution writes the global switch.
func (s *ConfigStore) SetAutoDistribution(ctx context.Context, enabled bool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO system_configs (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		autoDistributionKey, strconv.FormatBool(enabled),
	)
	if err != nil {
		return domain.NewStoreError(err)
	}
	return nil
}
