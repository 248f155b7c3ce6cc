package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.APIPort)
	assert.Equal(t, time.Duration(0), cfg.AssignmentMinDelay)
	assert.Equal(t, 500, cfg.BatchAssignLimit)
	assert.Equal(t, 2*time.Minute, cfg.PresenceStaleness)
	assert.Equal(t, 30*time.Minute, cfg.RecentActivityWindow)
	assert.Equal(t, []string{"agent", "sales", "sales_admin"}, cfg.AgentRoles)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_ENVIRONMENT", "production")
	t.Setenv("ASSIGNMENT_MIN_DELAY", "10m")
	t.Setenv("BATCH_ASSIGN_LIMIT", "50")
	t.Setenv("AGENT_ROLES", "agent, closer")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 10*time.Minute, cfg.AssignmentMinDelay)
	assert.Equal(t, 50, cfg.BatchAssignLimit)
	assert.Equal(t, []string{"agent", "closer"}, cfg.AgentRoles)
	assert.False(t, cfg.RateLimitEnabled)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("BATCH_ASSIGN_LIMIT", "lots")
	t.Setenv("ASSIGNMENT_MIN_DELAY", "soon")

	cfg := Load()

	assert.Equal(t, 500, cfg.BatchAssignLimit)
	assert.Equal(t, time.Duration(0), cfg.AssignmentMinDelay)
}
