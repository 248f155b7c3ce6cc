package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func leadRows(id string, status models.LeadStatus, agentID *string) *pgxmock.Rows {
	now := time.Now()
	var assignedAt *time.Time
	if agentID != nil {
		assignedAt = &now
	}
	return pgxmock.NewRows([]string{
		"id", "name", "contact", "problem", "recovery", "status", "assigned_agent_id",
		"payload", "source_file", "created_at", "assigned_at", "confirmed_at", "updated_at",
	}).AddRow(
		id, "Maria", "+5511999990000", "billing", false, status, agentID,
		[]byte(`{"name":"Maria"}`), "maria.json", now, assignedAt, (*time.Time)(nil), now,
	)
}

func TestLeadStoreAssignTo(t *testing.T) {
	t.Run("wins the race", func(t *testing.T) {
		mock := newMockPool(t)
		agentID := "agent-1"
		mock.ExpectQuery(`UPDATE leads`).
			WithArgs(agentID, "lead-1").
			WillReturnRows(leadRows("lead-1", models.StatusAssigned, &agentID))

		s := NewLeadStore(mock)
		lead, ok, err := s.AssignTo(context.Background(), "lead-1", agentID)
		require.NoError(t, err)
		assert.True(t, ok)
		require.NotNil(t, lead)
		assert.Equal(t, models.StatusAssigned, lead.Status)
		require.NotNil(t, lead.AssignedAgentID)
		assert.Equal(t, agentID, *lead.AssignedAgentID)
	})

	t.Run("loses the race returns ok=false without error", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`UPDATE leads`).
			WithArgs("agent-2", "lead-1").
			WillReturnRows(pgxmock.NewRows([]string{"id"}))

		s := NewLeadStore(mock)
		lead, ok, err := s.AssignTo(context.Background(), "lead-1", "agent-2")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, lead)
	})
}

func TestLeadStoreMarkQueued(t *testing.T) {
	t.Run("moves available lead to queued", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE leads SET status = 'queued'`).
			WithArgs("lead-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		s := NewLeadStore(mock)
		require.NoError(t, s.MarkQueued(context.Background(), "lead-1"))
	})

	t.Run("rejects non-available lead", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`UPDATE leads SET status = 'queued'`).
			WithArgs("lead-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		s := NewLeadStore(mock)
		err := s.MarkQueued(context.Background(), "lead-1")
		assert.True(t, domain.IsConflict(err))
	})
}

func TestLeadStoreConfirmOwnership(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(`UPDATE leads`).
		WithArgs("lead-1", "intruder").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	s := NewLeadStore(mock)
	_, err := s.Confirm(context.Background(), "lead-1", "intruder")
	assert.True(t, domain.IsConflict(err))
}

func TestLeadStoreRequeueClearsHolder(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(`UPDATE leads`).
		WithArgs("lead-1").
		WillReturnRows(leadRows("lead-1", models.StatusAvailable, nil))

	s := NewLeadStore(mock)
	lead, err := s.Requeue(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAvailable, lead.Status)
	assert.Nil(t, lead.AssignedAgentID)
}

func TestLeadStoreGetNotFound(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(`SELECT .+ FROM leads WHERE id`).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	s := NewLeadStore(mock)
	_, err := s.Get(context.Background(), "missing")
	assert.True(t, domain.IsNotFound(err))
}

func TestAgentStoreListAvailable(t *testing.T) {
	mock := newMockPool(t)
	since := time.Now().Add(-2 * time.Minute)
	roles := []string{"agent", "sales"}
	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM agents`).
		WithArgs(since, roles).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "handle", "name", "role", "online", "password_hash", "last_seen_at", "created_at",
		}).
			AddRow("a1", "ana", "Ana", "agent", true, "", now, now).
			AddRow("a2", "bia", "Bia", "sales", true, "", now.Add(-time.Minute), now))

	s := NewAgentStore(mock)
	agents, err := s.ListAvailable(context.Background(), since, roles)
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "a1", agents[0].ID)
}

func TestConfigStoreListWeightsExcludesZero(t *testing.T) {
	mock := newMockPool(t)
	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM distribution_configs`).
		WillReturnRows(pgxmock.NewRows([]string{
			"agent_id", "name", "weight", "category", "updated_at",
		}).AddRow("a1", "Ana", 3, models.CategoryBoth, now))

	s := NewConfigStore(mock)
	configs, err := s.ListWeights(context.Background())
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, 3, configs[0].Weight)
}

func TestConfigStoreAutoDistributionDefaultsOff(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(`SELECT value FROM system_configs`).
		WithArgs("auto_distribution_enabled").
		WillReturnRows(pgxmock.NewRows([]string{"value"}))

	s := NewConfigStore(mock)
	enabled, err := s.AutoDistributionEnabled(context.Background())
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestConfigStoreAutoDistributionBadValueIsOff(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(`SELECT value FROM system_configs`).
		WithArgs("auto_distribution_enabled").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("maybe"))

	s := NewConfigStore(mock)
	enabled, err := s.AutoDistributionEnabled(context.Background())
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestAssignmentStoreStatsToday(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(`SELECT agent_id, method, count`).
		WillReturnRows(pgxmock.NewRows([]string{"agent_id", "method", "count"}).
			AddRow("a1", models.MethodAutomatic, 4).
			AddRow("a1", models.MethodManual, 1).
			AddRow("a2", models.MethodAutomatic, 2))

	s := NewAssignmentStore(mock)
	stats, err := s.StatsToday(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Total)
	assert.Equal(t, 6, stats.Automatic)
	assert.Equal(t, 1, stats.Manual)
	assert.Equal(t, 5, stats.ByAgent["a1"])
	assert.Equal(t, 2, stats.ByAgent["a2"])
}

func TestSessionStoreCloseStale(t *testing.T) {
	mock := newMockPool(t)
	cutoff := time.Now().Add(-2 * time.Minute)
	mock.ExpectExec(`UPDATE online_sessions`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	s := NewSessionStore(mock)
	closed, err := s.CloseStale(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 3, closed)
}
