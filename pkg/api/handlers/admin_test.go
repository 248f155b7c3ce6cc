package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/leadrouter/pkg/distribution"
	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/events"
	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

type stubLeadStore struct{}

func (stubLeadStore) Get(context.Context, string) (*models.Lead, error) { return nil, nil }
func (stubLeadStore) AssignTo(context.Context, string, string) (*models.Lead, bool, error) {
	return nil, false, nil
}
func (stubLeadStore) MarkQueued(context.Context, string) error { return nil }
func (stubLeadStore) ListByStatus(context.Context, models.LeadStatus, time.Duration, int) ([]*models.Lead, error) {
	return nil, nil
}
func (stubLeadStore) Requeue(context.Context, string) (*models.Lead, error) { return nil, nil }
func (stubLeadStore) Confirm(context.Context, string, string) (*models.Lead, error) {
	return nil, nil
}
func (stubLeadStore) Discard(context.Context, string, string) (*models.Lead, error) {
	return nil, nil
}

type stubConfigStore struct {
	enabled bool
	configs []*models.DistributionConfig
}

func (s *stubConfigStore) ListWeights(context.Context) ([]*models.DistributionConfig, error) {
	return s.configs, nil
}
func (s *stubConfigStore) Upsert(_ context.Context, agentID string, weight int, category models.Category) error {
	s.configs = append(s.configs, &models.DistributionConfig{AgentID: agentID, Weight: weight, Category: category})
	return nil
}
func (s *stubConfigStore) AutoDistributionEnabled(context.Context) (bool, error) {
	return s.enabled, nil
}
func (s *stubConfigStore) SetAutoDistribution(_ context.Context, enabled bool) error {
	s.enabled = enabled
	return nil
}

type stubAssignments struct{}

func (stubAssignments) Record(context.Context, string, string, models.AssignMethod, models.Algorithm) error {
	return nil
}
func (stubAssignments) CountToday(context.Context) (map[string]int, error) { return nil, nil }
func (stubAssignments) StatsToday(context.Context) (*models.DistributionStats, error) {
	return &models.DistributionStats{ByAgent: map[string]int{}}, nil
}

type stubPresence struct{}

func (stubPresence) ListAvailable(context.Context) ([]*models.Agent, error) { return nil, nil }
func (stubPresence) Get(context.Context, string) (*models.Agent, error) {
	return nil, domain.NewNotFoundError("agent")
}

func newAdminFixture(t *testing.T) (*AdminHandler, *stubConfigStore, *echo.Echo) {
	t.Helper()
	configs := &stubConfigStore{enabled: true}
	distributor := distribution.NewService(
		stubLeadStore{}, configs, stubAssignments{}, stubPresence{},
		distribution.NewSelector(), events.NewHub(), nil, nil,
		logger.Default(), distribution.Options{},
	)
	h := NewAdminHandler(distributor, nil, nil, events.NewHub(), nil, logger.Default())

	e := echo.New()
	e.Validator = testValidator{}
	return h, configs, e
}

func TestToggleFlipsSwitch(t *testing.T) {
	h, configs, e := newAdminFixture(t)

	c, rec := postJSON(e, "/admin/distribution/toggle", `{"enabled":false}`)
	require.NoError(t, h.Toggle(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, configs.enabled)
	assert.JSONEq(t, `{"enabled":false}`, rec.Body.String())
}

func TestStatusReportsSwitch(t *testing.T) {
	h, _, e := newAdminFixture(t)

	req, rec := getAs(e, "/admin/distribution/status", "admin")
	require.NoError(t, h.Status(req))
	assert.JSONEq(t, `{"enabled":true}`, rec.Body.String())
}

func TestUpsertConfigPersists(t *testing.T) {
	h, configs, e := newAdminFixture(t)

	c, rec := postJSON(e, "/admin/distribution/config", `{"agent_id":"a1","weight":5,"category":"both"}`)
	require.NoError(t, h.UpsertConfig(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, configs.configs, 1)
	assert.Equal(t, 5, configs.configs[0].Weight)
}

func TestBatchAssignDefaultsToAvailable(t *testing.T) {
	h, _, e := newAdminFixture(t)

	c, rec := postJSON(e, "/admin/distribution/batch", `{}`)
	require.NoError(t, h.BatchAssign(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"assigned":0,"queued":0,"errors":0}`, rec.Body.String())
}

func TestManualAssignUnknownAgentIsNotFound(t *testing.T) {
	h, _, e := newAdminFixture(t)

	c, rec := postJSON(e, "/admin/distribution/assign", `{"lead_id":"lead-1","agent_id":"ghost"}`)
	require.NoError(t, h.ManualAssign(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
