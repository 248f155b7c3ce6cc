package presence

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/events"
	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/metrics"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

type fakeAgents struct {
	byID map[string]*models.Agent
}

func (f *fakeAgents) Get(_ context.Context, id string) (*models.Agent, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, domain.NewNotFoundError("agent")
	}
	return a, nil
}

func (f *fakeAgents) SetOnline(_ context.Context, id string, online bool) (*models.Agent, error) {
	a := f.byID[id]
	a.Online = online
	a.LastSeenAt = time.Now()
	return a, nil
}

func (f *fakeAgents) Heartbeat(_ context.Context, id string) error {
	f.byID[id].LastSeenAt = time.Now()
	return nil
}

func (f *fakeAgents) ListAvailable(_ context.Context, since time.Time, roles []string) ([]*models.Agent, error) {
	var out []*models.Agent
	for _, a := range f.byID {
		if !a.Online || a.LastSeenAt.Before(since) {
			continue
		}
		for _, r := range roles {
			if a.Role == r {
				out = append(out, a)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeAgents) ListRecentlyActive(_ context.Context, since time.Time) ([]*models.Agent, error) {
	var out []*models.Agent
	for _, a := range f.byID {
		if !a.LastSeenAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeSessions struct {
	open    map[string]bool
	seconds map[string]int64
}

func (f *fakeSessions) Open(_ context.Context, agentID string) error {
	f.open[agentID] = true
	return nil
}

func (f *fakeSessions) CloseOpen(_ context.Context, agentID string) error {
	delete(f.open, agentID)
	return nil
}

func (f *fakeSessions) SecondsToday(_ context.Context) (map[string]int64, error) {
	return f.seconds, nil
}

func newTestService(agents map[string]*models.Agent) (*Service, *fakeSessions, *events.Hub) {
	sessions := &fakeSessions{open: map[string]bool{}, seconds: map[string]int64{}}
	hub := events.NewHub()
	svc := NewService(&fakeAgents{byID: agents}, sessions, hub, logger.Default(), Options{})
	return svc, sessions, hub
}

func TestSetOnlineOpensSessionAndBroadcasts(t *testing.T) {
	svc, sessions, hub := newTestService(map[string]*models.Agent{
		"a1": {ID: "a1", Handle: "ana", Role: "agent"},
	})
	ch, cancel := hub.SubscribeAdmin()
	defer cancel()

	agent, err := svc.SetOnline(context.Background(), "a1", true)
	require.NoError(t, err)
	assert.True(t, agent.Online)
	assert.True(t, sessions.open["a1"])

	select {
	case ev := <-ch:
		assert.Equal(t, events.TypePresence, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("no presence broadcast")
	}
}

func TestSetOfflineClosesSession(t *testing.T) {
	svc, sessions, _ := newTestService(map[string]*models.Agent{
		"a1": {ID: "a1", Role: "agent", Online: true},
	})
	sessions.open["a1"] = true

	agent, err := svc.SetOnline(context.Background(), "a1", false)
	require.NoError(t, err)
	assert.False(t, agent.Online)
	assert.False(t, sessions.open["a1"])
}

func TestSetOnlineMovesOnlineGauge(t *testing.T) {
	svc, _, _ := newTestService(map[string]*models.Agent{
		"a1": {ID: "a1", Role: "agent"},
	})
	ctx := context.Background()
	base := testutil.ToFloat64(metrics.AgentsOnline)

	_, err := svc.SetOnline(ctx, "a1", true)
	require.NoError(t, err)
	assert.Equal(t, base+1, testutil.ToFloat64(metrics.AgentsOnline))

	// Repeating the same flag is not a transition.
	_, err = svc.SetOnline(ctx, "a1", true)
	require.NoError(t, err)
	assert.Equal(t, base+1, testutil.ToFloat64(metrics.AgentsOnline))

	_, err = svc.SetOnline(ctx, "a1", false)
	require.NoError(t, err)
	assert.Equal(t, base, testutil.ToFloat64(metrics.AgentsOnline))
}

func TestIsAvailableRequiresBothSignals(t *testing.T) {
	now := time.Now()
	svc, _, _ := newTestService(map[string]*models.Agent{
		"fresh": {ID: "fresh", Role: "agent", Online: true, LastSeenAt: now},
		"stale": {ID: "stale", Role: "agent", Online: true, LastSeenAt: now.Add(-10 * time.Minute)},
		"off":   {ID: "off", Role: "agent", Online: false, LastSeenAt: now},
		"other": {ID: "other", Role: "viewer", Online: true, LastSeenAt: now},
	})
	ctx := context.Background()

	ok, err := svc.IsAvailable(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)

	for _, id := range []string{"stale", "off", "other"} {
		ok, err := svc.IsAvailable(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok, id)
	}
}

func TestStatsMergesSessionSeconds(t *testing.T) {
	svc, sessions, _ := newTestService(map[string]*models.Agent{
		"a1": {ID: "a1", Handle: "ana", Name: "Ana", LastSeenAt: time.Now()},
	})
	sessions.seconds["a1"] = 3600

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.EqualValues(t, 3600, stats[0].SecondsOnlineToday)
}
