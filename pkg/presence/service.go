package presence

import (
	"context"
	"time"

	"github.com/jordanlanch/leadrouter/pkg/events"
	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/metrics"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

// AgentStore is the agent persistence surface the presence service needs.
type AgentStore interface {
	Get(ctx context.Context, id string) (*models.Agent, error)
	SetOnline(ctx context.Context, id string, online bool) (*models.Agent, error)
	Heartbeat(ctx context.Context, id string) error
	ListAvailable(ctx context.Context, since time.Time, roles []string) ([]*models.Agent, error)
	ListRecentlyActive(ctx context.Context, since time.Time) ([]*models.Agent, error)
}

// SessionStore tracks the online time accounting.
type SessionStore interface {
	Open(ctx context.Context, agentID string) error
	CloseOpen(ctx context.Context, agentID string) error
	SecondsToday(ctx context.Context) (map[string]int64, error)
}

// Service tracks who can receive leads right now. An agent is available
// when it is explicitly online AND its heartbeat is fresher than the
// staleness window; either signal alone is not enough.
type Service struct {
	agents    AgentStore
	sessions  SessionStore
	hub       *events.Hub
	log       logger.Logger
	staleness time.Duration
	recent    time.Duration
	roles     []string
	now       func() time.Time
}

// Options configures the presence windows and eligible roles.
type Options struct {
	Staleness    time.Duration
	RecentWindow time.Duration
	Roles        []string
}

// NewService creates a presence service.
func NewService(agents AgentStore, sessions SessionStore, hub *events.Hub, log logger.Logger, opts Options) *Service {
	if opts.Staleness <= 0 {
		opts.Staleness = 2 * time.Minute
	}
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = 30 * time.Minute
	}
	if len(opts.Roles) == 0 {
		opts.Roles = []string{"agent", "sales", "sales_admin"}
	}
	return &Service{
		agents:    agents,
		sessions:  sessions,
		hub:       hub,
		log:       log,
		staleness: opts.Staleness,
		recent:    opts.RecentWindow,
		roles:     opts.Roles,
		now:       time.Now,
	}
}

// SetOnline flips an agent's explicit presence flag, keeps the session
// ledger in step, and broadcasts the change to admin watchers.
func (s *Service) SetOnline(ctx context.Context, agentID string, online bool) (*models.Agent, error) {
	prev, err := s.agents.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}

	agent, err := s.agents.SetOnline(ctx, agentID, online)
	if err != nil {
		return nil, err
	}
	// The gauge moves only on a real transition; repeating the same flag
	// is a no-op.
	if prev.Online != online {
		if online {
			metrics.AgentsOnline.Inc()
		} else {
			metrics.AgentsOnline.Dec()
		}
	}

	if online {
		err = s.sessions.Open(ctx, agentID)
	} else {
		err = s.sessions.CloseOpen(ctx, agentID)
	}
	if err != nil {
		// The flag already flipped; a broken session row only skews the
		// time stats, so log and carry on.
		s.log.Warn("presence session update failed", "agent_id", agentID, "error", err)
	}

	s.hub.BroadcastAdmin(events.Event{Type: events.TypePresence, Data: agent.Snapshot()})
	s.log.Info("agent presence changed", "agent_id", agentID, "online", online)
	return agent, nil
}

// Get returns one agent by id.
func (s *Service) Get(ctx context.Context, agentID string) (*models.Agent, error) {
	return s.agents.Get(ctx, agentID)
}

// Heartbeat refreshes an agent's last activity timestamp.
func (s *Service) Heartbeat(ctx context.Context, agentID string) error {
	return s.agents.Heartbeat(ctx, agentID)
}

// ListAvailable returns agents eligible to receive leads right now.
func (s *Service) ListAvailable(ctx context.Context) ([]*models.Agent, error) {
	since := s.now().Add(-s.staleness)
	return s.agents.ListAvailable(ctx, since, s.roles)
}

// IsAvailable reports whether one agent can receive automatic leads right
// now. Manual assignment does not consult it; operators may target offline
// agents.
func (s *Service) IsAvailable(ctx context.Context, agentID string) (bool, error) {
	agent, err := s.agents.Get(ctx, agentID)
	if err != nil {
		return false, err
	}
	if !agent.Online {
		return false, nil
	}
	for _, role := range s.roles {
		if agent.Role == role {
			return agent.LastSeenAt.After(s.now().Add(-s.staleness)), nil
		}
	}
	return false, nil
}

// RecentlyActive returns the dashboard view: anyone with activity inside
// the recent window, online or not.
func (s *Service) RecentlyActive(ctx context.Context) ([]models.AgentSnapshot, error) {
	since := s.now().Add(-s.recent)
	agents, err := s.agents.ListRecentlyActive(ctx, since)
	if err != nil {
		return nil, err
	}
	snapshots := make([]models.AgentSnapshot, 0, len(agents))
	for _, a := range agents {
		snapshots = append(snapshots, a.Snapshot())
	}
	return snapshots, nil
}

// Stats reports accumulated online seconds per recently active agent.
func (s *Service) Stats(ctx context.Context) ([]models.PresenceStat, error) {
	agents, err := s.agents.ListRecentlyActive(ctx, s.now().Add(-s.recent))
	if err != nil {
		return nil, err
	}
	seconds, err := s.sessions.SecondsToday(ctx)
	if err != nil {
		return nil, err
	}
	stats := make([]models.PresenceStat, 0, len(agents))
	for _, a := range agents {
		stats = append(stats, models.PresenceStat{
			AgentID:            a.ID,
			Handle:             a.Handle,
			Name:               a.Name,
			SecondsOnlineToday: seconds[a.ID],
		})
	}
	return stats, nil
}
