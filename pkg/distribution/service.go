package distribution

import (
	"context"
	"time"

	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/events"
	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/metrics"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

// LeadStore is the lead persistence surface the service needs.
type LeadStore interface {
	Get(ctx context.Context, id string) (*models.Lead, error)
	AssignTo(ctx context.Context, leadID, agentID string) (*models.Lead, bool, error)
	MarkQueued(ctx context.Context, leadID string) error
	ListByStatus(ctx context.Context, status models.LeadStatus, minAge time.Duration, limit int) ([]*models.Lead, error)
	Requeue(ctx context.Context, leadID string) (*models.Lead, error)
	Confirm(ctx context.Context, leadID, agentID string) (*models.Lead, error)
	Discard(ctx context.Context, leadID, agentID string) (*models.Lead, error)
}

// ConfigStore reads and writes distribution weights and the global switch.
type ConfigStore interface {
	ListWeights(ctx context.Context) ([]*models.DistributionConfig, error)
	Upsert(ctx context.Context, agentID string, weight int, category models.Category) error
	AutoDistributionEnabled(ctx context.Context) (bool, error)
	SetAutoDistribution(ctx context.Context, enabled bool) error
}

// AssignmentStore records the audit trail.
type AssignmentStore interface {
	Record(ctx context.Context, leadID, agentID string, method models.AssignMethod, algorithm models.Algorithm) error
	CountToday(ctx context.Context) (map[string]int, error)
	StatsToday(ctx context.Context) (*models.DistributionStats, error)
}

// Presence answers who can receive leads right now.
type Presence interface {
	ListAvailable(ctx context.Context) ([]*models.Agent, error)
	Get(ctx context.Context, agentID string) (*models.Agent, error)
}

// Cache holds short-lived snapshots of the global switch.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// BoardNotifier mirrors confirmed leads to an external board.
type BoardNotifier interface {
	LeadConfirmed(lead *models.Lead)
}

// Outcome classifies how an automatic assignment attempt ended. Only
// OutcomeAssigned hands the lead to an agent; the rest are non-error
// terminal states of one attempt.
type Outcome string

const (
	OutcomeAssigned        Outcome = "assigned"
	OutcomeTooEarly        Outcome = "too_early"
	OutcomeDisabled        Outcome = "disabled"
	OutcomeNoEligible      Outcome = "no_eligible"
	OutcomeAlreadyAssigned Outcome = "already_assigned"
)

// Result reports one automatic assignment attempt.
type Result struct {
	Outcome   Outcome          `json:"outcome"`
	Lead      *models.Lead     `json:"lead,omitempty"`
	AgentID   string           `json:"agent_id,omitempty"`
	Algorithm models.Algorithm `json:"algorithm,omitempty"`
}

const enabledCacheKey = "distribution:auto_enabled"

// Options tunes the distribution pipeline.
type Options struct {
	// MinDelay is how long a lead must age before automatic assignment.
	MinDelay time.Duration
	// BatchLimit caps how many leads one batch run drains.
	BatchLimit int
	// BalancedFallback switches selection to fewest-assignments-today.
	BalancedFallback bool
	// CacheTTL bounds how stale the cached global switch may be.
	CacheTTL time.Duration
}

// Service runs the assignment pipeline. The guarded conditional update in
// the lead store is the only concurrency control; the service never locks
// around the draw, so two racing callers both reach AssignTo and exactly
// one wins.
type Service struct {
	leads       LeadStore
	configs     ConfigStore
	assignments AssignmentStore
	presence    Presence
	selector    *Selector
	hub         *events.Hub
	cache       Cache
	board       BoardNotifier
	log         logger.Logger
	opts        Options
}

// NewService creates a distribution service. cache and board may be nil.
func NewService(
	leads LeadStore,
	configs ConfigStore,
	assignments AssignmentStore,
	presence Presence,
	selector *Selector,
	hub *events.Hub,
	cache Cache,
	board BoardNotifier,
	log logger.Logger,
	opts Options,
) *Service {
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = 500
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Second
	}
	return &Service{
		leads:       leads,
		configs:     configs,
		assignments: assignments,
		presence:    presence,
		selector:    selector,
		hub:         hub,
		cache:       cache,
		board:       board,
		log:         log,
		opts:        opts,
	}
}

// Enabled reads the global automatic-distribution switch through a short
// cache window.
func (s *Service) Enabled(ctx context.Context) (bool, error) {
	if s.cache != nil {
		var cached bool
		if err := s.cache.Get(ctx, enabledCacheKey, &cached); err == nil {
			return cached, nil
		}
	}
	enabled, err := s.configs.AutoDistributionEnabled(ctx)
	if err != nil {
		return false, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, enabledCacheKey, enabled, s.opts.CacheTTL); err != nil {
			s.log.Warn("failed caching distribution switch", "error", err)
		}
	}
	return enabled, nil
}

// SetEnabled writes the global switch and drops the cached snapshot.
func (s *Service) SetEnabled(ctx context.Context, enabled bool) error {
	if err := s.configs.SetAutoDistribution(ctx, enabled); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, enabledCacheKey); err != nil {
			s.log.Warn("failed invalidating distribution switch cache", "error", err)
		}
	}
	s.log.Info("automatic distribution toggled", "enabled", enabled)
	return nil
}

// UpsertConfig saves an agent's weight and category.
func (s *Service) UpsertConfig(ctx context.Context, agentID string, weight int, category models.Category) error {
	return s.configs.Upsert(ctx, agentID, weight, category)
}

// ListConfigs returns the active distribution configs.
func (s *Service) ListConfigs(ctx context.Context) ([]*models.DistributionConfig, error) {
	return s.configs.ListWeights(ctx)
}

// eligible intersects available agents with positive-weight configs whose
// category admits the lead. Agents without a config row never receive
// automatic leads.
func (s *Service) eligible(ctx context.Context, category models.Category) ([]Candidate, error) {
	agents, err := s.presence.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	if len(agents) == 0 {
		return nil, nil
	}
	configs, err := s.configs.ListWeights(ctx)
	if err != nil {
		return nil, err
	}
	byAgent := make(map[string]*models.DistributionConfig, len(configs))
	for _, c := range configs {
		byAgent[c.AgentID] = c
	}

	var candidates []Candidate
	for _, a := range agents {
		c, ok := byAgent[a.ID]
		if !ok || !c.Matches(category) {
			continue
		}
		candidates = append(candidates, Candidate{ID: a.ID, Weight: c.Weight})
	}
	return candidates, nil
}

// pick draws one agent from the candidates, honoring the balanced fallback.
func (s *Service) pick(ctx context.Context, candidates []Candidate) (string, models.Algorithm, bool) {
	if s.opts.BalancedFallback && len(candidates) > 0 {
		counts, err := s.assignments.CountToday(ctx)
		if err != nil {
			s.log.Warn("balanced selection falling back to weighted", "error", err)
		} else {
			best := candidates[0]
			for _, c := range candidates[1:] {
				if counts[c.ID] < counts[best.ID] {
					best = c
				}
			}
			return best.ID, models.AlgorithmBalanced, true
		}
	}
	return s.selector.Pick(candidates)
}

// AutoAssign runs the automatic pipeline for one lead. ignoreDelay skips
// the dwell-time check, which batch runs use for queued backlogs.
func (s *Service) AutoAssign(ctx context.Context, leadID string, ignoreDelay bool) (*Result, error) {
	res, err := s.autoAssign(ctx, leadID, ignoreDelay)
	if res != nil {
		metrics.AssignmentOutcomes.WithLabelValues(string(res.Outcome)).Inc()
	}
	return res, err
}

func (s *Service) autoAssign(ctx context.Context, leadID string, ignoreDelay bool) (*Result, error) {
	lead, err := s.leads.Get(ctx, leadID)
	if err != nil {
		return nil, err
	}

	switch lead.Status {
	case models.StatusAvailable, models.StatusQueued:
	case models.StatusAssigned, models.StatusConfirmed:
		return &Result{Outcome: OutcomeAlreadyAssigned, Lead: lead}, nil
	default:
		return nil, domain.NewConflictError("lead is not distributable from its current state")
	}

	enabled, err := s.Enabled(ctx)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return &Result{Outcome: OutcomeDisabled, Lead: lead}, nil
	}

	if !ignoreDelay && s.opts.MinDelay > 0 && time.Since(lead.CreatedAt) < s.opts.MinDelay {
		if lead.Status == models.StatusAvailable {
			if err := s.leads.MarkQueued(ctx, lead.ID); err != nil && !domain.IsConflict(err) {
				return nil, err
			}
		}
		s.log.Info("lead too young for distribution", "lead_id", lead.ID)
		return &Result{Outcome: OutcomeTooEarly, Lead: lead}, nil
	}

	candidates, err := s.eligible(ctx, lead.Category())
	if err != nil {
		return nil, err
	}
	agentID, algorithm, ok := s.pick(ctx, candidates)
	if !ok {
		s.log.Info("no eligible agent for lead", "lead_id", lead.ID, "category", lead.Category())
		return &Result{Outcome: OutcomeNoEligible, Lead: lead}, nil
	}

	assigned, won, err := s.leads.AssignTo(ctx, lead.ID, agentID)
	if err != nil {
		return nil, err
	}
	if !won {
		// Another caller assigned it between our read and the guarded
		// update. That caller's assignment stands.
		return &Result{Outcome: OutcomeAlreadyAssigned, Lead: lead}, nil
	}

	if err := s.assignments.Record(ctx, assigned.ID, agentID, models.MethodAutomatic, algorithm); err != nil {
		s.log.Error("failed recording assignment audit row", "lead_id", assigned.ID, "error", err)
	}
	metrics.LeadsAssigned.WithLabelValues(string(models.MethodAutomatic), string(algorithm)).Inc()
	s.hub.NotifyAssigned(agentID, assigned)
	s.log.Info("lead assigned",
		"lead_id", assigned.ID, "agent_id", agentID,
		"method", models.MethodAutomatic, "algorithm", algorithm)

	return &Result{Outcome: OutcomeAssigned, Lead: assigned, AgentID: agentID, Algorithm: algorithm}, nil
}

// ManualAssign hands a lead to a chosen agent, bypassing weights, category
// filters, presence, the dwell time, and the global switch. The agent only
// has to exist; an operator may hand a lead to an offline agent.
func (s *Service) ManualAssign(ctx context.Context, leadID, agentID string) (*models.Lead, error) {
	if _, err := s.presence.Get(ctx, agentID); err != nil {
		return nil, err
	}

	assigned, won, err := s.leads.AssignTo(ctx, leadID, agentID)
	if err != nil {
		return nil, err
	}
	if !won {
		if _, getErr := s.leads.Get(ctx, leadID); getErr != nil {
			return nil, getErr
		}
		return nil, domain.NewAlreadyAssignedError(leadID)
	}

	if err := s.assignments.Record(ctx, assigned.ID, agentID, models.MethodManual, models.AlgorithmManual); err != nil {
		s.log.Error("failed recording assignment audit row", "lead_id", assigned.ID, "error", err)
	}
	metrics.LeadsAssigned.WithLabelValues(string(models.MethodManual), string(models.AlgorithmManual)).Inc()
	s.hub.NotifyAssigned(agentID, assigned)
	s.log.Info("lead assigned",
		"lead_id", assigned.ID, "agent_id", agentID,
		"method", models.MethodManual, "algorithm", models.AlgorithmManual)
	return assigned, nil
}

// BatchAssign drains a backlog of unassigned leads, oldest first, running
// the automatic pipeline per lead. Leads with no eligible agent are parked
// in the queued state; one bad lead never aborts the rest.
func (s *Service) BatchAssign(ctx context.Context, status models.LeadStatus, ignoreDelay bool) (*models.BatchResult, error) {
	if status != models.StatusAvailable && status != models.StatusQueued {
		return nil, domain.NewValidationError("batch status must be available or queued")
	}

	minAge := s.opts.MinDelay
	if ignoreDelay || status == models.StatusQueued {
		minAge = 0
	}
	leads, err := s.leads.ListByStatus(ctx, status, minAge, s.opts.BatchLimit)
	if err != nil {
		return nil, err
	}

	result := &models.BatchResult{}
	for _, lead := range leads {
		res, err := s.AutoAssign(ctx, lead.ID, ignoreDelay || status == models.StatusQueued)
		if err != nil {
			result.Errors++
			s.log.Error("batch assignment failed for lead", "lead_id", lead.ID, "error", err)
			continue
		}
		switch res.Outcome {
		case OutcomeAssigned:
			result.Assigned++
		case OutcomeNoEligible:
			if lead.Status == models.StatusAvailable {
				if err := s.leads.MarkQueued(ctx, lead.ID); err != nil && !domain.IsConflict(err) {
					result.Errors++
					continue
				}
			}
			result.Queued++
		case OutcomeTooEarly:
			result.Queued++
		case OutcomeDisabled:
			// The switch flipped mid-run; leave the rest untouched.
			s.log.Info("batch run stopped, distribution disabled",
				"assigned", result.Assigned, "queued", result.Queued)
			return result, nil
		}
	}

	s.log.Info("batch run finished", "status", status,
		"assigned", result.Assigned, "queued", result.Queued, "errors", result.Errors)
	return result, nil
}

// Requeue releases a lead back to the pool and tells the previous holder.
func (s *Service) Requeue(ctx context.Context, leadID string) (*models.Lead, error) {
	before, err := s.leads.Get(ctx, leadID)
	if err != nil {
		return nil, err
	}
	lead, err := s.leads.Requeue(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if before.AssignedAgentID != nil {
		s.hub.Publish(*before.AssignedAgentID, events.Event{Type: events.TypeLeadRequeued, Data: lead})
	}
	metrics.LeadsRequeued.Inc()
	s.log.Info("lead requeued", "lead_id", leadID)
	return lead, nil
}

// Confirm closes a lead as won by its holder and mirrors it to the board.
func (s *Service) Confirm(ctx context.Context, leadID, agentID string) (*models.Lead, error) {
	lead, err := s.leads.Confirm(ctx, leadID, agentID)
	if err != nil {
		return nil, err
	}
	if s.board != nil {
		s.board.LeadConfirmed(lead)
	}
	s.log.Info("lead confirmed", "lead_id", leadID, "agent_id", agentID)
	return lead, nil
}

// Discard marks a lead as rejected by its holder.
func (s *Service) Discard(ctx context.Context, leadID, agentID string) (*models.Lead, error) {
	lead, err := s.leads.Discard(ctx, leadID, agentID)
	if err != nil {
		return nil, err
	}
	s.log.Info("lead discarded", "lead_id", leadID, "agent_id", agentID)
	return lead, nil
}

// Stats aggregates today's assignment audit rows.
func (s *Service) Stats(ctx context.Context) (*models.DistributionStats, error) {
	return s.assignments.StatsToday(ctx)
}
