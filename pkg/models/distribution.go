package models

import "time"

// DistributionConfig holds the per-agent assignment weight and category
// filter. One row per agent, latest write wins.
type DistributionConfig struct {
	AgentID   string    `json:"agent_id"`
	AgentName string    `json:"agent_name"`
	Weight    int       `json:"weight"`
	Category  Category  `json:"category"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Matches reports whether the config admits leads of the given category.
func (c *DistributionConfig) Matches(category Category) bool {
	return c.Category == CategoryBoth || c.Category == category
}

// UpsertConfigRequest is the admin payload for saving an agent's
// distribution configuration.
type UpsertConfigRequest struct {
	AgentID  string `json:"agent_id" validate:"required"`
	Weight   int    `json:"weight" validate:"min=0,max=100"`
	Category string `json:"category" validate:"required,oneof=recovery sale both"`
}

// ManualAssignRequest is the admin payload for operator-assigned leads.
type ManualAssignRequest struct {
	LeadID  string `json:"lead_id" validate:"required"`
	AgentID string `json:"agent_id" validate:"required"`
}

// AutoAssignRequest triggers the automatic pipeline for one lead.
type AutoAssignRequest struct {
	LeadID string `json:"lead_id" validate:"required"`
}

// BatchAssignRequest selects which backlog a batch run drains.
type BatchAssignRequest struct {
	Status      string `json:"status" validate:"omitempty,oneof=available queued"`
	IgnoreDelay bool   `json:"ignore_delay"`
}

// LeadActionRequest identifies a lead for confirm/discard/requeue actions.
type LeadActionRequest struct {
	LeadID string `json:"lead_id" validate:"required"`
}

// SetOnlineRequest toggles the caller's explicit online flag.
type SetOnlineRequest struct {
	Online *bool `json:"online" validate:"required"`
}
