package models

import "time"

// Agent is a sales representative capable of receiving leads.
type Agent struct {
	ID           string    `json:"id"`
	Handle       string    `json:"handle"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Online       bool      `json:"online"`
	LastSeenAt   time.Time `json:"last_seen_at"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// AgentSnapshot is the presence view of an agent returned by toggle/list
// operations; it never carries credentials.
type AgentSnapshot struct {
	ID         string    `json:"id"`
	Handle     string    `json:"handle"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	Online     bool      `json:"online"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Snapshot converts an agent into its presence view.
func (a *Agent) Snapshot() AgentSnapshot {
	return AgentSnapshot{
		ID:         a.ID,
		Handle:     a.Handle,
		Name:       a.Name,
		Role:       a.Role,
		Online:     a.Online,
		LastSeenAt: a.LastSeenAt,
	}
}

// PresenceStat reports accumulated online time for one agent.
type PresenceStat struct {
	AgentID            string `json:"agent_id"`
	Handle             string `json:"handle"`
	Name               string `json:"name"`
	SecondsOnlineToday int64  `json:"seconds_online_today"`
}
