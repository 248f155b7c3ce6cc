package models

import (
	"encoding/json"
	"time"
)

// LeadStatus represents the lifecycle state of a lead.
type LeadStatus string

const (
	StatusAvailable LeadStatus = "available"
	StatusQueued    LeadStatus = "queued"
	StatusAssigned  LeadStatus = "assigned"
	StatusConfirmed LeadStatus = "confirmed"
	StatusDiscarded LeadStatus = "discarded"
)

// ValidLeadStatus reports whether s names a known lifecycle state.
func ValidLeadStatus(s string) bool {
	switch LeadStatus(s) {
	case StatusAvailable, StatusQueued, StatusAssigned, StatusConfirmed, StatusDiscarded:
		return true
	}
	return false
}

// Category classifies a lead for eligibility filtering.
type Category string

const (
	CategoryRecovery Category = "recovery"
	CategorySale     Category = "sale"
	// CategoryBoth is only valid on distribution configs, never on leads.
	CategoryBoth Category = "both"
)

// CategoryForRecovery maps a lead's recovery flag to its category.
func CategoryForRecovery(recovery bool) Category {
	if recovery {
		return CategoryRecovery
	}
	return CategorySale
}

// Lead is a sales prospect record. The validated field set is typed; any
// extra fields from the ingested file ride along in Payload as an opaque
// blob the core stores and forwards but never parses.
type Lead struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Contact         string          `json:"contact"`
	Problem         string          `json:"problem"`
	Recovery        bool            `json:"recovery"`
	Status          LeadStatus      `json:"status"`
	AssignedAgentID *string         `json:"assigned_agent_id,omitempty"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	SourceFile      string          `json:"source_file,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	AssignedAt      *time.Time      `json:"assigned_at,omitempty"`
	ConfirmedAt     *time.Time      `json:"confirmed_at,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Category derives the lead's distribution category from its recovery flag.
func (l *Lead) Category() Category {
	return CategoryForRecovery(l.Recovery)
}

// AssignMethod records how an assignment was made.
type AssignMethod string

const (
	MethodAutomatic AssignMethod = "automatic"
	MethodManual    AssignMethod = "manual"
)

// Algorithm records which selection strategy produced an assignment.
type Algorithm string

const (
	AlgorithmWeighted   Algorithm = "weighted"
	AlgorithmBalanced   Algorithm = "balanced"
	AlgorithmRoundRobin Algorithm = "round_robin"
	AlgorithmManual     Algorithm = "manual"
)

// AssignmentRecord is an append-only audit row; never mutated or deleted.
type AssignmentRecord struct {
	ID        string       `json:"id"`
	LeadID    string       `json:"lead_id"`
	AgentID   string       `json:"agent_id"`
	Method    AssignMethod `json:"method"`
	Algorithm Algorithm    `json:"algorithm"`
	CreatedAt time.Time    `json:"created_at"`
}

// DistributionStats aggregates today's assignment records.
type DistributionStats struct {
	Total     int            `json:"total"`
	Automatic int            `json:"automatic"`
	Manual    int            `json:"manual"`
	ByAgent   map[string]int `json:"by_agent"`
}

// BatchResult reports the aggregate outcome of a batch distribution run.
type BatchResult struct {
	Assigned int `json:"assigned"`
	Queued   int `json:"queued"`
	Errors   int `json:"errors"`
}
