package events

import (
	"sync"

	"github.com/jordanlanch/leadrouter/pkg/metrics"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

// Event is one notification pushed to a subscriber.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Lead event types.
const (
	TypeLeadAssigned = "lead_assigned"
	TypeLeadRequeued = "lead_requeued"
	TypePresence     = "presence"
)

const subscriberBuffer = 16

// Hub fans events out to per-agent subscribers and an admin broadcast
// stream. Delivery is fire and forget: a subscriber whose buffer is full
// misses the event rather than blocking the publisher.
type Hub struct {
	mu     sync.RWMutex
	agents map[string]map[chan Event]struct{}
	admins map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		agents: make(map[string]map[chan Event]struct{}),
		admins: make(map[chan Event]struct{}),
	}
}

// Subscribe registers a channel for one agent. The same agent may hold
// several subscriptions at once, one per open browser tab. The returned
// cancel func removes and closes the channel.
func (h *Hub) Subscribe(agentID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.agents[agentID]
	if !ok {
		set = make(map[chan Event]struct{})
		h.agents[agentID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.agents[agentID]; ok {
			if _, present := set[ch]; present {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.agents, agentID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish sends an event to every subscription of one agent.
func (h *Hub) Publish(agentID string, ev Event) {
	metrics.NotificationsPublished.Inc()
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.agents[agentID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// NotifyAssigned pushes a lead_assigned event to the receiving agent.
func (h *Hub) NotifyAssigned(agentID string, lead *models.Lead) {
	h.Publish(agentID, Event{Type: TypeLeadAssigned, Data: lead})
}

// SubscribeAdmin registers a channel on the admin broadcast stream.
func (h *Hub) SubscribeAdmin() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.admins[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, present := h.admins[ch]; present {
			delete(h.admins, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// BroadcastAdmin sends an event to every admin subscriber.
func (h *Hub) BroadcastAdmin(ev Event) {
	metrics.NotificationsPublished.Inc()
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.admins {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount reports how many subscriptions one agent holds.
func (h *Hub) SubscriberCount(agentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.agents[agentID])
}
