package boardsync

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

const (
	maxRetries     = 3
	requestTimeout = 10 * time.Second
)

// Service mirrors confirmed leads onto an external kanban board. Delivery
// is fire and forget: the confirm flow never waits on the board API and a
// board outage never fails a confirmation.
type Service struct {
	client        *http.Client
	base          string
	key           string
	token         string
	listConfirmed string
	log           logger.Logger
}

// NewService creates a board sync service. With an empty base URL or list
// id the service is disabled and every call is a no-op.
func NewService(base, key, token, listConfirmed string, log logger.Logger) *Service {
	return &Service{
		client:        &http.Client{Timeout: requestTimeout},
		base:          strings.TrimRight(base, "/"),
		key:           key,
		token:         token,
		listConfirmed: listConfirmed,
		log:           log,
	}
}

// Enabled reports whether the board integration is configured.
func (s *Service) Enabled() bool {
	return s.base != "" && s.listConfirmed != ""
}

// LeadConfirmed mirrors a confirmed lead as a card on the confirmed list.
func (s *Service) LeadConfirmed(lead *models.Lead) {
	if !s.Enabled() {
		return
	}
	title := fmt.Sprintf("%s (%s)", lead.Name, lead.Contact)
	desc := lead.Problem
	go s.deliverCard(s.listConfirmed, title, desc, lead.ID)
}

// deliverCard posts one card with exponential backoff. Failures are logged
// and dropped after the last attempt.
func (s *Service) deliverCard(listID, title, desc, leadID string) {
	form := url.Values{}
	form.Set("idList", listID)
	form.Set("name", title)
	form.Set("desc", desc)
	form.Set("key", s.key)
	form.Set("token", s.token)

	endpoint := s.base + "/cards"
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(1<<attempt) * time.Second)
		}
		if s.postCard(endpoint, form) {
			s.log.Info("lead mirrored to board", "lead_id", leadID, "list_id", listID)
			return
		}
	}
	s.log.Error("giving up mirroring lead to board", "lead_id", leadID, "attempts", maxRetries)
}

func (s *Service) postCard(endpoint string, form url.Values) bool {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		s.log.Error("failed building board request", "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("board request failed", "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true
	}
	s.log.Warn("board rejected card", "status", resp.StatusCode)
	return false
}
