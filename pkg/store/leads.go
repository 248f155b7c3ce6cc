package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jordanlanch/leadrouter/pkg/database"
	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

const leadColumns = `id, name, contact, problem, recovery, status, assigned_agent_id,
	payload, source_file, created_at, assigned_at, confirmed_at, updated_at`

// LeadStore persists leads and performs the guarded state transitions.
type LeadStore struct {
	pool database.Pool
}

// NewLeadStore creates a lead store backed by the given pool.
func NewLeadStore(pool database.Pool) *LeadStore {
	return &LeadStore{pool: pool}
}

func scanLead(row pgx.Row) (*models.Lead, error) {
	var l models.Lead
	err := row.Scan(
		&l.ID, &l.Name, &l.Contact, &l.Problem, &l.Recovery, &l.Status,
		&l.AssignedAgentID, &l.Payload, &l.SourceFile,
		&l.CreatedAt, &l.AssignedAt, &l.ConfirmedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a new lead in the available state.
func (s *LeadStore) Create(ctx context.Context, lead *models.Lead) (*models.Lead, error) {
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.Status == "" {
		lead.Status = models.StatusAvailable
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO leads (id, name, contact, problem, recovery, status, payload, source_file)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+leadColumns,
		lead.ID, lead.Name, lead.Contact, lead.Problem, lead.Recovery,
		lead.Status, lead.Payload, lead.SourceFile,
	)
	created, err := scanLead(row)
	if err != nil {
		return nil, domain.NewStoreError(err)
	}
	return created, nil
}

// Get fetches a lead by id.
func (s *LeadStore) Get(ctx context.Context, id string) (*models.Lead, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewNotFoundError("lead")
	}
	if err != nil {
		return nil, domain.NewStoreError(err)
	}
	return lead, nil
}

// AssignTo performs the guarded conditional update that makes assignment
// at-most-once. The WHERE clause only matches a lead that nobody holds;
// zero rows means another caller won the race. The boolean result
// distinguishes that from a real error.
func (s *LeadStore) AssignTo(ctx context.Context, leadID, agentID string) (*models.Lead, bool, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = 'assigned', assigned_agent_id = $1, assigned_at = now(), updated_at = now()
		WHERE id = $2
		  AND assigned_agent_id IS NULL
		  AND status NOT IN ('assigned', 'confirmed')
		RETURNING `+leadColumns,
		agentID, leadID,
	)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.NewStoreError(err)
	}
	return lead, true, nil
}

// MarkQueued moves an available lead into the queued backlog. Leads in any
// other state are left alone.
func (s *LeadStore) MarkQueued(ctx context.Context, leadID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE leads SET status = 'queued', updated_at = now()
		WHERE id = $1 AND status = 'available'`,
		leadID,
	)
	if err != nil {
		return domain.NewStoreError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewConflictError("lead is not available")
	}
	return nil
}

// ListByStatus returns unassigned leads in the given state, oldest first,
// skipping leads younger than minAge. A zero minAge admits everything.
func (s *LeadStore) ListByStatus(ctx context.Context, status models.LeadStatus, minAge time.Duration, limit int) ([]*models.Lead, error) {
	threshold := time.Now().Add(-minAge)
	rows, err := s.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE status = $1 AND assigned_agent_id IS NULL AND created_at <= $2
		ORDER BY created_at ASC
		LIMIT $3`,
		status, threshold, limit,
	)
	if err != nil {
		return nil, domain.NewStoreError(err)
	}
	defer rows.Close()
	return collectLeads(rows)
}

// ListByAgent returns the leads currently held by an agent, newest first.
func (s *LeadStore) ListByAgent(ctx context.Context, agentID string) ([]*models.Lead, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE assigned_agent_id = $1 AND status IN ('assigned', 'confirmed')
		ORDER BY assigned_at DESC`,
		agentID,
	)
	if err != nil {
		return nil, domain.NewStoreError(err)
	}
	defer rows.Close()
	return collectLeads(rows)
}

// ListDiscarded returns discarded leads, newest first.
func (s *LeadStore) ListDiscarded(ctx context.Context, limit int) ([]*models.Lead, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE status = 'discarded'
		ORDER BY updated_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, domain.NewStoreError(err)
	}
	defer rows.Close()
	return collectLeads(rows)
}

// Requeue releases an assigned lead back to the pool, clearing the holder.
func (s *LeadStore) Requeue(ctx context.Context, leadID string) (*models.Lead, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = 'available', assigned_agent_id = NULL, assigned_at = NULL, updated_at = now()
		WHERE id = $1 AND status IN ('assigned', 'discarded')
		RETURNING `+leadColumns,
		leadID,
	)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewConflictError("lead cannot be requeued from its current state")
	}
	if err != nil {
		return nil, domain.NewStoreError(err)
	}
	return lead, nil
}

// Confirm marks an assigned lead as confirmed by its holder. The agent
// check in the WHERE clause keeps agents from confirming each other's leads.
func (s *LeadStore) Confirm(ctx context.Context, leadID, agentID string) (*models.Lead, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = 'confirmed', confirmed_at = now(), updated_at = now()
		WHERE id = $1 AND assigned_agent_id = $2 AND status = 'assigned'
		RETURNING `+leadColumns,
		leadID, agentID,
	)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewConflictError("lead is not assigned to this agent")
	}
	if err != nil {
		return nil, domain.NewStoreError(err)
	}
	return lead, nil
}

// Discard marks an assigned lead as discarded by its holder.
func (s *LeadStore) Discard(ctx context.Context, leadID, agentID string) (*models.Lead, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = 'discarded', updated_at = now()
		WHERE id = $1 AND assigned_agent_id = $2 AND status = 'assigned'
		RETURNING `+leadColumns,
		leadID, agentID,
	)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewConflictError("lead is not assigned to this agent")
	}
	if err != nil {
		return nil, domain.NewStoreError(err)
	}
	return lead, nil
}

// CountByStatus returns the number of leads per lifecycle state.
func (s *LeadStore) CountByStatus(ctx context.Context) (map[models.LeadStatus]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, count(*) FROM leads GROUP BY status`)
	if err != nil {
		return nil, domain.NewStoreError(err)
	}
	defer rows.Close()

	counts := make(map[models.LeadStatus]int)
	for rows.Next() {
		var status models.LeadStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.NewStoreError(err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError(err)
	}
	return counts, nil
}

// ExistsBySourceFile reports whether a lead from the given file was already
// ingested. The ingestion watcher uses it to dedupe across restarts.
func (s *LeadStore) ExistsBySourceFile(ctx context.Context, sourceFile string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM leads WHERE source_file = $1)`, sourceFile,
	).Scan(&exists)
	if err != nil {
		return false, domain.NewStoreError(err)
	}
	return exists, nil
}

func collectLeads(rows pgx.Rows) ([]*models.Lead, error) {
	var leads []*models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, domain.NewStoreError(err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError(err)
	}
	return leads, nil
}
