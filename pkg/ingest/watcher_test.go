package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/leadrouter/pkg/distribution"
	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

type memLeads struct {
	mu       sync.Mutex
	created  []*models.Lead
	byFile   map[string]bool
	assigned []string
}

func newMemLeads() *memLeads {
	return &memLeads{byFile: map[string]bool{}}
}

func (m *memLeads) Create(_ context.Context, lead *models.Lead) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lead.ID = uuid.NewString()
	m.created = append(m.created, lead)
	m.byFile[lead.SourceFile] = true
	return lead, nil
}

func (m *memLeads) ExistsBySourceFile(_ context.Context, sourceFile string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byFile[sourceFile], nil
}

func (m *memLeads) AutoAssign(_ context.Context, leadID string, _ bool) (*distribution.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assigned = append(m.assigned, leadID)
	return &distribution.Result{Outcome: distribution.OutcomeAssigned}, nil
}

func (m *memLeads) createdLeads() []*models.Lead {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Lead(nil), m.created...)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestParseLeadFile(t *testing.T) {
	t.Run("accepts case variants and keeps payload", func(t *testing.T) {
		raw := []byte(`{"Name":"Maria","CONTACT":"+5511999990000","problem":"billing","Rec":true,"extra":{"utm":"ads"}}`)
		lead, err := ParseLeadFile(raw)
		require.NoError(t, err)
		assert.Equal(t, "Maria", lead.Name)
		assert.Equal(t, "+5511999990000", lead.Contact)
		assert.Equal(t, "billing", lead.Problem)
		assert.True(t, lead.Recovery)
		assert.JSONEq(t, string(raw), string(lead.Payload))
	})

	t.Run("rejects missing required fields", func(t *testing.T) {
		cases := map[string]string{
			"no name":     `{"contact":"x","problem":"y","rec":false}`,
			"empty name":  `{"name":"  ","contact":"x","problem":"y","rec":false}`,
			"no contact":  `{"name":"a","problem":"y","rec":false}`,
			"no problem":  `{"name":"a","contact":"x","rec":false}`,
			"no rec flag": `{"name":"a","contact":"x","problem":"y"}`,
			"string rec":  `{"name":"a","contact":"x","problem":"y","rec":"yes"}`,
			"not object":  `[1,2,3]`,
		}
		for name, raw := range cases {
			_, err := ParseLeadFile([]byte(raw))
			assert.Error(t, err, name)
		}
	})

	t.Run("accepts recovery alias", func(t *testing.T) {
		lead, err := ParseLeadFile([]byte(`{"name":"a","contact":"x","problem":"y","recovery":true}`))
		require.NoError(t, err)
		assert.True(t, lead.Recovery)
	})
}

func TestScanIngestsAndAssigns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "maria.json", `{"name":"Maria","contact":"+55","problem":"billing","rec":false}`)
	writeFile(t, dir, "broken.json", `{"name":"NoContact","rec":false}`)
	writeFile(t, dir, "notes.txt", `ignore me`)

	leads := newMemLeads()
	w := NewWatcher(dir, 0, leads, leads, logger.Default())

	created, err := w.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	require.Len(t, leads.created, 1)
	assert.Equal(t, "maria.json", leads.created[0].SourceFile)
	assert.Len(t, leads.assigned, 1)

	stats := w.Stats()
	assert.EqualValues(t, 1, stats.Ingested)
	assert.EqualValues(t, 1, stats.Invalid)
}

func TestScanDedupesAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "maria.json", `{"name":"Maria","contact":"+55","problem":"billing","rec":false}`)

	leads := newMemLeads()
	w := NewWatcher(dir, 0, leads, nil, logger.Default())

	created, err := w.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	created, err = w.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Len(t, leads.created, 1)
}

func TestWatcherPicksUpDroppedFiles(t *testing.T) {
	dir := t.TempDir()
	leads := newMemLeads()
	w := NewWatcher(dir, 10*time.Millisecond, leads, nil, logger.Default())

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	writeFile(t, dir, "late.json", `{"name":"Late","contact":"+55","problem":"renewal","rec":true}`)

	require.Eventually(t, func() bool {
		return len(leads.createdLeads()) == 1
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, "late.json", leads.createdLeads()[0].SourceFile)
}

func TestWatcherStartStopIdempotent(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher(dir, time.Minute, newMemLeads(), nil, logger.Default())

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.Stats().Running)

	w.Stop()
	w.Stop()
	assert.False(t, w.Stats().Running)
}
