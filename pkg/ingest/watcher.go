package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jordanlanch/leadrouter/pkg/distribution"
	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/metrics"
	"github.com/jordanlanch/leadrouter/pkg/models"
)

// LeadStore is the persistence surface the watcher needs.
type LeadStore interface {
	Create(ctx context.Context, lead *models.Lead) (*models.Lead, error)
	ExistsBySourceFile(ctx context.Context, sourceFile string) (bool, error)
}

// Assigner triggers the automatic pipeline for freshly ingested leads.
type Assigner interface {
	AutoAssign(ctx context.Context, leadID string, ignoreDelay bool) (*distribution.Result, error)
}

// Stats counts what the watcher has seen since start.
type Stats struct {
	Running  bool  `json:"running"`
	Scanned  int64 `json:"scanned"`
	Ingested int64 `json:"ingested"`
	Skipped  int64 `json:"skipped"`
	Invalid  int64 `json:"invalid"`
}

// Watcher ingests lead files dropped into a directory. Only *.json files
// are considered; anything else is ignored. Files seen through filesystem
// events are held back for the configured delay before processing, so
// half-written uploads settle first.
type Watcher struct {
	dir      string
	delay    time.Duration
	leads    LeadStore
	assigner Assigner
	log      logger.Logger

	mu        sync.Mutex
	fsw       *fsnotify.Watcher
	timers    map[string]*time.Timer
	processed map[string]struct{}
	running   bool
	cancel    context.CancelFunc
	stats     Stats
}

// NewWatcher creates a watcher over dir.
func NewWatcher(dir string, delay time.Duration, leads LeadStore, assigner Assigner, log logger.Logger) *Watcher {
	return &Watcher{
		dir:       dir,
		delay:     delay,
		leads:     leads,
		assigner:  assigner,
		log:       log,
		timers:    make(map[string]*time.Timer),
		processed: make(map[string]struct{}),
	}
}

// Start begins watching the directory. Idempotent; a running watcher stays
// running.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel
	w.running = true
	w.stats.Running = true
	go w.loop(runCtx, fsw)

	w.log.Info("lead ingestion watcher started", "dir", w.dir, "delay", w.delay.String())
	return nil
}

// Stop halts watching and drops pending timers. Idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.cancel()
	w.fsw.Close()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
	w.running = false
	w.stats.Running = false
	w.log.Info("lead ingestion watcher stopped", "dir", w.dir)
}

// Stats returns a copy of the current counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Scan ingests every pending file in the directory right now, skipping the
// settle delay. The admin scan endpoint calls it. Returns how many leads
// were created.
func (w *Watcher) Scan(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".json") {
			continue
		}
		if w.processFile(ctx, filepath.Join(w.dir, entry.Name())) {
			created++
		}
	}
	return created, nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !strings.HasSuffix(strings.ToLower(event.Name), ".json") {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("ingestion watcher error", "error", err)
		}
	}
}

// schedule arms (or re-arms) the settle timer for one file. A write event
// on a file already waiting pushes its deadline out.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	if timer, ok := w.timers[path]; ok {
		timer.Reset(w.delay)
		return
	}
	w.timers[path] = time.AfterFunc(w.delay, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.processFile(ctx, path)
	})
}

// processFile validates and ingests one file. Returns true when a lead was
// created. Invalid or duplicate files are left in place and counted.
func (w *Watcher) processFile(ctx context.Context, path string) bool {
	name := filepath.Base(path)

	w.mu.Lock()
	if _, seen := w.processed[name]; seen {
		w.stats.Skipped++
		w.mu.Unlock()
		return false
	}
	w.stats.Scanned++
	w.mu.Unlock()

	exists, err := w.leads.ExistsBySourceFile(ctx, name)
	if err != nil {
		w.log.Error("failed checking ingestion dedup", "file", name, "error", err)
		return false
	}
	if exists {
		w.markProcessed(name)
		w.mu.Lock()
		w.stats.Skipped++
		w.mu.Unlock()
		return false
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		w.log.Error("failed reading lead file", "file", name, "error", err)
		return false
	}

	lead, err := ParseLeadFile(raw)
	if err != nil {
		w.markProcessed(name)
		w.mu.Lock()
		w.stats.Invalid++
		w.mu.Unlock()
		w.log.Warn("rejected invalid lead file", "file", name, "error", err)
		return false
	}
	lead.SourceFile = name

	created, err := w.leads.Create(ctx, lead)
	if err != nil {
		w.log.Error("failed persisting ingested lead", "file", name, "error", err)
		return false
	}
	w.markProcessed(name)
	w.mu.Lock()
	w.stats.Ingested++
	w.mu.Unlock()
	metrics.LeadsIngested.Inc()
	w.log.Info("lead ingested", "file", name, "lead_id", created.ID, "recovery", created.Recovery)

	if w.assigner != nil {
		if _, err := w.assigner.AutoAssign(ctx, created.ID, false); err != nil {
			w.log.Error("automatic assignment after ingestion failed", "lead_id", created.ID, "error", err)
		}
	}
	return true
}

func (w *Watcher) markProcessed(name string) {
	w.mu.Lock()
	w.processed[name] = struct{}{}
	w.mu.Unlock()
}
