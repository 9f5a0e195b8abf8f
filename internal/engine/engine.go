// Package engine composes the record store, filter/sort pipeline,
// ingestion scheduler, and stats syncer into the live feed surface the
// dashboard consumes.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/feed"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/metrics"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/models"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/notify"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/scheduler"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/statssync"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/store"
)

// RecordSource is the consumed records-fetch capability.
type RecordSource interface {
	FetchRecordsPage(ctx context.Context, page, size int) (*models.RecordPage, error)
}

// EventSimulator is the optional simulate-new-event capability used by
// the ingestion cycle in simulation mode.
type EventSimulator interface {
	SimulateNewEvent(ctx context.Context) (*models.EventRecord, error)
}

// Options tune engine construction. The zero value is usable.
type Options struct {
	PageSize  int
	Simulator EventSimulator // nil disables the simulation step
	Notifier  notify.Notifier
	Scheduler scheduler.Config
	Cache     statssync.SnapshotCache
	Clock     func() time.Time
}

// Engine is the live security-event feed. All exported methods are safe
// for concurrent use.
type Engine struct {
	source  RecordSource
	sim     EventSimulator
	store   *store.RecordStore
	deriver *feed.Deriver
	sched   *scheduler.Scheduler
	stats   *statssync.Syncer
	hub     *notify.Hub
	notify  notify.Notifier
	clock   func() time.Time

	mu       sync.Mutex
	criteria models.FilterCriteria
	sort     models.SortSpec
	page     models.Page
	lastIDs  []string
	closed   bool
}

// New wires an Engine from a record source and a stats source.
func New(source RecordSource, statsSource statssync.StatsSource, opts Options) *Engine {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	st := store.New()
	hub := notify.NewHub()

	var notifier notify.Notifier = hub
	if opts.Notifier != nil {
		notifier = notify.Multi{hub, opts.Notifier}
	}

	e := &Engine{
		source:  source,
		sim:     opts.Simulator,
		store:   st,
		deriver: feed.NewDeriver(opts.Clock),
		stats:   statssync.New(statsSource, st, opts.Cache),
		hub:     hub,
		notify:  notifier,
		clock:   opts.Clock,
		sort:    models.DefaultSort(),
		page:    models.Page{Number: 1, Size: opts.PageSize},
	}

	e.sched = scheduler.New(e.runCycle, opts.Scheduler)

	// Any store mutation may change the derived view.
	st.Subscribe(e.viewMaybeChanged)

	// Cold start: show the last known aggregates instead of zeros until
	// the first refresh lands.
	e.stats.Restore(context.Background())

	return e
}

// runCycle is one fetch-and-merge cycle: optionally nudge the simulator,
// fetch the resident page, and replace the record set. Results are
// discarded once ctx is cancelled so a stopped feed stays stopped.
func (e *Engine) runCycle(ctx context.Context) error {
	if e.sim != nil {
		if _, err := e.sim.SimulateNewEvent(ctx); err != nil && ctx.Err() == nil {
			// The feed still refreshes even when simulation hiccups.
			log.Printf("simulate new event failed: %v", err)
		}
	}

	e.mu.Lock()
	page := e.page
	e.mu.Unlock()

	result, err := e.source.FetchRecordsPage(ctx, page.Number, page.Size)
	if err != nil {
		return fmt.Errorf("fetch records page %d: %w", page.Number, err)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	e.store.ReplaceRecords(result.Records, result.TotalPages)
	metrics.RecordsReplacedTotal.Add(float64(len(result.Records)))
	return nil
}

// GetView returns the current derived view: resident records filtered by
// the active criteria and ordered by the active sort. The returned slice
// is shared with the derivation cache and must be treated as read-only.
func (e *Engine) GetView() []models.EventRecord {
	e.mu.Lock()
	criteria, spec := e.criteria, e.sort
	e.mu.Unlock()

	return e.deriver.Derive(e.store.Current(), criteria, spec)
}

// SetFilter replaces the active filter criteria.
func (e *Engine) SetFilter(criteria models.FilterCriteria) {
	e.mu.Lock()
	e.criteria = criteria
	e.mu.Unlock()

	e.viewMaybeChanged()
}

// ClearFilters removes every filter dimension.
func (e *Engine) ClearFilters() {
	e.SetFilter(models.FilterCriteria{})
}

// Filter returns the active criteria.
func (e *Engine) Filter() models.FilterCriteria {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.criteria
}

// SetSort selects a sort field. Selecting the active field flips the
// direction; a new field starts descending. Unknown fields are ignored.
func (e *Engine) SetSort(field models.SortField) models.SortSpec {
	e.mu.Lock()
	if field.Valid() {
		e.sort = e.sort.Toggle(field)
	}
	spec := e.sort
	e.mu.Unlock()

	e.viewMaybeChanged()
	return spec
}

// Sort returns the active sort spec.
func (e *Engine) Sort() models.SortSpec {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sort
}

// SetPage moves the server-side pagination window and triggers one
// immediate fetch outside the scheduler cadence. A fetch failure leaves
// the resident page in place; the error is non-fatal.
func (e *Engine) SetPage(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}
	if total := e.store.Current().TotalPages; total > 0 && n > total {
		n = total
	}

	e.mu.Lock()
	e.page.Number = n
	page := e.page
	e.mu.Unlock()

	result, err := e.source.FetchRecordsPage(ctx, page.Number, page.Size)
	if err != nil {
		return fmt.Errorf("fetch records page %d: %w", page.Number, err)
	}

	e.store.ReplaceRecords(result.Records, result.TotalPages)
	return nil
}

// Page returns the active pagination window.
func (e *Engine) Page() models.Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page
}

// TotalPages returns the server-reported page count.
func (e *Engine) TotalPages() int {
	return e.store.Current().TotalPages
}

// StartIngestion arms the polling loop. No-op while already ingesting.
func (e *Engine) StartIngestion() {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return
	}
	e.sched.Start()
}

// StopIngestion cancels the pending cycle timer. No-op while idle.
func (e *Engine) StopIngestion() {
	e.sched.Stop()
}

// IsIngesting reports whether the polling loop is running.
func (e *Engine) IsIngesting() bool {
	return e.sched.IsRunning()
}

// LastIngestError returns the most recent failed cycle's error, nil when
// the last cycle succeeded.
func (e *Engine) LastIngestError() error {
	return e.sched.LastError()
}

// GetAggregates returns the last good stats/trends snapshot.
func (e *Engine) GetAggregates() (models.AggregateStats, models.TrendDeltas) {
	snap := e.store.Current()
	return snap.Stats, snap.Trends
}

// RefreshStats fetches stats and trends and applies them as a pair. On
// failure the last good snapshot is untouched and the error is returned.
func (e *Engine) RefreshStats(ctx context.Context) error {
	return e.stats.Refresh(ctx)
}

// Subscribe returns a channel of view-change events plus a cancel func.
func (e *Engine) Subscribe() (<-chan notify.ViewChange, func()) {
	return e.hub.Subscribe()
}

// Close tears the engine down: the scheduler is forced to idle and its
// timer released. Safe to call from any state, any number of times.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.sched.Close()
}

// viewMaybeChanged recomputes the derived view and emits a change event
// iff the result differs from the last one handed out.
func (e *Engine) viewMaybeChanged() {
	view := e.GetView()

	ids := make([]string, len(view))
	for i := range view {
		ids[i] = view[i].ID
	}

	e.mu.Lock()
	changed := !equalIDs(e.lastIDs, ids)
	if changed {
		e.lastIDs = ids
	}
	total := e.store.Current().TotalPages
	e.mu.Unlock()

	if changed {
		e.notify.ViewChanged(notify.ViewChange{
			Count:       len(view),
			TotalPages:  total,
			GeneratedAt: e.clock().UTC().Format(time.RFC3339),
		})
	}
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
