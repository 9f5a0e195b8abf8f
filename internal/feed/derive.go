package feed

import (
	"sync"
	"time"

	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/models"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/store"
)

// Deriver computes the filtered, sorted projection of the resident record
// set. Derivation is a pure function of (snapshot, criteria, sort); the
// deriver memoizes the last result keyed on exactly those inputs so that
// unrelated state changes never trigger recomputation.
type Deriver struct {
	now func() time.Time

	mu     sync.Mutex
	key    deriveKey
	cached []models.EventRecord
	valid  bool
}

type deriveKey struct {
	version  uint64
	criteria models.FilterCriteria
	sort     models.SortSpec
}

// NewDeriver creates a Deriver using the given clock. A nil clock means
// time.Now; tests inject a fixed instant.
func NewDeriver(now func() time.Time) *Deriver {
	if now == nil {
		now = time.Now
	}
	return &Deriver{now: now}
}

// Derive filters then sorts the snapshot's records. Filtering runs first
// so result counts shown to the operator are exact. The returned slice is
// shared with the memo cache and must be treated as read-only.
func (d *Deriver) Derive(snap store.Snapshot, criteria models.FilterCriteria, spec models.SortSpec) []models.EventRecord {
	key := deriveKey{version: snap.Version, criteria: criteria, sort: spec}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Time-window filters depend on the clock, so their results cannot be
	// reused across calls.
	if d.valid && d.key == key && criteria.Window == "" {
		return d.cached
	}

	out := derive(snap.Records, criteria, spec, d.now())

	d.key = key
	d.cached = out
	d.valid = true
	return out
}

func derive(records []models.EventRecord, criteria models.FilterCriteria, spec models.SortSpec, now time.Time) []models.EventRecord {
	match := BuildFilter(criteria, now)

	out := make([]models.EventRecord, 0, len(records))
	for i := range records {
		if match(&records[i]) {
			out = append(out, records[i])
		}
	}

	SortRecords(out, spec)
	return out
}
