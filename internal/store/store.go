// Package store owns the engine's only mutable shared state: the resident
// page of event records and the latest aggregate statistics snapshot.
// All mutation is whole-field-group replacement under one lock, so readers
// never observe a half-applied update.
package store

import (
	"sync"

	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/models"
)

// Snapshot is an immutable view of the store. Records is a copy; callers
// may hold it as long as they like. Records and the aggregate pair are
// independently refreshed field groups and may come from different fetch
// cycles.
type Snapshot struct {
	Records    []models.EventRecord
	TotalPages int
	Stats      models.AggregateStats
	Trends     models.TrendDeltas

	// Version increases on every replacement of either field group.
	// Derived-view caches key on it.
	Version uint64
}

// Listener is invoked after each store mutation, outside the store lock.
type Listener func()

// RecordStore holds the current record page plus the last-good aggregate
// statistics and trend deltas.
type RecordStore struct {
	mu         sync.RWMutex
	records    []models.EventRecord
	totalPages int
	stats      models.AggregateStats
	trends     models.TrendDeltas
	version    uint64

	listenerMu sync.Mutex
	listeners  []Listener
}

// New creates an empty RecordStore.
func New() *RecordStore {
	return &RecordStore{}
}

// ReplaceRecords atomically overwrites the resident page and the
// total-page count, then notifies listeners.
func (s *RecordStore) ReplaceRecords(records []models.EventRecord, totalPages int) {
	s.mu.Lock()
	s.records = append([]models.EventRecord(nil), records...)
	s.totalPages = totalPages
	s.version++
	s.mu.Unlock()

	s.notify()
}

// ReplaceStats atomically overwrites the aggregate pair. Stats and trends
// are always replaced together; a partial update is never observable.
func (s *RecordStore) ReplaceStats(stats models.AggregateStats, trends models.TrendDeltas) {
	s.mu.Lock()
	s.stats = stats
	s.trends = trends
	s.version++
	s.mu.Unlock()

	s.notify()
}

// Current returns an immutable snapshot of the store.
func (s *RecordStore) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Records:    append([]models.EventRecord(nil), s.records...),
		TotalPages: s.totalPages,
		Stats:      s.stats,
		Trends:     s.trends,
		Version:    s.version,
	}
}

// Version returns the current mutation counter without copying records.
func (s *RecordStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Subscribe registers a listener called after every mutation.
func (s *RecordStore) Subscribe(l Listener) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *RecordStore) notify() {
	s.listenerMu.Lock()
	listeners := append([]Listener(nil), s.listeners...)
	s.listenerMu.Unlock()

	for _, l := range listeners {
		l()
	}
}
