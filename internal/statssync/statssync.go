// Package statssync reconciles externally computed aggregate statistics
// and trend deltas with the record store, retaining the last good
// snapshot across failed refreshes.
package statssync

import (
	"context"
	"fmt"

	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/metrics"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/models"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/store"
)

// StatsSource is the consumed stats-fetch capability. Stats and trends
// fail independently; the syncer only applies them as a pair.
type StatsSource interface {
	FetchAggregateStats(ctx context.Context) (*models.AggregateStats, error)
	FetchTrendDeltas(ctx context.Context) (*models.TrendDeltas, error)
}

// Syncer refreshes the store's aggregate pair from a StatsSource. It runs
// on whatever cadence the caller chooses (manual refresh, own ticker); it
// owns no timer itself.
type Syncer struct {
	source StatsSource
	store  *store.RecordStore
	cache  SnapshotCache
}

// New creates a Syncer. cache may be nil when no snapshot persistence is
// wanted.
func New(source StatsSource, st *store.RecordStore, cache SnapshotCache) *Syncer {
	return &Syncer{source: source, store: st, cache: cache}
}

// Refresh fetches stats and trends and applies them to the store
// atomically as a pair. On any failure the store keeps its last good
// snapshot and the error returns to the caller, non-fatal.
func (s *Syncer) Refresh(ctx context.Context) error {
	stats, err := s.source.FetchAggregateStats(ctx)
	if err != nil {
		metrics.StatsRefreshTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("refresh aggregate stats: %w", err)
	}

	trends, err := s.source.FetchTrendDeltas(ctx)
	if err != nil {
		metrics.StatsRefreshTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("refresh trend deltas: %w", err)
	}

	s.store.ReplaceStats(*stats, *trends)
	metrics.StatsRefreshTotal.WithLabelValues("ok").Inc()

	if s.cache != nil {
		// Cache write failures are not worth failing a refresh that
		// already reached the store.
		_ = s.cache.Store(ctx, *stats, *trends)
	}

	return nil
}

// Restore seeds the store's aggregate pair from the snapshot cache, used
// on cold start so the dashboard opens with the last known figures
// instead of zeros. Missing cache or empty snapshot is not an error.
func (s *Syncer) Restore(ctx context.Context) bool {
	if s.cache == nil {
		return false
	}

	stats, trends, ok, err := s.cache.Load(ctx)
	if err != nil || !ok {
		return false
	}

	s.store.ReplaceStats(stats, trends)
	return true
}
