package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/models"
	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/scheduler"
)

// fakeSource serves a fixed page and counts fetches. block, when set,
// parks FetchRecordsPage until released so tests can hold a fetch
// in flight across a stop.
type fakeSource struct {
	mu         sync.Mutex
	records    []models.EventRecord
	totalPages int
	err        error
	fetches    atomic.Int64

	block   chan struct{}
	entered chan struct{}
}

func (f *fakeSource) FetchRecordsPage(ctx context.Context, page, size int) (*models.RecordPage, error) {
	f.fetches.Add(1)
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &models.RecordPage{
		Records:    append([]models.EventRecord(nil), f.records...),
		TotalPages: f.totalPages,
	}, nil
}

func (f *fakeSource) setRecords(records []models.EventRecord, totalPages int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
	f.totalPages = totalPages
}

type fakeStats struct {
	stats  models.AggregateStats
	trends models.TrendDeltas
	err    error
}

func (f *fakeStats) FetchAggregateStats(ctx context.Context) (*models.AggregateStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := f.stats
	return &s, nil
}

func (f *fakeStats) FetchTrendDeltas(ctx context.Context) (*models.TrendDeltas, error) {
	if f.err != nil {
		return nil, f.err
	}
	tr := f.trends
	return &tr, nil
}

func testRecords() []models.EventRecord {
	return []models.EventRecord{
		{ID: "low", EventName: "DescribeInstances", IdentityType: models.IdentityIAMUser, SourceIP: "10.0.0.1", RiskScore: 12, RiskLevel: models.RiskLow, Timestamp: "2024-03-01T10:00:00Z"},
		{ID: "high", EventName: "DeleteTrail", IdentityType: models.IdentityRoot, SourceIP: "203.0.113.9", RiskScore: 91, RiskLevel: models.RiskHigh, Timestamp: "2024-03-01T11:00:00Z"},
		{ID: "medium", EventName: "ConsoleLogin", IdentityType: models.IdentityIAMUser, SourceIP: "192.168.1.20", RiskScore: 55, RiskLevel: models.RiskMedium, Timestamp: "2024-03-01T11:30:00Z"},
	}
}

func fastSched() scheduler.Config {
	return scheduler.Config{MinInterval: 5 * time.Millisecond, MaxInterval: 10 * time.Millisecond}
}

func newTestEngine(t *testing.T, src *fakeSource, opts Options) *Engine {
	t.Helper()
	if opts.Scheduler == (scheduler.Config{}) {
		opts.Scheduler = fastSched()
	}
	e := New(src, &fakeStats{}, opts)
	t.Cleanup(e.Close)
	return e
}

func prime(t *testing.T, e *Engine) {
	t.Helper()
	require.NoError(t, e.SetPage(context.Background(), 1))
}

func idsOf(records []models.EventRecord) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestDefaultViewIsNewestFirst(t *testing.T) {
	src := &fakeSource{}
	src.setRecords(testRecords(), 1)
	e := newTestEngine(t, src, Options{})
	prime(t, e)

	assert.Equal(t, []string{"medium", "high", "low"}, idsOf(e.GetView()))
	assert.Equal(t, models.DefaultSort(), e.Sort())
}

func TestSetFilterNarrowsView(t *testing.T) {
	src := &fakeSource{}
	src.setRecords(testRecords(), 1)
	e := newTestEngine(t, src, Options{})
	prime(t, e)

	e.SetFilter(models.FilterCriteria{RiskLevel: models.RiskHigh})
	assert.Equal(t, []string{"high"}, idsOf(e.GetView()))

	e.ClearFilters()
	assert.Len(t, e.GetView(), 3)
	assert.True(t, e.Filter().IsZero())
}

func TestSetSortToggles(t *testing.T) {
	src := &fakeSource{}
	src.setRecords(testRecords(), 1)
	e := newTestEngine(t, src, Options{})
	prime(t, e)

	// New field starts descending.
	spec := e.SetSort(models.SortByRiskScore)
	assert.Equal(t, models.SortSpec{Field: models.SortByRiskScore, Direction: models.SortDesc}, spec)
	assert.Equal(t, []string{"high", "medium", "low"}, idsOf(e.GetView()))

	// Same field flips to ascending.
	spec = e.SetSort(models.SortByRiskScore)
	assert.Equal(t, models.SortAsc, spec.Direction)
	assert.Equal(t, []string{"low", "medium", "high"}, idsOf(e.GetView()))

	// Unknown fields leave the spec alone.
	spec = e.SetSort(models.SortField("bogus"))
	assert.Equal(t, models.SortByRiskScore, spec.Field)
	assert.Equal(t, models.SortAsc, spec.Direction)
}

func TestSetPageClampsLow(t *testing.T) {
	src := &fakeSource{}
	src.setRecords(testRecords(), 5)
	e := newTestEngine(t, src, Options{})

	require.NoError(t, e.SetPage(context.Background(), -3))
	assert.Equal(t, 1, e.Page().Number)
}

func TestSetPageClampsToTotal(t *testing.T) {
	src := &fakeSource{}
	src.setRecords(testRecords(), 5)
	e := newTestEngine(t, src, Options{})
	prime(t, e)
	require.Equal(t, 5, e.TotalPages())

	require.NoError(t, e.SetPage(context.Background(), 99))
	assert.Equal(t, 5, e.Page().Number)
}

func TestSetPageFetchFailureKeepsResidentPage(t *testing.T) {
	src := &fakeSource{}
	src.setRecords(testRecords(), 2)
	e := newTestEngine(t, src, Options{})
	prime(t, e)
	require.Len(t, e.GetView(), 3)

	src.mu.Lock()
	src.err = errors.New("backend down")
	src.mu.Unlock()

	err := e.SetPage(context.Background(), 2)
	require.Error(t, err)
	assert.Len(t, e.GetView(), 3, "resident records survive a failed page fetch")
}

func TestIngestionFetchesPeriodically(t *testing.T) {
	src := &fakeSource{}
	src.setRecords(testRecords(), 1)
	e := newTestEngine(t, src, Options{})

	e.StartIngestion()
	assert.True(t, e.IsIngesting())

	waitFor(t, func() bool { return src.fetches.Load() >= 3 }, "expected periodic fetches")
	waitFor(t, func() bool { return len(e.GetView()) == 3 }, "fetched records reach the view")

	e.StopIngestion()
	assert.False(t, e.IsIngesting())
}

func TestStartIngestionIdempotent(t *testing.T) {
	src := &fakeSource{}
	src.setRecords(testRecords(), 1)
	e := newTestEngine(t, src, Options{})

	e.StartIngestion()
	e.StartIngestion()
	waitFor(t, func() bool { return src.fetches.Load() >= 1 }, "expected fetches")

	e.StopIngestion()
	e.StopIngestion()

	after := src.fetches.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, src.fetches.Load(), "no fetches after stop")
}

func TestStopDiscardsInFlightResult(t *testing.T) {
	src := &fakeSource{
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	src.setRecords(testRecords(), 1)
	e := newTestEngine(t, src, Options{})

	e.StartIngestion()
	<-src.entered

	// Stop while the fetch is parked; release it afterwards. Its result
	// arrives after cancellation and must never reach the store.
	done := make(chan struct{})
	go func() {
		e.StopIngestion()
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	close(src.block)
	<-done

	assert.Empty(t, e.GetView(), "post-stop fetch result was applied")
}

func TestFailedCycleKeepsPolling(t *testing.T) {
	src := &fakeSource{err: errors.New("flaky backend")}
	e := newTestEngine(t, src, Options{})

	e.StartIngestion()
	waitFor(t, func() bool { return e.LastIngestError() != nil }, "cycle error surfaces")

	src.setRecords(testRecords(), 1)
	src.mu.Lock()
	src.err = nil
	src.mu.Unlock()

	waitFor(t, func() bool { return e.LastIngestError() == nil }, "recovers after backend returns")
	waitFor(t, func() bool { return len(e.GetView()) == 3 }, "records land after recovery")
}

func TestSubscribeEmitsOnViewChange(t *testing.T) {
	src := &fakeSource{}
	src.setRecords(testRecords(), 1)
	e := newTestEngine(t, src, Options{})

	ch, cancel := e.Subscribe()
	defer cancel()

	prime(t, e)

	select {
	case change := <-ch:
		assert.Equal(t, 3, change.Count)
		assert.Equal(t, 1, change.TotalPages)
		assert.NotEmpty(t, change.GeneratedAt)
	case <-time.After(time.Second):
		t.Fatal("expected a view-change event")
	}
}

func TestNoEventWhenViewUnchanged(t *testing.T) {
	src := &fakeSource{}
	src.setRecords(testRecords(), 1)
	e := newTestEngine(t, src, Options{})
	prime(t, e)

	ch, cancel := e.Subscribe()
	defer cancel()

	// Refetching the identical page leaves the view byte-for-byte the
	// same; subscribers stay quiet.
	require.NoError(t, e.SetPage(context.Background(), 1))

	select {
	case <-ch:
		t.Fatal("unchanged view must not emit")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFilterChangeEmits(t *testing.T) {
	src := &fakeSource{}
	src.setRecords(testRecords(), 1)
	e := newTestEngine(t, src, Options{})
	prime(t, e)

	ch, cancel := e.Subscribe()
	defer cancel()

	e.SetFilter(models.FilterCriteria{RiskLevel: models.RiskHigh})

	select {
	case change := <-ch:
		assert.Equal(t, 1, change.Count)
	case <-time.After(time.Second):
		t.Fatal("filter change must emit")
	}
}

func TestRefreshStatsAppliesPair(t *testing.T) {
	src := &fakeSource{}
	stats := &fakeStats{
		stats:  models.AggregateStats{TotalLogs: 42, HighRiskCount: 6},
		trends: models.TrendDeltas{TotalChange: 10},
	}
	e := New(src, stats, Options{Scheduler: fastSched()})
	t.Cleanup(e.Close)

	require.NoError(t, e.RefreshStats(context.Background()))

	gotStats, gotTrends := e.GetAggregates()
	assert.Equal(t, int64(42), gotStats.TotalLogs)
	assert.Equal(t, float64(10), gotTrends.TotalChange)
}

func TestRefreshStatsFailureRetainsLastGood(t *testing.T) {
	src := &fakeSource{}
	stats := &fakeStats{stats: models.AggregateStats{TotalLogs: 42}}
	e := New(src, stats, Options{Scheduler: fastSched()})
	t.Cleanup(e.Close)
	require.NoError(t, e.RefreshStats(context.Background()))

	stats.err = errors.New("stats down")
	require.Error(t, e.RefreshStats(context.Background()))

	gotStats, _ := e.GetAggregates()
	assert.Equal(t, int64(42), gotStats.TotalLogs)
}

func TestCloseStopsEverything(t *testing.T) {
	src := &fakeSource{}
	src.setRecords(testRecords(), 1)
	e := New(src, &fakeStats{}, Options{Scheduler: fastSched()})

	e.StartIngestion()
	e.Close()
	assert.False(t, e.IsIngesting())

	// A closed engine refuses to restart.
	e.StartIngestion()
	assert.False(t, e.IsIngesting())

	e.Close()
}

func TestTimeWindowFilterUsesInjectedClock(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{}
	src.setRecords(testRecords(), 1)
	e := newTestEngine(t, src, Options{Clock: func() time.Time { return now }})
	prime(t, e)

	e.SetFilter(models.FilterCriteria{Window: models.WindowHour})
	assert.Equal(t, []string{"medium", "high"}, idsOf(e.GetView()), "10:00 record is outside the hour")
}
