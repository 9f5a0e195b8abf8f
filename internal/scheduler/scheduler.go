// Package scheduler runs the ingestion polling loop: a start/stop-able
// timer that triggers one fetch-and-merge cycle per randomized interval.
package scheduler

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/almogasia/CSPM-CYBER-PROJECT-sub001/internal/metrics"
)

// CycleFunc performs one fetch-and-merge cycle. The context is cancelled
// when the scheduler stops; implementations must not apply results after
// cancellation, which keeps in-flight fetches from reviving a stopped feed.
type CycleFunc func(ctx context.Context) error

// Config bounds the randomized delay between cycles.
type Config struct {
	MinInterval time.Duration
	MaxInterval time.Duration
}

// Scheduler owns at most one pending timer. Start while running and Stop
// while idle are defined no-ops, so the feed's start/stop controls can be
// wired straight to operator buttons without debouncing.
type Scheduler struct {
	mu      sync.Mutex
	cycle   CycleFunc
	min     time.Duration
	max     time.Duration
	running bool
	cancel  context.CancelFunc

	// wg belongs to the current run loop. Each Start allocates a fresh
	// one, so a Stop waiting on an old loop never races a new Start's
	// Add against its Wait.
	wg *sync.WaitGroup

	errMu   sync.RWMutex
	lastErr error
}

// New creates an idle scheduler. Intervals outside (0, max] fall back to
// the 2-5 second polling window the dashboard feed uses.
func New(cycle CycleFunc, cfg Config) *Scheduler {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 2 * time.Second
	}
	if cfg.MaxInterval < cfg.MinInterval {
		cfg.MaxInterval = cfg.MinInterval + 3*time.Second
	}

	return &Scheduler{
		cycle: cycle,
		min:   cfg.MinInterval,
		max:   cfg.MaxInterval,
	}
}

// Start arms the polling loop. Calling Start on a running scheduler does
// nothing; there is never a second concurrent timer.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	wg := &sync.WaitGroup{}
	wg.Add(1)
	s.wg = wg
	s.mu.Unlock()

	metrics.IngestRunning.Set(1)
	log.Printf("ingestion scheduler starting (interval: %s-%s)", s.min, s.max)

	go s.run(ctx, wg)
}

// Stop cancels the pending timer and any in-flight cycle, then waits for
// the loop goroutine to exit. Stopping an idle scheduler does nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	wg := s.wg
	s.mu.Unlock()

	cancel()
	wg.Wait()

	metrics.IngestRunning.Set(0)
	log.Printf("ingestion scheduler stopped")
}

// Close forces the scheduler to idle and releases its timer. Safe to call
// from any state, any number of times.
func (s *Scheduler) Close() {
	s.Stop()
}

// IsRunning reports whether the polling loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastError returns the most recent cycle failure, nil if the last cycle
// succeeded or none has run.
func (s *Scheduler) LastError() error {
	s.errMu.RLock()
	defer s.errMu.RUnlock()
	return s.lastErr
}

func (s *Scheduler) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		timer := time.NewTimer(s.nextDelay())

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		metrics.IngestCyclesTotal.Inc()

		err := s.cycle(ctx)
		if ctx.Err() != nil {
			// Stopped mid-cycle; the cycle already discarded its result.
			return
		}

		s.errMu.Lock()
		s.lastErr = err
		s.errMu.Unlock()

		if err != nil {
			// A failed cycle never halts the loop; the next timer is
			// armed regardless.
			metrics.IngestCycleErrorsTotal.Inc()
			log.Printf("fetch-and-merge cycle failed: %v", err)
		}
	}
}

// nextDelay draws a fresh delay for every cycle, uniform over [min, max].
func (s *Scheduler) nextDelay() time.Duration {
	spread := int64(s.max - s.min)
	if spread <= 0 {
		return s.min
	}
	return s.min + time.Duration(rand.Int63n(spread+1))
}
