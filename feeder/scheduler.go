package feeder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bizopsbank/feeder/internal"
)

// stopTimeout bounds how long Stop waits for an in-flight cycle.
const stopTimeout = 30 * time.Second

// CycleStats summarizes one scan cycle for the log line operators watch.
type CycleStats struct {
	Claimed    int
	Duplicates int
	Collisions int
	Errors     int
}

// ScheduledScanner drives the repeating scan cycle on one node: enumerate
// candidates, run the claim protocol per candidate, dispatch claimed files to
// the processor. One goroutine serializes all cycles; a new cycle never
// starts before the previous one on this node has finished, even when the
// interval elapses early. Other nodes run their own unsynchronized loops; the
// only cluster-wide synchronization point is the semaphore store.
type ScheduledScanner struct {
	conf      *Config
	scanner   *DirectoryScanner
	semaphore *SemaphoreManager
	processor Processor
	clock     clockwork.Clock

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
	cycles  atomic.Int64
}

// NewScheduledScanner builds a scheduler. clock is injectable for tests; pass
// clockwork.NewRealClock() in production.
func NewScheduledScanner(conf *Config, scanner *DirectoryScanner, semaphore *SemaphoreManager, processor Processor, clock clockwork.Clock) *ScheduledScanner {
	return &ScheduledScanner{
		conf:      conf,
		scanner:   scanner,
		semaphore: semaphore,
		processor: processor,
		clock:     clock,
		stopCh:    make(chan struct{}),
	}
}

// Start transitions Stopped -> Running: one cycle runs immediately, then a
// cycle per tick of the configured interval. Calling Start twice is a no-op.
func (s *ScheduledScanner) Start() {
	if s.running.Swap(true) {
		logger.Warn("scheduled scanner is already running")
		return
	}

	logger.Infof("starting scheduled scanner: interval %s, source directories %v",
		s.conf.ScanInterval, s.conf.SourceDirs)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := s.clock.NewTicker(s.conf.ScanInterval)
		defer ticker.Stop()

		// no initial delay
		s.runCycle()

		for {
			select {
			case <-ticker.Chan():
				s.runCycle()
			case <-s.stopCh:
				logger.Info("scheduled scanner loop stopping")
				return
			}
		}
	}()
}

// Stop transitions Running -> Stopped: no further cycles are scheduled, and
// the in-flight cycle (if any) is waited for, bounded by stopTimeout. Safe to
// call concurrently with a running cycle, and safe to call more than once.
func (s *ScheduledScanner) Stop() {
	if !s.running.Swap(false) {
		return
	}

	logger.Info("stopping scheduled scanner")
	close(s.stopCh)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("scheduled scanner stopped")
	case <-time.After(stopTimeout):
		logger.Warn("scheduled scanner did not stop within timeout; abandoning in-flight cycle")
	}
}

// IsRunning reports whether the scheduler is between Start and Stop.
func (s *ScheduledScanner) IsRunning() bool {
	return s.running.Load()
}

// runCycle performs one enumerate-and-claim pass. Failures touching a single
// identifier are contained; a store failure aborts the remainder of the cycle
// and the scheduler waits for the next tick.
func (s *ScheduledScanner) runCycle() {
	defer s.cycles.Add(1)
	logger.Info("starting scan cycle")
	start := s.clock.Now()

	identifiers := s.scanner.Enumerate(s.conf.SourceDirs)

	var stats CycleStats
	ctx := context.Background()

	for _, id := range identifiers {
		res, err := s.semaphore.Claim(ctx, id)
		if err != nil {
			if errors.Is(err, internal.ErrStoreUnavailable) {
				// The shared coordination mechanism is gone; no claim
				// decision can be trusted until the next tick.
				logger.Errorf("scan cycle aborted, store unavailable: %v", err)
				return
			}
			stats.Errors++
			logger.Errorf("failed to evaluate %q, skipping: %v", id, err)
			continue
		}

		switch res {
		case ClaimNew:
			stats.Claimed++
		case ClaimCollision:
			stats.Collisions++
			stats.Claimed++
		case ClaimDuplicate:
			stats.Duplicates++
			continue
		}

		if err := s.processor.Process(ctx, id); err != nil {
			stats.Errors++
			logger.Errorf("processor failed for %q: %v", id, err)
		}
	}

	logger.Infof("scan cycle summary: %d claimed (%d via collision reclaim), %d duplicates skipped, %d errors, took %s",
		stats.Claimed, stats.Collisions, stats.Duplicates, stats.Errors, s.clock.Since(start))
}
