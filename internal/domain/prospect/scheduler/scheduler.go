package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Rebuilder defines the interface for recomputing prospect views
type Rebuilder interface {
	Rebuild(ctx context.Context) error
}

// Scheduler periodically rebuilds the prospect aggregate from the message
// log. Change events keep the aggregate fresh in the common case; the
// rebuild covers events dropped by a saturated subscriber or missed while
// the process was down.
type Scheduler struct {
	rebuilder Rebuilder
	interval  time.Duration
	logger    *slog.Logger
	stopCh    chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// New creates a new prospect refresh scheduler
func New(rebuilder Rebuilder, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval == 0 {
		interval = 10 * time.Minute
	}

	return &Scheduler{
		rebuilder: rebuilder,
		interval:  interval,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Info("prospect refresh scheduler started", "interval", s.interval)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the scheduler and waits for an in-flight rebuild
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("prospect refresh scheduler stopped")
}

// run is the main scheduler loop
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// First rebuild shortly after start, once the app has settled.
	select {
	case <-time.After(5 * time.Second):
		s.process(ctx)
	case <-s.stopCh:
		return
	case <-ctx.Done():
		return
	}

	for {
		select {
		case <-ticker.C:
			s.process(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) process(ctx context.Context) {
	start := time.Now()
	if err := s.rebuilder.Rebuild(ctx); err != nil {
		s.logger.Error("prospect rebuild failed", "error", err)
		return
	}
	s.logger.Debug("prospect rebuild complete", "duration", time.Since(start))
}
