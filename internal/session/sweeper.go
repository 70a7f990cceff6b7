package session

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often the sweeper purges expired sessions.
// Worst-case staleness is therefore one interval past the nominal TTL.
const DefaultSweepInterval = 2 * time.Minute

// Sweeper periodically purges expired sessions from a Store. It owns its
// background goroutine: Start launches it, Stop cancels it and waits for
// the loop to exit so no timer leaks across test runs or shutdown.
type Sweeper struct {
	store    *Store
	interval time.Duration
	onSweep  func(purged int)

	cancelFunc context.CancelFunc
	done       chan struct{}
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweepCallback registers a callback invoked after each sweep pass that
// purged at least one session. Used to report expiry metrics.
func WithSweepCallback(fn func(purged int)) SweeperOption {
	return func(s *Sweeper) {
		s.onSweep = fn
	}
}

// NewSweeper creates a sweeper for the given store. A non-positive interval
// falls back to DefaultSweepInterval.
func NewSweeper(store *Store, interval time.Duration, opts ...SweeperOption) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	s := &Sweeper{
		store:    store,
		interval: interval,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the background sweep loop and returns immediately. The
// cancel handle is installed before the goroutine runs, so Stop is safe to
// call from any goroutine as soon as Start returns.
func (s *Sweeper) Start(ctx context.Context) {
	sweepCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	slog.Info("Starting session sweeper", "interval", s.interval)

	go s.run(sweepCtx)
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if purged := s.store.Sweep(); purged > 0 {
				slog.Debug("Purged expired sync sessions", "count", purged)
				if s.onSweep != nil {
					s.onSweep(purged)
				}
			}
		case <-ctx.Done():
			slog.Info("Session sweeper stopping")
			return
		}
	}
}

// Stop cancels the sweep loop and waits for it to finish.
func (s *Sweeper) Stop() {
	if s.cancelFunc != nil {
		s.cancelFunc()
		<-s.done
	}
}
