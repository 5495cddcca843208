// Package housekeeping runs periodic maintenance for refresh stores that
// have no native record expiry.
package housekeeping

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper removes expired records and reports how many it removed.
// *sessionauth.Engine satisfies it.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// Worker calls Sweep on a fixed interval until stopped.
type Worker struct {
	sweeper  Sweeper
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New returns a stopped Worker. A non-positive interval defaults to ten
// minutes.
func New(sweeper Sweeper, logger *slog.Logger, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		sweeper:  sweeper,
		logger:   logger.With("component", "housekeeping"),
		interval: interval,
		timeout:  30 * time.Second,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the worker goroutine. It sweeps once immediately. Start on
// a running or stopped Worker does nothing.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true
	go w.run()
	w.logger.Info("housekeeping started", "interval", w.interval)
}

// Stop ends the worker and waits for an in-flight sweep to finish. It is
// safe to call more than once, and before Start.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.stopCh)
	}
	started := w.started
	w.mu.Unlock()

	if started {
		<-w.doneCh
	}
}

func (w *Worker) run() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce()
	for {
		select {
		case <-ticker.C:
			w.RunOnce()
		case <-w.stopCh:
			return
		}
	}
}

// RunOnce performs a single sweep bounded by the worker timeout.
func (w *Worker) RunOnce() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	n, err := w.sweeper.Sweep(ctx)
	if err != nil {
		w.logger.Error("sweep failed", "error", err)
		return n
	}
	if n > 0 {
		w.logger.Info("expired refresh records removed", "count", n)
	} else {
		w.logger.Debug("nothing to sweep")
	}
	return n
}
