package housekeeping

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSweeper struct {
	calls atomic.Int64
	n     int64
	err   error
}

func (s *fakeSweeper) Sweep(context.Context) (int64, error) {
	s.calls.Add(1)
	return s.n, s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorkerSweepsOnStartAndTick(t *testing.T) {
	s := &fakeSweeper{n: 2}
	w := New(s, quietLogger(), 10*time.Millisecond)
	w.Start()

	deadline := time.Now().Add(2 * time.Second)
	for s.calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected at least 3 sweeps, got %d", s.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}

	w.Stop()
	after := s.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if s.calls.Load() != after {
		t.Fatal("worker kept sweeping after Stop")
	}
	w.Stop()
}

func TestRunOnceSurvivesErrors(t *testing.T) {
	s := &fakeSweeper{n: 0, err: errors.New("boom")}
	w := New(s, quietLogger(), time.Hour)

	if n := w.RunOnce(); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
	if s.calls.Load() != 1 {
		t.Fatalf("expected 1 call, got %d", s.calls.Load())
	}
}

func TestNewDefaultsInterval(t *testing.T) {
	w := New(&fakeSweeper{}, nil, 0)
	if w.interval != 10*time.Minute {
		t.Fatalf("unexpected default interval %v", w.interval)
	}
}

func TestStopWithoutStartReturns(t *testing.T) {
	s := &fakeSweeper{}
	w := New(s, quietLogger(), time.Hour)

	done := make(chan struct{})
	go func() {
		w.Stop()
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a worker that was never started")
	}

	w.Start()
	time.Sleep(20 * time.Millisecond)
	if s.calls.Load() != 0 {
		t.Fatal("Start after Stop launched a sweep")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	s := &fakeSweeper{}
	w := New(s, quietLogger(), time.Hour)
	w.Start()
	w.Start()

	deadline := time.Now().Add(2 * time.Second)
	for s.calls.Load() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("worker never swept")
		}
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()
	if n := s.calls.Load(); n != 1 {
		t.Fatalf("expected one initial sweep, got %d", n)
	}
}
