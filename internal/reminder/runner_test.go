package reminder

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type signallingPass struct {
	calls   atomic.Int32
	started chan struct{}
	block   bool
}

func newSignallingPass(block bool) *signallingPass {
	return &signallingPass{started: make(chan struct{}, 8), block: block}
}

func (p *signallingPass) RunPass(ctx context.Context) (PassReport, error) {
	p.calls.Add(1)
	p.started <- struct{}{}
	if p.block {
		<-ctx.Done()
		return PassReport{}, ctx.Err()
	}
	return PassReport{At: time.Now()}, nil
}

func TestRunnerRunsFirstPassAfterStartupDelay(t *testing.T) {
	t.Parallel()
	pass := newSignallingPass(false)
	runner := NewRunner(pass, time.Hour, 10*time.Millisecond, discardLogger())

	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	select {
	case <-pass.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("first pass did not run after the startup delay")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := runner.Stop(ctx); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if got := pass.calls.Load(); got != 1 {
		t.Fatalf("expected exactly one pass, got %d", got)
	}
}

func TestRunnerNegativeStartupDelaySkipsInitialPass(t *testing.T) {
	t.Parallel()
	pass := newSignallingPass(false)
	runner := NewRunner(pass, time.Hour, -1, discardLogger())

	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := runner.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if got := pass.calls.Load(); got != 0 {
		t.Fatalf("expected no passes, got %d", got)
	}
}

func TestRunnerStopCancelsInFlightPassOnTimeout(t *testing.T) {
	t.Parallel()
	pass := newSignallingPass(true)
	runner := NewRunner(pass, time.Hour, time.Millisecond, discardLogger())

	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	select {
	case <-pass.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("pass did not start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := runner.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestRunnerRejectsDoubleStart(t *testing.T) {
	t.Parallel()
	runner := NewRunner(newSignallingPass(false), time.Hour, -1, discardLogger())

	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	t.Cleanup(func() { _ = runner.Stop(context.Background()) })

	if err := runner.Start(context.Background()); err == nil {
		t.Fatalf("expected error on second Start")
	}
}

func TestRunnerStopWithoutStartIsNoop(t *testing.T) {
	t.Parallel()
	runner := NewRunner(newSignallingPass(false), 0, 0, nil)
	if err := runner.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if runner.interval != DefaultInterval || runner.startupDelay != DefaultStartupDelay {
		t.Fatalf("unexpected defaults: interval %v, delay %v", runner.interval, runner.startupDelay)
	}
}
