package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultInterval     = 5 * time.Minute
	DefaultStartupDelay = 10 * time.Second
)

// Pass is one unit of reminder work. *Scheduler satisfies it.
type Pass interface {
	RunPass(ctx context.Context) (PassReport, error)
}

// Runner drives passes on a fixed interval through a cron scheduler. Passes
// never overlap: a tick arriving while a pass runs is skipped.
type Runner struct {
	pass         Pass
	interval     time.Duration
	startupDelay time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	timer   *time.Timer
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
	running sync.WaitGroup
}

// NewRunner returns a Runner. Zero durations fall back to the defaults; a
// negative startup delay disables the initial pass.
func NewRunner(pass Pass, interval, startupDelay time.Duration, logger *slog.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if startupDelay == 0 {
		startupDelay = DefaultStartupDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		pass:         pass,
		interval:     interval,
		startupDelay: startupDelay,
		logger:       logger.With("component", "reminder_runner"),
	}
}

// Start schedules passes until Stop is called or ctx is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron != nil {
		return errors.New("reminder: runner already started")
	}

	adapter := cronLogger{logger: r.logger}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.cron = cron.New(cron.WithLogger(adapter))

	job := cron.NewChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)).Then(cron.FuncJob(r.runOnce))
	if _, err := r.cron.AddJob(fmt.Sprintf("@every %s", r.interval), job); err != nil {
		r.cancel()
		r.cron = nil
		return fmt.Errorf("reminder: schedule pass: %w", err)
	}
	r.cron.Start()

	if r.startupDelay > 0 {
		r.timer = time.AfterFunc(r.startupDelay, job.Run)
	}

	r.logger.InfoContext(ctx, "reminder runner started", "interval", r.interval, "startup_delay", r.startupDelay)
	return nil
}

// Stop prevents new passes and waits for an in-flight pass to finish. When ctx
// expires first, the in-flight pass is cancelled and ctx's error returned.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.cron == nil || r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	if r.timer != nil {
		r.timer.Stop()
	}
	cronDone := r.cron.Stop()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		r.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		r.logger.InfoContext(ctx, "reminder runner stopped")
		return nil
	case <-ctx.Done():
		r.cancel()
		r.logger.WarnContext(ctx, "reminder runner stop timed out; in-flight pass cancelled")
		return ctx.Err()
	}
}

func (r *Runner) runOnce() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.running.Add(1)
	ctx := r.ctx
	r.mu.Unlock()
	defer r.running.Done()

	if ctx.Err() != nil {
		return
	}
	if _, err := r.pass.RunPass(ctx); err != nil {
		r.logger.WarnContext(ctx, "reminder pass aborted", "error", err)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
