package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidConfig is returned when the trigger configuration is unusable
var ErrInvalidConfig = errors.New("invalid scheduler configuration")

// DueScanner publishes reminders for credit sales that are due
type DueScanner interface {
	ScanAndPublish(ctx context.Context) (int, error)
}

// ReminderTriggerConfig holds configuration for the reminder trigger
type ReminderTriggerConfig struct {
	// CheckInterval is how often the due scan runs
	CheckInterval time.Duration
	// Timeout bounds a single scan
	Timeout time.Duration
}

// DefaultReminderTriggerConfig returns the default reminder trigger configuration
func DefaultReminderTriggerConfig() ReminderTriggerConfig {
	return ReminderTriggerConfig{
		CheckInterval: 15 * time.Minute,
		Timeout:       time.Minute,
	}
}

// ReminderTrigger runs the credit due scan on start and then on every tick.
// Scans never overlap; a tick that fires during a slow scan is dropped.
type ReminderTrigger struct {
	config  ReminderTriggerConfig
	scanner DueScanner
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastRun   time.Time
	lastCount int
}

// NewReminderTrigger creates a new reminder trigger
func NewReminderTrigger(config ReminderTriggerConfig, scanner DueScanner, logger *zap.Logger) (*ReminderTrigger, error) {
	if config.CheckInterval <= 0 {
		return nil, ErrInvalidConfig
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultReminderTriggerConfig().Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderTrigger{
		config:  config,
		scanner: scanner,
		logger:  logger.Named("reminder-trigger"),
	}, nil
}

// Start launches the scan loop. Calling Start twice is a no-op.
func (r *ReminderTrigger) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = true
	ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	r.wg.Add(1)
	go r.runLoop(ctx)

	r.logger.Info("Reminder trigger started", zap.Duration("check_interval", r.config.CheckInterval))
	return nil
}

// Stop cancels the loop and waits for an in-flight scan, bounded by ctx
func (r *ReminderTrigger) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	cancel := r.cancel
	r.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("Reminder trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a single bounded scan
func (r *ReminderTrigger) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	start := time.Now()
	n, err := r.scanner.ScanAndPublish(ctx)
	if err != nil {
		r.logger.Error("Due scan failed", zap.Error(err))
		return n, err
	}

	r.mu.Lock()
	r.lastRun = start
	r.lastCount = n
	r.mu.Unlock()

	r.logger.Info("Due scan finished",
		zap.Int("due", n),
		zap.Duration("elapsed", time.Since(start)),
	)
	return n, nil
}

// LastRun reports when the last successful scan started and how many sales were due
func (r *ReminderTrigger) LastRun() (time.Time, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun, r.lastCount
}

func (r *ReminderTrigger) runLoop(ctx context.Context) {
	defer r.wg.Done()

	_, _ = r.RunOnce(ctx)

	ticker := time.NewTicker(r.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = r.RunOnce(ctx)
		}
	}
}
