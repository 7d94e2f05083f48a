// Package scheduler runs background jobs on a wall-clock schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a unit of scheduled work
type Job func(ctx context.Context) error

// DailyTriggerConfig holds configuration for a daily trigger
type DailyTriggerConfig struct {
	// Name identifies the job in logs
	Name string

	// Hour and Minute give the daily run time in 24h format, in Location
	Hour   int
	Minute int

	// Location is the time zone the run time is read in. Nil means UTC.
	Location *time.Location

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration

	// JobTimeout bounds a single run. Zero means no bound.
	JobTimeout time.Duration
}

// DefaultDailyTriggerConfig returns a config that runs at 01:00 UTC
func DefaultDailyTriggerConfig(name string) DailyTriggerConfig {
	return DailyTriggerConfig{
		Name:          name,
		Hour:          1,
		Minute:        0,
		CheckInterval: time.Minute,
		JobTimeout:    10 * time.Minute,
	}
}

// Validate checks the run time and interval
func (c DailyTriggerConfig) Validate() error {
	if c.Hour < 0 || c.Hour > 23 {
		return fmt.Errorf("%w: hour must be 0-23, got %d", ErrInvalidConfig, c.Hour)
	}
	if c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("%w: minute must be 0-59, got %d", ErrInvalidConfig, c.Minute)
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("%w: check interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// DailyTrigger runs a job once a day at a configured wall-clock time.
// A run that was missed because the process was down is caught up on the first
// check after the run time, but never more than once per day.
type DailyTrigger struct {
	config DailyTriggerConfig
	job    Job
	logger *zap.Logger
	now    func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastRun   string // date of the last scheduled run, 2006-01-02

	jobMu sync.Mutex
}

// NewDailyTrigger creates a new daily trigger
func NewDailyTrigger(config DailyTriggerConfig, job Job, logger *zap.Logger) (*DailyTrigger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DailyTrigger{
		config: config,
		job:    job,
		logger: logger.Named("scheduler").With(zap.String("job", config.Name)),
		now:    time.Now,
	}, nil
}

// Start starts the trigger loop
func (d *DailyTrigger) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.isRunning {
		d.mu.Unlock()
		return nil
	}
	d.isRunning = true
	d.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go d.runLoop(ctx)

	d.logger.Info("daily trigger started",
		zap.Int("hour", d.config.Hour),
		zap.Int("minute", d.config.Minute),
		zap.String("location", d.config.Location.String()),
		zap.Duration("check_interval", d.config.CheckInterval),
	)
	return nil
}

// Stop stops the trigger and waits for a running job, bounded by ctx
func (d *DailyTrigger) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.isRunning {
		d.mu.Unlock()
		return nil
	}
	d.isRunning = false
	d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("daily trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow runs the job immediately, outside the schedule
func (d *DailyTrigger) RunNow(ctx context.Context) error {
	if !d.jobMu.TryLock() {
		return ErrJobAlreadyRunning
	}
	defer d.jobMu.Unlock()
	return d.execute(ctx)
}

func (d *DailyTrigger) runLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger runs the job when today's run time has passed and today has not run yet
func (d *DailyTrigger) checkAndTrigger(ctx context.Context) bool {
	if !d.due(d.now()) {
		return false
	}

	if !d.jobMu.TryLock() {
		d.logger.Warn("previous run still in progress, skipping")
		return false
	}
	defer d.jobMu.Unlock()

	if err := d.execute(ctx); err != nil {
		d.logger.Error("scheduled run failed", zap.Error(err))
	}
	return true
}

// due reports whether a run should start at now, and claims today's slot when it should
func (d *DailyTrigger) due(now time.Time) bool {
	local := now.In(d.config.Location)
	today := local.Format("2006-01-02")
	runAt := time.Date(local.Year(), local.Month(), local.Day(), d.config.Hour, d.config.Minute, 0, 0, d.config.Location)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lastRun == today || local.Before(runAt) {
		return false
	}
	d.lastRun = today
	return true
}

func (d *DailyTrigger) execute(ctx context.Context) error {
	if d.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.JobTimeout)
		defer cancel()
	}

	start := d.now()
	d.logger.Info("job started")

	if err := d.job(ctx); err != nil {
		d.logger.Error("job failed", zap.Duration("elapsed", d.now().Sub(start)), zap.Error(err))
		return err
	}

	d.logger.Info("job completed", zap.Duration("elapsed", d.now().Sub(start)))
	return nil
}
