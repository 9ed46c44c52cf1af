package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// Sink receives the result of every completed cycle.
type Sink interface {
	Publish(ctx context.Context, res ScanResult) error
}

// RunnerConfig schedules the periodic scanner. Cron takes precedence over
// Interval when both are set.
type RunnerConfig struct {
	Interval   time.Duration
	Cron       string
	RunOnStart bool
	// LockKey, when a LockManager is given, keeps two instances from
	// scanning in the same window.
	LockKey string
	LockTTL time.Duration
}

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule turns the config into a cron.Schedule.
func ParseSchedule(cfg RunnerConfig) (cron.Schedule, error) {
	if cfg.Cron != "" {
		s, err := cronParser.Parse(cfg.Cron)
		if err != nil {
			return nil, fmt.Errorf("scanner: parse cron %q: %w", cfg.Cron, err)
		}
		return s, nil
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("scanner: interval or cron schedule required")
	}
	return cron.Every(cfg.Interval), nil
}

// ErrCycleRunning is returned by RunOnce while another cycle is in flight.
var ErrCycleRunning = errors.New("scanner: cycle already running")

// Runner drives a Scanner on a schedule. Each completed cycle replaces the
// previous one; results are never merged across cycles.
type Runner struct {
	cfg      RunnerConfig
	schedule cron.Schedule
	scanner  *Scanner
	source   PairSource
	sink     Sink
	lock     domain.LockManager
	logger   *slog.Logger
	now      func() time.Time

	running atomic.Bool
	latest  atomic.Pointer[ScanResult]
	wg      sync.WaitGroup
}

// NewRunner creates a Runner. sink and lock may be nil.
func NewRunner(
	cfg RunnerConfig,
	scanner *Scanner,
	source PairSource,
	sink Sink,
	lock domain.LockManager,
	logger *slog.Logger,
) (*Runner, error) {
	schedule, err := ParseSchedule(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.LockKey == "" {
		cfg.LockKey = "arbscanner:scan"
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:      cfg,
		schedule: schedule,
		scanner:  scanner,
		source:   source,
		sink:     sink,
		lock:     lock,
		logger:   logger.With(slog.String("component", "scan_runner")),
		now:      time.Now,
	}, nil
}

// Run waits for each scheduled time and starts a cycle, until ctx is
// cancelled. A tick that arrives while the previous cycle is still running
// is skipped. Run waits for the in-flight cycle before returning.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("scan runner started", slog.String("cron", r.cfg.Cron), slog.Duration("interval", r.cfg.Interval))
	defer func() {
		r.wg.Wait()
		r.logger.Info("scan runner stopped")
	}()

	if r.cfg.RunOnStart {
		r.tick(ctx)
	}
	for {
		next := r.schedule.Next(r.now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	if r.running.Load() {
		r.logger.Warn("previous scan cycle still running, skipping tick")
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, ErrCycleRunning) && !errors.Is(err, domain.ErrLockHeld) {
			r.logger.Error("scan cycle failed", slog.String("error", err.Error()))
		}
	}()
}

// RunOnce runs a single cycle now. It returns ErrCycleRunning if a cycle is
// already in flight in this process and domain.ErrLockHeld if another
// instance holds the scan lock.
func (r *Runner) RunOnce(ctx context.Context) (ScanResult, error) {
	if !r.running.CompareAndSwap(false, true) {
		return ScanResult{}, ErrCycleRunning
	}
	defer r.running.Store(false)

	if r.lock != nil {
		unlock, err := r.lock.Acquire(ctx, r.cfg.LockKey, r.cfg.LockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				r.logger.Info("scan lock held by another instance, skipping cycle")
			}
			return ScanResult{}, err
		}
		defer unlock()
	}

	pairs, err := r.source.Pairs(ctx)
	if err != nil {
		return ScanResult{}, fmt.Errorf("scanner: load pairs: %w", err)
	}
	res := r.scanner.Scan(ctx, pairs)
	r.latest.Store(&res)

	if r.sink != nil {
		if err := r.sink.Publish(ctx, res); err != nil {
			r.logger.Warn("publish scan result failed",
				slog.String("cycle_id", res.CycleID),
				slog.String("error", err.Error()),
			)
		}
	}
	return res, nil
}

// Latest returns the most recent completed cycle.
func (r *Runner) Latest() (ScanResult, bool) {
	p := r.latest.Load()
	if p == nil {
		return ScanResult{}, false
	}
	return *p, true
}
