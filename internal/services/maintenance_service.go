package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ticket-maintenance/config"
	"ticket-maintenance/internal/identity"
	"ticket-maintenance/internal/status"
	"ticket-maintenance/internal/store"
	"ticket-maintenance/pkg/logger"
)

// Pass is one reconciliation sweep over a single collection.
type Pass interface {
	Name() string
	// Requires lists the configuration keys the pass cannot run without.
	Requires() []string
	Run(ctx context.Context, now time.Time) (Tally, error)
}

// RunLocker keeps two invocations from running at the same time. Acquire
// returns status.ErrRunInProgress when another holder has the lock.
type RunLocker interface {
	Acquire(ctx context.Context) (release func(context.Context) error, err error)
}

type Notifier interface {
	Notify(ctx context.Context, report *Report) error
}

type Recorder interface {
	TrackPass(pass, status string, duration time.Duration)
	TrackRecords(pass, outcome string, n int)
	TrackRun(status string, finishedAt time.Time)
}

type Option func(*MaintenanceService)

func WithRunLock(l RunLocker) Option {
	return func(s *MaintenanceService) { s.lock = l }
}

func WithNotifier(n Notifier) Option {
	return func(s *MaintenanceService) { s.notifier = n }
}

func WithRecorder(r Recorder) Option {
	return func(s *MaintenanceService) { s.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *MaintenanceService) { s.now = now }
}

func WithDryRun(dryRun bool) Option {
	return func(s *MaintenanceService) { s.dryRun = dryRun }
}

type MaintenanceService struct {
	passes   []Pass
	cfg      *config.Config
	logger   logger.Logger
	lock     RunLocker
	notifier Notifier
	recorder Recorder
	now      func() time.Time
	dryRun   bool

	running atomic.Bool

	mu   sync.RWMutex
	last *Report
}

func NewMaintenanceService(cfg *config.Config, l logger.Logger, passes []Pass, opts ...Option) *MaintenanceService {
	s := &MaintenanceService{
		passes: passes,
		cfg:    cfg,
		logger: l,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultPasses returns the five reconciliation passes in their fixed order.
func DefaultPasses(st store.DocumentStore, accounts identity.AccountService, cfg *config.Config, l logger.Logger) []Pass {
	return []Pass{
		NewOrphanMessageReclaimer(st, cfg, l),
		NewResaleListingReconciler(st, cfg, l),
		NewTicketArchiver(st, cfg, l),
		NewEventArchiver(st, cfg, l),
		NewFraudQuarantine(st, accounts, cfg, l),
	}
}

// Run executes every pass in order. A failing pass never stops the ones after
// it; the returned error is reserved for failures of the run itself.
func (s *MaintenanceService) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		DryRun:    s.dryRun,
		StartedAt: s.now(),
	}
	ctx = s.logger.WithFields(ctx, "run_id", report.RunID)

	if !s.running.CompareAndSwap(false, true) {
		return s.skip(ctx, report), nil
	}
	defer s.running.Store(false)

	if s.lock != nil {
		release, err := s.lock.Acquire(ctx)
		if errors.Is(err, status.ErrRunInProgress) {
			return s.skip(ctx, report), nil
		}
		if err != nil {
			s.trackRun("error", s.now())
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warnf(ctx, "release run lock: %v", err)
			}
		}()
	}

	s.logger.Infof(ctx, "Maintenance run started (dry run: %t)", s.dryRun)

	for _, pass := range s.passes {
		report.Results = append(report.Results, s.runPass(ctx, pass))
	}
	report.FinishedAt = s.now()

	runStatus := "success"
	if !report.Healthy() {
		runStatus = "degraded"
	}
	s.trackRun(runStatus, report.FinishedAt)
	s.logger.Infof(ctx, "Maintenance run finished: %s", report.Summary())

	s.remember(report)
	s.notify(ctx, report)
	return report, nil
}

func (s *MaintenanceService) LastReport() (*Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.last != nil
}

func (s *MaintenanceService) runPass(ctx context.Context, pass Pass) (result PassResult) {
	name := pass.Name()
	ctx = s.logger.WithFields(ctx, "pass", name)
	startedAt := s.now()

	var tally Tally
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf(ctx, "Pass panicked: %v\n%s", r, debug.Stack())
			result = newPassResult(name, startedAt, tally, fmt.Errorf("%w: %v", status.ErrPassPanicked, r))
		}
		result.Duration = s.now().Sub(startedAt)
		s.track(result)
	}()

	if err := s.cfg.Require(pass.Requires()...); err != nil {
		s.logger.Errorf(ctx, "Pass not started: %v", err)
		return newPassResult(name, startedAt, tally, err)
	}

	tally, err := pass.Run(ctx, startedAt)
	if err != nil {
		s.logger.Errorf(ctx, "Pass failed: %v", err)
	} else {
		s.logger.Infof(ctx, "Pass done: scanned=%d applied=%d untouched=%d skipped=%d failed=%d",
			tally.Scanned, tally.Applied, tally.Untouched, tally.Skipped, tally.Failed)
	}
	return newPassResult(name, startedAt, tally, err)
}

func (s *MaintenanceService) skip(ctx context.Context, report *Report) *Report {
	s.logger.Warnf(ctx, "Maintenance run skipped: %v", status.ErrRunInProgress)
	report.Skipped = true
	report.FinishedAt = s.now()
	s.trackRun("skipped", report.FinishedAt)
	return report
}

func (s *MaintenanceService) remember(report *Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = report
}

func (s *MaintenanceService) notify(ctx context.Context, report *Report) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, report); err != nil {
		s.logger.Warnf(ctx, "Failed to publish maintenance report: %v", err)
	}
}

func (s *MaintenanceService) track(result PassResult) {
	if s.recorder == nil {
		return
	}
	s.recorder.TrackPass(result.Pass, string(result.Status), result.Duration)
	s.recorder.TrackRecords(result.Pass, outcomeApplied.String(), result.Applied)
	s.recorder.TrackRecords(result.Pass, outcomeUntouched.String(), result.Untouched)
	s.recorder.TrackRecords(result.Pass, outcomeSkipped.String(), result.Skipped)
	s.recorder.TrackRecords(result.Pass, outcomeFailed.String(), result.Failed)
}

func (s *MaintenanceService) trackRun(runStatus string, at time.Time) {
	if s.recorder != nil {
		s.recorder.TrackRun(runStatus, at)
	}
}
