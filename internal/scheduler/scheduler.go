// Package scheduler runs the periodic notification jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Jobs is the work the scheduler triggers.  *service.ReservationService
// implements it.
type Jobs interface {
	SendReminders(ctx context.Context, today time.Time) (int, error)
	ResendConfirmations(ctx context.Context, grace time.Duration, limit int) (int, error)
}

// Options sets when the reminder job fires and how often unsent
// confirmations are retried.
type Options struct {
	Location       *time.Location
	ReminderHour   uint
	ReminderMinute uint
	ResendEvery    time.Duration // 0 disables the confirmation sweep
	ResendGrace    time.Duration
	JobTimeout     time.Duration
}

// Scheduler runs the reminder and confirmation jobs on gocron.
type Scheduler struct {
	s      gocron.Scheduler
	jobs   Jobs
	opts   Options
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

// New registers the daily reminder job and, when enabled, the confirmation
// sweep.  Nothing runs until Start.
func New(jobs Jobs, opts Options, log *zap.Logger) (*Scheduler, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 5 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	gs, err := gocron.NewScheduler(gocron.WithLocation(opts.Location))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	sc := &Scheduler{s: gs, jobs: jobs, opts: opts, log: log, ctx: ctx, cancel: cancel, now: time.Now}

	_, err = gs.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(opts.ReminderHour, opts.ReminderMinute, 0))),
		gocron.NewTask(sc.runReminders),
		gocron.WithName("reservation-reminders"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("schedule reminders: %w", err)
	}

	if opts.ResendEvery > 0 {
		_, err = gs.NewJob(
			gocron.DurationJob(opts.ResendEvery),
			gocron.NewTask(sc.runResend),
			gocron.WithName("confirmation-resend"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("schedule confirmation resend: %w", err)
		}
	}
	return sc, nil
}

// Start begins running the registered jobs.
func (sc *Scheduler) Start() {
	sc.s.Start()
	sc.log.Info("scheduler started",
		zap.String("location", sc.opts.Location.String()),
		zap.Uint("reminder_hour", sc.opts.ReminderHour),
		zap.Uint("reminder_minute", sc.opts.ReminderMinute))
}

// Stop cancels running jobs and waits for them to return.
func (sc *Scheduler) Stop() error {
	sc.cancel()
	return sc.s.Shutdown()
}

// Today is the current date in the scheduler's location.
func (sc *Scheduler) Today() time.Time {
	return sc.now().In(sc.opts.Location)
}

func (sc *Scheduler) runReminders() {
	ctx, cancel := context.WithTimeout(sc.ctx, sc.opts.JobTimeout)
	defer cancel()
	n, err := sc.jobs.SendReminders(ctx, sc.Today())
	if err != nil {
		sc.log.Error("reminder job failed", zap.Error(err))
		return
	}
	sc.log.Info("reminder job done", zap.Int("queued", n))
}

func (sc *Scheduler) runResend() {
	ctx, cancel := context.WithTimeout(sc.ctx, sc.opts.JobTimeout)
	defer cancel()
	if _, err := sc.jobs.ResendConfirmations(ctx, sc.opts.ResendGrace, 100); err != nil {
		sc.log.Error("confirmation resend failed", zap.Error(err))
	}
}
