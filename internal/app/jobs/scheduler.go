package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nextbud/premium/pkg/config"
)

type jobRunner interface {
	Run(ctx context.Context, job Job) (*Result, error)
}

// cronLogger routes cron's own logging into zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "err", err)...)
}

type Scheduler struct {
	cron   *cron.Cron
	runner jobRunner
	cfg    *config.Config
	log    *zap.SugaredLogger
	// sleep is swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewScheduler(runner *Runner, cfg *config.Config, log *zap.SugaredLogger) (*Scheduler, error) {
	return newScheduler(runner, cfg, log)
}

func newScheduler(runner jobRunner, cfg *config.Config, log *zap.SugaredLogger) (*Scheduler, error) {
	cl := cronLogger{log: log.Named("cron")}
	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner: runner,
		cfg:    cfg,
		log:    log,
		sleep:  sleepCtx,
	}
	specs := map[Job]string{
		JobExpiredPremiumSweep:    cfg.Jobs.ExpiredSweepCron,
		JobPendingActivationSweep: cfg.Jobs.PendingActivationCron,
	}
	for _, job := range Jobs {
		if _, err := s.cron.AddFunc(specs[job], func() { s.runWithRetry(context.Background(), job) }); err != nil {
			return nil, err
		}
		log.Infow("scheduled job", "job", job, "spec", specs[job])
	}
	return s, nil
}

// runWithRetry retries a failed run up to Jobs.MaxAttempts. Sweeps are
// idempotent so a retry only redoes what the failed attempt rolled back.
func (s *Scheduler) runWithRetry(ctx context.Context, job Job) {
	attempts := max(s.cfg.Jobs.MaxAttempts, 1)
	for attempt := 1; attempt <= attempts; attempt++ {
		res, err := s.runner.Run(ctx, job)
		if err == nil {
			if !res.Skipped {
				s.log.Infow("job run complete", "job", job, "attempt", attempt, "duration", res.Duration)
			}
			return
		}
		s.log.Errorw("job run failed", "job", job, "attempt", attempt, "max_attempts", attempts, "err", err)
		if attempt == attempts {
			return
		}
		if err := s.sleep(ctx, s.cfg.Jobs.RetryBackoff*time.Duration(attempt)); err != nil {
			return
		}
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func registerScheduler(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.Start()
			return nil
		},
		OnStop: s.Stop,
	})
}
