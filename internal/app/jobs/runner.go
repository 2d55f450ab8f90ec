package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nextbud/premium/internal/app/service/lifecycle"
	"github.com/nextbud/premium/pkg/config"
	"github.com/nextbud/premium/pkg/logctx"
	"github.com/nextbud/premium/pkg/metrics"
	"github.com/nextbud/premium/pkg/tool"
)

type Job string

const (
	JobExpiredPremiumSweep    Job = "expired_premium_sweep"
	JobPendingActivationSweep Job = "pending_activation_sweep"
)

// Jobs lists every job the runner knows, in scheduling order.
var Jobs = []Job{JobPendingActivationSweep, JobExpiredPremiumSweep}

func ParseJob(s string) (Job, error) {
	for _, j := range Jobs {
		if string(j) == s {
			return j, nil
		}
	}
	return "", fmt.Errorf("unknown job %q", s)
}

func (j Job) lockKey() string { return "premium:jobs:" + string(j) }

// Result of one job invocation. Summary is nil when the run was skipped.
type Result struct {
	Job      Job           `json:"job"`
	Skipped  bool          `json:"skipped"`
	Summary  any           `json:"summary,omitempty"`
	Duration time.Duration `json:"duration"`
}

type Runner struct {
	manager lifecycle.Manager
	locker  Locker
	cfg     *config.Config
	log     *zap.SugaredLogger
}

func NewRunner(manager lifecycle.Manager, locker Locker, cfg *config.Config, log *zap.SugaredLogger) *Runner {
	return &Runner{manager: manager, locker: locker, cfg: cfg, log: log}
}

// Run executes job once under its distributed lock. A busy lock is not an
// error: the result is marked skipped.
func (r *Runner) Run(ctx context.Context, job Job) (*Result, error) {
	start := time.Now()
	log := r.log.With("job", job, "run_id", tool.GenerateUUIDV7())
	ctx = logctx.With(ctx, log)

	release, err := r.locker.Acquire(ctx, job.lockKey(), r.cfg.Jobs.LockTTL)
	if errors.Is(err, ErrLockBusy) {
		log.Infow("job already running elsewhere, skipping")
		return &Result{Job: job, Skipped: true, Duration: time.Since(start)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("acquire lock for %s: %w", job, err)
	}
	defer func() {
		// Release on a fresh context so a timed-out run still unlocks.
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := release(unlockCtx); err != nil {
			log.Warnw("release job lock failed", "err", err)
		}
	}()

	if r.cfg.Jobs.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Jobs.RunTimeout)
		defer cancel()
	}
	defer metrics.ObserveBusinessProcess("jobs", string(job), start)

	var summary any
	switch job {
	case JobExpiredPremiumSweep:
		s, err := r.manager.DeactivateExpiredPremium(ctx)
		if err != nil {
			return nil, err
		}
		log.Infow("expired premium sweep finished",
			"checked", s.Checked, "deactivated", s.Deactivated,
			"still_active", s.StillActive, "errors", len(s.Errors))
		countOutcomes(job, map[string]int{
			"deactivated":  s.Deactivated,
			"still_active": s.StillActive,
			"error":        len(s.Errors),
		})
		summary = s
	case JobPendingActivationSweep:
		s, err := r.manager.ReconcilePendingActivations(ctx)
		if err != nil {
			return nil, err
		}
		log.Infow("pending activation sweep finished",
			"checked", s.Checked, "activated", s.Activated, "expired", s.Expired,
			"still_pending", s.StillPending, "errors", len(s.Errors))
		countOutcomes(job, map[string]int{
			"activated":     s.Activated,
			"expired":       s.Expired,
			"still_pending": s.StillPending,
			"error":         len(s.Errors),
		})
		summary = s
	default:
		return nil, fmt.Errorf("unknown job %q", job)
	}
	return &Result{Job: job, Summary: summary, Duration: time.Since(start)}, nil
}

func countOutcomes(job Job, counts map[string]int) {
	for outcome, n := range counts {
		metrics.CountSweepRecords(string(job), outcome, n)
	}
}
