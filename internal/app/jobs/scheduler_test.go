package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedRunner struct {
	errs  []error
	calls int
}

func (r *scriptedRunner) Run(_ context.Context, job Job) (*Result, error) {
	r.calls++
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &Result{Job: job}, nil
}

func newTestScheduler(t *testing.T, runner jobRunner) (*Scheduler, *[]time.Duration) {
	t.Helper()
	cfg := testJobsConfig()
	cfg.Jobs.ExpiredSweepCron = "0 0 2 * * *"
	cfg.Jobs.PendingActivationCron = "0 0 * * * *"
	s, err := newScheduler(runner, cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	var slept []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return s, &slept
}

func TestSchedulerRegistersEveryJob(t *testing.T) {
	s, _ := newTestScheduler(t, &scriptedRunner{})
	assert.Len(t, s.cron.Entries(), len(Jobs))
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	cfg := testJobsConfig()
	cfg.Jobs.ExpiredSweepCron = "not a cron"
	cfg.Jobs.PendingActivationCron = "0 0 * * * *"
	_, err := newScheduler(&scriptedRunner{}, cfg, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestRunWithRetryStopsOnSuccess(t *testing.T) {
	r := &scriptedRunner{errs: []error{errors.New("transient"), nil}}
	s, slept := newTestScheduler(t, r)

	s.runWithRetry(context.Background(), JobExpiredPremiumSweep)
	assert.Equal(t, 2, r.calls)
	assert.Equal(t, []time.Duration{time.Second}, *slept)
}

func TestRunWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	boom := errors.New("still down")
	r := &scriptedRunner{errs: []error{boom, boom, boom, boom}}
	s, slept := newTestScheduler(t, r)

	s.runWithRetry(context.Background(), JobPendingActivationSweep)
	assert.Equal(t, 3, r.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestSchedulerStartStop(t *testing.T) {
	s, _ := newTestScheduler(t, &scriptedRunner{})
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
