package runner

import (
	"context"
	"time"

	"github.com/mensylisir/esxm/pkg/common"
	"github.com/mensylisir/esxm/pkg/errors"
)

// Probe evaluates a readiness condition once. A transport-level failure
// (connection refused, TLS handshake error) should be returned as an error;
// the poller treats it as "not yet ready", not as fatal.
type Probe func(ctx context.Context) (ready bool, err error)

// HealthCheck is a named, bounded readiness condition.
type HealthCheck struct {
	Name string
	// InitialDelay is an un-polled grace period before the first attempt,
	// for targets with no earlier readiness signal (process just forked,
	// port not yet bound).
	InitialDelay time.Duration
	// Interval separates attempts. Zero means back-to-back attempts.
	Interval time.Duration
	// MaxAttempts bounds the probe evaluations. Values below one are
	// treated as one.
	MaxAttempts int
	Probe       Probe
}

// DefaultHealthCheck fills in the stock 10s x 30 attempt budget around a
// probe.
func DefaultHealthCheck(name string, probe Probe) HealthCheck {
	return HealthCheck{
		Name:        name,
		Interval:    common.DefaultPollInterval,
		MaxAttempts: common.DefaultPollMaxAttempts,
		Probe:       probe,
	}
}

// AttemptFunc observes each poll attempt; used by the CLI to render
// progress.
type AttemptFunc func(attempt, max int)

// HealthPoller repeats a check's probe until it reports ready or the
// attempt budget is exhausted.
type HealthPoller struct {
	// OnAttempt, when set, is called before each probe evaluation.
	OnAttempt AttemptFunc
	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewHealthPoller builds a poller with real clock behaviour.
func NewHealthPoller() *HealthPoller {
	return &HealthPoller{sleep: sleepCtx}
}

// Poll returns nil on the first ready result, a Timeout-kind error after
// MaxAttempts evaluations without one, or the context error if cancelled.
// Probe errors are swallowed as not-ready; only the last one is attached to
// the timeout error for diagnosis.
func (h *HealthPoller) Poll(ctx context.Context, check HealthCheck) error {
	attempts := check.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := h.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	if check.InitialDelay > 0 {
		if err := sleep(ctx, check.InitialDelay); err != nil {
			return err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if h.OnAttempt != nil {
			h.OnAttempt(attempt, attempts)
		}
		ready, err := check.Probe(ctx)
		if err != nil {
			lastErr = err
		} else if ready {
			return nil
		}
		if attempt < attempts && check.Interval > 0 {
			if err := sleep(ctx, check.Interval); err != nil {
				return err
			}
		}
	}

	timeout := errors.New(errors.KindTimeout, "%s not ready after %d attempts (%s apart)",
		check.Name, attempts, check.Interval)
	if lastErr != nil {
		timeout.Cause = lastErr
	}
	return timeout
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
