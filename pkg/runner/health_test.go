package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/esxm/pkg/errors"
)

// sequenceProbe returns the given results in order, then repeats the last.
func sequenceProbe(results []bool, calls *int) Probe {
	return func(context.Context) (bool, error) {
		i := *calls
		*calls++
		if i >= len(results) {
			i = len(results) - 1
		}
		return results[i], nil
	}
}

func instantPoller() *HealthPoller {
	p := NewHealthPoller()
	p.sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func TestHealthPoller_ReadyOnThirdAttempt(t *testing.T) {
	var calls int
	check := HealthCheck{
		Name:        "elasticsearch",
		MaxAttempts: 3,
		Probe:       sequenceProbe([]bool{false, false, true}, &calls),
	}

	err := instantPoller().Poll(context.Background(), check)
	require.NoError(t, err)
	assert.Equal(t, 3, calls, "probe should be evaluated exactly three times")
}

func TestHealthPoller_TimeoutAfterBudget(t *testing.T) {
	var calls int
	check := HealthCheck{
		Name:        "kibana",
		MaxAttempts: 3,
		Probe:       sequenceProbe([]bool{false}, &calls),
	}

	err := instantPoller().Poll(context.Background(), check)
	require.Error(t, err)
	assert.Equal(t, errors.KindTimeout, errors.KindOf(err))
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "kibana")
}

func TestHealthPoller_TransportErrorsAreNotFatal(t *testing.T) {
	var calls int
	check := HealthCheck{
		Name:        "elasticsearch",
		MaxAttempts: 4,
		Probe: func(context.Context) (bool, error) {
			calls++
			if calls < 3 {
				return false, errors.New(errors.KindPhaseFailed, "connection refused")
			}
			return true, nil
		},
	}

	err := instantPoller().Poll(context.Background(), check)
	require.NoError(t, err, "a probe error during cold start must count as not-yet-ready")
	assert.Equal(t, 3, calls)
}

func TestHealthPoller_TimeoutCarriesLastProbeError(t *testing.T) {
	check := HealthCheck{
		Name:        "fleet-server",
		MaxAttempts: 2,
		Probe: func(context.Context) (bool, error) {
			return false, errors.New(errors.KindPhaseFailed, "tls handshake failure")
		},
	}

	err := instantPoller().Poll(context.Background(), check)
	require.Error(t, err)
	assert.Equal(t, errors.KindTimeout, errors.KindOf(err))
	assert.Contains(t, err.Error(), "tls handshake failure")
}

func TestHealthPoller_ZeroAttemptsMeansOne(t *testing.T) {
	var calls int
	check := HealthCheck{Name: "x", Probe: sequenceProbe([]bool{true}, &calls)}
	require.NoError(t, instantPoller().Poll(context.Background(), check))
	assert.Equal(t, 1, calls)
}

func TestHealthPoller_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	check := HealthCheck{Name: "x", MaxAttempts: 5, Probe: func(context.Context) (bool, error) {
		t.Fatal("probe must not run after cancellation")
		return false, nil
	}}

	err := instantPoller().Poll(ctx, check)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHealthPoller_ObservesAttempts(t *testing.T) {
	var observed []int
	p := instantPoller()
	p.OnAttempt = func(attempt, max int) { observed = append(observed, attempt) }

	var calls int
	check := HealthCheck{Name: "x", MaxAttempts: 3, Probe: sequenceProbe([]bool{false, true}, &calls)}
	require.NoError(t, p.Poll(context.Background(), check))
	assert.Equal(t, []int{1, 2}, observed)
}

func TestHealthPoller_InitialDelayBeforeFirstAttempt(t *testing.T) {
	var slept []time.Duration
	p := NewHealthPoller()
	p.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	var calls int
	check := HealthCheck{
		Name:         "x",
		InitialDelay: 5 * time.Second,
		Interval:     time.Second,
		MaxAttempts:  2,
		Probe:        sequenceProbe([]bool{false, true}, &calls),
	}
	require.NoError(t, p.Poll(context.Background(), check))
	require.NotEmpty(t, slept)
	assert.Equal(t, 5*time.Second, slept[0], "grace delay precedes the first probe")
}
