package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// instantTimer fires immediately and remembers every delay it was asked to wait.
type instantTimer struct {
	delays []time.Duration
	c      chan time.Time
}

func newInstantTimer() *instantTimer {
	return &instantTimer{c: make(chan time.Time, 1)}
}

func (t *instantTimer) Start(d time.Duration) {
	t.delays = append(t.delays, d)
	t.c <- time.Now()
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time {
	return t.c
}

var errFlaky = errors.New("flaky")

func TestDoExhaustsAttempts(t *testing.T) {
	timer := newInstantTimer()
	calls := 0

	_, err := Do(context.Background(), DefaultPolicy(), func(ctx context.Context, attempt int) (int, error) {
		calls++
		require.Equal(t, calls, attempt)
		return 0, errFlaky
	}, WithTimer(timer))

	require.ErrorIs(t, err, errFlaky)
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, timer.delays)
}

func TestDoReturnsLastError(t *testing.T) {
	errs := []error{errors.New("first"), errors.New("second"), errors.New("third")}

	_, err := Do(context.Background(), DefaultPolicy(), func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, errs[attempt-1]
	}, WithTimer(newInstantTimer()))

	require.Equal(t, errs[2], err)
}

func TestDoStopsOnSuccess(t *testing.T) {
	timer := newInstantTimer()
	calls := 0

	value, err := Do(context.Background(), DefaultPolicy(), func(ctx context.Context, attempt int) (string, error) {
		calls++
		if attempt < 2 {
			return "", errFlaky
		}
		return "ok", nil
	}, WithTimer(timer))

	require.NoError(t, err)
	require.Equal(t, "ok", value)
	require.Equal(t, 2, calls)
	require.Equal(t, []time.Duration{time.Second}, timer.delays)
}

func TestDoPermanent(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), DefaultPolicy(), func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, Permanent(errFlaky)
	}, WithTimer(newInstantTimer()))

	require.ErrorIs(t, err, errFlaky)
	require.Equal(t, 1, calls)
}

func TestDoNotify(t *testing.T) {
	type notification struct {
		attempt int
		delay   time.Duration
	}
	var got []notification

	policy := Policy{MaxAttempts: 4, BaseDelay: 10 * time.Millisecond, Backoff: Constant}
	_, err := Do(context.Background(), policy, func(ctx context.Context, attempt int) (int, error) {
		return 0, errFlaky
	},
		WithTimer(newInstantTimer()),
		WithNotify(func(err error, attempt int, delay time.Duration) {
			got = append(got, notification{attempt: attempt, delay: delay})
		}),
	)

	require.Error(t, err)
	require.Equal(t, []notification{
		{attempt: 1, delay: 10 * time.Millisecond},
		{attempt: 2, delay: 10 * time.Millisecond},
		{attempt: 3, delay: 10 * time.Millisecond},
	}, got)
}

func TestDoCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, DefaultPolicy(), func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, errFlaky
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestPolicyDelay(t *testing.T) {
	testCases := []struct {
		policy   Policy
		attempt  int
		expected time.Duration
	}{
		{policy: DefaultPolicy(), attempt: 1, expected: time.Second},
		{policy: DefaultPolicy(), attempt: 2, expected: 2 * time.Second},
		{policy: Policy{BaseDelay: time.Second}, attempt: 3, expected: 3 * time.Second},
		{policy: Policy{BaseDelay: time.Second, Backoff: Constant}, attempt: 3, expected: time.Second},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, test.policy.Delay(test.attempt))
	}
}

func TestZeroAttemptsStillRunsOnce(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{}, func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, errFlaky
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}
