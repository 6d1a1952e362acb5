// Package retry runs an operation under a bounded retry policy.
//
// The policy is a plain value so it can be configured, logged and tested
// independently of whatever the operation does.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// BackoffFunc returns the delay to wait after the given (1-indexed) failed attempt.
type BackoffFunc func(base time.Duration, attempt int) time.Duration

// Linear waits base * attempt, so 1s, 2s, 3s... for a base of 1s.
func Linear(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt)
}

// Constant always waits base.
func Constant(base time.Duration, _ int) time.Duration {
	return base
}

type Policy struct {
	// MaxAttempts is the total number of attempts including the first one.
	MaxAttempts int
	BaseDelay   time.Duration
	// Backoff defaults to Linear when nil.
	Backoff BackoffFunc
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Backoff:     Linear,
	}
}

// Delay returns the wait after the given failed attempt.
func (p Policy) Delay(attempt int) time.Duration {
	fn := p.Backoff
	if fn == nil {
		fn = Linear
	}
	return fn(p.BaseDelay, attempt)
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// policyBackOff adapts a Policy to backoff.BackOff.
type policyBackOff struct {
	policy Policy
	failed int
}

func (b *policyBackOff) NextBackOff() time.Duration {
	b.failed++
	if b.failed >= b.policy.attempts() {
		return backoff.Stop
	}
	return b.policy.Delay(b.failed)
}

func (b *policyBackOff) Reset() {
	b.failed = 0
}

type options struct {
	timer  backoff.Timer
	notify func(err error, attempt int, delay time.Duration)
}

type Option func(*options)

// WithTimer replaces the timer used to wait between attempts.
func WithTimer(timer backoff.Timer) Option {
	return func(o *options) {
		o.timer = timer
	}
}

// WithNotify registers a callback invoked after every failed attempt that
// will be retried, with the delay before the next attempt.
func WithNotify(fn func(err error, attempt int, delay time.Duration)) Option {
	return func(o *options) {
		o.notify = fn
	}
}

// Permanent marks err as not worth retrying, Do returns it unwrapped immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do calls op until it succeeds, returns a Permanent error, the policy runs out
// of attempts or ctx is done. On exhaustion the last error from op is returned.
// attempt is 1-indexed.
func Do[T any](ctx context.Context, policy Policy, op func(ctx context.Context, attempt int) (T, error), opts ...Option) (T, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	attempt := 0
	operation := func() (T, error) {
		attempt++
		return op(ctx, attempt)
	}

	var notify backoff.Notify
	if o.notify != nil {
		notify = func(err error, delay time.Duration) {
			o.notify(err, attempt, delay)
		}
	}

	b := backoff.WithContext(&policyBackOff{policy: policy}, ctx)
	return backoff.RetryNotifyWithTimerAndData(operation, b, notify, o.timer)
}
