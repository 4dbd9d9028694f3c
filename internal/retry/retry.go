// Package retry wraps external calls in bounded, configurable re-attempts.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes the retry behavior for one call site. Zero values
// disable the corresponding behavior: a zero MaxAttempts means a single
// attempt, a zero Delay means no fixed inter-attempt pause, and Jitter
// false keeps delays deterministic.
type Policy struct {
	Delay       time.Duration
	MinDelay    time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
	Jitter      bool
}

// Permanent marks an error as non-retryable. Do returns it immediately
// without consuming further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do runs op under the policy, re-attempting on error until op succeeds,
// the attempt ceiling is reached, or ctx is cancelled. The last error is
// returned on exhaustion.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var b backoff.BackOff = p.backoff()
	b = backoff.WithContext(b, ctx)
	b = backoff.WithMaxRetries(b, uint64(attempts-1))

	return backoff.Retry(op, b)
}

// Notify is like Do but invokes onRetry before each re-attempt, after the
// failed attempt has been recorded.
func (p Policy) Notify(ctx context.Context, op func() error, onRetry func(err error, next time.Duration)) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var b backoff.BackOff = p.backoff()
	b = backoff.WithContext(b, ctx)
	b = backoff.WithMaxRetries(b, uint64(attempts-1))

	return backoff.RetryNotify(op, b, onRetry)
}

func (p Policy) backoff() backoff.BackOff {
	if p.Delay == 0 && p.MinDelay == 0 {
		return &backoff.ZeroBackOff{}
	}

	if p.Jitter || p.MinDelay > 0 {
		exp := backoff.NewExponentialBackOff()
		if p.MinDelay > 0 {
			exp.InitialInterval = p.MinDelay
		} else {
			exp.InitialInterval = p.Delay
		}
		if p.MaxDelay > 0 {
			exp.MaxInterval = p.MaxDelay
		}
		if !p.Jitter {
			exp.RandomizationFactor = 0
		}
		exp.MaxElapsedTime = 0
		return exp
	}

	return backoff.NewConstantBackOff(p.Delay)
}

// Registry maps call-site identifiers to their retry policies. It is
// built once at startup and passed by reference; lookups never consult
// the environment.
type Registry struct {
	policies map[string]Policy
	fallback Policy
}

// NewRegistry creates a registry with the given default policy for
// unknown call sites.
func NewRegistry(fallback Policy) *Registry {
	return &Registry{
		policies: make(map[string]Policy),
		fallback: fallback,
	}
}

// Set registers the policy for a call site, replacing any previous one.
func (r *Registry) Set(callSite string, p Policy) {
	r.policies[callSite] = p
}

// For returns the policy registered for the call site, or the fallback.
func (r *Registry) For(callSite string) Policy {
	if p, ok := r.policies[callSite]; ok {
		return p
	}
	return r.fallback
}

// Validate checks the policy for nonsensical combinations.
func (p Policy) Validate() error {
	if p.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must be >= 0, got %d", p.MaxAttempts)
	}
	if p.MinDelay > 0 && p.MaxDelay > 0 && p.MinDelay > p.MaxDelay {
		return fmt.Errorf("min_delay %s exceeds max_delay %s", p.MinDelay, p.MaxDelay)
	}
	return nil
}
