// Package retry provides one generic backoff wrapper around any blocking
// call, parameterized by {max_attempts, base_delay, max_delay}, instead of
// hand-rolled retry loops at every transport call site.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Policy parameterizes a backoff schedule.
type Policy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // starting delay before doubling
	MaxDelay    time.Duration // backoff cap
}

// SearchTransport is the backoff schedule for web search calls: base
// uniform(1s,10s), doubling, capped at 600s, up to 20 attempts. The base is
// drawn once each time SearchTransport is called.
func SearchTransport() Policy {
	base := time.Second + time.Duration(rand.Int63n(int64(9*time.Second)+1))
	return Policy{MaxAttempts: 20, BaseDelay: base, MaxDelay: 600 * time.Second}
}

// LLMTransport is the backoff schedule for LLM provider calls: up to 1000
// attempts, with a full-jitter wait of at most 10s between tries, so a
// sustained rate limit doesn't abort a long-running evaluation.
func LLMTransport() Policy {
	return Policy{MaxAttempts: 1000, BaseDelay: 10 * time.Second, MaxDelay: 10 * time.Second}
}

// permanentError marks an error as non-retriable: Do returns it immediately
// instead of continuing the backoff schedule.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so that Do stops retrying and returns it right away,
// for failures a backoff schedule can never fix (bad request, invalid
// credentials, and the like).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs fn, retrying on error up to p.MaxAttempts times with full-jitter
// exponential backoff between attempts. It returns the last error if every
// attempt fails, or nil as soon as fn succeeds. An error wrapped with
// Permanent is returned immediately without further attempts. ctx
// cancellation aborts the wait between attempts immediately.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}

	var lastErr error
	delay := p.BaseDelay

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		if attempt == p.MaxAttempts-1 {
			break
		}

		wait := fullJitter(delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay *= 2
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return lastErr
}

// fullJitter returns a random duration in (0, delay], the "full
// jitter" strategy: never wait longer than the current backoff step, but
// spread retries out so many concurrent callers don't thunder-herd.
func fullJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(delay)) + 1)
}
