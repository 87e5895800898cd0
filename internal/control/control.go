package control

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds the number of in-flight generation calls and applies an
// optional per-call timeout. A zero limit leaves admission unbounded.
type Limiter struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

// NewLimiter creates a limiter admitting at most maxInFlight concurrent
// calls. maxInFlight <= 0 disables the cap; timeout <= 0 disables the
// per-call deadline.
func NewLimiter(maxInFlight int, timeout time.Duration) *Limiter {
	l := &Limiter{timeout: timeout}
	if maxInFlight > 0 {
		l.sem = semaphore.NewWeighted(int64(maxInFlight))
	}
	return l
}

// Do runs fn under the admission cap. Waiting for admission respects ctx
// cancellation.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context) error) error {
	if l.sem != nil {
		if err := l.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		defer l.sem.Release(1)
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return fn(ctx)
}
