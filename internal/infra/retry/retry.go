// Package retry provides the retry policy used around GitHub requests.
//
// Failures are sorted into classes by a Classify function. Each retryable
// class has its own backoff schedule, so network faults and error
// responses can wait for different amounts of time.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Class is the retry class of an error.
type Class int

// Error classes.
const (
	// ClassPermanent errors are returned immediately.
	ClassPermanent Class = iota
	// ClassTransient errors are network-level faults.
	ClassTransient
	// ClassStatus errors are unexpected HTTP status codes.
	ClassStatus
)

// String implements fmt.Stringer.
func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassStatus:
		return "status"
	default:
		return "permanent"
	}
}

// ExhaustedError is returned when a bounded schedule runs out of retries.
type ExhaustedError struct {
	Err      error
	Class    Class
	Attempts int
}

// Error implements error.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts (%s): %v", e.Attempts, e.Class, e.Err)
}

// Unwrap returns the last error.
func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Policy decides whether and when a failed operation runs again.
// Fields are ordered to minimize memory padding.
type Policy struct {
	// Classify sorts errors; nil treats every error as permanent.
	Classify func(error) Class
	// Sleep waits between attempts; nil uses SleepContext.
	Sleep func(ctx context.Context, d time.Duration) error
	// Notify is called before each sleep.
	Notify func(class Class, err error, delay time.Duration)
	// Schedules returns a fresh backoff per class. Classes without a
	// schedule are permanent.
	Schedules map[Class]func() backoff.BackOff
}

// Config holds the delays and retry bound of a fixed-delay policy.
type Config struct {
	TransientDelay time.Duration
	StatusDelay    time.Duration
	MaxRetries     int // 0 retries forever
}

// NewFixed returns a policy that waits a constant delay per class.
// With MaxRetries > 0 each class gives up after that many retries.
func NewFixed(cfg Config, classify func(error) Class) *Policy {
	return &Policy{
		Classify: classify,
		Schedules: map[Class]func() backoff.BackOff{
			ClassTransient: constant(cfg.TransientDelay, cfg.MaxRetries),
			ClassStatus:    constant(cfg.StatusDelay, cfg.MaxRetries),
		},
	}
}

func constant(d time.Duration, maxRetries int) func() backoff.BackOff {
	return func() backoff.BackOff {
		// BackOff implementations are stateful; always return a fresh instance.
		var b backoff.BackOff = backoff.NewConstantBackOff(d)
		if maxRetries > 0 {
			b = backoff.WithMaxRetries(b, uint64(maxRetries))
		}
		return b
	}
}

// Do runs op until it succeeds, fails permanently, exhausts its class
// schedule or ctx is done.
func (p *Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	schedules := make(map[Class]backoff.BackOff)
	attempts := 0
	for {
		attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return perm.Unwrap()
		}
		class := p.classify(err)
		newSchedule, ok := p.Schedules[class]
		if class == ClassPermanent || !ok {
			return err
		}
		schedule, ok := schedules[class]
		if !ok {
			schedule = newSchedule()
			schedules[class] = schedule
		}

		delay := schedule.NextBackOff()
		if delay == backoff.Stop {
			return &ExhaustedError{Err: err, Class: class, Attempts: attempts}
		}
		if p.Notify != nil {
			p.Notify(class, err, delay)
		}
		if err := p.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (p *Policy) classify(err error) Class {
	if p.Classify == nil {
		return ClassPermanent
	}
	return p.Classify(err)
}

func (p *Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

// SleepContext blocks for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
