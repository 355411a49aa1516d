// Package retry wraps a bounded, exponential-backoff retry loop around any
// operation that returns a value or an error. It classifies cmn.ErrNotFound
// as a non-retryable domain signal, not a failure worth retrying.
package retry

import (
	"context"
	"time"

	retrygo "github.com/avast/retry-go"

	"github.com/duplicationmill/core/cmn"
)

// Options configures a Retrier; the zero value is DefaultOptions.
type Options struct {
	Attempts uint
	Delay    time.Duration
}

// DefaultOptions runs up to 3 attempts total with a 200ms base delay,
// matching the processor's "retry up to 3 times total" copy-protocol rule.
var DefaultOptions = Options{Attempts: 3, Delay: 200 * time.Millisecond}

// Do runs fn, retrying per opts on any error except cmn.ErrNotFound (which
// is returned to the caller immediately as a typed outcome, never retried).
// On exhaustion the last error is returned unchanged.
func Do[T any](ctx context.Context, opts Options, fn func() (T, error)) (T, error) {
	if opts.Attempts == 0 {
		opts = DefaultOptions
	}
	var result T
	err := retrygo.Do(
		func() error {
			v, err := fn()
			if err != nil {
				return err
			}
			result = v
			return nil
		},
		retrygo.Attempts(opts.Attempts),
		retrygo.Delay(opts.Delay),
		retrygo.DelayType(retrygo.BackOffDelay),
		retrygo.RetryIf(func(err error) bool { return !cmn.IsNotFound(err) }),
		retrygo.Context(ctx),
		retrygo.LastErrorOnly(true),
	)
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// DoErr is Do for operations with no return value.
func DoErr(ctx context.Context, opts Options, fn func() error) error {
	_, err := Do(ctx, opts, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Kind classifies an error into one of the three buckets the processor's
// and producer's error-handling design distinguishes.
type Kind int

const (
	KindTransient Kind = iota
	KindNotFound
	KindFatal
)

// Classify maps err to a Kind. A *cmn.TaskExecutionFailed or *cmn.RunAborted
// is always Fatal; cmn.ErrNotFound is NotFound; anything else is treated as
// Transient (the caller is expected to have already exhausted retries via
// Do/DoErr before reaching for Classify).
func Classify(err error) Kind {
	if err == nil {
		return KindTransient
	}
	if cmn.IsNotFound(err) {
		return KindNotFound
	}
	var taskErr *cmn.TaskExecutionFailed
	var runErr *cmn.RunAborted
	if as(err, &taskErr) || as(err, &runErr) {
		return KindFatal
	}
	return KindTransient
}
