package vector

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WithTimeout runs fn under a deadline of d. When the deadline fires the
// returned error also matches ErrDependencyTimeout. d <= 0 disables the
// deadline.
func WithTimeout[T any](ctx context.Context, d time.Duration, name string, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}

	callCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	v, err := fn(callCtx)
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded)) {
		var zero T
		return zero, fmt.Errorf("%w: %s exceeded %s: %w", ErrDependencyTimeout, name, d, err)
	}
	return v, err
}
