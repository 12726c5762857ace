// Package retry wraps startup dials in exponential backoff so a service can
// come up before its broker, cache or database.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds a retry loop.
type Policy struct {
	MaxRetries     uint64
	InitialBackoff time.Duration
	MaxElapsed     time.Duration
}

// DefaultPolicy is used by the service binaries for startup connections.
var DefaultPolicy = Policy{
	MaxRetries:     5,
	InitialBackoff: 500 * time.Millisecond,
	MaxElapsed:     30 * time.Second,
}

// Do runs op until it succeeds, the policy is exhausted or ctx is cancelled.
func Do(ctx context.Context, p Policy, name string, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	if p.InitialBackoff > 0 {
		bo.InitialInterval = p.InitialBackoff
	}
	bo.MaxElapsedTime = p.MaxElapsed

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := op()
		if err != nil {
			slog.WarnContext(ctx, "connect attempt failed", "target", name, "attempt", attempt, "error", err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, p.MaxRetries), ctx))
	if err != nil {
		return fmt.Errorf("%s: giving up after %d attempts: %w", name, attempt, err)
	}
	return nil
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, p Policy, name string, op func() (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, name, func() error {
		v, err := op()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
