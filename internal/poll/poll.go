package poll

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Config bounds a settle loop: a fixed attempt budget with a fixed
// delay between attempts.
type Config struct {
	Attempts int
	Delay    time.Duration
}

// Step inspects the watched state once. attempt is 1-based and final
// reports whether this is the last attempt of the budget. Returning
// done stops the loop with value as the settled result; returning an
// error aborts the loop immediately.
type Step[T any] func(ctx context.Context, attempt int, final bool) (value T, done bool, err error)

// Result carries the outcome of a settle loop. When the budget is
// exhausted without the step reporting done, Exhausted is true and
// Value holds the last value seen; exhaustion is not an error.
type Result[T any] struct {
	Value     T
	Attempts  int
	Exhausted bool
}

// Until runs step up to cfg.Attempts times, sleeping cfg.Delay between
// attempts. The context is honored both before each attempt and during
// the inter-attempt sleep.
func Until[T any](ctx context.Context, cfg Config, step Step[T]) (Result[T], error) {
	var last T
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		select {
		case <-ctx.Done():
			return Result[T]{Value: last, Attempts: attempt - 1}, ctx.Err()
		default:
		}

		value, done, err := step(ctx, attempt, attempt == cfg.Attempts)
		if err != nil {
			return Result[T]{Value: last, Attempts: attempt}, err
		}
		last = value
		if done {
			return Result[T]{Value: value, Attempts: attempt}, nil
		}

		if attempt < cfg.Attempts {
			log.Debug().
				Int("attempt", attempt).
				Dur("delay", cfg.Delay).
				Msg("Value not settled, waiting before next attempt")
			select {
			case <-ctx.Done():
				return Result[T]{Value: last, Attempts: attempt}, ctx.Err()
			case <-time.After(cfg.Delay):
			}
		}
	}
	return Result[T]{Value: last, Attempts: cfg.Attempts, Exhausted: true}, nil
}
