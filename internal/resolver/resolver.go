// Package resolver implements the shuffle-then-linear-scan fallback
// strategy: given a candidate list and a probe, try candidates in a
// uniformly random order until one succeeds.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrExhausted is returned when every candidate failed, or when there
// were no candidates to begin with.
var ErrExhausted = errors.New("all candidates exhausted")

// Probe attempts one candidate. A nil error is a success even when the
// result is an empty value; any error moves the scan to the next
// candidate.
type Probe[T, R any] func(ctx context.Context, candidate T) (R, error)

// Resolve shuffles candidates and probes them strictly sequentially,
// returning the first success. The input slice is not mutated. Probe
// errors are collected and attached to the ErrExhausted failure.
// Context cancellation stops the scan immediately.
func Resolve[T, R any](ctx context.Context, candidates []T, probe Probe[T, R]) (R, error) {
	var zero R
	if len(candidates) == 0 {
		return zero, ErrExhausted
	}

	shuffled := make([]T, len(candidates))
	copy(shuffled, candidates)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	errs := make([]error, 0, len(shuffled))
	for _, candidate := range shuffled {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := probe(ctx, candidate)
		if err == nil {
			return result, nil
		}
		errs = append(errs, err)
	}
	return zero, fmt.Errorf("%w: %w", ErrExhausted, errors.Join(errs...))
}
