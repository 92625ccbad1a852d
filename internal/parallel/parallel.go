// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package parallel runs per-item work with a bounded number of goroutines
// while keeping results addressed by input position.
package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Outcome is the result of running fn on one input.
type Outcome[R any] struct {
	Value R
	Err   error
}

// Map calls fn on every item with at most limit calls in flight and returns
// one Outcome per item, in input order. A failing item never affects the
// others. Items not yet started when ctx is cancelled get ctx.Err().
// A limit below 1 is treated as 1.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, i int, item T) (R, error)) []Outcome[R] {
	if limit < 1 {
		limit = 1
	}
	out := make([]Outcome[R], len(items))
	sem := semaphore.NewWeighted(int64(limit))

	var g errgroup.Group
	for i, item := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(items); j++ {
				out[j].Err = err
			}
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			v, err := fn(ctx, i, item)
			out[i] = Outcome[R]{Value: v, Err: err}
			return nil
		})
	}
	g.Wait()
	return out
}
