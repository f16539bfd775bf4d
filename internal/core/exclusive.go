package core

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Exclusive lets at most one run through at a time and refuses the rest
// with ErrBusy. All shells of one process share a single Exclusive because
// they share the download directory.
type Exclusive struct {
	runner Runner
	sem    *semaphore.Weighted
}

func NewExclusive(runner Runner) *Exclusive {
	return &Exclusive{
		runner: runner,
		sem:    semaphore.NewWeighted(1),
	}
}

func (e *Exclusive) Run(ctx context.Context, query Query, reporter Reporter) (*Result, error) {
	if !e.sem.TryAcquire(1) {
		return nil, ErrBusy
	}
	defer e.sem.Release(1)

	return e.runner.Run(ctx, query, reporter)
}
