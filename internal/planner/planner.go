package planner

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/backmassage/scorebatch/internal/config"
	"github.com/backmassage/scorebatch/internal/naming"
)

// ErrForeignExt is returned for a candidate that does not end in the source
// extension. Such a candidate cannot be given an output of its own.
var ErrForeignExt = errors.New("candidate does not have the source extension")

// Planner derives outputs from inputs and filters candidates down to the
// outstanding batch.
type Planner struct {
	SourceExt string
	TargetExt string
	Storage   Storage
	Workers   int
}

// New returns a Planner using the extensions and worker count from cfg.
func New(cfg *config.Config, st Storage) *Planner {
	return &Planner{
		SourceExt: cfg.SourceExt,
		TargetExt: cfg.TargetExt,
		Storage:   st,
		Workers:   cfg.StatWorkers,
	}
}

// OutputFor returns the expected output path for input.
func (p *Planner) OutputFor(input string) string {
	return naming.OutputPath(input, p.SourceExt, p.TargetExt)
}

// CheckCandidates returns an error wrapping [ErrForeignExt] naming the
// first candidate without the source extension and how many there are.
func (p *Planner) CheckCandidates(candidates []string) error {
	first, n := "", 0
	for _, in := range candidates {
		if !naming.HasExt(in, p.SourceExt) {
			if n == 0 {
				first = in
			}
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return fmt.Errorf("%w (%s): %q and %d more", ErrForeignExt, p.SourceExt, first, n-1)
}

// Plan returns, in candidate order, a task for every candidate that is not
// excluded and whose output does not exist yet. A candidate listed twice is
// planned once, at its first position. Candidates without the source
// extension are rejected up front. Any storage error aborts planning.
func (p *Planner) Plan(ctx context.Context, candidates []string, excluded Excluded) (Batch, error) {
	if err := p.CheckCandidates(candidates); err != nil {
		return nil, err
	}
	var pending []Task
	seen := make(map[string]struct{}, len(candidates))
	for _, in := range candidates {
		if _, dup := seen[in]; dup {
			continue
		}
		seen[in] = struct{}{}
		if excluded != nil && excluded.Contains(in) {
			continue
		}
		pending = append(pending, Task{Input: in, Output: p.OutputFor(in)})
	}
	if len(pending) == 0 {
		return Batch{}, nil
	}

	exists := make([]bool, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i := range pending {
		i := i
		g.Go(func() error {
			ok, err := p.Storage.Exists(gctx, pending[i].Output)
			if err != nil {
				return fmt.Errorf("check output %s: %w", pending[i].Output, err)
			}
			exists[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := make(Batch, 0, len(pending))
	for i, t := range pending {
		if !exists[i] {
			batch = append(batch, t)
		}
	}
	return batch, nil
}
