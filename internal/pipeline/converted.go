package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/backmassage/scorebatch/internal/config"
	"github.com/backmassage/scorebatch/internal/display"
	"github.com/backmassage/scorebatch/internal/logging"
	"github.com/backmassage/scorebatch/internal/planner"
	"github.com/backmassage/scorebatch/internal/probe"
)

// Inspector summarizes a converted output. probe.Inspect is the production
// implementation.
type Inspector func(path string) (*probe.Score, error)

// ConvertedOutputs lists, in candidate order, the output of every
// non-excluded candidate that exists. When cfg.Verify is set each output is
// also inspected and dropped unless it parses and has cfg.MinParts
// non-empty parts. Existence errors are fatal; inspection errors only drop
// the file.
func ConvertedOutputs(
	ctx context.Context,
	cfg *config.Config,
	log *logging.Logger,
	p *planner.Planner,
	candidates []string,
	excluded planner.Excluded,
	inspect Inspector,
) ([]string, error) {
	type result struct {
		output string
		keep   bool
	}
	results := make([]result, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.StatWorkers, 1))
	for i, in := range candidates {
		if excluded != nil && excluded.Contains(in) {
			continue
		}
		i, in := i, in
		g.Go(func() error {
			out := p.OutputFor(in)
			ok, err := p.Storage.Exists(gctx, out)
			if err != nil {
				return &StorageError{Op: "check output", Err: fmt.Errorf("%s: %w", out, err)}
			}
			if !ok {
				return nil
			}
			if cfg.Verify && inspect != nil {
				score, err := inspect(out)
				if err != nil {
					log.Warn("Dropping %s: %v", out, err)
					return nil
				}
				if usable, reason := score.Usable(cfg.MinParts); !usable {
					log.Warn("Dropping %s: %s", out, reason)
					return nil
				}
			}
			results[i] = result{output: out, keep: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var outputs []string
	seen := make(map[string]bool)
	for _, r := range results {
		if r.keep && !seen[r.output] {
			seen[r.output] = true
			outputs = append(outputs, r.output)
		}
	}
	log.Info("Confirmed %d converted %s", len(outputs), display.Plural(len(outputs), "file"))
	return outputs, nil
}
