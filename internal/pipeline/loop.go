package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/backmassage/scorebatch/internal/audit"
	"github.com/backmassage/scorebatch/internal/checkpoint"
	"github.com/backmassage/scorebatch/internal/config"
	"github.com/backmassage/scorebatch/internal/display"
	"github.com/backmassage/scorebatch/internal/ledger"
	"github.com/backmassage/scorebatch/internal/logging"
	"github.com/backmassage/scorebatch/internal/mscore"
	"github.com/backmassage/scorebatch/internal/planner"
)

// Converter runs one round over a batch. *mscore.Runner is the production
// implementation.
type Converter interface {
	Run(ctx context.Context, batch planner.Batch) (mscore.RoundResult, error)
}

// Recorder receives the audit trail. *audit.Store is the production
// implementation.
type Recorder interface {
	RecordRound(audit.Round) error
	RecordExclusion(audit.Exclusion) error
}

// Checkpointer persists loop state after every round. *checkpoint.Store is
// the production implementation.
type Checkpointer interface {
	Save(checkpoint.State) error
}

// Options wires a Loop. Planner, Converter and Attributor are required.
type Options struct {
	RunID      string
	Candidates []string
	Ledger     *ledger.Ledger // nil starts empty
	StartRound int            // rounds already completed (resume)

	// Pending and PrevBatch restore a stall awaiting confirmation at the
	// next planning step, with the batch size of the round that raised it.
	Pending   StallReason
	PrevBatch int

	Planner    *planner.Planner
	Converter  Converter
	Attributor *mscore.Attributor

	Recorder   Recorder     // optional
	Checkpoint Checkpointer // optional
}

// Loop is one convergence run over a fixed candidate set.
type Loop struct {
	cfg  *config.Config
	log  *logging.Logger
	opts Options
	now  func() time.Time
}

// NewLoop validates opts and returns a ready Loop.
func NewLoop(cfg *config.Config, log *logging.Logger, opts Options) (*Loop, error) {
	if opts.Planner == nil || opts.Converter == nil || opts.Attributor == nil {
		return nil, errors.New("loop needs a planner, converter and attributor")
	}
	if opts.StartRound < 0 {
		return nil, fmt.Errorf("start round must not be negative (got %d)", opts.StartRound)
	}
	if opts.Pending != NoReason && (opts.PrevBatch < 1 || opts.StartRound < 1) {
		return nil, fmt.Errorf("pending stall %q needs a completed round and a previous batch size", opts.Pending)
	}
	if err := opts.Planner.CheckCandidates(opts.Candidates); err != nil {
		return nil, err
	}
	if opts.Ledger == nil {
		opts.Ledger = ledger.New()
	}
	if opts.RunID == "" {
		opts.RunID = audit.NewRunID()
	}
	return &Loop{cfg: cfg, log: log, opts: opts, now: time.Now}, nil
}

// RunID returns the identifier used for the checkpoint and audit trail.
func (l *Loop) RunID() string { return l.opts.RunID }

// Ledger returns the loop's exclusion ledger.
func (l *Loop) Ledger() *ledger.Ledger { return l.opts.Ledger }

// Run drives rounds until the batch is empty, progress stops, a ceiling is
// hit or ctx is cancelled. The returned error is non-nil only for fatal
// storage failures, and the Outcome state is then Failed; every other
// ending is described by the Outcome alone.
func (l *Loop) Run(ctx context.Context) (Outcome, error) {
	start := l.now()
	round := l.opts.StartRound
	lg := l.opts.Ledger
	out := Outcome{Stats: RunStats{Candidates: len(l.opts.Candidates)}}

	finish := func(state State, reason StallReason) Outcome {
		out.State = state
		out.Reason = reason
		out.Rounds = round
		out.Exclusions = lg.Entries()
		out.Stats.Elapsed = l.now().Sub(start)
		logSummary(l.log, &out)
		return out
	}
	fail := func(err error) (Outcome, error) {
		out.State = Failed
		out.Reason = NoReason
		out.Rounds = round
		out.Exclusions = lg.Entries()
		out.Stats.Elapsed = l.now().Sub(start)
		return out, err
	}

	pending, prevSize := l.opts.Pending, l.opts.PrevBatch
	if pending != NoReason {
		l.log.Info("Resuming with a %s stall pending from round %d (%d outstanding then)", pending, round, prevSize)
	}
	if err := l.save(round, pending, prevSize); err != nil {
		return fail(err)
	}

	for {
		// --- Planning ---
		if ctx.Err() != nil {
			l.log.Warn("Interrupted")
			return finish(Cancelled, NoReason), nil
		}
		batch, err := l.opts.Planner.Plan(ctx, l.opts.Candidates, lg)
		if err != nil {
			if ctx.Err() != nil {
				l.log.Warn("Interrupted while planning")
				return finish(Cancelled, NoReason), nil
			}
			return fail(&StorageError{Op: "plan batch", Err: err})
		}
		out.Outstanding = batch
		if out.Stats.RoundsRun == 0 {
			out.Stats.InitialBatch = len(batch)
		}
		if len(batch) == 0 {
			return finish(Converged, NoReason), nil
		}
		if pending != NoReason {
			if len(batch) >= prevSize {
				l.log.Error("No progress: %d outstanding after round %d (%s)", len(batch), round, pending)
				return finish(Stalled, pending), nil
			}
			l.log.Info("Batch shrank %d -> %d; treating round %d as progress", prevSize, len(batch), round)
			pending = NoReason
			out.Culprit = ""
		}
		if l.cfg.MaxRounds > 0 && out.Stats.RoundsRun >= l.cfg.MaxRounds {
			l.log.Warn("Round limit reached (%d) with %d outstanding", l.cfg.MaxRounds, len(batch))
			return finish(Stalled, RoundLimit), nil
		}
		if l.cfg.MaxDuration > 0 && l.now().Sub(start) >= l.cfg.MaxDuration {
			l.log.Warn("Time limit reached (%s) with %d outstanding", display.FormatDuration(l.cfg.MaxDuration), len(batch))
			return finish(Stalled, TimeLimit), nil
		}

		// --- Running ---
		next := round + 1
		l.log.Info("Round %d: converting %s %s", next, display.FormatCount(len(batch)), display.Plural(len(batch), "file"))
		res, err := l.opts.Converter.Run(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				l.log.Warn("Interrupted during round %d; its diagnostics are discarded", next)
				return finish(Cancelled, NoReason), nil
			}
			return fail(&StorageError{Op: fmt.Sprintf("run round %d", next), Err: err})
		}
		round = next
		out.Stats.RoundsRun++
		out.LastDiagnostics = res.Diagnostics
		prevSize = len(batch)

		// --- Extracting / Updating ---
		rec := audit.Round{
			RunID:     l.opts.RunID,
			Round:     round,
			BatchSize: len(batch),
			Status:    res.Status.String(),
			ExitCode:  res.ExitCode,
			Elapsed:   res.Elapsed,
		}
		var added *ledger.Entry
		pending, out.Culprit, added = l.update(round, batch, res, &rec, &out.Stats)

		if err := l.record(rec, added); err != nil {
			return fail(err)
		}
		if err := l.save(round, pending, prevSize); err != nil {
			return fail(err)
		}
	}
}

// update applies one round's result to the ledger. It returns the pending
// stall reason (NoReason after an in-batch exclusion), the blamed input for
// attribution stalls and the entry added to the ledger, if any.
func (l *Loop) update(round int, batch planner.Batch, res mscore.RoundResult, rec *audit.Round, stats *RunStats) (StallReason, string, *ledger.Entry) {
	if res.Status == mscore.Success {
		stats.CleanRounds++
		l.log.Success("Round %d: converter exited cleanly in %s", round, display.FormatDuration(res.Elapsed))
		return NoProgress, "", nil
	}

	stats.AbortRounds++
	l.log.Warn("Round %d: converter exited abnormally (status %d) after %s", round, res.ExitCode, display.FormatDuration(res.Elapsed))

	att, ok := l.opts.Attributor.Attribute(res.Diagnostics)
	if !ok {
		l.log.Error("Round %d: no input in the diagnostics matches the failure pattern %q; the pattern may not fit the converter's output",
			round, l.opts.Attributor.Pattern())
		return Unattributable, "", nil
	}
	rec.Attributed = att.Input
	if m := l.opts.Attributor.Matches(res.Diagnostics); len(m) > 1 {
		l.log.Debug("Round %d: %d paths in the diagnostics; blaming the last", round, len(m))
	}

	lg := l.opts.Ledger
	if prev, ok := lg.Lookup(att.Input); ok {
		l.log.Warn("Round %d: %s was already excluded in round %d", round, att.Input, prev.Round)
		return RepeatedAttribution, att.Input, nil
	}

	entry := ledger.Entry{Input: att.Input, Round: round, Cause: att.Cause, At: l.now().UTC()}
	lg.Add(entry)
	stats.Excluded++
	l.log.Exclude("Round %d: excluding %s", round, att.Input)
	l.log.Exclude("  cause: %s", att.Cause)

	if !batch.Has(att.Input) {
		l.log.Warn("Round %d: %s was not in this round's batch", round, att.Input)
		return OutsideBatch, att.Input, &entry
	}
	return NoReason, "", &entry
}

func (l *Loop) record(rec audit.Round, added *ledger.Entry) error {
	if l.opts.Recorder == nil {
		return nil
	}
	if added != nil {
		ex := audit.Exclusion{RunID: l.opts.RunID, Input: added.Input, Round: added.Round, Cause: added.Cause, At: added.At}
		if err := l.opts.Recorder.RecordExclusion(ex); err != nil {
			return &StorageError{Op: "audit exclusion", Err: err}
		}
	}
	if err := l.opts.Recorder.RecordRound(rec); err != nil {
		return &StorageError{Op: "audit round", Err: err}
	}
	return nil
}

func (l *Loop) save(round int, pending StallReason, prevSize int) error {
	if l.opts.Checkpoint == nil {
		return nil
	}
	st := checkpoint.New(l.opts.RunID, l.opts.Candidates, l.opts.Ledger.Entries(), round).
		WithLoopState(l.opts.Attributor.Pattern(), string(pending), prevSize)
	if err := l.opts.Checkpoint.Save(st); err != nil {
		return &StorageError{Op: "save checkpoint", Err: err}
	}
	return nil
}
