package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/backmassage/scorebatch/internal/audit"
	"github.com/backmassage/scorebatch/internal/check"
	"github.com/backmassage/scorebatch/internal/checkpoint"
	"github.com/backmassage/scorebatch/internal/config"
	"github.com/backmassage/scorebatch/internal/corpus"
	"github.com/backmassage/scorebatch/internal/display"
	"github.com/backmassage/scorebatch/internal/ledger"
	"github.com/backmassage/scorebatch/internal/logging"
	"github.com/backmassage/scorebatch/internal/mscore"
	"github.com/backmassage/scorebatch/internal/pipeline"
	"github.com/backmassage/scorebatch/internal/planner"
	"github.com/backmassage/scorebatch/internal/probe"
)

func newConvertCmd() *cobra.Command {
	f := config.NewFlags()
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Run the converter round by round until the candidate set converges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConvert(cmd, f)
		},
	}
	f.DefineCommon(cmd.Flags())
	f.DefineConvert(cmd.Flags())
	return cmd
}

// runState is where a run starts: a fresh candidate list or a checkpoint.
type runState struct {
	runID      string
	candidates []string
	ledger     *ledger.Ledger
	round      int
	pending    pipeline.StallReason
	prevBatch  int
}

func runConvert(cmd *cobra.Command, f *config.Flags) error {
	// Phase 1: config and logger.
	cfg, err := resolve(f, cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateConvert(); err != nil {
		return err
	}
	log, err := logging.NewLogger(&cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	display.PrintBanner(cmd.OutOrStdout())

	attr, err := mscore.NewAttributor(cfg.FailurePattern)
	if err != nil {
		return err
	}
	store, err := checkpoint.NewStore(cfg.CheckpointFile)
	if err != nil {
		return err
	}
	rs, err := loadRunState(&cfg, store, log)
	if err != nil {
		return err
	}

	log.Info("=== scorebatch v%s (%s) ===", version, commit)
	log.Info("Run:        %s", rs.runID)
	log.Info("Candidates: %s", display.FormatCount(len(rs.candidates)))
	log.Info("Excluded:   %d", rs.ledger.Len())
	log.Debug("Settings: %s", cfg.String())

	ctx, stop := signalContext(cmd.Context(), log)
	defer stop()

	p := planner.New(&cfg, planner.FS{})

	// Phase 2: dry run prints the next batch and stops.
	if cfg.DryRun {
		log.Warn("DRY RUN: the converter will not be started")
		for _, in := range rs.ledger.Inputs() {
			log.Debug("excluded: %s", in)
		}
		batch, err := p.Plan(ctx, rs.candidates, rs.ledger)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, t := range batch {
			fmt.Fprintf(out, "%s -> %s\n", t.Input, t.Output)
		}
		log.Info("Round %d would convert %s %s", rs.round+1, display.FormatCount(len(batch)), display.Plural(len(batch), "file"))
		return nil
	}

	// Fail fast if the converter is missing or the state directories are not writable.
	if err := check.CheckDeps(&cfg); err != nil {
		return err
	}

	// Phase 3: audit trail. Optional; an empty path disables it.
	var rec pipeline.Recorder
	var db *audit.Store
	if cfg.AuditDB != "" {
		db, err = audit.Open(cfg.AuditDB)
		if err != nil {
			return err
		}
		defer db.Close()
		err = db.BeginRun(audit.Run{
			ID:         rs.runID,
			StartedAt:  time.Now(),
			Candidates: len(rs.candidates),
			Settings:   cfg.String(),
		})
		if err != nil {
			return err
		}
		rec = db
	}

	// Phase 4: convergence loop.
	loop, err := pipeline.NewLoop(&cfg, log, pipeline.Options{
		RunID:      rs.runID,
		Candidates: rs.candidates,
		Ledger:     rs.ledger,
		StartRound: rs.round,
		Pending:    rs.pending,
		PrevBatch:  rs.prevBatch,
		Planner:    p,
		Converter:  mscore.NewRunner(&cfg),
		Attributor: attr,
		Recorder:   rec,
		Checkpoint: store,
	})
	if err != nil {
		return err
	}
	outcome, runErr := loop.Run(ctx)
	if db != nil {
		state, reason := outcome.State.String(), string(outcome.Reason)
		if runErr != nil {
			reason = runErr.Error()
		}
		if err := db.FinishRun(rs.runID, state, reason, outcome.Rounds); err != nil {
			log.Warn("Could not finish audit run: %v", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	// Phase 5: converted list. Skipped on cancellation since ctx is done.
	if cfg.ConvertedOut != "" && outcome.State != pipeline.Cancelled {
		outputs, err := pipeline.ConvertedOutputs(ctx, &cfg, log, p, rs.candidates, rs.ledger, probe.Inspect)
		if err != nil {
			return err
		}
		if err := corpus.WriteList(cfg.ConvertedOut, outputs); err != nil {
			return err
		}
		log.Success("Wrote %s", cfg.ConvertedOut)
	}

	switch outcome.State {
	case pipeline.Stalled:
		return exitStatus(exitStalled)
	case pipeline.Cancelled:
		return exitStatus(exitCancelled)
	}
	return nil
}

// loadRunState starts fresh from the candidate list, or with --resume
// restores run id, ledger, round and any pending stall from the checkpoint.
// A candidate list given alongside --resume must match the checkpointed
// one. A pending stall raised under a different failure pattern is dropped.
func loadRunState(cfg *config.Config, store *checkpoint.Store, log *logging.Logger) (runState, error) {
	if !cfg.Resume {
		cands, err := corpus.ReadList(cfg.CandidatesFile)
		if err != nil {
			return runState{}, err
		}
		if prev, err := store.Load(); err == nil && prev.Round > 0 {
			log.Warn("Replacing checkpoint of run %s (round %d); use --resume to continue it", prev.RunID, prev.Round)
		}
		return runState{runID: audit.NewRunID(), candidates: cands, ledger: ledger.New()}, nil
	}

	st, err := store.Load()
	if errors.Is(err, checkpoint.ErrNotFound) {
		return runState{}, fmt.Errorf("nothing to resume: no checkpoint at %s", store.Path())
	}
	if err != nil {
		return runState{}, err
	}
	if cfg.CandidatesFile != "" {
		cands, err := corpus.ReadList(cfg.CandidatesFile)
		if err != nil {
			return runState{}, err
		}
		if checkpoint.Fingerprint(cands) != st.CandidatesHash {
			return runState{}, fmt.Errorf("candidate list %s differs from the one checkpointed by run %s", cfg.CandidatesFile, st.RunID)
		}
	}
	lg, err := ledger.Restore(st.Exclusions)
	if err != nil {
		return runState{}, fmt.Errorf("restore ledger: %w", err)
	}
	log.Info("Resuming run %s after round %d", st.RunID, st.Round)
	rs := runState{runID: st.RunID, candidates: st.Candidates, ledger: lg, round: st.Round}
	if st.Pending != "" {
		if st.Pattern != cfg.FailurePattern {
			log.Info("Failure pattern changed; not carrying over the %s stall from round %d", st.Pending, st.Round)
		} else {
			rs.pending, rs.prevBatch = pipeline.StallReason(st.Pending), st.PrevBatch
		}
	}
	return rs, nil
}
