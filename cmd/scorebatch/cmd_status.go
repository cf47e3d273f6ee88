package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/backmassage/scorebatch/internal/audit"
	"github.com/backmassage/scorebatch/internal/checkpoint"
	"github.com/backmassage/scorebatch/internal/config"
	"github.com/backmassage/scorebatch/internal/display"
)

func newStatusCmd() *cobra.Command {
	f := config.NewFlags()
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the checkpointed round and exclusion ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, f)
		},
	}
	f.DefineCommon(cmd.Flags())
	f.DefineState(cmd.Flags())
	return cmd
}

func runStatus(cmd *cobra.Command, f *config.Flags) error {
	cfg, err := resolve(f, cmd)
	if err != nil {
		return err
	}
	store, err := checkpoint.NewStore(cfg.CheckpointFile)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	st, err := store.Load()
	if errors.Is(err, checkpoint.ErrNotFound) {
		fmt.Fprintf(out, "No checkpoint at %s\n", store.Path())
		fmt.Fprintf(out, "Run 'scorebatch convert' to start a run.\n")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}

	fmt.Fprintf(out, "Run:        %s\n", st.RunID)
	fmt.Fprintf(out, "Round:      %d\n", st.Round)
	fmt.Fprintf(out, "Candidates: %s\n", display.FormatCount(len(st.Candidates)))
	fmt.Fprintf(out, "Updated:    %s\n", st.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	if fi, err := os.Stat(store.Path()); err == nil {
		fmt.Fprintf(out, "Checkpoint: %s (%s)\n", store.Path(), display.FormatBytes(fi.Size()))
	}

	if run, rounds := lookupRun(cfg.AuditDB, st.RunID); run != nil {
		if !run.FinishedAt.IsZero() {
			line := run.State
			if run.Reason != "" {
				line += " (" + run.Reason + ")"
			}
			fmt.Fprintf(out, "Outcome:    %s\n", line)
		}
		if n := len(rounds); n > 0 {
			last := rounds[n-1]
			fmt.Fprintf(out, "Last round: %d, %s %s, %s (exit %d)\n", last.Round,
				display.FormatCount(last.BatchSize), display.Plural(last.BatchSize, "file"), last.Status, last.ExitCode)
		}
	}

	fmt.Fprintf(out, "Excluded:   %d\n", len(st.Exclusions))
	for _, e := range st.Exclusions {
		fmt.Fprintf(out, "  round %d: %s\n", e.Round, e.Input)
		if e.Cause != "" {
			fmt.Fprintf(out, "    %s\n", e.Cause)
		}
	}
	return nil
}

// lookupRun reads a run and its rounds from the audit database without
// creating one. Audit problems only hide these lines.
func lookupRun(path, id string) (*audit.Run, []audit.Round) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	db, err := audit.Open(path)
	if err != nil {
		return nil, nil
	}
	defer db.Close()
	run, err := db.GetRun(id)
	if err != nil || run == nil {
		return nil, nil
	}
	rounds, _ := db.ListRounds(id)
	return run, rounds
}
