package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/backmassage/scorebatch/internal/audit"
	"github.com/backmassage/scorebatch/internal/config"
)

func newExclusionsCmd() *cobra.Command {
	f := config.NewFlags()
	var runID string
	cmd := &cobra.Command{
		Use:   "exclusions",
		Short: "List audited exclusions for a run (default: the latest run)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExclusions(cmd, f, runID)
		},
	}
	f.DefineCommon(cmd.Flags())
	f.DefineState(cmd.Flags())
	cmd.Flags().StringVar(&runID, "run", "", "Run ID (default: latest)")
	return cmd
}

func runExclusions(cmd *cobra.Command, f *config.Flags, runID string) error {
	cfg, err := resolve(f, cmd)
	if err != nil {
		return err
	}
	if cfg.AuditDB == "" {
		return fmt.Errorf("auditing is disabled (empty --audit-db)")
	}
	if _, err := os.Stat(cfg.AuditDB); err != nil {
		return fmt.Errorf("no audit database at %s", cfg.AuditDB)
	}
	db, err := audit.Open(cfg.AuditDB)
	if err != nil {
		return err
	}
	defer db.Close()

	var run *audit.Run
	if runID != "" {
		run, err = db.GetRun(runID)
	} else {
		run, err = db.LatestRun()
	}
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("no run %q in %s", runID, cfg.AuditDB)
	}

	exclusions, err := db.ListExclusions(run.ID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s: %d exclusions\n", run.ID, len(exclusions))
	for _, e := range exclusions {
		fmt.Fprintf(out, "%d\t%s\t%s\n", e.Round, e.Input, e.Cause)
	}
	return nil
}
