package main

import (
	"github.com/spf13/cobra"

	"github.com/backmassage/scorebatch/internal/check"
	"github.com/backmassage/scorebatch/internal/config"
	"github.com/backmassage/scorebatch/internal/display"
	"github.com/backmassage/scorebatch/internal/logging"
)

func newCheckCmd() *cobra.Command {
	f := config.NewFlags()
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the converter and state directories are usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolve(f, cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log, err := logging.NewLogger(&cfg)
			if err != nil {
				return err
			}
			defer log.Close()
			display.PrintBanner(cmd.OutOrStdout())
			if !check.RunCheck(&cfg, log) {
				return exitStatus(1)
			}
			return nil
		},
	}
	f.DefineCommon(cmd.Flags())
	f.DefineCheck(cmd.Flags())
	f.DefineState(cmd.Flags())
	return cmd
}
