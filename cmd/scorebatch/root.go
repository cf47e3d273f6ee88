package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/backmassage/scorebatch/internal/config"
	"github.com/backmassage/scorebatch/internal/logging"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit statuses for outcomes that are not errors.
const (
	exitStalled   = 1
	exitCancelled = 130
)

// exitStatus ends a command with a specific status after the command has
// already reported why. main prints nothing for it.
type exitStatus int

func (e exitStatus) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

// verbose is set once a command has resolved its config, so main can decide
// whether to print a stack trace for a fatal error.
var verbose bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "scorebatch",
		Short: "Drive a score converter over a large corpus until it converges",
		Long: "scorebatch runs a batch score converter round after round, blames the\n" +
			"input behind each crash from its diagnostics, excludes it, and re-issues\n" +
			"the rest until every remaining score has an output.",
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.AddCommand(newConvertCmd())
	root.AddCommand(newDiscoverCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newExclusionsCmd())
	root.AddCommand(newCheckCmd())
	return root
}

// resolve layers defaults, config file, environment and the command's flags.
func resolve(f *config.Flags, cmd *cobra.Command) (config.Config, error) {
	cfg, err := f.Resolve(cmd.Flags())
	if err != nil {
		return cfg, err
	}
	verbose = cfg.Verbose
	return cfg, nil
}

// signalContext cancels on SIGINT/SIGTERM so a round in flight is killed
// and the loop stops with the last checkpoint intact.
func signalContext(parent context.Context, log *logging.Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Received interrupt, stopping the current round…")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// statusOf maps a command error to a process exit status.
func statusOf(err error) (int, bool) {
	var es exitStatus
	if errors.As(err, &es) {
		return int(es), true
	}
	return 1, false
}
