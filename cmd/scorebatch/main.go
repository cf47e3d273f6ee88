// Command scorebatch is the CLI entrypoint for the fault-tolerant score
// conversion loop.
//
// Subcommands discover candidate scores, run the convergence loop, and
// inspect the checkpoint and audit trail a run leaves behind.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// SCOREBATCH_* may come from a .env file; a missing file is fine.
	_ = godotenv.Load()

	root := newRootCmd()
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return 0
	}
	if code, ok := statusOf(err); ok {
		return code
	}

	err = xerrors.New(err)
	if verbose {
		xerrors.Print(err)
	} else {
		fmt.Fprintf(os.Stderr, "scorebatch: %v\n", err)
	}
	return 1
}
