package pipeline

import (
	"time"

	"github.com/backmassage/scorebatch/internal/ledger"
	"github.com/backmassage/scorebatch/internal/planner"
)

// State is the terminal state of a loop run.
type State int

const (
	Converged State = iota // Nothing outstanding.
	Stalled                // No further progress possible.
	Cancelled              // Stopped by the caller.
	Failed                 // Aborted by a storage error; see the returned error.
)

func (s State) String() string {
	switch s {
	case Converged:
		return "converged"
	case Stalled:
		return "stalled"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// StallReason explains a Stalled outcome.
type StallReason string

const (
	NoReason            StallReason = ""
	Unattributable      StallReason = "unattributable"       // Abnormal exit, no input matched the failure pattern.
	RepeatedAttribution StallReason = "repeated-attribution" // Abnormal exit blamed an input already excluded.
	OutsideBatch        StallReason = "outside-batch"        // Abnormal exit blamed an input that was not scheduled.
	NoProgress          StallReason = "no-progress"          // Clean exit, yet outputs are still missing.
	RoundLimit          StallReason = "round-limit"
	TimeLimit           StallReason = "time-limit"
)

// Outcome is the result of a loop run. Stalls and cancellation are
// outcomes, not errors.
type Outcome struct {
	State  State
	Reason StallReason

	// Rounds is the total number of completed rounds, including rounds
	// restored from a checkpoint.
	Rounds int

	// Culprit is the input behind a RepeatedAttribution or OutsideBatch stall.
	Culprit string

	// Exclusions is a snapshot of the ledger when the run ended.
	Exclusions []ledger.Entry

	// Outstanding is the last planned batch (empty when converged).
	Outstanding planner.Batch

	// LastDiagnostics is the converter stderr of the last completed round.
	LastDiagnostics string

	Stats RunStats
}

// RunStats holds counters for one loop invocation.
type RunStats struct {
	Candidates   int
	InitialBatch int // outstanding before the first round of this invocation
	RoundsRun    int // rounds run by this invocation
	Excluded     int // ledger additions made by this invocation
	CleanRounds  int
	AbortRounds  int
	Elapsed      time.Duration
}

// Resolved returns how many of the initially outstanding tasks were
// resolved (converted or excluded) by this invocation.
func (s RunStats) Resolved(outstanding int) int {
	return s.InitialBatch - outstanding
}
