package pipeline

import (
	"strings"

	"github.com/backmassage/scorebatch/internal/display"
	"github.com/backmassage/scorebatch/internal/logging"
)

// logSummary reports how the run ended.
func logSummary(log *logging.Logger, out *Outcome) {
	s := out.Stats
	log.Info("==============================")
	log.Info("Done: %s after %d %s (%s)", out.State, out.Rounds, display.Plural(out.Rounds, "round"), display.FormatDuration(s.Elapsed))
	log.Info("  Candidates: %s", display.FormatCount(s.Candidates))
	log.Info("  Rounds this run: %d (%d clean, %d aborted)", s.RoundsRun, s.CleanRounds, s.AbortRounds)
	log.Info("  Resolved this run: %s of %s outstanding",
		display.FormatCount(s.Resolved(len(out.Outstanding))), display.FormatCount(s.InitialBatch))
	log.Info("  Excluded: %d total, %d this run", len(out.Exclusions), s.Excluded)

	switch out.State {
	case Converged:
		log.Success("  Nothing outstanding")
	case Cancelled:
		log.Warn("  Interrupted with %d outstanding; resume from the checkpoint", len(out.Outstanding))
	case Stalled:
		log.Error("  Stalled (%s) with %d outstanding", out.Reason, len(out.Outstanding))
		if out.Culprit != "" {
			log.Error("  Culprit: %s", out.Culprit)
		}
		for _, e := range out.Exclusions {
			log.Error("  excluded round %d: %s", e.Round, e.Input)
		}
		logStderr(log, out.LastDiagnostics)
	}
}

// logStderr prints the last 20 lines of converter diagnostics.
func logStderr(log *logging.Logger, stderr string) {
	if strings.TrimSpace(stderr) == "" {
		return
	}
	log.Error("Last converter output:")
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	start := 0
	if len(lines) > 20 {
		start = len(lines) - 20
	}
	for _, l := range lines[start:] {
		log.Error("  %s", l)
	}
}
