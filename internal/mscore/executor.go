package mscore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/backmassage/scorebatch/internal/config"
	"github.com/backmassage/scorebatch/internal/planner"
)

// Status is how a converter round ended.
type Status int

const (
	Success      Status = iota // Exit status zero.
	AbnormalExit               // Non-zero exit or killed by a signal.
)

func (s Status) String() string {
	if s == Success {
		return "success"
	}
	return "abnormal exit"
}

// RoundResult is the outcome of one converter invocation. A non-zero exit is
// a normal result, not an error: the caller decides what it means.
type RoundResult struct {
	Status      Status
	ExitCode    int // -1 when the process was killed by a signal.
	Diagnostics string
	Elapsed     time.Duration
}

// waitDelay bounds how long Wait blocks on inherited pipes after the
// converter has been killed.
const waitDelay = 5 * time.Second

// Runner invokes the converter once per round.
type Runner struct {
	cfg *config.Config
	tee io.Writer
}

// NewRunner returns a Runner for cfg. When cfg.ShowConverterOutput is set,
// converter output is tee'd to os.Stderr in real time as well as captured.
func NewRunner(cfg *config.Config) *Runner {
	r := &Runner{cfg: cfg}
	if cfg.ShowConverterOutput {
		r.tee = os.Stderr
	}
	return r
}

// Run writes the job description for batch, runs the converter and blocks
// until it exits. It returns an error only when the round could not be run
// at all (job file I/O, missing binary) or when ctx was cancelled; in the
// latter case the process is killed and its diagnostics are discarded.
func (r *Runner) Run(ctx context.Context, batch planner.Batch) (RoundResult, error) {
	if err := WriteJob(r.cfg.JobFile, batch); err != nil {
		return RoundResult{}, err
	}

	args := Build(r.cfg)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.WaitDelay = waitDelay

	var stderrBuf bytes.Buffer
	if r.tee != nil {
		cmd.Stderr = io.MultiWriter(&stderrBuf, r.tee)
		cmd.Stdout = r.tee
	} else {
		cmd.Stderr = &stderrBuf
	}

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		return RoundResult{}, ctx.Err()
	}

	res := RoundResult{Diagnostics: stderrBuf.String(), Elapsed: elapsed}
	if err == nil {
		res.Status = Success
		return res, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.Status = AbnormalExit
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return RoundResult{}, fmt.Errorf("run %s: %w", args[0], err)
}
