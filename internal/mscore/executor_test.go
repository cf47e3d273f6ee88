package mscore

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/backmassage/scorebatch/internal/config"
	"github.com/backmassage/scorebatch/internal/planner"
)

// writeScript creates an executable /bin/sh converter stand-in in a temp
// dir and returns a config pointing at it.
func writeScript(t *testing.T, body string) *config.Config {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not in PATH")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-mscore")
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig()
	cfg.Converter = script
	cfg.JobFile = filepath.Join(dir, "job.json")
	return &cfg
}

var oneTask = planner.Batch{{Input: "../MuseScore/1/1.mscz", Output: "../MuseScore/1/1.musicxml"}}

func TestRun_Success(t *testing.T) {
	cfg := writeScript(t, `echo "convert <../MuseScore/1/1.mscz>... success" >&2; exit 0`)
	res, err := NewRunner(cfg).Run(context.Background(), oneTask)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != Success {
		t.Errorf("Status = %s, want success", res.Status)
	}
	if !strings.Contains(res.Diagnostics, "success") {
		t.Errorf("Diagnostics = %q", res.Diagnostics)
	}
}

func TestRun_AbnormalExitIsNotAnError(t *testing.T) {
	// $2 is the job path ("-j <job>"); echo it back so the test can see
	// the job reached the converter.
	cfg := writeScript(t, `cat "$2" >&2; echo "Aborted" >&2; exit 134`)
	res, err := NewRunner(cfg).Run(context.Background(), oneTask)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Status != AbnormalExit {
		t.Errorf("Status = %s, want abnormal exit", res.Status)
	}
	if res.ExitCode != 134 {
		t.Errorf("ExitCode = %d, want 134", res.ExitCode)
	}
	if !strings.Contains(res.Diagnostics, `"in":"../MuseScore/1/1.mscz"`) {
		t.Errorf("job not passed to converter: %q", res.Diagnostics)
	}
}

func TestRun_MissingBinary(t *testing.T) {
	cfg := config.DefaultConfig()
	dir := t.TempDir()
	cfg.Converter = filepath.Join(dir, "no-such-converter")
	cfg.JobFile = filepath.Join(dir, "job.json")
	_, err := NewRunner(&cfg).Run(context.Background(), oneTask)
	if err == nil {
		t.Fatal("expected error for missing converter")
	}
}

func TestRun_CancelKillsProcess(t *testing.T) {
	cfg := writeScript(t, `echo "convert <../MuseScore/1/1.mscz>..." >&2; exec sleep 30`)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := NewRunner(cfg).Run(ctx, oneTask)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run err = %v, want deadline exceeded", err)
	}
	if res.Diagnostics != "" {
		t.Errorf("diagnostics of a cancelled round must be discarded, got %q", res.Diagnostics)
	}
	if time.Since(start) > 10*time.Second {
		t.Error("converter was not killed on cancellation")
	}
}
