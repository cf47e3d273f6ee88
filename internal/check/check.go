// Package check provides system diagnostics (check command) and pre-run
// dependency validation (CheckDeps) for the score converter and the
// directories the conversion loop writes to.
package check

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/backmassage/scorebatch/internal/config"
)

// Sentinel errors returned by CheckDeps.
var (
	ErrConverterNotFound   = errors.New("converter not found on PATH")
	ErrStateDirNotWritable = errors.New("state directory is not writable")
)

// versionTimeout bounds the converter's --version probe; a GUI build that
// waits for a display must not hang the check.
const versionTimeout = 15 * time.Second

// Logger is the minimal logging interface needed by RunCheck.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(string, ...interface{})
}

// RunCheck runs the interactive check flow: converter availability and
// version, state directories and the failure pattern. It reports every
// problem and returns false if any was fatal.
func RunCheck(cfg *config.Config, log Logger) bool {
	log.Info("=== System Check ===")
	ok := checkConverter(cfg, log)
	for _, dir := range stateDirs(cfg) {
		if err := writableDir(dir); err != nil {
			log.Error("%s: %v", dir, err)
			ok = false
			continue
		}
		log.Success("writable: %s", dir)
	}
	checkPattern(cfg, log)
	return ok
}

// checkConverter verifies the converter resolves and logs its version line.
func checkConverter(cfg *config.Config, log Logger) bool {
	path, err := exec.LookPath(cfg.Converter)
	if err != nil {
		log.Error("%s not found", cfg.Converter)
		return false
	}
	log.Debug("converter resolved to %s", path)

	ctx, cancel := context.WithTimeout(context.Background(), versionTimeout)
	defer cancel()
	args := append(append([]string{}, cfg.ConverterArgs...), "--version")
	out, err := exec.CommandContext(ctx, path, args...).CombinedOutput()
	if err != nil {
		log.Warn("%s found but --version failed: %v", cfg.Converter, err)
		return true
	}
	log.Success("%s: %s", cfg.Converter, firstLine(string(out)))
	return true
}

// checkPattern reports whether a failure pattern is configured. A missing
// pattern is only a warning here because check does not convert anything.
func checkPattern(cfg *config.Config, log Logger) {
	if strings.TrimSpace(cfg.FailurePattern) == "" {
		log.Warn("No failure pattern set; convert will refuse to start")
		return
	}
	if _, err := regexp.Compile(cfg.FailurePattern); err != nil {
		log.Error("Failure pattern does not compile: %v", err)
		return
	}
	log.Success("failure pattern: %s", cfg.FailurePattern)
}

// CheckDeps is the pre-run validation: the converter must be on PATH and
// every state directory must be creatable and writable.
func CheckDeps(cfg *config.Config) error {
	if _, err := exec.LookPath(cfg.Converter); err != nil {
		return fmt.Errorf("%w: %s", ErrConverterNotFound, cfg.Converter)
	}
	for _, dir := range stateDirs(cfg) {
		if err := writableDir(dir); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrStateDirNotWritable, dir, err)
		}
	}
	return nil
}

// --- internal helpers ---

// stateDirs lists the distinct parent directories of the job, checkpoint
// and audit files.
func stateDirs(cfg *config.Config) []string {
	var dirs []string
	seen := make(map[string]bool)
	for _, p := range []string{cfg.JobFile, cfg.CheckpointFile, cfg.AuditDB} {
		if strings.TrimSpace(p) == "" {
			continue
		}
		d := filepath.Dir(p)
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// writableDir creates dir if needed and proves a file can be created in it.
func writableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".check-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "\n"); idx > 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
