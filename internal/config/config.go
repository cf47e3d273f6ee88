// Package config holds runtime configuration: defaults, YAML file and
// environment layering, CLI flag binding, and validation.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Config holds all runtime settings. It is populated by [DefaultConfig],
// then layered with [LoadFile], [ApplyEnv] and command-line flags before
// being passed (by pointer) to packages that need it.
type Config struct {
	// Converter invocation.
	Converter      string   // Default: "mscore". Binary run once per round.
	ConverterArgs  []string // Extra arguments placed before "-j <job>".
	JobFile        string   // Default: ".scorebatch/job.json".
	SourceExt      string   // Default: ".mscz".
	TargetExt      string   // Default: ".musicxml".
	FailurePattern string   // Required for convert. Regex over path-like tokens in stderr.

	// Candidate input and converged output.
	CandidatesFile string // List file, one path per line (or a JSON array).
	ConvertedOut   string // Optional: write confirmed-converted outputs here.

	// Discovery (discover command).
	ScoreRoot    string   // Root holding <root>/<id>/<id>.mscz.
	MetadataFile string   // Optional JSONL metadata for the piano filter.
	Composers    []string // Default: beethoven, mozart. First match wins.
	ListDir      string   // Default: "data". Per-composer list files go here.

	// Run state.
	CheckpointFile string // Default: ".scorebatch/checkpoint.json".
	Resume         bool   // Restore ledger and round from CheckpointFile.
	AuditDB        string // Default: ".scorebatch/audit.db". Empty disables auditing.

	// Ceilings. Zero means unlimited.
	MaxRounds   int
	MaxDuration time.Duration

	// Behavior flags.
	DryRun      bool // Plan and print the batch without running the converter.
	StatWorkers int  // Default: 8. Concurrent existence checks while planning.
	Verify      bool // Default: true. Inspect outputs before listing them as converted.
	MinParts    int  // Default: 2 (right and left hand staves).

	// Display and logging.
	Verbose             bool
	ShowConverterOutput bool      // Tee converter stderr to the terminal.
	ColorMode           ColorMode // Default: "auto".
	LogFile             string    // Optional log file path.
}

// DefaultConfig returns a Config with all defaults applied. Used as the
// base before the config file, environment and flags are layered on top.
func DefaultConfig() Config {
	return Config{
		Converter:      "mscore",
		JobFile:        ".scorebatch/job.json",
		SourceExt:      ".mscz",
		TargetExt:      ".musicxml",
		Composers:      []string{"beethoven", "mozart"},
		ListDir:        "data",
		CheckpointFile: ".scorebatch/checkpoint.json",
		AuditDB:        ".scorebatch/audit.db",
		StatWorkers:    8,
		Verify:         true,
		MinParts:       2,
		ColorMode:      ColorAuto,
	}
}

// NormalizeExt returns ext with exactly one leading dot, lowercased.
// An empty input stays empty.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	return "." + strings.TrimLeft(ext, ".")
}

// Validate checks settings shared by every command: enum fields,
// extensions and numeric bounds. Command-specific requirements live in
// [Config.ValidateConvert].
func (c *Config) Validate() error {
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	c.SourceExt = NormalizeExt(c.SourceExt)
	c.TargetExt = NormalizeExt(c.TargetExt)
	if c.SourceExt == "" || c.TargetExt == "" {
		return errors.New("source and target extensions must not be empty")
	}
	if c.SourceExt == c.TargetExt {
		return fmt.Errorf("source and target extensions are both %q", c.SourceExt)
	}

	if c.StatWorkers < 1 {
		return fmt.Errorf("stat workers must be at least 1 (got %d)", c.StatWorkers)
	}
	if c.MaxRounds < 0 {
		return fmt.Errorf("max rounds must not be negative (got %d)", c.MaxRounds)
	}
	if c.MaxDuration < 0 {
		return fmt.Errorf("max duration must not be negative (got %s)", c.MaxDuration)
	}
	if c.MinParts < 1 {
		return fmt.Errorf("min parts must be at least 1 (got %d)", c.MinParts)
	}
	return nil
}

// ValidateConvert checks the settings the convert command needs on top of
// [Config.Validate]. The failure pattern is required because it encodes the
// corpus layout the converter reports; a stale pattern turns every abort
// into a stall.
func (c *Config) ValidateConvert() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Converter) == "" {
		return errors.New("converter binary must not be empty")
	}
	if strings.TrimSpace(c.JobFile) == "" {
		return errors.New("job file path must not be empty")
	}
	if strings.TrimSpace(c.FailurePattern) == "" {
		return errors.New("failure pattern is required (set --failure-pattern, failure_pattern or SCOREBATCH_FAILURE_PATTERN)")
	}
	if _, err := regexp.Compile(c.FailurePattern); err != nil {
		return fmt.Errorf("invalid failure pattern: %w", err)
	}
	if c.CandidatesFile == "" && !c.Resume {
		return errors.New("need a candidate list (--candidates) or --resume")
	}
	if c.Resume && strings.TrimSpace(c.CheckpointFile) == "" {
		return errors.New("--resume needs a checkpoint file")
	}
	return nil
}

// ValidateDiscover checks the settings the discover command needs.
func (c *Config) ValidateDiscover() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ScoreRoot == "" {
		return errors.New("need a score root directory")
	}
	if c.MetadataFile != "" && len(c.Composers) == 0 {
		return errors.New("metadata filtering needs at least one composer")
	}
	return nil
}
