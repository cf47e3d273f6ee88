package config

// This file implements CLI flag binding. Flags are grouped into common,
// convert and discover sets. Values land in a scratch Config and are
// overlaid onto the layered config only when the user actually passed the
// flag, so the precedence is: defaults < config file < environment < flags.
// Negated flags (e.g. --no-verify) are applied after the overlay.

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// Flags collects flag values for one command invocation.
type Flags struct {
	values     Config
	negated    negatedFlags
	configPath string
	set        map[string]func(dst, src *Config)
}

// negatedFlags holds boolean flags that are applied after the overlay.
// These invert a default (e.g. noVerify -> Verify=false).
type negatedFlags struct {
	noVerify   bool
	forceColor bool
	noColor    bool
}

// NewFlags returns an empty flag collection seeded with defaults so help
// text shows the real default values.
func NewFlags() *Flags {
	return &Flags{
		values: DefaultConfig(),
		set:    make(map[string]func(dst, src *Config)),
	}
}

// bind records how a named flag copies its value into the final Config.
func (f *Flags) bind(name string, copyFn func(dst, src *Config)) {
	f.set[name] = copyFn
}

// DefineCommon registers flags shared by every command: --config, display
// and logging.
func (f *Flags) DefineCommon(fs *pflag.FlagSet) {
	v := &f.values
	fs.StringVar(&f.configPath, "config", "", "YAML config file")
	fs.BoolVarP(&v.Verbose, "verbose", "v", false, "Verbose output")
	f.bind("verbose", func(d, s *Config) { d.Verbose = s.Verbose })
	fs.BoolVar(&f.negated.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&f.negated.noColor, "no-color", false, "Disable colored logs")
	fs.Var(&colorModeValue{&v.ColorMode}, "color-mode", "Color mode: auto | always | never")
	f.bind("color-mode", func(d, s *Config) { d.ColorMode = s.ColorMode })
	fs.StringVarP(&v.LogFile, "log", "l", "", "Append logs to file")
	f.bind("log", func(d, s *Config) { d.LogFile = s.LogFile })
}

// DefineConvert registers converter, candidate, state and ceiling flags.
func (f *Flags) DefineConvert(fs *pflag.FlagSet) {
	v := &f.values
	fs.StringVar(&v.Converter, "converter", v.Converter, "Converter binary run once per round")
	f.bind("converter", func(d, s *Config) { d.Converter = s.Converter })
	fs.StringSliceVar(&v.ConverterArgs, "converter-arg", nil, "Extra converter argument (repeatable)")
	f.bind("converter-arg", func(d, s *Config) { d.ConverterArgs = s.ConverterArgs })
	fs.StringVar(&v.JobFile, "job", v.JobFile, "Job description written before each round")
	f.bind("job", func(d, s *Config) { d.JobFile = s.JobFile })
	fs.StringVar(&v.FailurePattern, "failure-pattern", "", `Regex matching the offending input in converter stderr (e.g. \.\./MuseScore/\d+/\d+\.mscz)`)
	f.bind("failure-pattern", func(d, s *Config) { d.FailurePattern = s.FailurePattern })
	fs.StringVarP(&v.CandidatesFile, "candidates", "i", "", "Candidate list file (one path per line)")
	f.bind("candidates", func(d, s *Config) { d.CandidatesFile = s.CandidatesFile })
	fs.StringVarP(&v.ConvertedOut, "converted-out", "o", "", "Write confirmed-converted outputs to this list file")
	f.bind("converted-out", func(d, s *Config) { d.ConvertedOut = s.ConvertedOut })
	fs.BoolVar(&v.Resume, "resume", false, "Restore ledger, round and any pending stall from the checkpoint; a stall the last round raised is confirmed without another round if nothing changed")
	f.bind("resume", func(d, s *Config) { d.Resume = s.Resume })
	fs.StringVar(&v.AuditDB, "audit-db", v.AuditDB, "SQLite audit trail (empty disables)")
	f.bind("audit-db", func(d, s *Config) { d.AuditDB = s.AuditDB })
	fs.IntVar(&v.MaxRounds, "max-rounds", 0, "Stop after this many rounds (0 = unlimited)")
	f.bind("max-rounds", func(d, s *Config) { d.MaxRounds = s.MaxRounds })
	fs.DurationVar(&v.MaxDuration, "max-duration", 0, "Stop after this much wall-clock time (0 = unlimited)")
	f.bind("max-duration", func(d, s *Config) { d.MaxDuration = s.MaxDuration })
	fs.IntVar(&v.StatWorkers, "stat-workers", v.StatWorkers, "Concurrent output existence checks")
	f.bind("stat-workers", func(d, s *Config) { d.StatWorkers = s.StatWorkers })
	fs.BoolVarP(&v.DryRun, "dry-run", "d", false, "Plan and print the batch; do not run the converter")
	f.bind("dry-run", func(d, s *Config) { d.DryRun = s.DryRun })
	fs.BoolVar(&f.negated.noVerify, "no-verify", false, "List outputs as converted without inspecting them")
	fs.IntVar(&v.MinParts, "min-parts", v.MinParts, "Minimum parts a converted score must have")
	f.bind("min-parts", func(d, s *Config) { d.MinParts = s.MinParts })
	fs.BoolVar(&v.ShowConverterOutput, "show-output", false, "Tee converter stderr to the terminal")
	f.bind("show-output", func(d, s *Config) { d.ShowConverterOutput = s.ShowConverterOutput })
	f.defineExtensions(fs)
	f.defineCheckpoint(fs)
}

// DefineDiscover registers score root, metadata and list directory flags.
func (f *Flags) DefineDiscover(fs *pflag.FlagSet) {
	v := &f.values
	fs.StringVar(&v.ScoreRoot, "root", "", "Score root holding <id>/<id>.mscz subdirectories")
	f.bind("root", func(d, s *Config) { d.ScoreRoot = s.ScoreRoot })
	fs.StringVar(&v.MetadataFile, "metadata", "", "JSONL metadata for the piano-only filter")
	f.bind("metadata", func(d, s *Config) { d.MetadataFile = s.MetadataFile })
	fs.StringSliceVar(&v.Composers, "composer", v.Composers, "Composer keyword (repeatable)")
	f.bind("composer", func(d, s *Config) { d.Composers = s.Composers })
	fs.StringVar(&v.ListDir, "list-dir", v.ListDir, "Directory for candidate list files")
	f.bind("list-dir", func(d, s *Config) { d.ListDir = s.ListDir })
	f.defineExtensions(fs)
}

// DefineState registers the flags read-only state commands need.
func (f *Flags) DefineState(fs *pflag.FlagSet) {
	v := &f.values
	fs.StringVar(&v.AuditDB, "audit-db", v.AuditDB, "SQLite audit trail")
	f.bind("audit-db", func(d, s *Config) { d.AuditDB = s.AuditDB })
	f.defineCheckpoint(fs)
}

// DefineCheck registers the flags the check command needs.
func (f *Flags) DefineCheck(fs *pflag.FlagSet) {
	v := &f.values
	fs.StringVar(&v.Converter, "converter", v.Converter, "Converter binary")
	f.bind("converter", func(d, s *Config) { d.Converter = s.Converter })
}

func (f *Flags) defineExtensions(fs *pflag.FlagSet) {
	if fs.Lookup("source-ext") != nil {
		return
	}
	v := &f.values
	fs.StringVar(&v.SourceExt, "source-ext", v.SourceExt, "Source score extension")
	f.bind("source-ext", func(d, s *Config) { d.SourceExt = s.SourceExt })
	fs.StringVar(&v.TargetExt, "target-ext", v.TargetExt, "Converted notation extension")
	f.bind("target-ext", func(d, s *Config) { d.TargetExt = s.TargetExt })
}

func (f *Flags) defineCheckpoint(fs *pflag.FlagSet) {
	if fs.Lookup("checkpoint") != nil {
		return
	}
	v := &f.values
	fs.StringVar(&v.CheckpointFile, "checkpoint", v.CheckpointFile, "Checkpoint file")
	f.bind("checkpoint", func(d, s *Config) { d.CheckpointFile = s.CheckpointFile })
}

// Resolve builds the final Config: defaults, then the config file (from
// --config), then SCOREBATCH_* environment, then every flag the user set.
func (f *Flags) Resolve(fs *pflag.FlagSet) (Config, error) {
	cfg := DefaultConfig()
	if f.configPath != "" {
		if err := LoadFile(&cfg, f.configPath); err != nil {
			return cfg, err
		}
	}
	if err := ApplyEnv(&cfg, os.Getenv); err != nil {
		return cfg, err
	}
	f.overlay(&cfg, fs)
	applyNegatedFlags(&cfg, &f.negated)
	return cfg, nil
}

// overlay copies values for flags the user explicitly passed.
func (f *Flags) overlay(cfg *Config, fs *pflag.FlagSet) {
	fs.Visit(func(fl *pflag.Flag) {
		if copyFn, ok := f.set[fl.Name]; ok {
			copyFn(cfg, &f.values)
		}
	})
}

// applyNegatedFlags copies negated and override flag values into cfg.
func applyNegatedFlags(cfg *Config, n *negatedFlags) {
	if n.noVerify {
		cfg.Verify = false
	}
	if n.noColor {
		cfg.ColorMode = ColorNever
	} else if n.forceColor {
		cfg.ColorMode = ColorAlways
	}
}

// colorModeValue adapts ColorMode for pflag so --color-mode rejects
// unknown values at parse time.
type colorModeValue struct{ p *ColorMode }

func (c *colorModeValue) String() string {
	if c.p == nil {
		return ""
	}
	return string(*c.p)
}

func (c *colorModeValue) Set(s string) error {
	m, err := parseColorMode(s)
	if err != nil {
		return err
	}
	*c.p = m
	return nil
}

func (c *colorModeValue) Type() string { return "mode" }

// SplitList parses a comma-separated flag or env value, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// String renders the settings that shape a conversion run, for the batch
// header and the audit trail.
func (c *Config) String() string {
	return fmt.Sprintf("converter=%s job=%s %s->%s pattern=%q",
		c.Converter, c.JobFile, c.SourceExt, c.TargetExt, c.FailurePattern)
}
