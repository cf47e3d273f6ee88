package config

// This file implements the YAML config file and SCOREBATCH_* environment
// layers. Both only override fields that are actually present, so the
// defaults from DefaultConfig hold for everything left unset.

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for YAML decoding. Pointer fields distinguish
// "absent" from a zero value.
type fileConfig struct {
	Converter      *string  `yaml:"converter"`
	ConverterArgs  []string `yaml:"converter_args"`
	JobFile        *string  `yaml:"job_file"`
	SourceExt      *string  `yaml:"source_ext"`
	TargetExt      *string  `yaml:"target_ext"`
	FailurePattern *string  `yaml:"failure_pattern"`

	CandidatesFile *string `yaml:"candidates"`
	ConvertedOut   *string `yaml:"converted_out"`

	ScoreRoot    *string  `yaml:"score_root"`
	MetadataFile *string  `yaml:"metadata"`
	Composers    []string `yaml:"composers"`
	ListDir      *string  `yaml:"list_dir"`

	CheckpointFile *string `yaml:"checkpoint"`
	AuditDB        *string `yaml:"audit_db"`

	MaxRounds   *int    `yaml:"max_rounds"`
	MaxDuration *string `yaml:"max_duration"`

	StatWorkers *int  `yaml:"stat_workers"`
	Verify      *bool `yaml:"verify"`
	MinParts    *int  `yaml:"min_parts"`

	ShowConverterOutput *bool   `yaml:"show_converter_output"`
	Color               *string `yaml:"color"`
	LogFile             *string `yaml:"log_file"`
}

// LoadFile reads a YAML config file and applies every key it sets onto cfg.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return Apply(cfg, data)
}

// Apply decodes YAML bytes and layers them onto cfg.
func Apply(cfg *Config, data []byte) error {
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil // empty file
		}
		return fmt.Errorf("parse config yaml: %w", err)
	}

	setString(&cfg.Converter, fc.Converter)
	if fc.ConverterArgs != nil {
		cfg.ConverterArgs = fc.ConverterArgs
	}
	setString(&cfg.JobFile, fc.JobFile)
	setString(&cfg.SourceExt, fc.SourceExt)
	setString(&cfg.TargetExt, fc.TargetExt)
	setString(&cfg.FailurePattern, fc.FailurePattern)
	setString(&cfg.CandidatesFile, fc.CandidatesFile)
	setString(&cfg.ConvertedOut, fc.ConvertedOut)
	setString(&cfg.ScoreRoot, fc.ScoreRoot)
	setString(&cfg.MetadataFile, fc.MetadataFile)
	if fc.Composers != nil {
		cfg.Composers = fc.Composers
	}
	setString(&cfg.ListDir, fc.ListDir)
	setString(&cfg.CheckpointFile, fc.CheckpointFile)
	setString(&cfg.AuditDB, fc.AuditDB)
	setString(&cfg.LogFile, fc.LogFile)

	if fc.MaxRounds != nil {
		cfg.MaxRounds = *fc.MaxRounds
	}
	if fc.MaxDuration != nil {
		d, err := time.ParseDuration(*fc.MaxDuration)
		if err != nil {
			return fmt.Errorf("max_duration: %w", err)
		}
		cfg.MaxDuration = d
	}
	if fc.StatWorkers != nil {
		cfg.StatWorkers = *fc.StatWorkers
	}
	if fc.Verify != nil {
		cfg.Verify = *fc.Verify
	}
	if fc.MinParts != nil {
		cfg.MinParts = *fc.MinParts
	}
	if fc.ShowConverterOutput != nil {
		cfg.ShowConverterOutput = *fc.ShowConverterOutput
	}
	if fc.Color != nil {
		m, err := parseColorMode(*fc.Color)
		if err != nil {
			return err
		}
		cfg.ColorMode = m
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// envPrefix namespaces every environment override.
const envPrefix = "SCOREBATCH_"

// ApplyEnv layers SCOREBATCH_* variables onto cfg. getenv is usually
// os.Getenv; tests pass a map lookup.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	strs := map[string]*string{
		"CONVERTER":       &cfg.Converter,
		"JOB_FILE":        &cfg.JobFile,
		"SOURCE_EXT":      &cfg.SourceExt,
		"TARGET_EXT":      &cfg.TargetExt,
		"FAILURE_PATTERN": &cfg.FailurePattern,
		"CANDIDATES":      &cfg.CandidatesFile,
		"CHECKPOINT":      &cfg.CheckpointFile,
		"AUDIT_DB":        &cfg.AuditDB,
		"LOG_FILE":        &cfg.LogFile,
	}
	for key, dst := range strs {
		if v := getenv(envPrefix + key); v != "" {
			*dst = v
		}
	}

	if v := getenv(envPrefix + "CONVERTER_ARGS"); v != "" {
		cfg.ConverterArgs = SplitList(v)
	}
	if v := getenv(envPrefix + "COMPOSERS"); v != "" {
		cfg.Composers = SplitList(v)
	}
	if v := getenv(envPrefix + "MAX_ROUNDS"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sMAX_ROUNDS must be a whole number (got %q)", envPrefix, v)
		}
		cfg.MaxRounds = n
	}
	if v := getenv(envPrefix + "MAX_DURATION"); v != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sMAX_DURATION: %w", envPrefix, err)
		}
		cfg.MaxDuration = d
	}
	if v := getenv(envPrefix + "COLOR"); v != "" {
		m, err := parseColorMode(v)
		if err != nil {
			return err
		}
		cfg.ColorMode = m
	}
	return nil
}

func parseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return "", fmt.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", s)
	}
}
