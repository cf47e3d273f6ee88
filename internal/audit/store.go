// Package audit keeps a SQLite record of every conversion run: when it
// started, each round's batch size and exit, every exclusion with its cause,
// and how the run ended. The exclusion ledger is authoritative in the
// checkpoint; this store is the queryable history across runs.
package audit

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Run is one invocation of the convergence loop.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is in progress
	Candidates int
	Settings   string
	State      string
	Reason     string
	Rounds     int
}

// Round is one converter invocation within a run.
type Round struct {
	RunID      string
	Round      int
	BatchSize  int
	Status     string
	ExitCode   int
	Elapsed    time.Duration
	Attributed string
	RecordedAt time.Time
}

// Exclusion is one ledger addition.
type Exclusion struct {
	RunID string
	Input string
	Round int
	Cause string
	At    time.Time
}

// NewRunID returns a fresh random run identifier.
func NewRunID() string { return uuid.NewString() }

// Store implements the audit trail with SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the audit DB at path and runs migrations. The parent
// directory is created if needed.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableCount == 0 {
		if _, err := s.db.Exec(schemaV1); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersionV1); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}

	var v int
	if err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != schemaVersionV1 {
		return fmt.Errorf("unknown audit schema version %d", v)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// BeginRun records the start of r. Beginning a run that already exists
// (a resumed run) clears its finish state and keeps its history.
func (s *Store) BeginRun(r Run) error {
	if r.ID == "" {
		return errors.New("run id is required")
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO runs(id, started_at, candidates, settings) VALUES(?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET finished_at = NULL, state = '', reason = '',
			candidates = excluded.candidates, settings = excluded.settings`,
		r.ID, formatTime(r.StartedAt), r.Candidates, r.Settings)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// RecordRound stores one round's outcome.
func (s *Store) RecordRound(rd Round) error {
	if rd.RecordedAt.IsZero() {
		rd.RecordedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO rounds(run_id, round, batch_size, status, exit_code, elapsed_ms, attributed, recorded_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		rd.RunID, rd.Round, rd.BatchSize, rd.Status, rd.ExitCode, rd.Elapsed.Milliseconds(), rd.Attributed, formatTime(rd.RecordedAt))
	if err != nil {
		return fmt.Errorf("record round %d: %w", rd.Round, err)
	}
	return nil
}

// RecordExclusion stores one ledger addition. Recording the same input twice
// for a run keeps the first record.
func (s *Store) RecordExclusion(e Exclusion) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO exclusions(run_id, input, round, cause, excluded_at)
		VALUES(?, ?, ?, ?, ?)`,
		e.RunID, e.Input, e.Round, e.Cause, formatTime(e.At))
	if err != nil {
		return fmt.Errorf("record exclusion %s: %w", e.Input, err)
	}
	return nil
}

// FinishRun records how a run ended.
func (s *Store) FinishRun(id, state, reason string, rounds int) error {
	res, err := s.db.Exec(`UPDATE runs SET finished_at = ?, state = ?, reason = ?, rounds = ? WHERE id = ?`,
		formatTime(time.Now()), state, reason, rounds, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: unknown run %s", id)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, candidates, settings, state, reason, rounds`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var r Run
	var started, finished sql.NullString
	err := row.Scan(&r.ID, &started, &finished, &r.Candidates, &r.Settings, &r.State, &r.Reason, &r.Rounds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.StartedAt = parseTime(started)
	r.FinishedAt = parseTime(finished)
	return &r, nil
}

// GetRun returns the run with id, or nil if there is none.
func (s *Store) GetRun(id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// LatestRun returns the most recently started run, or nil if none exist.
func (s *Store) LatestRun() (*Run, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`))
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return r, nil
}

// ListRounds returns a run's rounds in order.
func (s *Store) ListRounds(runID string) ([]Round, error) {
	rows, err := s.db.Query(`
		SELECT run_id, round, batch_size, status, exit_code, elapsed_ms, attributed, recorded_at
		FROM rounds WHERE run_id = ? ORDER BY round`, runID)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()
	var out []Round
	for rows.Next() {
		var rd Round
		var ms int64
		var at sql.NullString
		if err := rows.Scan(&rd.RunID, &rd.Round, &rd.BatchSize, &rd.Status, &rd.ExitCode, &ms, &rd.Attributed, &at); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		rd.Elapsed = time.Duration(ms) * time.Millisecond
		rd.RecordedAt = parseTime(at)
		out = append(out, rd)
	}
	return out, rows.Err()
}

// ListExclusions returns a run's exclusions ordered by round, then input.
func (s *Store) ListExclusions(runID string) ([]Exclusion, error) {
	rows, err := s.db.Query(`
		SELECT run_id, input, round, cause, excluded_at
		FROM exclusions WHERE run_id = ? ORDER BY round, input`, runID)
	if err != nil {
		return nil, fmt.Errorf("list exclusions: %w", err)
	}
	defer rows.Close()
	var out []Exclusion
	for rows.Next() {
		var e Exclusion
		var at sql.NullString
		if err := rows.Scan(&e.RunID, &e.Input, &e.Round, &e.Cause, &at); err != nil {
			return nil, fmt.Errorf("scan exclusion: %w", err)
		}
		e.At = parseTime(at)
		out = append(out, e)
	}
	return out, rows.Err()
}
