// Package checkpoint persists convergence loop state between rounds so an
// interrupted run can resume with its candidate set, exclusion ledger and
// round counter intact.
//
// Writes are atomic and durable: the file is written to a temp sibling,
// synced, renamed over the old checkpoint and the directory is synced.
package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/backmassage/scorebatch/internal/ledger"
)

// Version is the on-disk schema version written by this package.
const Version = 1

// ErrNotFound is returned by [Store.Load] when no checkpoint exists yet.
var ErrNotFound = errors.New("checkpoint not found")

// State is one persisted snapshot, taken at the end of every round.
type State struct {
	Version        int            `json:"version"`
	RunID          string         `json:"run_id"`
	CandidatesHash string         `json:"candidates_hash"`
	Candidates     []string       `json:"candidates"`
	Exclusions     []ledger.Entry `json:"exclusions"`
	Round          int            `json:"round"`
	UpdatedAt      time.Time      `json:"updated_at"`

	// Pending is a stall raised by the last round and not yet confirmed;
	// PrevBatch is that round's batch size. Pattern is the failure pattern
	// in force when Pending was raised.
	Pending   string `json:"pending,omitempty"`
	PrevBatch int    `json:"prev_batch,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
}

// Validate reports every problem with s at once.
func (s State) Validate() error {
	var errs []error
	if s.Version != Version {
		errs = append(errs, fmt.Errorf("unsupported version %d (want %d)", s.Version, Version))
	}
	if strings.TrimSpace(s.RunID) == "" {
		errs = append(errs, errors.New("run_id is required"))
	}
	if s.Candidates == nil {
		errs = append(errs, errors.New("candidates must be an array (not null)"))
	} else if s.CandidatesHash != Fingerprint(s.Candidates) {
		errs = append(errs, errors.New("candidates_hash does not match candidates"))
	}
	if s.Exclusions == nil {
		errs = append(errs, errors.New("exclusions must be an array (not null)"))
	}
	if s.Round < 0 {
		errs = append(errs, errors.New("round must be >= 0"))
	}
	if s.PrevBatch < 0 {
		errs = append(errs, errors.New("prev_batch must be >= 0"))
	}
	if s.Pending != "" && (s.PrevBatch < 1 || s.Round < 1) {
		errs = append(errs, fmt.Errorf("pending %q needs round >= 1 and prev_batch >= 1", s.Pending))
	}
	for i, e := range s.Exclusions {
		if strings.TrimSpace(e.Input) == "" {
			errs = append(errs, fmt.Errorf("exclusions[%d]: input is required", i))
		}
		if e.Round < 1 || e.Round > s.Round {
			errs = append(errs, fmt.Errorf("exclusions[%d]: round %d outside 1..%d", i, e.Round, s.Round))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// Fingerprint identifies an ordered candidate list. Two lists share a
// fingerprint only if they hold the same paths in the same order.
func Fingerprint(candidates []string) string {
	h := sha256.New()
	for _, c := range candidates {
		h.Write([]byte(c))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// New builds a State for the given run, filling in version, fingerprint
// and timestamp.
func New(runID string, candidates []string, exclusions []ledger.Entry, round int) State {
	if candidates == nil {
		candidates = []string{}
	}
	if exclusions == nil {
		exclusions = []ledger.Entry{}
	}
	return State{
		Version:        Version,
		RunID:          runID,
		CandidatesHash: Fingerprint(candidates),
		Candidates:     candidates,
		Exclusions:     exclusions,
		Round:          round,
		UpdatedAt:      time.Now().UTC(),
	}
}

// WithLoopState returns s carrying the pending stall, the batch size it
// was raised at and the failure pattern in force.
func (s State) WithLoopState(pattern, pending string, prevBatch int) State {
	s.Pattern = pattern
	s.Pending = pending
	s.PrevBatch = prevBatch
	return s
}
