// Package ledger holds the exclusion ledger: the append-only, ordered set of
// inputs that caused a converter abort and must never be scheduled again.
package ledger

import (
	"fmt"
	"sync"
	"time"
)

// Entry records one exclusion: which input, in which round, and the
// diagnostic line that implicated it.
type Entry struct {
	Input string    `json:"input"`
	Round int       `json:"round"`
	Cause string    `json:"cause"`
	At    time.Time `json:"at"`
}

// Ledger is safe for concurrent reads while the loop appends. Entries are
// kept in insertion order; membership is by exact path equality.
type Ledger struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[string]int
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{index: make(map[string]int)}
}

// Restore rebuilds a ledger from previously persisted entries. A duplicate
// input is an error because a valid ledger never holds one twice.
func Restore(entries []Entry) (*Ledger, error) {
	l := New()
	for _, e := range entries {
		if e.Input == "" {
			return nil, fmt.Errorf("ledger entry for round %d has empty input", e.Round)
		}
		if !l.Add(e) {
			return nil, fmt.Errorf("ledger entry %q appears twice", e.Input)
		}
	}
	return l, nil
}

// Add appends e and reports true when e.Input was not yet excluded. An input
// already present leaves the ledger unchanged and reports false.
func (l *Ledger) Add(e Entry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.index[e.Input]; ok {
		return false
	}
	l.index[e.Input] = len(l.entries)
	l.entries = append(l.entries, e)
	return true
}

// Contains reports whether input has been excluded.
func (l *Ledger) Contains(input string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.index[input]
	return ok
}

// Lookup returns the entry for input, if any.
func (l *Ledger) Lookup(input string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[input]
	if !ok {
		return Entry{}, false
	}
	return l.entries[i], true
}

// Len returns the number of excluded inputs.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Entries returns a copy of every entry in insertion order.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Inputs returns the excluded inputs in insertion order.
func (l *Ledger) Inputs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Input
	}
	return out
}
