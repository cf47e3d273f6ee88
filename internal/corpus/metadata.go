package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Record is the subset of a score metadata line the filter reads.
type Record struct {
	ID               string
	InstrumentsNames []string
	Description      string
}

type rawRecord struct {
	ID               json.RawMessage `json:"id"`
	InstrumentsNames []string        `json:"instrumentsNames"`
	Description      string          `json:"description"`
}

// maxLine bounds a single JSONL record; descriptions can be long.
const maxLine = 4 << 20

// ReadMetadata parses JSONL metadata into a map keyed by score id. Blank
// lines and records without an id are skipped. Numeric and string ids are
// both accepted.
func ReadMetadata(r io.Reader) (map[string]Record, error) {
	out := make(map[string]Record)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var raw rawRecord
		if err := json.Unmarshal([]byte(text), &raw); err != nil {
			return nil, fmt.Errorf("metadata line %d: %w", line, err)
		}
		id := decodeID(raw.ID)
		if id == "" {
			continue
		}
		out[id] = Record{ID: id, InstrumentsNames: raw.InstrumentsNames, Description: raw.Description}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	return out, nil
}

func decodeID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// SoloPiano reports whether r lists exactly one instrument, "Piano".
func (r Record) SoloPiano() bool {
	return slices.Equal(r.InstrumentsNames, []string{"Piano"})
}

// Composer returns the first of composers mentioned in r's description
// (case-insensitive), or "" when none is.
func (r Record) Composer(composers []string) string {
	desc := strings.ToLower(r.Description)
	for _, c := range composers {
		if c != "" && strings.Contains(desc, strings.ToLower(c)) {
			return c
		}
	}
	return ""
}

// FilterByMetadata groups paths by composer, keeping only solo piano scores
// whose metadata mentions a composer. A description naming several
// composers is assigned to the first in composers order. Every composer
// gets an entry, possibly empty; path order is preserved.
func FilterByMetadata(paths []string, meta map[string]Record, composers []string) map[string][]string {
	out := make(map[string][]string, len(composers))
	for _, c := range composers {
		out[c] = []string{}
	}
	for _, p := range paths {
		rec, ok := meta[ScoreID(p)]
		if !ok || !rec.SoloPiano() {
			continue
		}
		if c := rec.Composer(composers); c != "" {
			out[c] = append(out[c], p)
		}
	}
	return out
}
