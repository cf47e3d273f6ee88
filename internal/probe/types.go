package probe

import "fmt"

// Layout is the MusicXML document layout.
type Layout string

const (
	Partwise Layout = "partwise"
	Timewise Layout = "timewise"
)

// Part is one part (usually one staff group or instrument) of a score.
type Part struct {
	ID       string
	Name     string
	Measures int
}

// Score holds the structural summary of a MusicXML document.
type Score struct {
	Layout Layout
	Title  string
	Parts  []Part
}

// Usable reports whether s has at least minParts parts and each of the
// first minParts parts contains a measure. For a piano score with
// minParts 2 that means both hands are present and non-empty. reason is
// empty when the score is usable.
func (s *Score) Usable(minParts int) (ok bool, reason string) {
	if len(s.Parts) < minParts {
		return false, fmt.Sprintf("%d part(s), need %d", len(s.Parts), minParts)
	}
	for i := 0; i < minParts; i++ {
		if s.Parts[i].Measures == 0 {
			return false, fmt.Sprintf("part %d (%s) has no measures", i+1, s.Parts[i].ID)
		}
	}
	return true, ""
}
