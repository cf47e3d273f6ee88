package mscore

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Attribution names the input blamed for an abnormal exit and the
// diagnostic line it was found on.
type Attribution struct {
	Input string
	Cause string
}

// Attributor finds the culprit of an abnormal exit in converter stderr.
type Attributor struct {
	re *regexp.Regexp
}

// NewAttributor compiles pattern. The pattern is required: an empty pattern
// would silently turn every abort into an unattributable stall.
func NewAttributor(pattern string) (*Attributor, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, errors.New("failure pattern is empty")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile failure pattern: %w", err)
	}
	return &Attributor{re: re}, nil
}

// Pattern returns the source text of the compiled pattern.
func (a *Attributor) Pattern() string { return a.re.String() }

// Matches returns every non-overlapping match in text, in order.
func (a *Attributor) Matches(text string) []string {
	return a.re.FindAllString(text, -1)
}

// Attribute returns the last match in text. The converter processes the job
// in order and prints each input as it starts, so the last path mentioned
// is the one it was working on when it died. ok is false when nothing
// matches.
func (a *Attributor) Attribute(text string) (Attribution, bool) {
	locs := a.re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return Attribution{}, false
	}
	start, end := locs[len(locs)-1][0], locs[len(locs)-1][1]
	return Attribution{
		Input: text[start:end],
		Cause: lineAround(text, start, end),
	}, true
}

// lineAround returns the trimmed line of text containing [start, end).
func lineAround(text string, start, end int) string {
	lineStart := strings.LastIndexByte(text[:start], '\n') + 1
	lineEnd := len(text)
	if i := strings.IndexByte(text[end:], '\n'); i >= 0 {
		lineEnd = end + i
	}
	return strings.TrimSpace(text[lineStart:lineEnd])
}
