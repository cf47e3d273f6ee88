package planner

import (
	"context"
	"errors"
	"io/fs"
	"os"
)

// Task pairs one input with the output the converter is expected to write.
type Task struct {
	Input  string `json:"in"`
	Output string `json:"out"`
}

// Batch is the ordered set of tasks outstanding in one round.
type Batch []Task

// Inputs returns the batch's input paths in order.
func (b Batch) Inputs() []string {
	out := make([]string, len(b))
	for i, t := range b {
		out[i] = t.Input
	}
	return out
}

// Has reports whether input is scheduled in b.
func (b Batch) Has(input string) bool {
	for _, t := range b {
		if t.Input == input {
			return true
		}
	}
	return false
}

// Excluded is the read-only view of the exclusion ledger the planner needs.
type Excluded interface {
	Contains(input string) bool
}

// Storage answers whether a converted output already exists. An error means
// the answer is unknown (permissions, I/O); it is never "not found".
type Storage interface {
	Exists(ctx context.Context, path string) (bool, error)
}

// FS checks existence on the local filesystem.
type FS struct{}

// Exists stats path. A missing file or a missing parent directory reports
// false; any other stat failure is returned.
func (FS) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
