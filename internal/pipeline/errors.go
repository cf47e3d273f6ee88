package pipeline

import (
	"errors"
	"fmt"
)

// ErrStorage matches every [*StorageError] via errors.Is.
var ErrStorage = errors.New("storage failure")

// StorageError is an I/O failure that makes the run's state untrustworthy.
// It is never retried.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}
