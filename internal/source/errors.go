package source

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an archive has no .acmi entry.
	ErrNotFound = errors.New("no .acmi entry in archive")

	// ErrReadFailure matches every *ReadError via errors.Is.
	ErrReadFailure = errors.New("read failure")
)

// ReadError wraps an I/O fault on the underlying file or archive.
type ReadError struct {
	Name string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Name, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

func (e *ReadError) Is(target error) bool { return target == ErrReadFailure }
