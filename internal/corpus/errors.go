package corpus

import (
	"errors"
	"fmt"
)

// Sentinel errors for corpus scanning.
var (
	// ErrDuplicateID indicates two distinct files declare the same id.
	ErrDuplicateID = errors.New("duplicate document id")
	// ErrUnknownID indicates a lookup named an id that is not in the corpus.
	ErrUnknownID = errors.New("unknown document id")
)

// ParseError records a document whose metadata block is present but cannot be
// decoded. The file is treated as untagged for the rest of the run.
type ParseError struct {
	Path string
	Err  error
}

// Error returns the failing path and the decoder's message.
func (e *ParseError) Error() string {
	return "parsing " + e.Path + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// DuplicateIDError names a colliding id and both files that declare it.
type DuplicateIDError struct {
	ID     string
	First  string
	Second string
}

// Error returns a one-line description naming the id and both paths.
func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate id %q in %s and %s", e.ID, e.First, e.Second)
}

// Unwrap lets callers match with errors.Is(err, ErrDuplicateID).
func (e *DuplicateIDError) Unwrap() error {
	return ErrDuplicateID
}
