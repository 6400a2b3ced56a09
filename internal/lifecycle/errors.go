package lifecycle

import "errors"

// Sentinel errors for lifecycle transitions.
var (
	// ErrMissingField indicates a field required for the transition is absent
	// or still a template placeholder.
	ErrMissingField = errors.New("required field not populated")
	// ErrIllegalTransition indicates a document cannot move in the requested
	// direction from its current level.
	ErrIllegalTransition = errors.New("illegal curation transition")
	// ErrPathExists indicates scaffold would overwrite an existing file.
	ErrPathExists = errors.New("target path already exists")
	// ErrUnknownType indicates a document type outside the taxonomy.
	ErrUnknownType = errors.New("unknown document type")
	// ErrNoDescribes indicates verify was asked for a document with no
	// describes relation.
	ErrNoDescribes = errors.New("document declares no describes targets")
	// ErrMissingTarget indicates a describes target no longer exists.
	ErrMissingTarget = errors.New("described target not found")
)

// LifecycleError reports a per-document transition failure. It never aborts
// a batch; other documents are still processed.
type LifecycleError struct {
	ID    string
	Path  string
	Field string
	Err   error
}

// Error returns the document, the field when known, and the cause.
func (e *LifecycleError) Error() string {
	msg := e.ID
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Field != "" {
		msg += ": field " + e.Field
	}
	return msg + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *LifecycleError) Unwrap() error {
	return e.Err
}
