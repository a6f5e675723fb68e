package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures for the caller.
type Kind string

const (
	// KindInput is a client error: the request itself is unusable.
	KindInput Kind = "input"
	// KindBackend means the run could not finish because its context ended
	// before every clause was processed.
	KindBackend Kind = "backend"
	// KindInternal is an unexpected failure inside a stage.
	KindInternal Kind = "internal"
)

const (
	StageValidation = "validation"
	StageEmbedding  = "embedding"
	StageRetrieval  = "retrieval"
	StageComparison = "comparison"
	StageSummary    = "summary"
)

// Error is a pipeline-level failure. No partial result accompanies it.
type Error struct {
	Kind    Kind
	Stage   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error in %s: %s (%v)", e.Kind, e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error in %s: %s", e.Kind, e.Stage, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrNoClauses = errors.New("no clauses provided")

	errInput    = &Error{Kind: KindInput}
	errBackend  = &Error{Kind: KindBackend}
	errInternal = &Error{Kind: KindInternal}
)

func IsInputError(err error) bool {
	return errors.Is(err, errInput)
}

func IsBackendError(err error) bool {
	return errors.Is(err, errBackend)
}

func IsInternalError(err error) bool {
	return errors.Is(err, errInternal)
}

// KindOf returns the kind of err, treating foreign errors as internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// StageOf returns the stage recorded on err, if any.
func StageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}
