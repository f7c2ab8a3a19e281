package extraction

import (
	"context"
	"fmt"
	"time"
)

// Extraction is the typed result of one provider call: the announcement's
// header fields plus the full role → composition/topic tree. It is consumed
// exactly once by the pipeline and never persisted as-is.
type Extraction struct {
	ContestName    string
	ExaminingBoard string
	ExamDate       *time.Time
	Roles          []Role
}

type Role struct {
	JobTitle     string
	Compositions []ExamComposition
	Topics       []Topic
}

// ExamComposition numeric fields are opaque weighting values; the pipeline
// copies them verbatim and applies no numeric interpretation.
type ExamComposition struct {
	SubjectName       string
	NumberOfQuestions *int
	WeightPerQuestion *float64
}

type Topic struct {
	ExamModule string
	Subject    string
	Topic      string
}

// Provider turns raw announcement bytes into a structured extraction.
// Implementations must return *Error values so the pipeline can classify
// the failure without probing provider internals.
type Provider interface {
	Extract(ctx context.Context, document []byte) (*Extraction, error)
}

type FailureKind string

const (
	// FailureTransient covers infrastructure conditions a later attempt
	// can plausibly avoid: timeouts, rate limits, 5xx responses.
	FailureTransient FailureKind = "transient"
	// FailureSchema covers provider output that does not conform to the
	// requested structure. Retryable: the provider is nondeterministic
	// enough that a repeat call plausibly parses.
	FailureSchema FailureKind = "schema"
	// FailurePermanent covers conditions retrying cannot fix.
	FailurePermanent FailureKind = "permanent"
)

type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extraction %s failure: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Retryable() bool {
	return e.Kind != FailurePermanent
}

func NewTransientError(err error) *Error {
	return &Error{Kind: FailureTransient, Err: err}
}

func NewSchemaError(err error) *Error {
	return &Error{Kind: FailureSchema, Err: err}
}

func NewPermanentError(err error) *Error {
	return &Error{Kind: FailurePermanent, Err: err}
}
