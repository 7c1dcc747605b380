package advisory

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInputIncomplete is returned when the upstream profile lacks a figure the plan needs.
	// It is fatal: the pipeline never substitutes a default for a missing financial figure.
	ErrInputIncomplete = errors.New("input incomplete")

	// ErrModelCall wraps transport and timeout failures while calling the model.
	ErrModelCall = errors.New("model call failed")

	// ErrNotFound is returned by a ProfileStore that has no profile for the user.
	ErrNotFound = errors.New("profile not found")
)

// IncompleteError lists the profile fields that are missing.
type IncompleteError struct {
	UserID string
	Fields []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("profile %q is incomplete, missing %s", e.UserID, strings.Join(e.Fields, ", "))
}

func (e *IncompleteError) Is(target error) bool { return target == ErrInputIncomplete }

// ParseError reports a model response that is not a valid advisory output.
type ParseError struct {
	Path string // JSONPath of the offending field, empty when the payload is not JSON at all.
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid advisory output: %v", e.Err)
	}
	return fmt.Sprintf("invalid advisory output at %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// AuditError holds the failed audits of a rejected advisory output.
type AuditError struct {
	Failures []ValidationResult
}

func (e *AuditError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, fmt.Sprintf("%s audit failed: %s", f.Audit, f.Error))
	}
	return strings.Join(msgs, "; ")
}

// Failed reports whether the given audit is among the failures.
func (e *AuditError) Failed(a Audit) bool {
	for _, f := range e.Failures {
		if f.Audit == a {
			return true
		}
	}
	return false
}

// PipelineError is the terminal failure of an advisory request.
type PipelineError struct {
	Attempts int
	Last     error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("advisory rejected after %d attempt(s): %v", e.Attempts, e.Last)
}

func (e *PipelineError) Unwrap() error { return e.Last }
