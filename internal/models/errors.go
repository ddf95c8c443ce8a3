package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the ways an evaluation input can fail.
type ErrorKind string

const (
	KindNotFound        ErrorKind = "not_found"
	KindIOFailure       ErrorKind = "io_failure"
	KindParseFailure    ErrorKind = "parse_failure"
	KindMissingField    ErrorKind = "missing_field"
	KindUnparsableBlock ErrorKind = "unparsable_block"
	// KindNoReferences is reported when the data path holds no reference files.
	KindNoReferences ErrorKind = "no_references"
)

// EvalError is an error tagged with an ErrorKind and the input it relates to.
type EvalError struct {
	Kind   ErrorKind
	Path   string
	CaseID string
	Err    error
}

func (e *EvalError) Error() string {
	target := e.Path
	if target == "" {
		target = e.CaseID
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, target)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, target, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind carried by err, or KindIOFailure when err does
// not wrap an *EvalError. A nil error has no kind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var evalErr *EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Kind
	}
	return KindIOFailure
}

// Diagnostic records one degraded condition encountered during a run.
type Diagnostic struct {
	Kind    ErrorKind `json:"kind"`
	CaseID  string    `json:"case_id,omitempty"`
	Path    string    `json:"path,omitempty"`
	Message string    `json:"message"`
}

// DiagnosticFromError converts err into a Diagnostic for caseID.
func DiagnosticFromError(caseID string, err error) Diagnostic {
	d := Diagnostic{
		Kind:    KindOf(err),
		CaseID:  caseID,
		Message: err.Error(),
	}
	var evalErr *EvalError
	if errors.As(err, &evalErr) {
		d.Path = evalErr.Path
		if d.CaseID == "" {
			d.CaseID = evalErr.CaseID
		}
	}
	return d
}
