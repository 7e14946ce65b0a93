// Package errs defines the error taxonomy shared by every pipeline stage.
//
// Each failure crossing a package boundary is an *Error carrying the stage
// that produced it and a Kind label. Callers match kinds with errors.Is
// against the sentinel values:
//
//	if errors.Is(err, errs.ErrConfig) {
//	    // bad experiment configuration
//	}
package errs

import (
	"errors"
	"fmt"
)

// Kind labels a class of failure.
type Kind string

// Error kinds.
const (
	KindDataLoad       Kind = "DataLoadError"
	KindConfig         Kind = "ConfigError"
	KindFoldEvaluation Kind = "FoldEvaluationError"
	KindNoViableModel  Kind = "NoViableModelError"
	KindSequence       Kind = "SequenceError"
	KindPrediction     Kind = "PredictionError"
	KindExport         Kind = "ExportError"
)

// Sentinels for errors.Is matching. An *Error matches the sentinel of its Kind.
var (
	ErrDataLoad       = &Error{Kind: KindDataLoad}
	ErrConfig         = &Error{Kind: KindConfig}
	ErrFoldEvaluation = &Error{Kind: KindFoldEvaluation}
	ErrNoViableModel  = &Error{Kind: KindNoViableModel}
	ErrSequence       = &Error{Kind: KindSequence}
	ErrPrediction     = &Error{Kind: KindPrediction}
	ErrExport         = &Error{Kind: KindExport}
)

// Error is a classified pipeline failure.
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

// New wraps err with a kind and the stage that produced it.
func New(kind Kind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

// Errorf builds an *Error from a format string. %w verbs are honored.
func Errorf(kind Kind, stage, format string, args ...any) *Error {
	return New(kind, stage, fmt.Errorf(format, args...))
}

func (e *Error) Error() string {
	switch {
	case e.Stage == "" && e.Err == nil:
		return string(e.Kind)
	case e.Stage == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. Sentinels carry
// no stage, so a stage on the target is only compared when set.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Stage == "" || t.Stage == e.Stage
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StageOf returns the stage of the first *Error in err's chain, or "" if none.
func StageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}
