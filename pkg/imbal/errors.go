package imbal

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// InsufficientDataError is returned if a class has too few rows to be
// split or resampled.
type InsufficientDataError struct {
	Op    string // operation that needed the rows
	Class bool   // the class that is too small
	Have  int
	Need  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: class %d has %d rows, need at least %d",
		e.Op, Label(e.Class), e.Have, e.Need)
}

// SeparationError is returned if a classifier's optimizer fails to
// converge.  This is the common outcome of (quasi) perfect separation
// after aggressive oversampling.
type SeparationError struct {
	Op         string
	Iterations int
	Reason     string
	Err        error
}

func (e *SeparationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: no convergence after %d iterations: %s: %v",
			e.Op, e.Iterations, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: no convergence after %d iterations: %s",
		e.Op, e.Iterations, e.Reason)
}

func (e *SeparationError) Unwrap() error { return e.Err }

// SchemaMismatchError is returned if a model is asked to predict on
// data that lacks the feature columns it was fitted on.
type SchemaMismatchError struct {
	Missing    []string
	Suggestion map[string]string // missing name -> closest available name
}

func (e *SchemaMismatchError) Error() string {
	var b strings.Builder
	b.WriteString("schema mismatch: missing feature columns:")
	for _, m := range e.Missing {
		fmt.Fprintf(&b, " %q", m)
		if s, ok := e.Suggestion[m]; ok {
			fmt.Fprintf(&b, " (did you mean %q?)", s)
		}
	}
	return b.String()
}

// DegenerateEvaluationError is returned if ROC or cost statistics are
// requested on labels that contain only one class.
type DegenerateEvaluationError struct {
	Op        string
	Positives int
	Negatives int
}

func (e *DegenerateEvaluationError) Error() string {
	return fmt.Sprintf("%s: degenerate evaluation: %d positives, %d negatives",
		e.Op, e.Positives, e.Negatives)
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field string
	Value interface{}
	Hint  string
}

func (e *ConfigError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Hint)
	}
	return fmt.Sprintf("invalid %s %v", e.Field, e.Value)
}

// Error kinds returned by Kind.
const (
	KindInsufficientData     = "insufficient-data"
	KindSeparation           = "separation"
	KindSchemaMismatch       = "schema-mismatch"
	KindDegenerateEvaluation = "degenerate-evaluation"
	KindInvalidConfig        = "invalid-config"
	KindTimeout              = "timeout"
	KindCanceled             = "canceled"
	KindError                = "error"
)

// Kind returns the kind of the given error chain.  It returns the empty
// string for a nil error.
func Kind(err error) string {
	var (
		ide *InsufficientDataError
		se  *SeparationError
		sme *SchemaMismatchError
		dee *DegenerateEvaluationError
		ce  *ConfigError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ide):
		return KindInsufficientData
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &se):
		return KindSeparation
	case errors.As(err, &sme):
		return KindSchemaMismatch
	case errors.As(err, &dee):
		return KindDegenerateEvaluation
	case errors.As(err, &ce):
		return KindInvalidConfig
	default:
		return KindError
	}
}

// Recoverable returns true if the error only invalidates a single
// configuration and does not stop a sweep over multiple
// configurations.
func Recoverable(err error) bool {
	switch Kind(err) {
	case KindCanceled, "":
		return false
	default:
		return true
	}
}
