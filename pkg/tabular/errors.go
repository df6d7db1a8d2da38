package tabular

import (
	"fmt"
	"strings"
)

// AttemptError records why one parser attempt failed.
type AttemptError struct {
	Parser string
	Err    error
}

func (e AttemptError) Error() string {
	return fmt.Sprintf("%s: %v", e.Parser, e.Err)
}

// UnparseableColumnError is returned when every parser attempt for a column
// failed. It carries each attempt's error in order.
type UnparseableColumnError struct {
	Path     string
	Column   string
	Attempts []AttemptError
}

func (e *UnparseableColumnError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Error()
	}
	if e.Column == "" {
		return fmt.Sprintf("unparseable header in %s (%s)", e.Path, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("unparseable column %q in %s (%s)", e.Column, e.Path, strings.Join(parts, "; "))
}

// Unwrap exposes the attempt errors to errors.Is and errors.As.
func (e *UnparseableColumnError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a.Err
	}
	return errs
}
