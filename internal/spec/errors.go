package spec

import (
	"errors"
	"fmt"
)

// ErrMalformed is the errors.Is target of every *MalformedError.
var ErrMalformed = errors.New("spec: malformed document")

// MalformedError reports a value in a protocol or command document that the
// engine cannot execute. It is a configuration error: it is returned when a
// model or session is built, never while a stream is being decoded.
type MalformedError struct {
	Path   string // location inside the document, e.g. "fields[2].type"
	Reason string
}

// Malformed builds a *MalformedError.
func Malformed(path, format string, args ...any) *MalformedError {
	return &MalformedError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

func (e *MalformedError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("spec: %s", e.Reason)
	}
	return fmt.Sprintf("spec: %s: %s", e.Path, e.Reason)
}

// Is matches ErrMalformed.
func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}
