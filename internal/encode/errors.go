package encode

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Every *ParamError matches exactly one.
var (
	ErrUnknownParam         = errors.New("unknown parameter")
	ErrMissingRequiredParam = errors.New("missing required parameter")
	ErrParamOutOfRange      = errors.New("parameter out of range")
)

// ErrLayout reports a request whose payload cannot be placed in the frame.
var ErrLayout = errors.New("encode: frame layout cannot hold payload")

// ParamError rejects one parameter of an encode request. It is returned
// before any byte is produced.
type ParamError struct {
	Kind    error // ErrUnknownParam, ErrMissingRequiredParam or ErrParamOutOfRange
	Command string
	Param   string
	Value   any
	Err     error // conversion failure behind an out-of-range value, if any
}

func (e *ParamError) Error() string {
	switch e.Kind {
	case ErrUnknownParam:
		return fmt.Sprintf("encode %s: unknown parameter %q", e.Command, e.Param)
	case ErrMissingRequiredParam:
		return fmt.Sprintf("encode %s: missing required parameter %q", e.Command, e.Param)
	default:
		if e.Err != nil {
			return fmt.Sprintf("encode %s: parameter %q out of range: %v", e.Command, e.Param, e.Err)
		}
		return fmt.Sprintf("encode %s: parameter %q out of range: %v", e.Command, e.Param, e.Value)
	}
}

// Is matches the error's Kind.
func (e *ParamError) Is(target error) bool {
	return target == e.Kind
}

func (e *ParamError) Unwrap() error {
	return e.Err
}
