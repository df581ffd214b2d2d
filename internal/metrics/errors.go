package metrics

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks a precondition violation; no partial Metrics is returned with it.
var ErrInvalidInput = errors.New("invalid input")

// InputError names the offending field of a rejected computation.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidInput, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrInvalidInput, e.Field, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func invalid(field, format string, args ...any) error {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsInvalidInput 判断 err 是否为输入校验失败。
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
