package config

import (
	"errors"
	"fmt"
)

// InvalidError marks operator input the tool refuses to act on, as opposed
// to failures talking to the platform. The CLI exits with a distinct status
// for these.
type InvalidError struct {
	msg string
}

func (e *InvalidError) Error() string {
	return e.msg
}

// Invalidf builds an InvalidError from a format string.
func Invalidf(format string, args ...any) error {
	return &InvalidError{msg: fmt.Sprintf(format, args...)}
}

// IsInvalid reports whether err is, or wraps, an InvalidError.
func IsInvalid(err error) bool {
	var ie *InvalidError
	return errors.As(err, &ie)
}
