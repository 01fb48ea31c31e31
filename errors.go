package echo

import (
	"fmt"

	"github.com/pkg/errors"
)

/*
Returned when a type string can't be parsed into an AbiType. The message is
the full error text; the offending type string is kept for context.
*/
type TypeSyntaxError struct {
	Type    string
	Message string
}

// Implements "error".
func (self TypeSyntaxError) Error() string { return self.Message }

/*
Returned when a value doesn't fit the ABI type it's being encoded as: wrong Go
type, wrong encoding, or a magnitude outside the type's domain.
*/
type InvalidValueError struct {
	Message string
}

// Implements "error".
func (self InvalidValueError) Error() string { return self.Message }

// Returned for malformed object-id text such as "1.16." or "1.16.0123".
type FormatError struct {
	Message string
}

// Implements "error".
func (self FormatError) Error() string { return self.Message }

func typeSyntax(typeName string, msg string) error {
	return errors.WithStack(TypeSyntaxError{Type: typeName, Message: msg})
}

func invalidValue(msg string) error {
	return errors.WithStack(InvalidValueError{Message: msg})
}

func invalidValuef(format string, args ...interface{}) error {
	return invalidValue(fmt.Sprintf(format, args...))
}

func badFormat(msg string) error {
	return errors.WithStack(FormatError{Message: msg})
}
