package suggest

import (
	"errors"
	"fmt"
)

// ErrNoSuggestion is returned when the generator has nothing to offer, either because it
// answered the literal null or because there was nothing to ask about.
var ErrNoSuggestion = errors.New("no suggestion available")

// GenerateError wraps a failure to obtain text from the generator.
type GenerateError struct {
	Kind Kind
	Err  error
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("generate %s suggestion: %v", e.Kind, e.Err)
}

func (e *GenerateError) Unwrap() error { return e.Err }

// ParseError reports generator text that could not be decoded. Raw holds the text as received.
type ParseError struct {
	Kind Kind
	Raw  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s suggestion: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func IsGenerateError(err error) bool {
	var ge *GenerateError
	return errors.As(err, &ge)
}

func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
