package narrative

import "fmt"

// ParseError reports a model response that could not be turned into the expected object.
type ParseError struct {
	Prompt  string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error in %s: %s: %v", e.Prompt, e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Prompt, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
