package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

var (
	ErrNotConnected = fmt.Errorf("not connected to the chat server")
	ErrWorkerPanic  = fmt.Errorf("worker panic")
	ErrSinkFull     = fmt.Errorf("subscriber buffer full")
)

// ValidationError aggregates the business rule failures of a message
// candidate. It maps to a 422 with the error list on the HTTP surface and
// is logged and dropped on the subscription channel's inbound path.
type ValidationError struct {
	Details []string
}

func NewValidationError(details ...string) *ValidationError {
	return &ValidationError{Details: details}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Details, ", ")
}

// AsValidationError unwraps err into a ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if stderrors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
