package gateway

import (
	"errors"
	"fmt"
)

// RejectionError is an application-level refusal: the request reached the
// service and it answered with a failure status and a reason.
type RejectionError struct {
	Endpoint   string
	StatusCode int
	Status     string
	Reason     string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s rejected (%s): %s", e.Endpoint, e.Status, e.Reason)
}

// TransportError covers network failures, non-success HTTP statuses without a
// recognisable rejection body, and undecodable responses.
type TransportError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s: API returned status code: %d, response: %s", e.Endpoint, e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Reason returns the text to show the player for a failed call.
func Reason(err error) string {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return err.Error()
}

// IsRejection reports whether err is an application-level refusal.
func IsRejection(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}
