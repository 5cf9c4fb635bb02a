package poller

import (
	"errors"
	"fmt"
)

// TransportError is a failure to reach the endpoint or read its response.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is a non-200 response.
type ProtocolError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *ProtocolError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("GET %s: unexpected status %s", e.URL, e.Status)
	}
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// DecodeError is a body that is not a valid snapshot.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrorKind names the failure class of a poll error for logs.
func ErrorKind(err error) string {
	var (
		te *TransportError
		pe *ProtocolError
		de *DecodeError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return "protocol"
	case errors.As(err, &de):
		return "decode"
	case errors.As(err, &te):
		return "transport"
	default:
		return "unknown"
	}
}
