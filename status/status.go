// Package status derives the connection indicator from poll outcomes.
package status

import (
	"fmt"
	"time"
)

// Kind is the tri-state connection indicator.
type Kind uint8

const (
	Connecting Kind = iota
	Connected
	Error
)

func (k Kind) String() string {
	switch k {
	case Connected:
		return "connected"
	case Error:
		return "error"
	default:
		return "connecting"
	}
}

// Status is a value; RecordSuccess and RecordFailure return the next one.
type Status struct {
	Kind        Kind
	LastSuccess time.Time
	// Failures counts consecutive failed cycles; reset on success.
	Failures  int
	LastError string
}

// RecordSuccess moves to Connected and stamps the completion time.
func (s Status) RecordSuccess(now time.Time) Status {
	return Status{Kind: Connected, LastSuccess: now}
}

// RecordFailure moves to Error. The last success time is kept for display.
func (s Status) RecordFailure(err error) Status {
	next := Status{Kind: Error, LastSuccess: s.LastSuccess, Failures: s.Failures + 1}
	if err != nil {
		next.LastError = err.Error()
	}
	return next
}

// Text is the human-readable status line.
func (s Status) Text() string {
	switch s.Kind {
	case Connected:
		return fmt.Sprintf("Connected. Last update: %s", s.LastSuccess.Local().Format("15:04:05"))
	case Error:
		return "Connection error. Check that the backend is running."
	default:
		return "Connecting..."
	}
}

// Detail adds failure bookkeeping to Text for the footer.
func (s Status) Detail() string {
	if s.Kind != Error {
		return s.Text()
	}
	text := s.Text()
	if s.Failures > 1 {
		text = fmt.Sprintf("%s (%d consecutive failures)", text, s.Failures)
	}
	if !s.LastSuccess.IsZero() {
		text = fmt.Sprintf("%s Last good update: %s", text, s.LastSuccess.Local().Format("15:04:05"))
	}
	return text
}
