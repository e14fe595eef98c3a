package models

import (
	"errors"
	"fmt"
)

var (
	// ErrReasoningUnavailable covers network failures, timeouts, non-2xx
	// answers and an open circuit when calling the reasoning capability.
	ErrReasoningUnavailable = errors.New("reasoning capability unavailable")
	// ErrReasoningMalformed means the capability answered but the answer could
	// not be read as the expected structure.
	ErrReasoningMalformed = errors.New("reasoning response malformed")
	// ErrStore wraps persistence failures.
	ErrStore = errors.New("store failure")
)

// DecodeError reports a queue payload that can never be processed.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode payment message: %s: %v", e.Reason, e.Err)
	}
	return "decode payment message: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err is or wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
