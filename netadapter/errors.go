package netadapter

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode identifies a kind of network failure.
type ErrorCode int

// These constants are used to identify a specific NetworkError. The sync
// engine keys its retry policy off them, so adapters must map transport
// failures onto this set rather than invent their own.
const (
	// ErrConnectionFailed indicates the peer could not be dialed or the
	// connection dropped mid-call.
	ErrConnectionFailed ErrorCode = iota

	// ErrTimeout indicates the call did not complete within its context
	// deadline.
	ErrTimeout

	// ErrPeerNotFound indicates the requested peer is no longer tracked
	// by the adapter.
	ErrPeerNotFound

	// ErrInvalidResponse indicates the peer answered with something the
	// adapter could not parse.
	ErrInvalidResponse

	// ErrRateLimited indicates the peer refused the call because we are
	// asking too often.
	ErrRateLimited
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrConnectionFailed: "ErrConnectionFailed",
	ErrTimeout:          "ErrTimeout",
	ErrPeerNotFound:     "ErrPeerNotFound",
	ErrInvalidResponse:  "ErrInvalidResponse",
	ErrRateLimited:      "ErrRateLimited",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// NetworkError identifies a network failure. The caller can use type
// assertions to determine if a failure was a network failure and access the
// ErrorCode field to ascertain the specific reason.
type NetworkError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e NetworkError) Error() string {
	return e.Description
}

// NewNetworkError creates a NetworkError given a set of arguments.
func NewNetworkError(c ErrorCode, desc string) NetworkError {
	return NetworkError{ErrorCode: c, Description: desc}
}

// IsNetworkError returns whether err is a NetworkError carrying the given
// code.
func IsNetworkError(err error, code ErrorCode) bool {
	var netErr NetworkError
	return errors.As(err, &netErr) && netErr.ErrorCode == code
}

// IsRetryable returns whether the error is transient enough that retrying
// the same call against the same peer can succeed. Invalid responses are
// excluded: a peer that answers garbage once will answer garbage again.
func IsRetryable(err error) bool {
	var netErr NetworkError
	if !errors.As(err, &netErr) {
		return false
	}
	switch netErr.ErrorCode {
	case ErrConnectionFailed, ErrTimeout, ErrRateLimited:
		return true
	}
	return false
}
