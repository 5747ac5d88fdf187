// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lightdag

import (
	"fmt"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific RuleError.
const (
	// ErrDuplicateHeader indicates a header with the same hash already
	// exists in the DAG.
	ErrDuplicateHeader ErrorCode = iota

	// ErrParentUnknown indicates the parent referenced by a header is not
	// known to the DAG. Headers failing with this code are orphans, not
	// permanently invalid.
	ErrParentUnknown

	// ErrUnexpectedDifficulty indicates specified bits do not align with
	// the expected value either because it doesn't match the calculated
	// value based on difficulty rules or it is out of the valid range.
	ErrUnexpectedDifficulty

	// ErrHighHash indicates the block does not hash to a value which is
	// lower than the required target difficultly.
	ErrHighHash

	// ErrInvalidSignature indicates the header's producer signature does
	// not verify against its embedded public key, or the key or signature
	// could not be parsed.
	ErrInvalidSignature

	// ErrInvalidHeight indicates the header's claimed height is not one
	// more than its parent's height.
	ErrInvalidHeight

	// ErrTimeTooOld indicates the time is either before the parent's
	// timestamp or astronomically in the past.
	ErrTimeTooOld

	// ErrTimeTooNew indicates the time is too far in the future as
	// compared to the current time.
	ErrTimeTooNew

	// ErrStaleParent indicates the header links to a parent that is
	// further behind the current tips than the lookback window allows.
	ErrStaleParent

	// ErrOrphanNotAllowed indicates an orphan header was processed while
	// the BFDisallowOrphans flag was raised.
	ErrOrphanNotAllowed
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrDuplicateHeader:      "ErrDuplicateHeader",
	ErrParentUnknown:        "ErrParentUnknown",
	ErrUnexpectedDifficulty: "ErrUnexpectedDifficulty",
	ErrHighHash:             "ErrHighHash",
	ErrInvalidSignature:     "ErrInvalidSignature",
	ErrInvalidHeight:        "ErrInvalidHeight",
	ErrTimeTooOld:           "ErrTimeTooOld",
	ErrTimeTooNew:           "ErrTimeTooNew",
	ErrStaleParent:          "ErrStaleParent",
	ErrOrphanNotAllowed:     "ErrOrphanNotAllowed",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a rule violation. It is used to indicate that
// processing of a header failed due to one of the many validation rules. The
// caller can use type assertions to determine if a failure was specifically
// due to a rule violation and access the ErrorCode field to ascertain the
// specific reason for the rule violation.
type RuleError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}
