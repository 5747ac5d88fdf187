// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"

	"github.com/pkg/errors"
)

// MessageError describes an issue with a message.
// An example of some potential issues are messages from the wrong network
// and malformed messages.
//
// This provides a mechanism for the caller to type assert the error to
// differentiate between general io errors such as io.EOF and issues that
// resulted from malformed messages.
type MessageError struct {
	Func        string // Function name
	Description string // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (m *MessageError) Error() string {
	if m.Func != "" {
		return fmt.Sprintf("%s: %s", m.Func, m.Description)
	}
	return m.Description
}

// messageError creates an error for the given function and description.
func messageError(f string, err error) *MessageError {
	return &MessageError{Func: f, Description: err.Error()}
}

// errTooManyListItems describes a deserialized list whose element count
// exceeds the protocol maximum.
func errTooManyListItems(listName string, count uint64, max int) error {
	return errors.Errorf("too many %s in message [count %d, max %d]",
		listName, count, max)
}
