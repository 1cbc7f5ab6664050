// Copyright 2018 Johan Lindh. All rights reserved.
// Use of this source code is governed by the MIT license, see the LICENSE file.

package ajp

import (
	"fmt"

	"github.com/pkg/errors"
)

// OverflowError means an encode operation would not fit in the
// message buffer. Nothing was written.
type OverflowError struct {
	Size      int // bytes the operation needed
	Available int // bytes that were left
}

func (err OverflowError) Error() string {
	return fmt.Sprintf("ajp: overflow, need %d bytes, %d available", err.Size, err.Available)
}

// MalformedError means a decode operation found data inconsistent
// with the protocol, which points at the peer rather than local sizing.
type MalformedError struct {
	Reason string
}

func (err MalformedError) Error() string { return "ajp: malformed message: " + err.Reason }

// OutOfRangeError means a table code is outside the valid range.
type OutOfRangeError struct {
	Table string
	Code  int
	Max   int
}

func (err OutOfRangeError) Error() string {
	return fmt.Sprintf("ajp: %s code %d out of range 1..%d", err.Table, err.Code, err.Max)
}

// MagicError means a packet did not start with a direction marker.
type MagicError struct {
	Magic uint16
}

func (err MagicError) Error() string { return fmt.Sprintf("ajp: bad packet marker %04x", err.Magic) }

// UnexpectedTypeError is returned by the typed decoders when
// the message carries a different prefix code.
type UnexpectedTypeError struct {
	Want PrefixCode
	Got  PrefixCode
}

func (err UnexpectedTypeError) Error() string {
	return fmt.Sprintf("ajp: expected %v, got %v", err.Want, err.Got)
}

// HeaderNameError is returned when a literal header name is so long that
// its length field would be read back as a tagged header code.
type HeaderNameError struct {
	Length int
}

func (err HeaderNameError) Error() string {
	return fmt.Sprintf("ajp: literal header name of %d bytes collides with the header code tag", err.Length)
}

// ErrNestedMark is returned by Mark when a count field is already reserved.
var ErrNestedMark = errors.New("ajp: mark already active")

// ErrNoPrefixCode is returned when an operation needs the prefix code
// byte but the message does not have one.
var ErrNoPrefixCode = errors.New("ajp: message has no prefix code")

func overflow(size, available int) error {
	return errors.WithStack(OverflowError{Size: size, Available: available})
}

func malformed(format string, args ...interface{}) error {
	return errors.WithStack(MalformedError{Reason: fmt.Sprintf(format, args...)})
}

// IsOverflow returns true if the cause of err is an OverflowError.
func IsOverflow(err error) bool {
	_, ok := errors.Cause(err).(OverflowError)
	return ok
}

// IsMalformed returns true if the cause of err is a MalformedError or MagicError.
func IsMalformed(err error) bool {
	switch errors.Cause(err).(type) {
	case MalformedError, MagicError:
		return true
	}
	return false
}
