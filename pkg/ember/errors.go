// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ember

import "fmt"

// DecodeKind classifies decode failures
type DecodeKind int

// Decode failure kinds
const (
	BadMagic DecodeKind = iota
	BadChecksum
	Truncated
	SizeMismatch
)

// String returns the kind name
func (k DecodeKind) String() string {
	switch k {
	case BadMagic:
		return "bad magic"
	case BadChecksum:
		return "bad checksum"
	case Truncated:
		return "truncated"
	case SizeMismatch:
		return "size mismatch"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// DecodeError reports why a byte buffer could not be decoded into a Frame
type DecodeError struct {
	Kind   DecodeKind
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("ember: decode failed: %s", e.Kind)
	}
	return fmt.Sprintf("ember: decode failed: %s: %s", e.Kind, e.Detail)
}

// EncodeError reports a frame that violates the wire format limits.
// Always a contract violation on the caller's side, never a link condition.
type EncodeError struct {
	Detail string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("ember: encode failed: %s", e.Detail)
}

// FramingError reports bytes discarded by the Scanner while resynchronizing.
// The stream continues after a FramingError; it is a measurement, not a fault.
type FramingError struct {
	Discarded int   // bytes dropped from the stream
	Cause     error // underlying *DecodeError, nil for leading garbage
}

func (e *FramingError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("ember: framing: discarded %d bytes searching for magic", e.Discarded)
	}
	return fmt.Sprintf("ember: framing: discarded %d bytes: %v", e.Discarded, e.Cause)
}

// Unwrap returns the underlying decode error, if any
func (e *FramingError) Unwrap() error {
	return e.Cause
}
