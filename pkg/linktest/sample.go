// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package linktest

import (
	"fmt"
	"time"
)

// SampleKind classifies measurement events
type SampleKind int

// Sample kinds
const (
	// SampleLatency is a round-trip time for one acknowledged DATA frame.
	// Value is milliseconds.
	SampleLatency SampleKind = iota
	// SampleBandwidth is one accepted DATA frame on the receive side.
	// Value is the payload length in bytes.
	SampleBandwidth
	// SampleLoss is one packet declared lost, either by retry exhaustion on
	// the transmitter or by gap detection on the receiver. Value is 1.
	SampleLoss
	// SampleError is one detected protocol-level fault (framing corruption,
	// unexpected frame type). Value is 1.
	SampleError
)

// String returns the kind name
func (k SampleKind) String() string {
	switch k {
	case SampleLatency:
		return "latency"
	case SampleBandwidth:
		return "bandwidth"
	case SampleLoss:
		return "loss"
	case SampleError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sample is one measurement event. Immutable once appended to the window.
type Sample struct {
	Kind     SampleKind
	Value    float64
	Sequence uint16 // related frame sequence, where applicable
	Time     time.Time
}
