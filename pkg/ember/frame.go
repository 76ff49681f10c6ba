// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ember

import "fmt"

// Frame represents a decoded Ember protocol frame
type Frame struct {
	frameType uint8
	sequence  uint16
	timestamp uint32 // milliseconds, low 32 bits of a monotonic clock
	payload   []byte
	checksum  uint32
}

// NewFrame creates a frame with an explicit timestamp. Most callers want one of
// the typed constructors below, which stamp the frame at build time.
func NewFrame(frameType uint8, sequence uint16, timestamp uint32, payload []byte) *Frame {
	return &Frame{
		frameType: frameType,
		sequence:  sequence,
		timestamp: timestamp,
		payload:   payload,
	}
}

// NewDataFrame creates a DATA frame carrying the given payload
func NewDataFrame(sequence uint16, payload []byte) *Frame {
	return NewFrame(TypeData, sequence, NowMillis(), payload)
}

// NewAckFrame creates an ACK frame. The sequence field echoes the sequence of
// the DATA frame being acknowledged; ACK frames carry no payload.
func NewAckFrame(acked uint16) *Frame {
	return NewFrame(TypeAck, acked, NowMillis(), nil)
}

// NewHeartbeatFrame creates a HEARTBEAT frame with the sender's next sequence
func NewHeartbeatFrame(sequence uint16) *Frame {
	return NewFrame(TypeHeartbeat, sequence, NowMillis(), nil)
}

// Type returns the frame type (TypeData, TypeAck, or TypeHeartbeat)
func (f *Frame) Type() uint8 {
	return f.frameType
}

// Sequence returns the frame's sequence number
func (f *Frame) Sequence() uint16 {
	return f.sequence
}

// Timestamp returns the sender's millisecond clock sample at build time.
// The counter wraps at ~49.7 days; consumers must treat wrap-around as expected.
func (f *Frame) Timestamp() uint32 {
	return f.timestamp
}

// Payload returns the frame payload (nil for ACK and HEARTBEAT frames)
func (f *Frame) Payload() []byte {
	return f.payload
}

// Checksum returns the CRC-32 received on the wire (zero for locally built frames)
func (f *Frame) Checksum() uint32 {
	return f.checksum
}

// TypeName returns a human-readable name for the frame type
func (f *Frame) TypeName() string {
	switch f.frameType {
	case TypeData:
		return "DATA"
	case TypeAck:
		return "ACK"
	case TypeHeartbeat:
		return "HEARTBEAT"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", f.frameType)
	}
}

// String returns a one-line summary of the frame
func (f *Frame) String() string {
	return fmt.Sprintf("%s seq=%d ts=%dms len=%d", f.TypeName(), f.sequence, f.timestamp, len(f.payload))
}
