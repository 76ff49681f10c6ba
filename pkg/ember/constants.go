// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package ember provides a reference Go implementation of the Ember link-test protocol.
//
// Ember is a binary protocol for characterizing point-to-point serial links in the
// Thermoquad ecosystem. A transmitter endpoint sends DATA frames on a fixed cadence,
// the receiver acknowledges each one, and both sides derive bandwidth, latency,
// jitter, and loss figures from the exchange. This package provides frame
// encoding/decoding, CRC validation, and stream framing with resynchronization.
//
// See the Ember specification at origin/documentation/source/specifications/ember/
package ember

// Protocol framing
const (
	MagicByte = 0xAA
)

// Frame types
const (
	TypeData      = 0x01
	TypeAck       = 0x02
	TypeHeartbeat = 0x03
)

// Wire layout sizes. All multi-byte fields are big-endian.
const (
	HeaderSize     = 12 // magic(1) + type(1) + sequence(2) + timestamp(4) + payload_size(4)
	ChecksumSize   = 4
	MinFrameSize   = HeaderSize + ChecksumSize
	MaxPayloadSize = 4096
	MaxFrameSize   = MinFrameSize + MaxPayloadSize
)

// Header field offsets
const (
	offsetMagic       = 0
	offsetType        = 1
	offsetSequence    = 2
	offsetTimestamp   = 4
	offsetPayloadSize = 8
	offsetPayload     = 12
)
