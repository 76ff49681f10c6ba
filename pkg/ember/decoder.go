// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ember

import (
	"encoding/binary"
	"fmt"
)

// Decode parses a single Frame from the start of data. It is a pure function
// of its input: no I/O, and the payload is copied out so the caller's buffer
// is never retained.
//
// Returns *DecodeError on failure:
//   - Truncated: data is too short for the declared frame (more bytes may fix it)
//   - BadMagic: data[0] is not the magic byte
//   - SizeMismatch: the payload_size field exceeds MaxPayloadSize
//   - BadChecksum: the CRC recomputed over the decoded fields does not match
//
// Trailing bytes beyond the frame are ignored; use frameLen to find the
// boundary.
func Decode(data []byte) (*Frame, error) {
	if len(data) < MinFrameSize {
		return nil, &DecodeError{
			Kind:   Truncated,
			Detail: fmt.Sprintf("%d bytes (minimum %d)", len(data), MinFrameSize),
		}
	}

	if data[offsetMagic] != MagicByte {
		return nil, &DecodeError{
			Kind:   BadMagic,
			Detail: fmt.Sprintf("0x%02X (want 0x%02X)", data[offsetMagic], MagicByte),
		}
	}

	payloadSize := binary.BigEndian.Uint32(data[offsetPayloadSize:])
	if payloadSize > MaxPayloadSize {
		return nil, &DecodeError{
			Kind:   SizeMismatch,
			Detail: fmt.Sprintf("declared payload size %d (max %d)", payloadSize, MaxPayloadSize),
		}
	}

	total := MinFrameSize + int(payloadSize)
	if len(data) < total {
		return nil, &DecodeError{
			Kind:   Truncated,
			Detail: fmt.Sprintf("%d bytes (frame declares %d)", len(data), total),
		}
	}

	crcEnd := HeaderSize + int(payloadSize)
	received := binary.BigEndian.Uint32(data[crcEnd:])
	calculated := Checksum(data[:crcEnd])
	if received != calculated {
		return nil, &DecodeError{
			Kind:   BadChecksum,
			Detail: fmt.Sprintf("expected 0x%08X, got 0x%08X", calculated, received),
		}
	}

	payload := make([]byte, payloadSize)
	copy(payload, data[offsetPayload:crcEnd])

	return &Frame{
		frameType: data[offsetType],
		sequence:  binary.BigEndian.Uint16(data[offsetSequence:]),
		timestamp: binary.BigEndian.Uint32(data[offsetTimestamp:]),
		payload:   payload,
		checksum:  received,
	}, nil
}

// frameLen returns the total wire length of the frame starting at data[0],
// assuming data holds at least a full header.
func frameLen(data []byte) int {
	return MinFrameSize + int(binary.BigEndian.Uint32(data[offsetPayloadSize:]))
}
