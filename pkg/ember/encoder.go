// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ember

import (
	"encoding/binary"
	"fmt"
)

// Encode serializes a Frame to wire format:
//
//	magic(1) type(1) sequence(2) timestamp(4) payload_size(4) payload(n) checksum(4)
//
// All multi-byte fields are big-endian. The checksum is CRC-32 over
// magic..payload. Returns *EncodeError if the payload exceeds MaxPayloadSize;
// the payload is never silently truncated.
func Encode(f *Frame) ([]byte, error) {
	if len(f.payload) > MaxPayloadSize {
		return nil, &EncodeError{
			Detail: fmt.Sprintf("payload too large: %d bytes (max %d)", len(f.payload), MaxPayloadSize),
		}
	}

	data := make([]byte, HeaderSize+len(f.payload)+ChecksumSize)

	data[offsetMagic] = MagicByte
	data[offsetType] = f.frameType
	binary.BigEndian.PutUint16(data[offsetSequence:], f.sequence)
	binary.BigEndian.PutUint32(data[offsetTimestamp:], f.timestamp)
	binary.BigEndian.PutUint32(data[offsetPayloadSize:], uint32(len(f.payload)))
	copy(data[offsetPayload:], f.payload)

	crc := Checksum(data[:HeaderSize+len(f.payload)])
	binary.BigEndian.PutUint32(data[HeaderSize+len(f.payload):], crc)

	return data, nil
}

// MustEncode encodes a frame and panics on error.
// For statically sized frames in tests and tools (use Encode for error handling).
func MustEncode(f *Frame) []byte {
	data, err := Encode(f)
	if err != nil {
		panic(fmt.Sprintf("ember: encode error: %v", err))
	}
	return data
}
