// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ember

import (
	"bytes"
	"errors"
)

// Scanner extracts Ember frames from an unreliable byte stream. Bytes arrive
// in arbitrary chunks via Push; Next yields decoded frames and framing errors
// as they become available.
//
// Resynchronization policy: leading bytes before a magic byte are dropped in
// one batch; when a candidate frame fails its checksum or size check, exactly
// one byte is dropped and scanning resumes at the next position, so the bytes
// inside a bad candidate are re-examined for a later valid magic. A single
// corrupted frame therefore never poisons the valid frames behind it.
//
// The scanner is not safe for concurrent use.
type Scanner struct {
	buf []byte

	// Running totals since construction
	frames    uint64
	discarded uint64
}

// NewScanner creates a scanner with an empty buffer
func NewScanner() *Scanner {
	return &Scanner{
		buf: make([]byte, 0, MaxFrameSize*2),
	}
}

// Push appends raw bytes from the transport to the scan buffer.
// The slice is copied; the caller may reuse it.
func (s *Scanner) Push(p []byte) {
	s.buf = append(s.buf, p...)
}

// Next returns the next frame or framing error from the buffer.
// Returns (nil, nil) when the buffer holds no complete frame yet; the caller
// should Push more bytes and try again. Call Next repeatedly until it returns
// (nil, nil) after each Push, since one chunk may complete several frames.
func (s *Scanner) Next() (*Frame, *FramingError) {
	if len(s.buf) == 0 {
		return nil, nil
	}

	// Scan forward for the magic byte
	idx := bytes.IndexByte(s.buf, MagicByte)
	if idx < 0 {
		n := len(s.buf)
		s.buf = s.buf[:0]
		s.discarded += uint64(n)
		return nil, &FramingError{Discarded: n}
	}
	if idx > 0 {
		s.drop(idx)
		s.discarded += uint64(idx)
		return nil, &FramingError{Discarded: idx}
	}

	frame, err := Decode(s.buf)
	if err == nil {
		s.drop(frameLen(s.buf))
		s.frames++
		return frame, nil
	}

	var dec *DecodeError
	if errors.As(err, &dec) && dec.Kind == Truncated {
		// Partial frame; wait for more bytes
		return nil, nil
	}

	// Checksum or size failure: drop a single byte and resume scanning
	s.drop(1)
	s.discarded++
	return nil, &FramingError{Discarded: 1, Cause: err}
}

// drop removes n bytes from the front of the buffer
func (s *Scanner) drop(n int) {
	remaining := copy(s.buf, s.buf[n:])
	s.buf = s.buf[:remaining]
}

// Buffered returns the number of bytes waiting in the scan buffer
func (s *Scanner) Buffered() int {
	return len(s.buf)
}

// Frames returns the total number of valid frames produced
func (s *Scanner) Frames() uint64 {
	return s.frames
}

// Discarded returns the total number of bytes dropped during resynchronization
func (s *Scanner) Discarded() uint64 {
	return s.discarded
}
