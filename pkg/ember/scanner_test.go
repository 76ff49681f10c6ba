// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ember

import (
	"bytes"
	"testing"
)

// drain pulls everything currently decodable out of the scanner
func drain(s *Scanner) (frames []*Frame, ferrs []*FramingError) {
	for {
		f, ferr := s.Next()
		if f == nil && ferr == nil {
			return frames, ferrs
		}
		if f != nil {
			frames = append(frames, f)
		}
		if ferr != nil {
			ferrs = append(ferrs, ferr)
		}
	}
}

func TestScanner_SingleFrame(t *testing.T) {
	s := NewScanner()
	s.Push(MustEncode(NewDataFrame(1, []byte("one"))))

	frames, ferrs := drain(s)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if len(ferrs) != 0 {
		t.Errorf("expected no framing errors, got %d", len(ferrs))
	}
	if frames[0].Sequence() != 1 || !bytes.Equal(frames[0].Payload(), []byte("one")) {
		t.Errorf("frame fields mangled: %v", frames[0])
	}
	if s.Buffered() != 0 {
		t.Errorf("buffer should be empty, has %d bytes", s.Buffered())
	}
}

func TestScanner_BackToBackFrames(t *testing.T) {
	s := NewScanner()
	var stream []byte
	for seq := uint16(0); seq < 10; seq++ {
		stream = append(stream, MustEncode(NewDataFrame(seq, []byte{byte(seq)}))...)
	}
	s.Push(stream)

	frames, ferrs := drain(s)
	if len(frames) != 10 {
		t.Fatalf("expected 10 frames, got %d", len(frames))
	}
	if len(ferrs) != 0 {
		t.Errorf("expected no framing errors, got %d", len(ferrs))
	}
	for i, f := range frames {
		if f.Sequence() != uint16(i) {
			t.Errorf("frame %d: expected sequence %d, got %d", i, i, f.Sequence())
		}
	}
}

// TestScanner_PartialPushes splits a frame across many Push calls, including
// a split inside the header and inside the checksum.
func TestScanner_PartialPushes(t *testing.T) {
	data := MustEncode(NewDataFrame(99, []byte("split across reads")))

	for chunkSize := 1; chunkSize <= len(data); chunkSize++ {
		s := NewScanner()
		var frames []*Frame
		for off := 0; off < len(data); off += chunkSize {
			end := off + chunkSize
			if end > len(data) {
				end = len(data)
			}
			s.Push(data[off:end])
			got, ferrs := drain(s)
			if len(ferrs) != 0 {
				t.Fatalf("chunk size %d: unexpected framing error %v", chunkSize, ferrs[0])
			}
			frames = append(frames, got...)
		}
		if len(frames) != 1 {
			t.Fatalf("chunk size %d: expected 1 frame, got %d", chunkSize, len(frames))
		}
		if frames[0].Sequence() != 99 {
			t.Errorf("chunk size %d: wrong sequence %d", chunkSize, frames[0].Sequence())
		}
	}
}

func TestScanner_LeadingGarbage(t *testing.T) {
	s := NewScanner()
	garbage := []byte{0x00, 0x11, 0x22, 0x33} // no magic byte
	s.Push(append(garbage, MustEncode(NewAckFrame(5))...))

	frames, ferrs := drain(s)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame after garbage, got %d", len(frames))
	}
	if len(ferrs) != 1 {
		t.Fatalf("expected 1 framing error for garbage, got %d", len(ferrs))
	}
	if ferrs[0].Discarded != len(garbage) {
		t.Errorf("expected %d discarded bytes, got %d", len(garbage), ferrs[0].Discarded)
	}
}

// TestScanner_Resynchronization corrupts one frame and verifies every
// following valid frame still comes through.
func TestScanner_Resynchronization(t *testing.T) {
	const followers = 20

	// Zero out the checksum field so the corrupted region holds no stray
	// magic bytes and the test is bit-for-bit reproducible.
	corrupted := MustEncode(NewFrame(TypeData, 0, 0x11223344, []byte("doomed frame")))
	for i := len(corrupted) - ChecksumSize; i < len(corrupted); i++ {
		corrupted[i] = 0x00
	}

	stream := append([]byte{}, corrupted...)
	for seq := uint16(1); seq <= followers; seq++ {
		stream = append(stream, MustEncode(NewFrame(TypeData, seq, 0x11223344, []byte("ok")))...)
	}

	s := NewScanner()
	s.Push(stream)
	frames, ferrs := drain(s)

	if len(frames) != followers {
		t.Fatalf("expected %d valid frames after corruption, got %d", followers, len(frames))
	}
	if len(ferrs) == 0 {
		t.Error("expected at least one framing error for the corrupted frame")
	}
	for i, f := range frames {
		if f.Sequence() != uint16(i+1) {
			t.Errorf("frame %d: expected sequence %d, got %d", i, i+1, f.Sequence())
		}
	}
}

// TestScanner_MagicInsideCorruption plants a valid frame whose magic byte sits
// inside a failed candidate; byte-by-byte resync must find it.
func TestScanner_MagicInsideCorruption(t *testing.T) {
	// Fixed timestamp keeps the fake candidate's payload_size field large, so
	// it fails fast instead of waiting for bytes that never come.
	valid := MustEncode(NewFrame(TypeData, 7, 0x11223344, []byte("recovered")))

	// A bare magic byte followed by bytes that parse as a plausible header
	// prefix, then the real frame. The scanner has to chew through the fake
	// start one byte at a time.
	stream := append([]byte{MagicByte, TypeData, 0x00}, valid...)

	s := NewScanner()
	s.Push(stream)

	frames, _ := drain(s)
	found := false
	for _, f := range frames {
		if f.Type() == TypeData && f.Sequence() == 7 {
			found = true
		}
	}
	if !found {
		t.Error("valid frame buried behind a fake magic byte was not recovered")
	}
}

func TestScanner_DiscardAccounting(t *testing.T) {
	s := NewScanner()
	s.Push([]byte{0x01, 0x02, 0x03})
	drain(s)
	s.Push(MustEncode(NewAckFrame(1)))
	drain(s)

	if s.Discarded() != 3 {
		t.Errorf("expected 3 discarded bytes, got %d", s.Discarded())
	}
	if s.Frames() != 1 {
		t.Errorf("expected 1 frame counted, got %d", s.Frames())
	}
}

func TestScanner_EmptyBuffer(t *testing.T) {
	s := NewScanner()
	f, ferr := s.Next()
	if f != nil || ferr != nil {
		t.Error("Next on empty buffer should return (nil, nil)")
	}
}
