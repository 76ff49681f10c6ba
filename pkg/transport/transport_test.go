// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"bytes"
	"testing"
	"time"
)

// ============================================================
// Loopback Tests
// ============================================================

func TestPipe_RoundTrip(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	payload := []byte{0xAA, 0x01, 0x02, 0x03}
	n, err := a.Write(payload)
	if err != nil {
		t.Fatalf("write error: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("short write: %d of %d", n, len(payload))
	}

	buf := make([]byte, 16)
	n, err = b.Read(buf)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if !bytes.Equal(buf[:n], payload) {
		t.Errorf("expected %v, got %v", payload, buf[:n])
	}
}

func TestPipe_ReadBoundedWait(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	start := time.Now()
	buf := make([]byte, 16)
	n, err := b.Read(buf)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("expected (0, nil) on idle link, got error: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 bytes on idle link, got %d", n)
	}
	if elapsed > DefaultPollInterval*10 {
		t.Errorf("read blocked %v, want roughly the poll interval (%v)", elapsed, DefaultPollInterval)
	}
}

func TestPipe_LeftoverAcrossReads(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	if _, err := a.Write([]byte{1, 2, 3, 4, 5}); err != nil {
		t.Fatalf("write error: %v", err)
	}

	small := make([]byte, 2)
	var got []byte
	for len(got) < 5 {
		n, err := b.Read(small)
		if err != nil {
			t.Fatalf("read error: %v", err)
		}
		got = append(got, small[:n]...)
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4, 5}) {
		t.Errorf("reassembled %v", got)
	}
}

func TestPipe_CloseIdempotent(t *testing.T) {
	a, b := Pipe()
	b.Close()

	if err := a.Close(); err != nil {
		t.Errorf("first close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}

	if _, err := a.Read(make([]byte, 1)); err != ErrClosed {
		t.Errorf("read after close: expected ErrClosed, got %v", err)
	}
	if _, err := a.Write([]byte{1}); err != ErrClosed {
		t.Errorf("write after close: expected ErrClosed, got %v", err)
	}
}

func TestPipe_WriteToClosedPeer(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	b.Close()

	if n, err := a.Write([]byte{1, 2}); n != 0 || err != ErrClosed {
		t.Errorf("write to closed peer: expected (0, ErrClosed), got (%d, %v)", n, err)
	}
}

// ============================================================
// Config Tests
// ============================================================

func TestOpen_EmptyConfig(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Error("expected error for config naming no medium")
	}
}

func TestConfig_PollIntervalDefault(t *testing.T) {
	cfg := Config{}
	if got := cfg.pollInterval(); got != DefaultPollInterval {
		t.Errorf("expected default poll interval %v, got %v", DefaultPollInterval, got)
	}

	cfg.PollInterval = 10 * time.Millisecond
	if got := cfg.pollInterval(); got != 10*time.Millisecond {
		t.Errorf("expected configured poll interval, got %v", got)
	}
}
