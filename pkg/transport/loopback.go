// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"sync"
	"time"
)

// LoopbackConnection is one end of an in-memory connection pair. It follows
// the same bounded-read contract as the hardware media, so the engine and
// tests exercise identical code paths against it.
type LoopbackConnection struct {
	peer *LoopbackConnection
	poll time.Duration

	incoming chan []byte
	leftover []byte

	closeOnce sync.Once
	done      chan struct{}
}

// Pipe creates a connected loopback pair. Bytes written to one end become
// readable on the other, lossless and with effectively zero latency.
func Pipe() (*LoopbackConnection, *LoopbackConnection) {
	a := &LoopbackConnection{
		poll:     DefaultPollInterval,
		incoming: make(chan []byte, 256),
		done:     make(chan struct{}),
	}
	b := &LoopbackConnection{
		poll:     DefaultPollInterval,
		incoming: make(chan []byte, 256),
		done:     make(chan struct{}),
	}
	a.peer = b
	b.peer = a
	return a, b
}

func (l *LoopbackConnection) Read(p []byte) (int, error) {
	if len(l.leftover) > 0 {
		n := copy(p, l.leftover)
		l.leftover = l.leftover[n:]
		return n, nil
	}

	timer := time.NewTimer(l.poll)
	defer timer.Stop()

	select {
	case data := <-l.incoming:
		n := copy(p, data)
		l.leftover = data[n:]
		return n, nil
	case <-l.done:
		return 0, ErrClosed
	case <-timer.C:
		return 0, nil
	}
}

func (l *LoopbackConnection) Write(p []byte) (int, error) {
	data := make([]byte, len(p))
	copy(data, p)

	select {
	case <-l.done:
		return 0, ErrClosed
	case <-l.peer.done:
		// Peer closed; the write has nowhere to land
		return 0, ErrClosed
	case l.peer.incoming <- data:
		return len(p), nil
	}
}

// Close shuts down this end. Safe to call more than once.
func (l *LoopbackConnection) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	return nil
}

func (l *LoopbackConnection) Describe() string {
	return "Loopback: in-memory pair"
}
