// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport abstracts the bidirectional byte stream under an Ember
// link test. Implementations cover hardware serial ports, the Slate WebSocket
// bridge, and an in-memory loopback pair for self-tests.
//
// All implementations share the bounded-read contract: Read waits at most the
// configured poll interval for data and returns (0, nil) when none arrived,
// so callers polling for a stop request are never stuck on a silent link.
package transport

import (
	"fmt"
	"time"
)

// DefaultPollInterval bounds how long Read blocks waiting for bytes
const DefaultPollInterval = 50 * time.Millisecond

// ErrClosed is returned by Read and Write after Close
var ErrClosed = fmt.Errorf("transport: connection closed")

// Connection is a bidirectional byte stream with bounded reads.
//
// Read returns (0, nil) when no data arrives within the poll interval.
// Write reports the actual number of bytes written, never a silent partial.
// Close is idempotent and always releases the underlying resource.
type Connection interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	// Describe returns a human-readable endpoint description for display
	Describe() string
}

// Config names the endpoint identity and medium parameters. Exactly one of
// Device or URL selects the medium; the core treats any conforming
// Connection interchangeably.
type Config struct {
	// Serial
	Device   string // e.g. /dev/ttyUSB0
	BaudRate int

	// WebSocket bridge
	URL         string // ws:// or wss://
	Username    string
	Password    string
	NoSSLVerify bool

	// Bounded-read wait; DefaultPollInterval when zero
	PollInterval time.Duration
}

func (c Config) pollInterval() time.Duration {
	if c.PollInterval <= 0 {
		return DefaultPollInterval
	}
	return c.PollInterval
}

// Dialer opens a Connection for a Config. The test engine accepts any Dialer
// so tests and the selftest command can substitute loopback pairs.
type Dialer func(Config) (Connection, error)

// Open dials the medium named by the config
func Open(cfg Config) (Connection, error) {
	switch {
	case cfg.URL != "":
		return OpenWebSocket(cfg)
	case cfg.Device != "":
		return OpenSerial(cfg)
	default:
		return nil, fmt.Errorf("transport: config names neither a serial device nor a WebSocket URL")
	}
}
