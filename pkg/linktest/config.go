// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package linktest drives Ember link performance tests. It owns the
// transmitter and receiver state machines, the metrics aggregator, and the
// engine that runs test sessions over a transport connection.
package linktest

import (
	"fmt"
	"time"

	"github.com/Thermoquad/pyrometer/pkg/transport"
)

// Mode selects which endpoint role a session plays
type Mode int

// Test modes
const (
	ModeTransmitter Mode = iota
	ModeReceiver
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case ModeTransmitter:
		return "transmitter"
	case ModeReceiver:
		return "receiver"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts a mode name to a Mode
func ParseMode(s string) (Mode, error) {
	switch s {
	case "transmitter", "tx":
		return ModeTransmitter, nil
	case "receiver", "rx":
		return ModeReceiver, nil
	default:
		return 0, &ConfigError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q (use transmitter or receiver)", s)}
	}
}

// Parameter limits and defaults
const (
	MinPacketSize = 1
	MaxPacketSize = 4096
	MinRate       = 1
	MaxRate       = 1000
	MinDuration   = 1 * time.Second
	MaxDuration   = 3600 * time.Second

	DefaultAckTimeout        = 5 * time.Second
	DefaultRetryLimit        = 3
	DefaultHeartbeatInterval = 5 * time.Second
	DefaultLookbackWindow    = 256
	DefaultWindowSize        = 2048
)

// Config enumerates the parameters of one test session
type Config struct {
	Mode       Mode
	PacketSize int           // DATA payload bytes, 1-4096
	Rate       int           // DATA frames per second, 1-1000 (transmitter only)
	Duration   time.Duration // 1s-3600s

	AckTimeout        time.Duration // wait before a retransmit, default 5s
	RetryLimit        int           // retransmits before a packet counts as lost
	HeartbeatInterval time.Duration // keep-alive cadence, default 5s
	LookbackWindow    int           // receiver gap-detection memory, in sequences
	WindowSize        int           // aggregator sample ring capacity

	Transport transport.Config
}

// ConfigError reports an invalid test parameter. Never fatal to the process;
// the session it would have configured simply does not start.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// applyDefaults fills zero-valued optional parameters
func (c *Config) applyDefaults() {
	if c.AckTimeout == 0 {
		c.AckTimeout = DefaultAckTimeout
	}
	if c.RetryLimit == 0 {
		c.RetryLimit = DefaultRetryLimit
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.LookbackWindow == 0 {
		c.LookbackWindow = DefaultLookbackWindow
	}
	if c.WindowSize == 0 {
		c.WindowSize = DefaultWindowSize
	}
}

// Validate checks every parameter range. Returns *ConfigError on the first
// violation found.
func (c Config) Validate() error {
	if c.Mode != ModeTransmitter && c.Mode != ModeReceiver {
		return &ConfigError{Field: "mode", Reason: fmt.Sprintf("unknown mode %d", int(c.Mode))}
	}
	if c.PacketSize < MinPacketSize || c.PacketSize > MaxPacketSize {
		return &ConfigError{Field: "packetSize", Reason: fmt.Sprintf("%d out of range %d-%d", c.PacketSize, MinPacketSize, MaxPacketSize)}
	}
	if c.Mode == ModeTransmitter && (c.Rate < MinRate || c.Rate > MaxRate) {
		return &ConfigError{Field: "rate", Reason: fmt.Sprintf("%d out of range %d-%d", c.Rate, MinRate, MaxRate)}
	}
	if c.Duration < MinDuration || c.Duration > MaxDuration {
		return &ConfigError{Field: "duration", Reason: fmt.Sprintf("%v out of range %v-%v", c.Duration, MinDuration, MaxDuration)}
	}
	if c.AckTimeout <= 0 {
		return &ConfigError{Field: "ackTimeout", Reason: "must be positive"}
	}
	if c.RetryLimit < 0 {
		return &ConfigError{Field: "retryLimit", Reason: "must not be negative"}
	}
	if c.HeartbeatInterval <= 0 {
		return &ConfigError{Field: "heartbeatInterval", Reason: "must be positive"}
	}
	if c.LookbackWindow < 1 {
		return &ConfigError{Field: "lookbackWindow", Reason: "must be at least 1"}
	}
	if c.WindowSize < 1 {
		return &ConfigError{Field: "windowSize", Reason: "must be at least 1"}
	}
	return nil
}
