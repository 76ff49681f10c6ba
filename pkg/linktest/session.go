// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package linktest

import (
	"fmt"
	"sync"
	"time"
)

// SessionID identifies one test session within an Engine
type SessionID int

// Status is the lifecycle state of a session
type Status int

// Session statuses
const (
	StatusIdle Status = iota
	StatusRunning
	StatusPaused
	StatusStopped
	StatusCompleted
	StatusFailed
)

// String returns the status name
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusStopped:
		return "stopped"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether the status ends a session
func (s Status) Terminal() bool {
	return s == StatusStopped || s == StatusCompleted || s == StatusFailed
}

// Summary holds the aggregate statistics of a session. Computed on demand
// while the session runs and frozen when it reaches a terminal status.
type Summary struct {
	Status        Status
	FailureReason string
	StartedAt     time.Time
	Elapsed       time.Duration

	PacketsSent     uint64
	PacketsAcked    uint64
	PacketsReceived uint64
	PacketsLost     uint64
	Retransmits     uint64
	FramingErrors   uint64
	BytesTransferred uint64

	LatencySamples  uint64
	MeanLatencyMs   float64
	MedianLatencyMs float64
	StdDevLatencyMs float64
	P50LatencyMs    float64
	P95LatencyMs    float64
	P99LatencyMs    float64
	JitterMs        float64

	LossRate         float64 // lost / (lost + acknowledged), 0-1
	AvgBandwidthBps  float64 // payload bytes per wall-clock second
	PeakBandwidthBps float64 // busiest one-second bucket

	// WindowClipped is true when the sample ring evicted older samples, so
	// latency percentiles cover the retained window rather than the complete
	// population.
	WindowClipped bool
}

// Snapshot is a point-in-time view of a session: the retained sample window
// plus the running summary. Safe to hold; everything is copied out.
type Snapshot struct {
	Window  []Sample
	Summary Summary
}

// controlOp is a control request delivered to the session event loop
type controlOp int

const (
	opPause controlOp = iota
	opResume
	opStop
)

// Session is the aggregate root for one test run. All mutation happens on
// the session's own event loop goroutine; observers read through Snapshot.
type Session struct {
	id  SessionID
	cfg Config
	agg *aggregator

	ctrl chan controlOp
	done chan struct{}

	mu      sync.Mutex
	status  Status
	summary Summary  // valid once status is terminal
	window  []Sample // frozen window, set with summary
}

// ID returns the session identifier
func (s *Session) ID() SessionID {
	return s.id
}

// Config returns the session's configuration
func (s *Session) Config() Config {
	return s.cfg
}

// Status returns the current lifecycle state
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) setStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

// finalize freezes the session at a terminal status
func (s *Session) finalize(status Status, reason string, now time.Time) Summary {
	summary := s.agg.summarize(now, status, reason)
	s.mu.Lock()
	s.status = status
	s.summary = summary
	s.window = s.agg.windowCopy()
	s.mu.Unlock()
	close(s.done)
	return summary
}

// snapshot returns the live or frozen view depending on lifecycle state
func (s *Session) snapshot(now time.Time) *Snapshot {
	s.mu.Lock()
	if s.status.Terminal() {
		snap := &Snapshot{Window: s.window, Summary: s.summary}
		s.mu.Unlock()
		return snap
	}
	status := s.status
	s.mu.Unlock()

	return &Snapshot{
		Window:  s.agg.windowCopy(),
		Summary: s.agg.summarize(now, status, ""),
	}
}
