// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package linktest

import (
	"time"

	"github.com/Thermoquad/pyrometer/pkg/ember"
)

// pendingAck tracks one in-flight DATA frame awaiting acknowledgment.
// Owned exclusively by the transmitter; the event loop is the only mutator.
type pendingAck struct {
	sequence uint16
	sentAt   time.Time
	deadline time.Time
	retries  int
}

// transmitter is the sending endpoint state machine. Driven entirely by the
// session event loop: timers call sendData/sendHeartbeat/sweep, inbound
// frames arrive through handleFrame. Explicit clocks keep it testable.
type transmitter struct {
	cfg     Config
	agg     *aggregator
	send    func(*ember.Frame) error
	payload []byte
	nextSeq uint16
	pending map[uint16]*pendingAck
}

func newTransmitter(cfg Config, agg *aggregator, send func(*ember.Frame) error) *transmitter {
	payload := make([]byte, cfg.PacketSize)
	for i := range payload {
		payload[i] = 0x55
	}
	return &transmitter{
		cfg:     cfg,
		agg:     agg,
		send:    send,
		payload: payload,
		pending: make(map[uint16]*pendingAck),
	}
}

// sendData emits the next DATA frame and registers its pending ACK
func (t *transmitter) sendData(now time.Time) error {
	seq := t.nextSeq
	t.nextSeq++ // wraps at 65536 by construction

	if err := t.send(ember.NewDataFrame(seq, t.payload)); err != nil {
		return err
	}

	t.pending[seq] = &pendingAck{
		sequence: seq,
		sentAt:   now,
		deadline: now.Add(t.cfg.AckTimeout),
	}
	t.agg.addSent(len(t.payload), now)
	return nil
}

// sendHeartbeat emits a keep-alive, consuming the shared sequence counter
func (t *transmitter) sendHeartbeat() error {
	seq := t.nextSeq
	t.nextSeq++
	return t.send(ember.NewHeartbeatFrame(seq))
}

// handleFrame processes an inbound frame in transmitter mode
func (t *transmitter) handleFrame(f *ember.Frame, now time.Time) {
	switch f.Type() {
	case ember.TypeAck:
		t.handleAck(f.Sequence(), now)
	case ember.TypeHeartbeat:
		// Reply to our own keep-alive; carries no measurement
	case ember.TypeData:
		// A DATA frame has no business arriving at the transmitter
		t.agg.record(Sample{Kind: SampleError, Value: 1, Sequence: f.Sequence(), Time: now})
	}
}

// handleAck resolves a pending DATA frame and emits its round-trip latency
func (t *transmitter) handleAck(seq uint16, now time.Time) {
	p, ok := t.pending[seq]
	if !ok {
		// Duplicate or stale ACK for a frame already resolved
		return
	}

	latency := now.Sub(p.sentAt)
	if latency < 0 {
		latency = 0
	}
	delete(t.pending, seq)

	t.agg.record(Sample{
		Kind:     SampleLatency,
		Value:    float64(latency) / float64(time.Millisecond),
		Sequence: seq,
		Time:     now,
	})
}

// sweep retransmits timed-out frames and finalizes the ones that exhausted
// their retry budget as lost
func (t *transmitter) sweep(now time.Time) error {
	for seq, p := range t.pending {
		if now.Before(p.deadline) {
			continue
		}

		if p.retries >= t.cfg.RetryLimit {
			delete(t.pending, seq)
			t.agg.record(Sample{Kind: SampleLoss, Value: 1, Sequence: seq, Time: now})
			continue
		}

		// Retransmit the same sequence; latency re-arms from this attempt
		if err := t.send(ember.NewDataFrame(seq, t.payload)); err != nil {
			return err
		}
		p.retries++
		p.sentAt = now
		p.deadline = now.Add(t.cfg.AckTimeout)
		t.agg.addRetransmit()
	}
	return nil
}

// shiftDeadlines pushes every pending ACK deadline forward after a pause so
// the paused time does not count against the timeout budget
func (t *transmitter) shiftDeadlines(d time.Duration) {
	for _, p := range t.pending {
		p.deadline = p.deadline.Add(d)
	}
}

// finalize declares every still-outstanding frame lost. Called at stop or
// when the session duration elapses.
func (t *transmitter) finalize(now time.Time) {
	for seq := range t.pending {
		delete(t.pending, seq)
		t.agg.record(Sample{Kind: SampleLoss, Value: 1, Sequence: seq, Time: now})
	}
}

// outstanding returns the number of in-flight DATA frames
func (t *transmitter) outstanding() int {
	return len(t.pending)
}
