// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package linktest

import (
	"time"

	"github.com/Thermoquad/pyrometer/pkg/ember"
)

// receiver is the listening endpoint state machine. It acknowledges DATA
// frames, detects sequence gaps within a bounded lookback window, and answers
// heartbeats. Owned by the session event loop; never mutated concurrently.
type receiver struct {
	cfg  Config
	agg  *aggregator
	send func(*ember.Frame) error

	nextSeq uint16 // own counter for heartbeat replies

	started bool
	lastSeq uint16
	// Missing sequences inside the lookback window, FIFO-bounded so a long
	// lossy run cannot grow memory without limit
	missing      map[uint16]struct{}
	missingOrder []uint16
}

func newReceiver(cfg Config, agg *aggregator, send func(*ember.Frame) error) *receiver {
	return &receiver{
		cfg:     cfg,
		agg:     agg,
		send:    send,
		missing: make(map[uint16]struct{}),
	}
}

// handleFrame processes an inbound frame in receiver mode
func (r *receiver) handleFrame(f *ember.Frame, now time.Time) error {
	switch f.Type() {
	case ember.TypeData:
		return r.handleData(f, now)
	case ember.TypeHeartbeat:
		// Heartbeats ride the transmitter's shared sequence counter, so the
		// gap detector must consume their sequence too or the next DATA frame
		// looks like a one-packet gap. No ACK, no bandwidth tick.
		r.trackSequence(f.Sequence(), now)
		seq := r.nextSeq
		r.nextSeq++
		return r.send(ember.NewHeartbeatFrame(seq))
	case ember.TypeAck:
		// ACKs flow toward the transmitter, not here
		r.agg.record(Sample{Kind: SampleError, Value: 1, Sequence: f.Sequence(), Time: now})
	}
	return nil
}

// handleData tracks the sequence, reports any gap, counts the payload toward
// bandwidth, and immediately acknowledges
func (r *receiver) handleData(f *ember.Frame, now time.Time) error {
	seq := f.Sequence()
	r.trackSequence(seq, now)

	r.agg.record(Sample{
		Kind:     SampleBandwidth,
		Value:    float64(len(f.Payload())),
		Sequence: seq,
		Time:     now,
	})

	return r.send(ember.NewAckFrame(seq))
}

// trackSequence advances the gap detector with one observed sequence and
// reports the sequences it skipped over
func (r *receiver) trackSequence(seq uint16, now time.Time) {
	switch {
	case !r.started:
		r.started = true
		r.lastSeq = seq

	case seq == r.lastSeq+1:
		r.lastSeq = seq

	case seqAhead(seq, r.lastSeq):
		// Gap of k sequences; report each one, capped by the lookback window
		gap := int(seq - (r.lastSeq + 1)) // uint16 arithmetic handles wrap
		emit := gap
		if emit > r.cfg.LookbackWindow {
			emit = r.cfg.LookbackWindow
		}
		for i := 0; i < emit; i++ {
			missed := seq - 1 - uint16(i)
			r.trackMissing(missed)
			r.agg.record(Sample{Kind: SampleLoss, Value: 1, Sequence: missed, Time: now})
		}
		r.lastSeq = seq

	default:
		// Late or duplicate arrival. If it was recorded missing, the frame is
		// recovered: stop tracking it, but the loss sample already emitted
		// stays (the log is append-only). A late DATA frame still gets an
		// ACK from the caller, since the transmitter may have missed the
		// first one.
		if _, ok := r.missing[seq]; ok {
			r.untrackMissing(seq)
		}
	}
}

// handleFramingError counts stream corruption. No ACK is sent: corruption is
// indistinguishable from silent loss to the transmitter.
func (r *receiver) handleFramingError(fe *ember.FramingError, now time.Time) {
	r.agg.record(Sample{Kind: SampleError, Value: float64(fe.Discarded), Time: now})
}

func (r *receiver) trackMissing(seq uint16) {
	if _, ok := r.missing[seq]; ok {
		return
	}
	r.missing[seq] = struct{}{}
	r.missingOrder = append(r.missingOrder, seq)
	for len(r.missingOrder) > r.cfg.LookbackWindow {
		oldest := r.missingOrder[0]
		r.missingOrder = r.missingOrder[1:]
		delete(r.missing, oldest)
	}
}

func (r *receiver) untrackMissing(seq uint16) {
	delete(r.missing, seq)
	for i, s := range r.missingOrder {
		if s == seq {
			r.missingOrder = append(r.missingOrder[:i], r.missingOrder[i+1:]...)
			break
		}
	}
}

// seqAhead reports whether a is ahead of b in serial-number arithmetic, so
// the 65535 to 0 wrap is ordering, not a gap backwards
func seqAhead(a, b uint16) bool {
	return int16(a-b) > 0
}
