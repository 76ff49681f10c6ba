// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package linktest

import (
	"testing"
	"time"

	"github.com/Thermoquad/pyrometer/pkg/ember"
)

func newTestReceiver(cfg Config) (*receiver, *aggregator, *frameLog) {
	cfg.applyDefaults()
	log := &frameLog{}
	agg := newAggregator(cfg.WindowSize, time.Now())
	return newReceiver(cfg, agg, log.send), agg, log
}

func feedData(t *testing.T, r *receiver, seqs ...uint16) {
	t.Helper()
	now := time.Now()
	for _, seq := range seqs {
		f := ember.NewDataFrame(seq, []byte{0x01, 0x02})
		if err := r.handleFrame(f, now); err != nil {
			t.Fatalf("handleFrame(seq=%d): %v", seq, err)
		}
		now = now.Add(time.Millisecond)
	}
}

func TestReceiver_AcksEveryDataFrame(t *testing.T) {
	r, agg, log := newTestReceiver(Config{Mode: ModeReceiver})
	feedData(t, r, 1, 2, 3)

	if len(log.frames) != 3 {
		t.Fatalf("expected 3 ACKs, got %d frames", len(log.frames))
	}
	for i, f := range log.frames {
		if f.Type() != ember.TypeAck {
			t.Errorf("frame %d: expected ACK, got %s", i, f.TypeName())
		}
		if f.Sequence() != uint16(i+1) {
			t.Errorf("ACK %d echoes sequence %d, want %d", i, f.Sequence(), i+1)
		}
	}
	if agg.received != 3 {
		t.Errorf("expected 3 received, got %d", agg.received)
	}
	if agg.bytes != 6 {
		t.Errorf("expected 6 payload bytes counted, got %d", agg.bytes)
	}
}

// TestReceiver_GapDetection is the sequence-gap contract: [1,2,4,5] reports
// exactly one loss (sequence 3) and no false positives.
func TestReceiver_GapDetection(t *testing.T) {
	r, agg, log := newTestReceiver(Config{Mode: ModeReceiver})
	feedData(t, r, 1, 2, 4, 5)

	losses := lossSamples(agg)
	if len(losses) != 1 {
		t.Fatalf("expected exactly 1 loss sample, got %d", len(losses))
	}
	if losses[0].Sequence != 3 {
		t.Errorf("loss names sequence %d, want 3", losses[0].Sequence)
	}
	if len(log.frames) != 4 {
		t.Errorf("all 4 frames still get ACKs, got %d", len(log.frames))
	}
}

func TestReceiver_MultiPacketGap(t *testing.T) {
	r, agg, _ := newTestReceiver(Config{Mode: ModeReceiver})
	feedData(t, r, 10, 15)

	losses := lossSamples(agg)
	if len(losses) != 4 {
		t.Fatalf("gap of 4 should emit 4 loss samples, got %d", len(losses))
	}
	seen := map[uint16]bool{}
	for _, l := range losses {
		seen[l.Sequence] = true
	}
	for _, want := range []uint16{11, 12, 13, 14} {
		if !seen[want] {
			t.Errorf("missing loss sample for sequence %d", want)
		}
	}
}

func TestReceiver_SequenceWrapIsNotAGap(t *testing.T) {
	r, agg, _ := newTestReceiver(Config{Mode: ModeReceiver})
	feedData(t, r, 65534, 65535, 0, 1)

	if got := len(lossSamples(agg)); got != 0 {
		t.Errorf("wrap at 65535 to 0 must not report loss, got %d samples", got)
	}
}

func TestReceiver_GapAcrossWrap(t *testing.T) {
	r, agg, _ := newTestReceiver(Config{Mode: ModeReceiver})
	feedData(t, r, 65534, 1)

	losses := lossSamples(agg)
	if len(losses) != 2 {
		t.Fatalf("expected 2 losses across the wrap, got %d", len(losses))
	}
	seen := map[uint16]bool{}
	for _, l := range losses {
		seen[l.Sequence] = true
	}
	if !seen[65535] || !seen[0] {
		t.Errorf("expected losses for 65535 and 0, got %v", seen)
	}
}

func TestReceiver_LateArrivalRecovered(t *testing.T) {
	r, agg, log := newTestReceiver(Config{Mode: ModeReceiver})
	feedData(t, r, 1, 2, 5)

	if got := len(lossSamples(agg)); got != 2 {
		t.Fatalf("expected 2 losses before the late arrival, got %d", got)
	}

	// Sequence 3 shows up late: still ACKed and counted as data, but the
	// loss samples already emitted stay (the log is append-only)
	feedData(t, r, 3)

	if got := len(lossSamples(agg)); got != 2 {
		t.Errorf("late arrival must not retract loss samples, got %d", got)
	}
	if agg.received != 4 {
		t.Errorf("late arrival counts as received data, got %d", agg.received)
	}
	last := log.frames[len(log.frames)-1]
	if last.Type() != ember.TypeAck || last.Sequence() != 3 {
		t.Errorf("late arrival still gets an ACK, got %v", last)
	}
	if _, tracked := r.missing[3]; tracked {
		t.Errorf("recovered sequence must leave the missing set")
	}
}

func TestReceiver_GapCappedByLookbackWindow(t *testing.T) {
	r, agg, _ := newTestReceiver(Config{Mode: ModeReceiver, LookbackWindow: 8})
	feedData(t, r, 1, 100) // gap of 98

	if got := len(lossSamples(agg)); got != 8 {
		t.Errorf("loss reporting capped at the lookback window (8), got %d", got)
	}
	if len(r.missing) > 8 {
		t.Errorf("missing set must stay within the lookback window, has %d", len(r.missing))
	}
}

func TestReceiver_HeartbeatAnswered(t *testing.T) {
	r, agg, log := newTestReceiver(Config{Mode: ModeReceiver})
	now := time.Now()

	if err := r.handleFrame(ember.NewHeartbeatFrame(9), now); err != nil {
		t.Fatalf("handleFrame: %v", err)
	}

	if len(log.frames) != 1 || log.frames[0].Type() != ember.TypeHeartbeat {
		t.Fatalf("expected a HEARTBEAT reply, got %v", log.frames)
	}
	if agg.received != 0 || agg.bytes != 0 {
		t.Errorf("heartbeats must not count toward data metrics")
	}
}

// TestReceiver_HeartbeatInterleavedWithData: heartbeats consume the shared
// sequence counter, so one landing mid-stream must not register as a gap.
func TestReceiver_HeartbeatInterleavedWithData(t *testing.T) {
	r, agg, log := newTestReceiver(Config{Mode: ModeReceiver})

	feedData(t, r, 1, 2)
	if err := r.handleFrame(ember.NewHeartbeatFrame(3), time.Now()); err != nil {
		t.Fatalf("handleFrame(heartbeat): %v", err)
	}
	feedData(t, r, 4)

	if got := len(lossSamples(agg)); got != 0 {
		t.Fatalf("heartbeat mid-stream must not report loss, got %d samples", got)
	}
	if agg.received != 3 || agg.bytes != 6 {
		t.Errorf("heartbeat must not count toward data metrics, got received=%d bytes=%d",
			agg.received, agg.bytes)
	}
	if len(log.frames) != 4 {
		t.Fatalf("expected 3 ACKs plus 1 HEARTBEAT reply, got %d frames", len(log.frames))
	}
	if log.frames[2].Type() != ember.TypeHeartbeat {
		t.Errorf("frame 2: expected HEARTBEAT reply, got %s", log.frames[2].TypeName())
	}
}

func TestReceiver_HeartbeatRevealsGap(t *testing.T) {
	r, agg, _ := newTestReceiver(Config{Mode: ModeReceiver})

	feedData(t, r, 1)
	if err := r.handleFrame(ember.NewHeartbeatFrame(5), time.Now()); err != nil {
		t.Fatalf("handleFrame(heartbeat): %v", err)
	}

	losses := lossSamples(agg)
	if len(losses) != 3 {
		t.Fatalf("heartbeat jumping 1 to 5 should reveal 3 losses, got %d", len(losses))
	}
	if agg.received != 1 {
		t.Errorf("the heartbeat itself is not received data, got %d", agg.received)
	}
}

func TestReceiver_FramingErrorCountedNotAcked(t *testing.T) {
	r, agg, log := newTestReceiver(Config{Mode: ModeReceiver})

	r.handleFramingError(&ember.FramingError{Discarded: 3}, time.Now())

	if agg.errors != 1 {
		t.Errorf("expected 1 error sample, got %d", agg.errors)
	}
	if len(log.frames) != 0 {
		t.Errorf("corruption must not be acknowledged, sent %d frames", len(log.frames))
	}
}

func TestReceiver_DuplicateStillAcked(t *testing.T) {
	r, _, log := newTestReceiver(Config{Mode: ModeReceiver})
	feedData(t, r, 1, 2, 2)

	if len(log.frames) != 3 {
		t.Errorf("duplicates still get ACKs (the first ACK may have been lost), got %d", len(log.frames))
	}
}
