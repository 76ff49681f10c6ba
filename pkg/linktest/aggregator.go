// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package linktest

import (
	"math"
	"sort"
	"sync"
	"time"
)

// aggregator is the append-only consumer of measurement samples. The I/O
// path records into it behind a short mutex and never waits on observers; a
// full window evicts the oldest sample instead of applying backpressure.
type aggregator struct {
	mu sync.Mutex

	// Fixed-capacity ring of recent samples
	window   []Sample
	capacity int
	head     int // index of the oldest sample once the ring is full
	clipped  bool

	startedAt   time.Time
	pausedTotal time.Duration

	// Running counters, independent of window eviction
	sent        uint64
	acked       uint64
	received    uint64
	lost        uint64
	errors      uint64
	retransmits uint64
	bytes       uint64
	latencyTotal uint64

	// Peak bandwidth over one-second buckets
	bucketSecond int64
	bucketBytes  uint64
	peakBps      float64
}

func newAggregator(capacity int, now time.Time) *aggregator {
	return &aggregator{
		window:    make([]Sample, 0, capacity),
		capacity:  capacity,
		startedAt: now,
	}
}

// push appends a sample to the ring, evicting the oldest when full
func (a *aggregator) push(s Sample) {
	if len(a.window) < a.capacity {
		a.window = append(a.window, s)
		return
	}
	a.window[a.head] = s
	a.head = (a.head + 1) % a.capacity
	a.clipped = true
}

// record appends a sample and updates the counters for its kind
func (a *aggregator) record(s Sample) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.push(s)

	switch s.Kind {
	case SampleLatency:
		a.acked++
		a.latencyTotal++
	case SampleBandwidth:
		a.received++
		a.addBytes(uint64(s.Value), s.Time)
	case SampleLoss:
		a.lost++
	case SampleError:
		a.errors++
	}
}

// addSent counts one transmitted DATA frame and its payload bytes
func (a *aggregator) addSent(payloadBytes int, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent++
	a.addBytes(uint64(payloadBytes), now)
}

// addRetransmit counts one retransmission attempt
func (a *aggregator) addRetransmit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.retransmits++
}

// addPaused extends the paused-time correction applied to elapsed time
func (a *aggregator) addPaused(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pausedTotal += d
}

// addBytes rolls the one-second peak-bandwidth bucket. Caller holds the lock.
func (a *aggregator) addBytes(n uint64, now time.Time) {
	a.bytes += n
	sec := now.Unix()
	if sec != a.bucketSecond {
		if bps := float64(a.bucketBytes); bps > a.peakBps {
			a.peakBps = bps
		}
		a.bucketSecond = sec
		a.bucketBytes = 0
	}
	a.bucketBytes += n
}

// windowCopy returns the retained samples in arrival order
func (a *aggregator) windowCopy() []Sample {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.orderedWindow()
}

// orderedWindow unrolls the ring into arrival order. Caller holds the lock.
func (a *aggregator) orderedWindow() []Sample {
	out := make([]Sample, 0, len(a.window))
	out = append(out, a.window[a.head:]...)
	out = append(out, a.window[:a.head]...)
	return out
}

// summarize computes the statistics over the retained window and the running
// counters. All math in float64; identical inputs produce identical output.
func (a *aggregator) summarize(now time.Time, status Status, reason string) Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	elapsed := now.Sub(a.startedAt) - a.pausedTotal
	if elapsed < 0 {
		elapsed = 0
	}

	s := Summary{
		Status:           status,
		FailureReason:    reason,
		StartedAt:        a.startedAt,
		Elapsed:          elapsed,
		PacketsSent:      a.sent,
		PacketsAcked:     a.acked,
		PacketsReceived:  a.received,
		PacketsLost:      a.lost,
		Retransmits:      a.retransmits,
		FramingErrors:    a.errors,
		BytesTransferred: a.bytes,
		LatencySamples:   a.latencyTotal,
		WindowClipped:    a.clipped,
	}

	// Loss rate: lost / (lost + acknowledged). The receiver has no ACK
	// bookkeeping of its own, so accepted DATA frames stand in for acks.
	confirmed := a.acked
	if confirmed == 0 {
		confirmed = a.received
	}
	if a.lost+confirmed > 0 {
		s.LossRate = float64(a.lost) / float64(a.lost+confirmed)
	}

	if secs := elapsed.Seconds(); secs > 0 {
		s.AvgBandwidthBps = float64(a.bytes) / secs
	}
	s.PeakBandwidthBps = a.peakBps
	if bps := float64(a.bucketBytes); bps > s.PeakBandwidthBps {
		// Current bucket may be the busiest one
		s.PeakBandwidthBps = bps
	}

	latencies := make([]float64, 0, len(a.window))
	for _, sample := range a.orderedWindow() {
		if sample.Kind == SampleLatency {
			latencies = append(latencies, sample.Value)
		}
	}
	if len(latencies) > 0 {
		s.MeanLatencyMs = mean(latencies)
		s.StdDevLatencyMs = stdDev(latencies, s.MeanLatencyMs)
		s.JitterMs = jitter(latencies)

		sorted := make([]float64, len(latencies))
		copy(sorted, latencies)
		sort.Float64s(sorted)
		s.MedianLatencyMs = percentile(sorted, 50)
		s.P50LatencyMs = s.MedianLatencyMs
		s.P95LatencyMs = percentile(sorted, 95)
		s.P99LatencyMs = percentile(sorted, 99)
	}

	return s
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// jitter is the standard deviation of consecutive latency deltas
func jitter(latencies []float64) float64 {
	if len(latencies) < 2 {
		return 0
	}
	deltas := make([]float64, 0, len(latencies)-1)
	for i := 1; i < len(latencies); i++ {
		deltas = append(deltas, latencies[i]-latencies[i-1])
	}
	return stdDev(deltas, mean(deltas))
}

// percentile evaluates the exact nearest-rank percentile over sorted values
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100.0 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
