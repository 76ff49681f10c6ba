// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/pyrometer/pkg/linktest"
)

// RenderText formats a summary as a plain text report suitable for a
// terminal or a log file.
func RenderText(summary linktest.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Status:            %s\n", summary.Status)
	if summary.FailureReason != "" {
		fmt.Fprintf(&b, "Reason:            %s\n", summary.FailureReason)
	}
	if !summary.StartedAt.IsZero() {
		fmt.Fprintf(&b, "Started:           %s\n", summary.StartedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(&b, "Elapsed:           %s\n", summary.Elapsed.Round(10*time.Millisecond))
	b.WriteString("\n")

	fmt.Fprintf(&b, "Packets sent:      %d\n", summary.PacketsSent)
	fmt.Fprintf(&b, "Packets acked:     %d\n", summary.PacketsAcked)
	if summary.PacketsReceived > 0 {
		fmt.Fprintf(&b, "Packets received:  %d\n", summary.PacketsReceived)
	}
	fmt.Fprintf(&b, "Packets lost:      %d (%.2f%%)\n", summary.PacketsLost, summary.LossRate*100)
	if summary.Retransmits > 0 {
		fmt.Fprintf(&b, "Retransmits:       %d\n", summary.Retransmits)
	}
	if summary.FramingErrors > 0 {
		fmt.Fprintf(&b, "Framing errors:    %d\n", summary.FramingErrors)
	}
	fmt.Fprintf(&b, "Bytes transferred: %d\n", summary.BytesTransferred)
	b.WriteString("\n")

	if summary.LatencySamples > 0 {
		fmt.Fprintf(&b, "Latency mean:      %.2f ms\n", summary.MeanLatencyMs)
		fmt.Fprintf(&b, "Latency median:    %.2f ms\n", summary.MedianLatencyMs)
		fmt.Fprintf(&b, "Latency stddev:    %.2f ms\n", summary.StdDevLatencyMs)
		fmt.Fprintf(&b, "Latency p95:       %.2f ms\n", summary.P95LatencyMs)
		fmt.Fprintf(&b, "Latency p99:       %.2f ms\n", summary.P99LatencyMs)
		fmt.Fprintf(&b, "Jitter:            %.2f ms\n", summary.JitterMs)
		if summary.WindowClipped {
			b.WriteString("                   (percentiles cover the retained sample window)\n")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Bandwidth avg:     %s\n", formatBps(summary.AvgBandwidthBps))
	fmt.Fprintf(&b, "Bandwidth peak:    %s\n", formatBps(summary.PeakBandwidthBps))

	return b.String()
}
