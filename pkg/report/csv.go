// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Thermoquad/pyrometer/pkg/history"
)

// exportCSV writes the summary as a key/value block followed by the
// retained samples, one row each.
func exportCSV(session *history.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	rec := session.Record

	summaryRows := [][]string{
		{"field", "value"},
		{"mode", rec.Mode},
		{"transport", rec.Transport},
		{"status", rec.Status},
		{"started_at", rec.StartedAt.Format(time.RFC3339)},
		{"elapsed_ms", strconv.FormatInt(rec.ElapsedMs, 10)},
		{"packet_size", strconv.Itoa(rec.PacketSize)},
		{"rate", strconv.Itoa(rec.Rate)},
		{"packets_sent", strconv.FormatUint(rec.PacketsSent, 10)},
		{"packets_acked", strconv.FormatUint(rec.PacketsAcked, 10)},
		{"packets_received", strconv.FormatUint(rec.PacketsReceived, 10)},
		{"packets_lost", strconv.FormatUint(rec.PacketsLost, 10)},
		{"retransmits", strconv.FormatUint(rec.Retransmits, 10)},
		{"framing_errors", strconv.FormatUint(rec.FramingErrors, 10)},
		{"bytes_transferred", strconv.FormatUint(rec.BytesTransferred, 10)},
		{"mean_latency_ms", formatFloat(rec.MeanLatencyMs)},
		{"median_latency_ms", formatFloat(rec.MedianLatencyMs)},
		{"stddev_latency_ms", formatFloat(rec.StdDevLatencyMs)},
		{"p95_latency_ms", formatFloat(rec.P95LatencyMs)},
		{"p99_latency_ms", formatFloat(rec.P99LatencyMs)},
		{"jitter_ms", formatFloat(rec.JitterMs)},
		{"loss_rate", formatFloat(rec.LossRate)},
		{"avg_bandwidth_bps", formatFloat(rec.AvgBandwidthBps)},
		{"peak_bandwidth_bps", formatFloat(rec.PeakBandwidthBps)},
	}
	if err := w.WriteAll(summaryRows); err != nil {
		return fmt.Errorf("writing summary rows: %w", err)
	}

	if len(session.Samples) > 0 {
		if err := w.Write([]string{""}); err != nil {
			return err
		}
		if err := w.Write([]string{"kind", "value", "sequence", "time_ms"}); err != nil {
			return err
		}
		for _, sm := range session.Samples {
			row := []string{
				sm.Kind,
				formatFloat(sm.Value),
				strconv.FormatUint(uint64(sm.Sequence), 10),
				strconv.FormatInt(sm.TimeMs, 10),
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("writing sample row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
