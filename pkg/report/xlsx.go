// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Thermoquad/pyrometer/pkg/history"
)

// exportXLSX writes a workbook with a Summary sheet plus one sheet per
// sample kind that has data.
func exportXLSX(session *history.Session, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	rec := session.Record

	f.SetSheetName("Sheet1", "Summary")
	f.SetCellValue("Summary", "A1", "Field")
	f.SetCellValue("Summary", "B1", "Value")

	summary := []struct {
		field string
		value interface{}
	}{
		{"Mode", rec.Mode},
		{"Transport", rec.Transport},
		{"Status", rec.Status},
		{"Started", rec.StartedAt.Format(time.RFC3339)},
		{"Elapsed (ms)", rec.ElapsedMs},
		{"Packet size", rec.PacketSize},
		{"Rate (pkt/s)", rec.Rate},
		{"Packets sent", rec.PacketsSent},
		{"Packets acked", rec.PacketsAcked},
		{"Packets received", rec.PacketsReceived},
		{"Packets lost", rec.PacketsLost},
		{"Retransmits", rec.Retransmits},
		{"Framing errors", rec.FramingErrors},
		{"Bytes transferred", rec.BytesTransferred},
		{"Mean latency (ms)", rec.MeanLatencyMs},
		{"Median latency (ms)", rec.MedianLatencyMs},
		{"Latency stddev (ms)", rec.StdDevLatencyMs},
		{"P95 latency (ms)", rec.P95LatencyMs},
		{"P99 latency (ms)", rec.P99LatencyMs},
		{"Jitter (ms)", rec.JitterMs},
		{"Loss rate", rec.LossRate},
		{"Avg bandwidth (B/s)", rec.AvgBandwidthBps},
		{"Peak bandwidth (B/s)", rec.PeakBandwidthBps},
	}
	for i, row := range summary {
		f.SetCellValue("Summary", fmt.Sprintf("A%d", i+2), row.field)
		f.SetCellValue("Summary", fmt.Sprintf("B%d", i+2), row.value)
	}
	f.SetColWidth("Summary", "A", "A", 22)
	f.SetColWidth("Summary", "B", "B", 28)

	sheets := map[string]string{
		"latency":   "Latency",
		"bandwidth": "Bandwidth",
		"loss":      "Errors",
		"error":     "Errors",
	}
	created := make(map[string]bool)
	rows := make(map[string]int)

	for _, sm := range session.Samples {
		sheet, ok := sheets[sm.Kind]
		if !ok {
			continue
		}
		if !created[sheet] {
			if _, err := f.NewSheet(sheet); err != nil {
				return fmt.Errorf("creating sheet %s: %w", sheet, err)
			}
			f.SetCellValue(sheet, "A1", "Kind")
			f.SetCellValue(sheet, "B1", "Value")
			f.SetCellValue(sheet, "C1", "Sequence")
			f.SetCellValue(sheet, "D1", "Time (ms)")
			f.SetColWidth(sheet, "A", "D", 14)
			created[sheet] = true
			rows[sheet] = 1
		}
		rows[sheet]++
		r := rows[sheet]
		f.SetCellValue(sheet, fmt.Sprintf("A%d", r), sm.Kind)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", r), sm.Value)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", r), sm.Sequence)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", r), sm.TimeMs)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
