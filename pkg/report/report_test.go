// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Thermoquad/pyrometer/pkg/history"
	"github.com/Thermoquad/pyrometer/pkg/linktest"
)

func testSession() *history.Session {
	return &history.Session{
		Record: history.SessionRecord{
			ID:               1,
			Mode:             "transmitter",
			Transport:        "/dev/ttyUSB0 @ 115200 baud",
			Status:           "completed",
			StartedAt:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			ElapsedMs:        10000,
			PacketSize:       64,
			Rate:             10,
			PacketsSent:      100,
			PacketsAcked:     98,
			PacketsLost:      2,
			BytesTransferred: 6400,
			MeanLatencyMs:    12.5,
			LossRate:         0.02,
			AvgBandwidthBps:  640,
			PeakBandwidthBps: 1280,
		},
		Samples: []history.SampleRecord{
			{SessionID: 1, Kind: "latency", Value: 12.5, Sequence: 1, TimeMs: 1000},
			{SessionID: 1, Kind: "latency", Value: 13.1, Sequence: 2, TimeMs: 1100},
			{SessionID: 1, Kind: "bandwidth", Value: 64, Sequence: 2, TimeMs: 1100},
			{SessionID: 1, Kind: "loss", Value: 1, Sequence: 5, TimeMs: 1500},
		},
	}
}

// ============================================================
// Format Parsing
// ============================================================

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{"json", FormatJSON, false},
		{"xlsx", FormatXLSX, false},
		{"excel", FormatXLSX, false},
		{" csv ", FormatCSV, false},
		{"pdf", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFormat(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ============================================================
// Text Rendering
// ============================================================

func TestRenderText(t *testing.T) {
	summary := linktest.Summary{
		Status:           linktest.StatusCompleted,
		Elapsed:          10 * time.Second,
		PacketsSent:      100,
		PacketsAcked:     98,
		PacketsLost:      2,
		Retransmits:      3,
		BytesTransferred: 6400,
		LatencySamples:   98,
		MeanLatencyMs:    12.5,
		MedianLatencyMs:  11.0,
		P95LatencyMs:     30.0,
		P99LatencyMs:     45.0,
		JitterMs:         2.5,
		LossRate:         0.02,
		AvgBandwidthBps:  640,
		PeakBandwidthBps: 1536,
	}

	text := RenderText(summary)

	for _, want := range []string{
		"Status:            completed",
		"Packets sent:      100",
		"Packets lost:      2 (2.00%)",
		"Latency mean:      12.50 ms",
		"Jitter:            2.50 ms",
		"Bandwidth avg:     640 B/s",
		"Bandwidth peak:    1.54 kB/s",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing line %q in:\n%s", want, text)
		}
	}
}

func TestRenderText_FailureReason(t *testing.T) {
	summary := linktest.Summary{
		Status:        linktest.StatusFailed,
		FailureReason: "connect failed: no such device",
	}
	text := RenderText(summary)
	if !strings.Contains(text, "connect failed: no such device") {
		t.Errorf("failure reason missing:\n%s", text)
	}
	if strings.Contains(text, "Latency mean") {
		t.Error("latency block should be omitted without samples")
	}
}

func TestFormatBps(t *testing.T) {
	tests := []struct {
		bps  float64
		want string
	}{
		{500, "500 B/s"},
		{1500, "1.50 kB/s"},
		{2500000, "2.50 MB/s"},
	}
	for _, tt := range tests {
		if got := formatBps(tt.bps); got != tt.want {
			t.Errorf("formatBps(%v) = %q, want %q", tt.bps, got, tt.want)
		}
	}
}

// ============================================================
// Exporters
// ============================================================

func TestExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := Export(testSession(), FormatCSV, path); err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("reading CSV: %v", err)
	}

	byField := make(map[string]string)
	for _, rec := range records {
		if len(rec) == 2 {
			byField[rec[0]] = rec[1]
		}
	}
	if byField["packets_sent"] != "100" {
		t.Errorf("packets_sent: got %q", byField["packets_sent"])
	}
	if byField["mean_latency_ms"] != "12.5" {
		t.Errorf("mean_latency_ms: got %q", byField["mean_latency_ms"])
	}

	last := records[len(records)-1]
	if len(last) != 4 || last[0] != "loss" {
		t.Errorf("expected the loss sample last, got %v", last)
	}
}

func TestExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := Export(testSession(), FormatJSON, path); err != nil {
		t.Fatalf("Export: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var decoded history.Session
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Record.PacketsSent != 100 {
		t.Errorf("packets_sent: got %d", decoded.Record.PacketsSent)
	}
	if len(decoded.Samples) != 4 {
		t.Errorf("expected 4 samples, got %d", len(decoded.Samples))
	}
}

func TestExportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	if err := Export(testSession(), FormatXLSX, path); err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()

	for _, sheet := range []string{"Summary", "Latency", "Bandwidth", "Errors"} {
		if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
			t.Errorf("missing sheet %q", sheet)
		}
	}

	v, err := f.GetCellValue("Latency", "B2")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if v != "12.5" {
		t.Errorf("first latency value: got %q", v)
	}
}

func TestExport_UnknownFormat(t *testing.T) {
	if err := Export(testSession(), Format("pdf"), "/tmp/never.pdf"); err == nil {
		t.Error("expected error for unknown format")
	}
}
