// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package report renders link test results as plain text and exports
// stored sessions to CSV, JSON, and XLSX.
package report

import (
	"fmt"
	"strings"

	"github.com/Thermoquad/pyrometer/pkg/history"
)

// Format identifies an export file format.
type Format string

// Supported export formats
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want csv, json, or xlsx)", s)
	}
}

// Export writes a stored session to path in the given format.
func Export(session *history.Session, format Format, path string) error {
	switch format {
	case FormatCSV:
		return exportCSV(session, path)
	case FormatJSON:
		return exportJSON(session, path)
	case FormatXLSX:
		return exportXLSX(session, path)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func formatBps(bps float64) string {
	switch {
	case bps >= 1e6:
		return fmt.Sprintf("%.2f MB/s", bps/1e6)
	case bps >= 1e3:
		return fmt.Sprintf("%.2f kB/s", bps/1e3)
	default:
		return fmt.Sprintf("%.0f B/s", bps)
	}
}
