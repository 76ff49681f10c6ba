// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/pyrometer/pkg/report"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a stored test run to a file",
	Long: `Export one stored session to CSV, JSON, or XLSX.

The CSV file holds the summary as key/value rows followed by the retained
sample series. The XLSX workbook has Summary, Latency, Bandwidth, and
Errors sheets.

Examples:
  pyrometer export 12 --format csv --output run12.csv
  pyrometer export 12 --format xlsx --output run12.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "Export format: csv, json, or xlsx")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default session-<id>.<format>)")
}

func runExport(cmd *cobra.Command, args []string) error {
	id, err := parseSessionID(args[0])
	if err != nil {
		return err
	}

	format, err := report.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	session, err := store.GetSession(id)
	if err != nil {
		return err
	}

	path := exportOutput
	if path == "" {
		path = fmt.Sprintf("session-%d.%s", id, format)
	}

	if err := report.Export(session, format, path); err != nil {
		return err
	}
	fmt.Printf("Exported session %d to %s\n", id, path)
	return nil
}
