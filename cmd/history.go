// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/pyrometer/pkg/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse stored test results",
	Long: `List, inspect, and delete test runs saved in the history database.

The database location defaults to ~/.pyrometer/history.db and can be
changed with the global --db flag.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored test runs, newest first",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one stored test run in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored test run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum sessions to list (0 for all)")
}

// openStore opens the history database honoring the --db flag
func openStore() (*history.Store, error) {
	path := dbPath
	if path == "" {
		var err error
		path, err = history.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return history.Open(path)
}

func parseSessionID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid session id %q", arg)
	}
	return uint(id), nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListSessions(historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No stored sessions")
		return nil
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	failedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-5s %-20s %-12s %-10s %8s %8s %7s %10s",
		"ID", "Started", "Mode", "Status", "Sent", "Recv", "Loss", "Latency")))

	for _, rec := range records {
		status := rec.Status
		if rec.Status == "failed" {
			status = failedStyle.Render(rec.Status)
		}
		fmt.Printf("%-5d %-20s %-12s %-10s %8d %8d %6.2f%% %8.1fms\n",
			rec.ID,
			rec.StartedAt.Format("2006-01-02 15:04:05"),
			rec.Mode,
			status,
			rec.PacketsSent,
			rec.PacketsReceived,
			rec.LossRate*100,
			rec.MeanLatencyMs,
		)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	id, err := parseSessionID(args[0])
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
	rec := session.Record

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	fmt.Println(titleStyle.Render(fmt.Sprintf("Session %d", rec.ID)))
	fmt.Printf("Mode:              %s\n", rec.Mode)
	fmt.Printf("Transport:         %s\n", rec.Transport)
	fmt.Printf("Status:            %s\n", rec.Status)
	if rec.FailureReason != "" {
		fmt.Printf("Reason:            %s\n", rec.FailureReason)
	}
	fmt.Printf("Started:           %s\n", rec.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Elapsed:           %s\n", time.Duration(rec.ElapsedMs)*time.Millisecond)
	fmt.Printf("Load:              %d bytes x %d/s\n\n", rec.PacketSize, rec.Rate)

	fmt.Printf("Packets sent:      %d\n", rec.PacketsSent)
	fmt.Printf("Packets acked:     %d\n", rec.PacketsAcked)
	fmt.Printf("Packets received:  %d\n", rec.PacketsReceived)
	fmt.Printf("Packets lost:      %d (%.2f%%)\n", rec.PacketsLost, rec.LossRate*100)
	fmt.Printf("Retransmits:       %d\n", rec.Retransmits)
	fmt.Printf("Framing errors:    %d\n", rec.FramingErrors)
	fmt.Printf("Bytes transferred: %d\n\n", rec.BytesTransferred)

	fmt.Printf("Latency mean:      %.2f ms\n", rec.MeanLatencyMs)
	fmt.Printf("Latency median:    %.2f ms\n", rec.MedianLatencyMs)
	fmt.Printf("Latency p95:       %.2f ms\n", rec.P95LatencyMs)
	fmt.Printf("Latency p99:       %.2f ms\n", rec.P99LatencyMs)
	fmt.Printf("Jitter:            %.2f ms\n\n", rec.JitterMs)

	fmt.Printf("Bandwidth avg:     %.0f B/s\n", rec.AvgBandwidthBps)
	fmt.Printf("Bandwidth peak:    %.0f B/s\n", rec.PeakBandwidthBps)
	fmt.Printf("Retained samples:  %d\n", len(session.Samples))
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	id, err := parseSessionID(args[0])
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteSession(id); err != nil {
		return err
	}
	fmt.Printf("Deleted session %d\n", id)
	return nil
}
