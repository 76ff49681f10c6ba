// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/pyrometer/pkg/history"
	"github.com/Thermoquad/pyrometer/pkg/linktest"
	"github.com/Thermoquad/pyrometer/pkg/report"
)

var (
	runMode       string
	runPacketSize int
	runRate       int
	runDuration   time.Duration
	runAckTimeout time.Duration
	runRetryLimit int
	runHeartbeat  time.Duration
	runText       bool
	runNoSave     bool
	runConfigFile string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a link performance test",
	Long: `Run one end of an Ember link performance test.

A transmitter sends DATA frames at a fixed rate and measures round-trip
latency from the matching ACKs. A receiver acknowledges DATA frames and
detects sequence gaps. Run a transmitter on one end of the link and a
receiver on the other.

Live progress is shown in a terminal dashboard; use --text for plain
periodic output (suitable for logs and scripts). The finished run is saved
to the history database unless --no-save is given.

Examples:
  # Transmit 64-byte packets at 10/s for 30 seconds over serial
  pyrometer run --port /dev/ttyUSB0 --mode tx --packet-size 64 --rate 10 --duration 30s

  # Receive on the other end until stopped
  pyrometer run --port /dev/ttyUSB1 --mode rx --duration 60s

  # Parameters from a YAML file, flags still win
  pyrometer run --config bench.yaml --rate 50`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runMode, "mode", "m", "transmitter", "Endpoint role: transmitter (tx) or receiver (rx)")
	runCmd.Flags().IntVar(&runPacketSize, "packet-size", 64, "DATA payload size in bytes (1-4096)")
	runCmd.Flags().IntVar(&runRate, "rate", 10, "DATA frames per second (1-1000, transmitter only)")
	runCmd.Flags().DurationVar(&runDuration, "duration", 30*time.Second, "Test duration (1s-1h)")
	runCmd.Flags().DurationVar(&runAckTimeout, "ack-timeout", 0, "ACK wait before retransmit (default 5s)")
	runCmd.Flags().IntVar(&runRetryLimit, "retry-limit", 0, "Retransmits before a packet counts as lost (default 3)")
	runCmd.Flags().DurationVar(&runHeartbeat, "heartbeat-interval", 0, "Keep-alive cadence (default 5s)")
	runCmd.Flags().BoolVar(&runText, "text", false, "Plain text output instead of the dashboard")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "Do not save the result to history")
	runCmd.Flags().StringVar(&runConfigFile, "config", "", "YAML config file (flags win over file values)")
}

func buildTestConfig(cmd *cobra.Command) (linktest.Config, error) {
	if runConfigFile != "" {
		fileCfg, err := loadFileConfig(runConfigFile)
		if err != nil {
			return linktest.Config{}, err
		}
		applyFileConfig(cmd, fileCfg)
	}

	mode, err := linktest.ParseMode(runMode)
	if err != nil {
		return linktest.Config{}, err
	}

	tcfg, err := buildTransportConfig()
	if err != nil {
		return linktest.Config{}, err
	}

	return linktest.Config{
		Mode:              mode,
		PacketSize:        runPacketSize,
		Rate:              runRate,
		Duration:          runDuration,
		AckTimeout:        runAckTimeout,
		RetryLimit:        runRetryLimit,
		HeartbeatInterval: runHeartbeat,
		Transport:         tcfg,
	}, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := buildTestConfig(cmd)
	if err != nil {
		return err
	}

	engine := linktest.NewEngine()
	id, err := engine.StartTest(cfg)
	if err != nil {
		return err
	}

	logger.Debug("session started", "id", id, "mode", cfg.Mode)

	var summary linktest.Summary
	if runText {
		summary, err = runTextMode(engine, id, cfg)
	} else {
		summary, err = runDashboard(engine, id, cfg)
	}
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Print(report.RenderText(summary))

	if !runNoSave {
		if err := saveToHistory(engine, id, cfg, summary); err != nil {
			logger.Warn("could not save result to history", "err", err)
		}
	}

	if summary.Status == linktest.StatusFailed {
		return fmt.Errorf("test failed: %s", summary.FailureReason)
	}
	return nil
}

// runTextMode waits for the session printing periodic stats, stopping
// early on SIGINT/SIGTERM.
func runTextMode(engine *linktest.Engine, id linktest.SessionID, cfg linktest.Config) (linktest.Summary, error) {
	fmt.Printf("Pyrometer - Link Performance Test\n")
	fmt.Printf("Mode: %s\n", cfg.Mode)
	fmt.Printf("Connection: %s\n", describeConnection())
	if cfg.Mode == linktest.ModeTransmitter {
		fmt.Printf("Load: %d bytes x %d/s for %s\n", cfg.PacketSize, cfg.Rate, cfg.Duration)
	} else {
		fmt.Printf("Listening for up to %s\n", cfg.Duration)
	}
	fmt.Printf("Press Ctrl+C to stop early\n\n")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	go func() {
		engine.Wait(id)
		close(done)
	}()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			fmt.Println("\nStopping...")
			engine.Stop(id)

		case <-ticker.C:
			snap, err := engine.Snapshot(id)
			if err != nil {
				continue
			}
			s := snap.Summary
			fmt.Printf("[%s] sent=%d acked=%d recv=%d lost=%d latency=%.1fms bw=%.0fB/s\n",
				s.Elapsed.Round(time.Second), s.PacketsSent, s.PacketsAcked,
				s.PacketsReceived, s.PacketsLost, s.MeanLatencyMs, s.AvgBandwidthBps)

		case <-done:
			return engine.Wait(id)
		}
	}
}

func saveToHistory(engine *linktest.Engine, id linktest.SessionID, cfg linktest.Config, summary linktest.Summary) error {
	path := dbPath
	if path == "" {
		var err error
		path, err = history.DefaultPath()
		if err != nil {
			return err
		}
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := engine.Snapshot(id)
	if err != nil {
		return err
	}

	recordID, err := store.SaveResult(cfg, summary, snap.Window)
	if err != nil {
		return err
	}
	logger.Info("result saved", "session", recordID, "db", path)
	return nil
}

func describeConnection() string {
	if wsURL != "" {
		return fmt.Sprintf("WebSocket: %s", wsURL)
	}
	return fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate)
}
