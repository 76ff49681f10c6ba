// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bench.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadFileConfig(t *testing.T) {
	path := writeConfig(t, `
connection:
  port: /dev/ttyUSB0
  baud: 57600
test:
  mode: tx
  packet_size: 128
  rate: 50
  duration: 45s
  ack_timeout: 2s
  retry_limit: 5
  heartbeat_interval: 10s
`)

	cfg, err := loadFileConfig(path)
	if err != nil {
		t.Fatalf("loadFileConfig: %v", err)
	}

	if cfg.Connection.Port != "/dev/ttyUSB0" || cfg.Connection.Baud != 57600 {
		t.Errorf("connection: %+v", cfg.Connection)
	}
	if cfg.Test.Mode != "tx" || cfg.Test.PacketSize != 128 || cfg.Test.Rate != 50 {
		t.Errorf("test params: %+v", cfg.Test)
	}
	if time.Duration(cfg.Test.Duration) != 45*time.Second {
		t.Errorf("duration: got %v", time.Duration(cfg.Test.Duration))
	}
	if time.Duration(cfg.Test.AckTimeout) != 2*time.Second {
		t.Errorf("ack timeout: got %v", time.Duration(cfg.Test.AckTimeout))
	}
	if cfg.Test.RetryLimit != 5 {
		t.Errorf("retry limit: got %d", cfg.Test.RetryLimit)
	}
}

func TestLoadFileConfig_BadDuration(t *testing.T) {
	path := writeConfig(t, "test:\n  duration: not-a-duration\n")
	if _, err := loadFileConfig(path); err == nil {
		t.Error("expected error for malformed duration")
	}
}

func TestLoadFileConfig_Missing(t *testing.T) {
	if _, err := loadFileConfig("/nonexistent/bench.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
