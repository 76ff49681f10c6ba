// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// duration accepts Go duration strings ("30s", "1m") in YAML
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = duration(parsed)
	return nil
}

// fileConfig is the optional YAML configuration for the run command.
// Explicit flags always win over file values.
type fileConfig struct {
	Connection struct {
		Port        string `yaml:"port"`
		Baud        int    `yaml:"baud"`
		URL         string `yaml:"url"`
		Username    string `yaml:"username"`
		NoSSLVerify bool   `yaml:"no_ssl_verify"`
	} `yaml:"connection"`

	Test struct {
		Mode              string   `yaml:"mode"`
		PacketSize        int      `yaml:"packet_size"`
		Rate              int      `yaml:"rate"`
		Duration          duration `yaml:"duration"`
		AckTimeout        duration `yaml:"ack_timeout"`
		RetryLimit        int      `yaml:"retry_limit"`
		HeartbeatInterval duration `yaml:"heartbeat_interval"`
	} `yaml:"test"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// applyFileConfig fills in values from the config file for every flag
// the user did not set explicitly on the command line.
func applyFileConfig(cmd *cobra.Command, cfg *fileConfig) {
	flags := cmd.Flags()
	persistent := cmd.Root().PersistentFlags()

	if !persistent.Changed("port") && cfg.Connection.Port != "" {
		portName = cfg.Connection.Port
	}
	if !persistent.Changed("baud") && cfg.Connection.Baud != 0 {
		baudRate = cfg.Connection.Baud
	}
	if !persistent.Changed("url") && cfg.Connection.URL != "" {
		wsURL = cfg.Connection.URL
	}
	if !persistent.Changed("username") && cfg.Connection.Username != "" {
		wsUsername = cfg.Connection.Username
	}
	if !persistent.Changed("no-ssl-verify") && cfg.Connection.NoSSLVerify {
		wsNoSSLVerify = true
	}

	if !flags.Changed("mode") && cfg.Test.Mode != "" {
		runMode = cfg.Test.Mode
	}
	if !flags.Changed("packet-size") && cfg.Test.PacketSize != 0 {
		runPacketSize = cfg.Test.PacketSize
	}
	if !flags.Changed("rate") && cfg.Test.Rate != 0 {
		runRate = cfg.Test.Rate
	}
	if !flags.Changed("duration") && cfg.Test.Duration != 0 {
		runDuration = time.Duration(cfg.Test.Duration)
	}
	if !flags.Changed("ack-timeout") && cfg.Test.AckTimeout != 0 {
		runAckTimeout = time.Duration(cfg.Test.AckTimeout)
	}
	if !flags.Changed("retry-limit") && cfg.Test.RetryLimit != 0 {
		runRetryLimit = cfg.Test.RetryLimit
	}
	if !flags.Changed("heartbeat-interval") && cfg.Test.HeartbeatInterval != 0 {
		runHeartbeat = time.Duration(cfg.Test.HeartbeatInterval)
	}
}
