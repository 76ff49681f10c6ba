// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Pyrometer - Ember Serial Link Performance Tester
//
// A CLI tool for measuring bandwidth, latency, jitter, and packet loss
// over serial links using the Ember protocol.

package main

import (
	"os"

	"github.com/Thermoquad/pyrometer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
