// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"
	"sync"

	"go.bug.st/serial"
)

// SerialConnection wraps a hardware serial port (8N1)
type SerialConnection struct {
	port serial.Port
	desc string

	mu     sync.Mutex
	closed bool
}

// OpenSerial opens the serial device named by the config. The port's read
// timeout is set to the poll interval, which gives Read its bounded-wait
// behavior: a timeout surfaces as (0, nil), not an error.
func OpenSerial(cfg Config) (*SerialConnection, error) {
	baud := cfg.BaudRate
	if baud <= 0 {
		baud = 115200
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	if err := port.SetReadTimeout(cfg.pollInterval()); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", cfg.Device, err)
	}

	return &SerialConnection{
		port: port,
		desc: fmt.Sprintf("Serial: %s @ %d baud", cfg.Device, baud),
	}, nil
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return 0, ErrClosed
	}
	// With a read timeout configured, go.bug.st/serial returns (0, nil) on
	// timeout, which is exactly the bounded-read contract.
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return 0, ErrClosed
	}
	return s.port.Write(p)
}

// Close releases the port. Safe to call more than once.
func (s *SerialConnection) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.port.Close()
}

func (s *SerialConnection) Describe() string {
	return s.desc
}

// ListPorts enumerates the serial devices visible to the process
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	return ports, nil
}
