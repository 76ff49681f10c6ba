// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Thermoquad/pyrometer/pkg/transport"
)

// buildTransportConfig assembles the transport configuration from the
// persistent connection flags, prompting for a WebSocket password when
// Basic auth is requested.
func buildTransportConfig() (transport.Config, error) {
	if wsURL != "" {
		// WebSocket mode
		password := ""
		if wsUsername != "" {
			var err error
			password, err = getPassword()
			if err != nil {
				return transport.Config{}, err
			}
		}

		return transport.Config{
			URL:         wsURL,
			Username:    wsUsername,
			Password:    password,
			NoSSLVerify: wsNoSSLVerify,
		}, nil
	}

	if portName != "" {
		// Serial mode
		return transport.Config{
			Device:   portName,
			BaudRate: baudRate,
		}, nil
	}

	return transport.Config{}, fmt.Errorf("either --port or --url must be specified")
}

// getPassword retrieves the password from the environment or prompts the user
func getPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("PYROMETER_PASSWORD"); pw != "" {
		return pw, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}
