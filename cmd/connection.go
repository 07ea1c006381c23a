// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"syscall"

	"github.com/Thermoquad/quadstat/pkg/config"
	"github.com/Thermoquad/quadstat/pkg/link"
	"golang.org/x/term"
)

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv("QUADSTAT_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// robotAddress returns the configured robot address with WebSocket
// credentials folded in when --username is set
func robotAddress(cfg *config.Config) (string, error) {
	addr := cfg.Robot.Address
	if wsUsername == "" {
		return addr, nil
	}

	u, err := link.ParseAddress(addr)
	if err != nil {
		return "", err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("--username requires a ws:// or wss:// robot address")
	}

	password, err := GetPassword()
	if err != nil {
		return "", err
	}
	u.User = url.UserPassword(wsUsername, password)
	return u.String(), nil
}

// dialOptions returns the transport options for cfg and the command line
func dialOptions(cfg *config.Config) link.DialOptions {
	opts := cfg.DialOptions()
	opts.SkipTLSVerify = wsNoSSLVerify
	return opts
}

// OpenConnection opens the robot connection once, for the diagnostic commands
func OpenConnection(ctx context.Context, cfg *config.Config) (link.Connection, string, error) {
	addr, err := robotAddress(cfg)
	if err != nil {
		return nil, "", err
	}
	return link.Dial(ctx, addr, dialOptions(cfg))
}
