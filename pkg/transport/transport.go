// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

// This package defines the transport abstraction used by the session
// engine to talk to a remote CLI. The engine only sees a byte stream;
// protocol specific logic (ssh handshake, telnet option negotiation)
// lives behind the Transport interface so that device or test specific
// implementations can be swapped in.
package transport

import (
	"fmt"
	"strings"
	"time"
)

// Transport is a bidirectional byte stream to a remote CLI. Read blocks
// until data arrives or the peer closes the stream, in which case it
// returns io.EOF.
type Transport interface {
	Read(p []byte) (int, error)

	Write(p []byte) (int, error)

	// Close releases the underlying connection. It must be safe to
	// call more than once.
	Close() error
}

// Config carries everything a dialer needs to reach a device.
type Config struct {
	Protocol string
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// Dialer opens a Transport to the device described by cfg. The session
// engine holds a Dialer rather than a concrete transport so tests can
// substitute scripted streams.
type Dialer func(cfg Config) (Transport, error)

// Dial is the default Dialer. It selects the concrete transport from
// cfg.Protocol.
func Dial(cfg Config) (Transport, error) {
	switch cfg.Protocol {
	case "ssh":
		return dialSSH(cfg)
	case "telnet":
		return dialTelnet(cfg)
	default:
		return nil, fmt.Errorf("unsupported protocol: %s", cfg.Protocol)
	}
}

func (c Config) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsRefused reports whether a dial error looks like an actively
// refused or unreachable endpoint.
func IsRefused(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no route to host") ||
		strings.Contains(msg, "network is unreachable")
}

// IsAuthFailure reports whether a dial error was an authentication
// rejection from the peer.
func IsAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "permission denied")
}
