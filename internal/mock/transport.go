// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package mock provides scripted transports for driving the session
// engine in tests without a network.
package mock

import (
	"io"
	"sync"

	"github.com/netcube/device-cli-go/pkg/transport"
)

// ScriptedTransport plays back a fixed list of responses: the first is
// delivered on connect, each subsequent one after a write. When the
// script runs out the stream goes silent, so reads time out the way a
// hung device would.
type ScriptedTransport struct {
	mu        sync.Mutex
	responses []string
	next      int
	readCh    chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// Writes records everything the engine sent, in order.
	Writes []string
}

// NewScriptedTransport builds a transport that will play responses.
func NewScriptedTransport(responses []string) *ScriptedTransport {
	t := &ScriptedTransport{
		responses: responses,
		readCh:    make(chan []byte, len(responses)+1),
		done:      make(chan struct{}),
	}
	t.deliverNext()
	return t
}

// Dialer returns a transport.Dialer handing out this transport.
func (t *ScriptedTransport) Dialer() transport.Dialer {
	return func(cfg transport.Config) (transport.Transport, error) {
		return t, nil
	}
}

func (t *ScriptedTransport) deliverNext() {
	if t.next >= len(t.responses) {
		return
	}
	t.readCh <- []byte(t.responses[t.next])
	t.next++
}

func (t *ScriptedTransport) Read(p []byte) (int, error) {
	select {
	case data := <-t.readCh:
		return copy(p, data), nil
	case <-t.done:
		return 0, io.EOF
	}
}

func (t *ScriptedTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-t.done:
		return 0, io.EOF
	default:
	}
	t.Writes = append(t.Writes, string(p))
	t.deliverNext()
	return len(p), nil
}

// Close ends the script; pending reads return EOF.
func (t *ScriptedTransport) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	return nil
}
