// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func telnetPair(t *testing.T) (*telnetTransport, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return &telnetTransport{conn: client}, server
}

func TestTelnetPassesPlainBytes(t *testing.T) {
	tr, server := telnetPair(t)

	go server.Write([]byte("Username: "))

	buf := make([]byte, 64)
	n, err := tr.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "Username: ", string(buf[:n]))
}

func TestTelnetStripsAndRefusesNegotiation(t *testing.T) {
	tr, server := telnetPair(t)

	// IAC DO ECHO, IAC WILL SGA around real text
	payload := []byte{telnetIAC, telnetDO, 1, 'o', 'k', telnetIAC, telnetWILL, 3}
	go server.Write(payload)

	readDone := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n, err := tr.Read(buf)
		if err != nil {
			readDone <- ""
			return
		}
		readDone <- string(buf[:n])
	}()

	// the refusals arrive on the server side
	reply := make([]byte, 6)
	server.SetReadDeadline(time.Now().Add(time.Second))
	_, err := server.Read(reply[:3])
	require.NoError(t, err)
	assert.Equal(t, []byte{telnetIAC, telnetWONT, 1}, reply[:3])
	_, err = server.Read(reply[3:])
	require.NoError(t, err)
	assert.Equal(t, []byte{telnetIAC, telnetDONT, 3}, reply[3:])

	assert.Equal(t, "ok", <-readDone)
}

func TestTelnetWriteTranslatesNewlines(t *testing.T) {
	tr, server := telnetPair(t)

	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := server.Read(buf)
		got <- buf[:n]
	}()

	n, err := tr.Write([]byte("id\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte("id\r\n"), <-got)
}

func TestTelnetCloseIdempotent(t *testing.T) {
	tr, _ := telnetPair(t)
	assert.NoError(t, tr.Close())
	assert.NoError(t, tr.Close())
}
