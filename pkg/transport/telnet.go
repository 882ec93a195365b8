// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"net"

	"github.com/pkg/errors"
)

// telnet protocol bytes (RFC 854)
const (
	telnetIAC  = 255
	telnetDONT = 254
	telnetDO   = 253
	telnetWONT = 252
	telnetWILL = 251
	telnetSB   = 250
	telnetSE   = 240
)

// telnetTransport is a minimal telnet NVT client: it strips IAC
// sequences from the inbound stream and refuses every option the
// server proposes, which leaves a plain byte pipe suitable for prompt
// matching.
type telnetTransport struct {
	conn   net.Conn
	inSB   bool
	closed bool
}

func dialTelnet(cfg Config) (Transport, error) {
	conn, err := net.DialTimeout("tcp", cfg.addr(), cfg.Timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", cfg.addr())
	}
	return &telnetTransport{conn: conn}, nil
}

func (t *telnetTransport) Read(p []byte) (int, error) {
	raw := make([]byte, len(p))
	for {
		n, err := t.conn.Read(raw)
		if n > 0 {
			data := t.filter(raw[:n])
			if len(data) > 0 {
				return copy(p, data), err
			}
		}
		if err != nil {
			return 0, err
		}
	}
}

// filter strips telnet command sequences, answering negotiations with
// a refusal so the server falls back to plain NVT.
func (t *telnetTransport) filter(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		b := data[i]
		if t.inSB {
			if b == telnetSE {
				t.inSB = false
			}
			continue
		}
		if b != telnetIAC {
			out = append(out, b)
			continue
		}
		if i+1 >= len(data) {
			break
		}
		i++
		switch data[i] {
		case telnetDO:
			if i+1 < len(data) {
				i++
				t.conn.Write([]byte{telnetIAC, telnetWONT, data[i]})
			}
		case telnetWILL:
			if i+1 < len(data) {
				i++
				t.conn.Write([]byte{telnetIAC, telnetDONT, data[i]})
			}
		case telnetDONT, telnetWONT:
			if i+1 < len(data) {
				i++
			}
		case telnetSB:
			t.inSB = true
		case telnetIAC:
			out = append(out, telnetIAC)
		}
	}
	return out
}

func (t *telnetTransport) Write(p []byte) (int, error) {
	// NVT end of line is CR LF
	data := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	if _, err := t.conn.Write(data); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (t *telnetTransport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}
