// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"io"
	"regexp"
	"time"

	"github.com/pkg/errors"
)

// ErrExpectTimeout is returned by Pipe.Expect when no pattern matched
// within the allowed time. The bytes received so far stay buffered and
// are reported in Match.Before.
var ErrExpectTimeout = errors.New("expect timed out")

// Match is the result of a successful Expect: the index of the pattern
// that fired, everything received before the match, and the matched
// text itself. Before and the match are consumed from the buffer.
type Match struct {
	Index  int
	Before string
	After  string
}

// Pipe turns a Transport into an expect-style stream: a pump goroutine
// reads the transport, Expect matches the accumulated buffer against a
// pattern set, and every byte in both directions is appended to an
// interaction log for diagnostics.
type Pipe struct {
	tr     Transport
	chunks chan []byte
	buf    bytes.Buffer
	log    bytes.Buffer
	before string
	after  string
	eof    bool
	closed bool
}

const readChunkSize = 4096

// NewPipe wraps tr and starts the read pump.
func NewPipe(tr Transport) *Pipe {
	p := &Pipe{
		tr:     tr,
		chunks: make(chan []byte, 64),
	}
	go p.pump()
	return p
}

func (p *Pipe) pump() {
	for {
		raw := make([]byte, readChunkSize)
		n, err := p.tr.Read(raw)
		if n > 0 {
			p.chunks <- raw[:n]
		}
		if err != nil {
			close(p.chunks)
			return
		}
	}
}

// Expect waits until one of patterns matches the stream. Matching is
// leftmost first: the pattern whose match starts earliest in the buffer
// wins, and on equal start positions the one registered first. On
// timeout or EOF the buffered bytes are reported as Before.
func (p *Pipe) Expect(patterns []*regexp.Regexp, timeout time.Duration) (Match, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if m, ok := p.match(patterns); ok {
			return m, nil
		}
		if p.eof {
			return p.failed(), io.EOF
		}

		select {
		case chunk, ok := <-p.chunks:
			if !ok {
				p.eof = true
				continue
			}
			p.buf.Write(chunk)
			p.log.Write(chunk)
		case <-timer.C:
			return p.failed(), ErrExpectTimeout
		}
	}
}

func (p *Pipe) match(patterns []*regexp.Regexp) (Match, bool) {
	data := p.buf.Bytes()
	best := -1
	var bestLoc []int
	for i, re := range patterns {
		if re == nil {
			continue
		}
		loc := re.FindIndex(data)
		if loc == nil {
			continue
		}
		if best == -1 || loc[0] < bestLoc[0] {
			best = i
			bestLoc = loc
		}
	}
	if best == -1 {
		return Match{}, false
	}

	p.before = string(data[:bestLoc[0]])
	p.after = string(data[bestLoc[0]:bestLoc[1]])
	p.buf.Next(bestLoc[1])
	return Match{Index: best, Before: p.before, After: p.after}, true
}

func (p *Pipe) failed() Match {
	p.before = p.buf.String()
	p.after = ""
	return Match{Index: -1, Before: p.before}
}

// Drain discards everything currently buffered or already readable
// without blocking. Discarded bytes stay in the interaction log.
func (p *Pipe) Drain() {
	for {
		select {
		case chunk, ok := <-p.chunks:
			if !ok {
				p.eof = true
				p.buf.Reset()
				return
			}
			p.log.Write(chunk)
		default:
			p.buf.Reset()
			return
		}
	}
}

// Send writes s to the transport as-is.
func (p *Pipe) Send(s string) error {
	p.log.WriteString(s)
	_, err := p.tr.Write([]byte(s))
	return err
}

// SendLine writes s followed by a newline.
func (p *Pipe) SendLine(s string) error {
	return p.Send(s + "\n")
}

// Before returns the pre-match text of the last Expect.
func (p *Pipe) Before() string { return p.before }

// After returns the matched text of the last Expect.
func (p *Pipe) After() string { return p.after }

// Logfile returns the full captured interaction so far.
func (p *Pipe) Logfile() string { return p.log.String() }

// Eof reports whether the peer has closed the stream.
func (p *Pipe) Eof() bool { return p.eof }

// Close shuts the underlying transport down. Safe to call twice.
func (p *Pipe) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return p.tr.Close()
}
