// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

package transport_test

import (
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netcube/device-cli-go/internal/mock"
	"github.com/netcube/device-cli-go/pkg/transport"
)

func res(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

func TestExpectMatch(t *testing.T) {
	tr := mock.NewScriptedTransport([]string{"hello Password: "})
	pipe := transport.NewPipe(tr)
	defer pipe.Close()

	m, err := pipe.Expect(res(`[Pp]assword: `), time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Index)
	assert.Equal(t, "hello ", m.Before)
	assert.Equal(t, "Password: ", m.After)
	assert.Equal(t, "hello ", pipe.Before())
	assert.Equal(t, "Password: ", pipe.After())
}

func TestExpectLeftmostMatchWins(t *testing.T) {
	tr := mock.NewScriptedTransport([]string{"Permission denied\r\nPassword: "})
	pipe := transport.NewPipe(tr)
	defer pipe.Close()

	// the later registered pattern matches earlier in the stream
	m, err := pipe.Expect(res(`[Pp]assword: `, `Permission denied`), time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Index)
	assert.Equal(t, "", m.Before)
	assert.Equal(t, "Permission denied", m.After)
}

func TestExpectRegistrationOrderBreaksTies(t *testing.T) {
	tr := mock.NewScriptedTransport([]string{"router> "})
	pipe := transport.NewPipe(tr)
	defer pipe.Close()

	m, err := pipe.Expect(res(`router`, `router> `), time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Index)
}

func TestExpectConsumesThroughMatch(t *testing.T) {
	tr := mock.NewScriptedTransport([]string{"a-first-b-second-"})
	pipe := transport.NewPipe(tr)
	defer pipe.Close()

	m, err := pipe.Expect(res(`first`), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "a-", m.Before)

	m, err = pipe.Expect(res(`second`), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "-b-", m.Before)
}

func TestExpectTimeoutKeepsBuffer(t *testing.T) {
	tr := mock.NewScriptedTransport([]string{"some output"})
	pipe := transport.NewPipe(tr)
	defer pipe.Close()

	m, err := pipe.Expect(res(`never-matches`), 50*time.Millisecond)
	assert.ErrorIs(t, err, transport.ErrExpectTimeout)
	assert.Equal(t, "some output", m.Before)

	// the unmatched bytes stay buffered for a later pattern
	m, err = pipe.Expect(res(`output`), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "some ", m.Before)
}

func TestExpectEOF(t *testing.T) {
	tr := mock.NewScriptedTransport(nil)
	pipe := transport.NewPipe(tr)
	tr.Close()

	_, err := pipe.Expect(res(`anything`), time.Second)
	assert.ErrorIs(t, err, io.EOF)
}

func TestDrainDiscardsPendingBytes(t *testing.T) {
	tr := mock.NewScriptedTransport([]string{"stale prompt text"})
	pipe := transport.NewPipe(tr)
	defer pipe.Close()

	// let the pump deliver
	_, err := pipe.Expect(res(`never-matches`), 50*time.Millisecond)
	assert.ErrorIs(t, err, transport.ErrExpectTimeout)

	pipe.Drain()
	_, err = pipe.Expect(res(`stale`), 50*time.Millisecond)
	assert.ErrorIs(t, err, transport.ErrExpectTimeout)
}

func TestLogfileCapturesBothDirections(t *testing.T) {
	tr := mock.NewScriptedTransport([]string{"device says hi"})
	pipe := transport.NewPipe(tr)
	defer pipe.Close()

	require.NoError(t, pipe.SendLine("show version"))
	_, err := pipe.Expect(res(`hi`), time.Second)
	require.NoError(t, err)

	logfile := pipe.Logfile()
	assert.Contains(t, logfile, "show version\n")
	assert.Contains(t, logfile, "device says hi")
}

func TestCloseIsIdempotent(t *testing.T) {
	tr := mock.NewScriptedTransport(nil)
	pipe := transport.NewPipe(tr)
	assert.NoError(t, pipe.Close())
	assert.NoError(t, pipe.Close())
}
