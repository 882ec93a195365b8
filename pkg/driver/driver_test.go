// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreBuiltins(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		Reset()
		require.NoError(t, LoadBytes([]byte(defaultConfig)))
	})
}

func TestGetUnknownDriver(t *testing.T) {
	_, err := Get("zdriver")
	require.Error(t, err)
	nf, ok := err.(*NotFoundError)
	require.True(t, ok)
	assert.Equal(t, "zdriver", nf.Name)
	assert.Equal(t, "zdriver driver not defined", nf.Error())
}

func TestBuiltinDrivers(t *testing.T) {
	for _, name := range []string{"common", "linux", "ciscoios"} {
		d, err := Get(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, d.Name)
	}
}

func TestAttributeFallThrough(t *testing.T) {
	linux, err := Get("linux")
	require.NoError(t, err)

	// maxWait is only set on common
	assert.Nil(t, linux.Settings.MaxWait)
	w, ok := linux.MaxWait()
	require.True(t, ok)
	assert.Equal(t, 15.0, w)

	dp, ok := linux.DiscoverPrompt()
	require.True(t, ok)
	assert.True(t, dp)

	cmd, ok := linux.TelnetCommand()
	require.True(t, ok)
	assert.Contains(t, cmd, "telnet")
}

func TestLoadBytesMergesOverBuiltins(t *testing.T) {
	restoreBuiltins(t)

	err := LoadBytes([]byte(`
[myswitch]
parent = 'ciscoios'
maxWait = 3.0
promptPattern = 'sw[0-9]+[>#] '

[myswitch.events.error-event]
pattern = 'ERROR: '
action = 'commandError'
beginState = 'USER_PROMPT'
`))
	require.NoError(t, err)

	d, err := Get("myswitch")
	require.NoError(t, err)

	w, ok := d.MaxWait()
	require.True(t, ok)
	assert.Equal(t, 3.0, w)

	// inherited through ciscoios -> common
	dp, ok := d.DiscoverPrompt()
	require.True(t, ok)
	assert.True(t, dp)

	spec, ok := d.Event("error-event")
	require.True(t, ok)
	assert.Equal(t, []string{"USER_PROMPT"}, spec.BeginStates)

	// parent chain root-first
	chain, err := d.Chain()
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, "common", chain[0].Name)
	assert.Equal(t, "myswitch", chain[2].Name)
}

func TestInheritanceCycleDetected(t *testing.T) {
	restoreBuiltins(t)

	err := LoadBytes([]byte(`
[ping]
parent = 'pong'

[pong]
parent = 'ping'
`))
	require.Error(t, err)
	_, ok := err.(*ConfigError)
	assert.True(t, ok)
}

func TestTransitionWithPatternRejected(t *testing.T) {
	restoreBuiltins(t)

	err := LoadBytes([]byte(`
[broken]
[broken.transitions.nope]
pattern = 'x'
`))
	require.Error(t, err)
	_, ok := err.(*ConfigError)
	assert.True(t, ok)
}

func TestBeginStateForms(t *testing.T) {
	restoreBuiltins(t)

	err := LoadBytes([]byte(`
[forms]
[forms.events.single]
pattern = 'a'
beginState = 'S1'
[forms.events.many]
pattern = 'b'
beginState = ['S1', 'S2']
[forms.events.any]
pattern = 'c'
`))
	require.NoError(t, err)

	d, err := Get("forms")
	require.NoError(t, err)

	single, _ := d.Event("single")
	assert.Equal(t, []string{"S1"}, single.BeginStates)
	many, _ := d.Event("many")
	assert.Equal(t, []string{"S1", "S2"}, many.BeginStates)
	anyState, _ := d.Event("any")
	assert.Equal(t, []string{"*"}, anyState.BeginStates)
}

func TestResetKeepsEventsWipesSettings(t *testing.T) {
	restoreBuiltins(t)

	common, err := Get("common")
	require.NoError(t, err)
	_, ok := common.Event("password-event")
	require.True(t, ok)

	Reset()

	common, err = Get("common")
	require.NoError(t, err)
	_, ok = common.MaxWait()
	assert.False(t, ok)
	_, ok = common.Event("password-event")
	assert.True(t, ok)
}

func TestInvalidTOMLReported(t *testing.T) {
	err := LoadBytes([]byte(`[not closed`))
	require.Error(t, err)
	_, ok := err.(*ConfigError)
	assert.True(t, ok)
}
