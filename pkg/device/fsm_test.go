// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T) *Device {
	t.Helper()
	d, err := New("ssh://u:p@testhost/common")
	require.NoError(t, err)
	return d
}

func marker(calls *[]string, name string) func(*Device) error {
	return func(*Device) error {
		*calls = append(*calls, name)
		return nil
	}
}

func TestDispatchPrecedence(t *testing.T) {
	cases := []struct {
		name     string
		register func(d *Device, calls *[]string)
		expect   string
	}{
		{
			"exact pair wins",
			func(d *Device, calls *[]string) {
				d.AddTransition("ev", GroundState, marker(calls, "exact"), "")
				d.AddTransitionAny(GroundState, marker(calls, "state-any"), "")
				d.AddInputAny("ev", marker(calls, "input-any"), "")
				d.SetDefaultTransition(marker(calls, "default"), "")
			},
			"exact",
		},
		{
			"any-event-in-state next",
			func(d *Device, calls *[]string) {
				d.AddTransitionAny(GroundState, marker(calls, "state-any"), "")
				d.AddInputAny("ev", marker(calls, "input-any"), "")
				d.SetDefaultTransition(marker(calls, "default"), "")
			},
			"state-any",
		},
		{
			"event-in-any-state next",
			func(d *Device, calls *[]string) {
				d.AddInputAny("ev", marker(calls, "input-any"), "")
				d.SetDefaultTransition(marker(calls, "default"), "")
			},
			"input-any",
		},
		{
			"default last",
			func(d *Device, calls *[]string) {
				d.SetDefaultTransition(marker(calls, "default"), "")
			},
			"default",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := newTestDevice(t)
			var calls []string
			tc.register(d, &calls)
			require.NoError(t, d.Process(NewEvent("ev")))
			assert.Equal(t, []string{tc.expect}, calls)
		})
	}
}

func TestProcessWithoutAnyTransition(t *testing.T) {
	d := newTestDevice(t)
	d.defaultTransition = nil
	err := d.Process(NewEvent("nobody-knows-this"))
	require.Error(t, err)
	_, ok := err.(*FSMError)
	assert.True(t, ok)
}

func TestInactiveEventIgnored(t *testing.T) {
	d := newTestDevice(t)
	var calls []string
	d.SetDefaultTransition(marker(&calls, "default"), "")

	ev := NewEvent("ev")
	ev.StopPropagation()
	require.NoError(t, d.Process(ev))
	assert.Empty(t, calls)
}

func TestStateChangeSynthesizesEvent(t *testing.T) {
	d := newTestDevice(t)
	var calls []string
	d.AddTransition("go", GroundState, nil, "NEW_STATE")
	d.AddTransition("new_state", "NEW_STATE", marker(&calls, "synth"), "")

	require.NoError(t, d.Process(NewEvent("go")))
	assert.Equal(t, "NEW_STATE", d.State())
	assert.Equal(t, []string{"synth"}, calls)
	assert.Equal(t, "new_state", d.CurrentEvent().Name)
}

func TestSynthesizedEventRecursionBounded(t *testing.T) {
	d := newTestDevice(t)
	d.AddTransition("go", GroundState, nil, "PING")
	d.AddTransition("ping", "PING", nil, "PONG")
	d.AddTransition("pong", "PONG", nil, "PING")

	err := d.Process(NewEvent("go"))
	require.Error(t, err)
	_, ok := err.(*FSMError)
	assert.True(t, ok)
}

func TestDefaultHandlerRaisesOnEOF(t *testing.T) {
	d := newTestDevice(t)
	ev := NewEvent(eofEvent)
	d.currentEvent = ev
	err := d.Process(ev)
	require.Error(t, err)
	_, ok := err.(*ConnectionClosedError)
	assert.True(t, ok)
	assert.Equal(t, GroundState, d.State())
	assert.False(t, d.IsConnected())
}

func TestDefaultHandlerSwallowsOtherEvents(t *testing.T) {
	d := newTestDevice(t)
	ev := NewEvent("weird-noise")
	d.currentEvent = ev
	assert.NoError(t, d.Process(ev))
}

func TestPatternUniquenessPerEventPerState(t *testing.T) {
	d := newTestDevice(t)
	for _, pattern := range []string{"one", "two", "three"} {
		require.NoError(t, d.AddEventAction("my-event", pattern, []string{"S"}, "", nil))
	}

	set := d.patternMap["S"]
	require.NotNil(t, set)
	count := 0
	for _, e := range set.entries {
		if e.event == "my-event" {
			count++
			assert.Equal(t, "three", e.pattern)
		}
	}
	assert.Equal(t, 1, count)
}

func TestActivePatternsCombineStateAndWildcard(t *testing.T) {
	d := newTestDevice(t)
	require.NoError(t, d.AddEventAction("state-ev", "sp", []string{GroundState}, "", nil))
	require.NoError(t, d.AddEventAction("wild-ev", "wp", []string{WildcardState}, "", nil))

	var events []string
	for _, e := range d.activePatterns() {
		events = append(events, e.event)
	}
	assert.Contains(t, events, "state-ev")
	assert.Contains(t, events, "wild-ev")

	// state-specific entries come before the wildcard bucket
	assert.Equal(t, "wild-ev", events[len(events)-1])
}

func TestRemovePatternAndEvent(t *testing.T) {
	d := newTestDevice(t)
	require.NoError(t, d.AddEventAction("ev", "pat", []string{"S"}, "", nil))

	d.RemoveEvent("ev", "S")
	assert.Empty(t, d.patternMap["S"].entries)

	// removing absent entries is silently ignored
	assert.NotPanics(t, func() {
		d.RemovePattern("pat", "S")
		d.RemoveEvent("ev", "NO_SUCH_STATE")
	})
}

func TestEscapePromptMatchesLiterally(t *testing.T) {
	prompts := []string{
		"foo# ",
		"router> ",
		"weird[$.^*+?{}]|() prompt",
		`back\slash$ `,
	}
	for _, p := range prompts {
		re, err := regexp.Compile(EscapePrompt(p))
		require.NoError(t, err, p)
		assert.Equal(t, p, re.FindString(p), p)
		assert.False(t, re.MatchString("something entirely different"), p)
	}
}

func TestEventHandlerRegistration(t *testing.T) {
	d := newTestDevice(t)
	calls := 0
	fn := func(*Device) error { calls++; return nil }

	d.OnEvent("ev", "h", fn)
	d.OnEvent("ev", "h", fn) // duplicate name ignored
	assert.Len(t, d.handlersFor("ev"), 1)

	d.RemoveEventHandler("ev", "h")
	assert.Empty(t, d.handlersFor("ev"))

	// removing a handler that was never added is not an error
	d.RemoveEventHandler("ev", "ghost")
	d.RemoveEventHandler("never-seen", "h")
}
