// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

package device

import "strings"

// Reserved event names produced by the engine itself. Everything else
// comes from driver configuration or user-sent command lines.
const (
	promptMatchEvent = "prompt-match"
	timeoutEvent     = "timeout"
	eofEvent         = "eof"
)

// Event is a single-use symbolic input to the FSM. Once its
// propagation is stopped the FSM ignores it.
type Event struct {
	Name      string
	propagate bool
}

// NewEvent returns an active event.
func NewEvent(name string) *Event {
	return &Event{Name: name, propagate: true}
}

// StopPropagation marks the event consumed so the FSM will not act on
// it again.
func (e *Event) StopPropagation() {
	e.propagate = false
}

// IsActive reports whether the event still propagates to the FSM.
func (e *Event) IsActive() bool {
	return e.propagate
}

// IsTimeout reports whether this is the read-timeout event.
func (e *Event) IsTimeout() bool {
	return e.Name == timeoutEvent
}

// IsPromptMatch reports whether the event signals a ready prompt:
// either a literal prompt match or a synthesized *_prompt state event.
func (e *Event) IsPromptMatch() bool {
	return e.Name == promptMatchEvent || strings.HasSuffix(e.Name, "_prompt")
}

func (e *Event) String() string {
	return e.Name
}

// Prompt is a device prompt for one FSM state. Tentative prompts are
// discovery candidates; final prompts are confirmed.
type Prompt struct {
	Value     string
	Tentative bool
}

// IsFinal reports whether the prompt has been confirmed.
func (p *Prompt) IsFinal() bool {
	return !p.Tentative
}

// SetExactValue confirms the prompt with its final literal text.
func (p *Prompt) SetExactValue(value string) {
	p.Value = value
	p.Tentative = false
}
