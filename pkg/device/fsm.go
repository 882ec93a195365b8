// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// GroundState is the initial FSM state of every device.
const GroundState = "GROUND"

// WildcardState registers an entry for any state.
const WildcardState = "*"

// maxSynthDepth bounds recursive state-change event synthesis so a
// misconfigured driver cannot livelock the engine.
const maxSynthDepth = 8

type transKey struct {
	event string
	state string
}

type transition struct {
	action    func(*Device) error
	nextState string
}

// patternEntry binds one compiled pattern to the event it produces.
type patternEntry struct {
	pattern string
	re      *regexp.Regexp
	event   string
}

// patternSet keeps entries in registration order; matching precedence
// on equal positions follows that order.
type patternSet struct {
	entries []patternEntry
}

func (ps *patternSet) add(e patternEntry) {
	for i := range ps.entries {
		if ps.entries[i].pattern == e.pattern {
			ps.entries[i] = e
			return
		}
	}
	ps.entries = append(ps.entries, e)
}

func (ps *patternSet) remove(pattern string) bool {
	for i := range ps.entries {
		if ps.entries[i].pattern == pattern {
			ps.entries = append(ps.entries[:i], ps.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (ps *patternSet) removeEvent(event string) {
	for i := range ps.entries {
		if ps.entries[i].event == event {
			ps.entries = append(ps.entries[:i], ps.entries[i+1:]...)
			return
		}
	}
}

func (ps *patternSet) find(event string) (patternEntry, bool) {
	for _, e := range ps.entries {
		if e.event == event {
			return e, true
		}
	}
	return patternEntry{}, false
}

var (
	regexCacheMu sync.Mutex
	regexCache   = make(map[string]*regexp.Regexp)
)

func compilePattern(pattern string) (*regexp.Regexp, error) {
	regexCacheMu.Lock()
	defer regexCacheMu.Unlock()
	if re, ok := regexCache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	regexCache[pattern] = re
	return re, nil
}

// AddTransition associates (event, state) -> (action, nextState). An
// empty nextState leaves the state unchanged.
func (d *Device) AddTransition(event, state string, action func(*Device) error, nextState string) {
	if nextState == "" {
		nextState = state
	}
	d.stateTransitions[transKey{event, state}] = transition{action, nextState}
}

// AddTransitionAny associates any event in state with (action,
// nextState).
func (d *Device) AddTransitionAny(state string, action func(*Device) error, nextState string) {
	if nextState == "" {
		nextState = state
	}
	d.stateTransitionsAny[state] = transition{action, nextState}
}

// AddInputAny associates event in any state with (action, nextState).
func (d *Device) AddInputAny(event string, action func(*Device) error, nextState string) {
	d.inputTransitionsAny[event] = transition{action, nextState}
}

// SetDefaultTransition installs the fall-through transition used when
// nothing more specific matches.
func (d *Device) SetDefaultTransition(action func(*Device) error, nextState string) {
	d.defaultTransition = &transition{action, nextState}
}

// getTransition resolves (event, state) by precedence: exact pair,
// any-event-in-state, event-in-any-state, default.
func (d *Device) getTransition(event, state string) (transition, bool) {
	if t, ok := d.stateTransitions[transKey{event, state}]; ok {
		return t, true
	}
	if t, ok := d.stateTransitionsAny[state]; ok {
		return t, true
	}
	if t, ok := d.inputTransitionsAny[event]; ok {
		return t, true
	}
	if d.defaultTransition != nil {
		return *d.defaultTransition, true
	}
	return transition{}, false
}

// Process feeds one event through the FSM: resolve the transition,
// update the state, run the action, and on a state change synthesize a
// follow-up event named after the new state.
func (d *Device) Process(ev *Event) error {
	return d.process(ev, 0)
}

func (d *Device) process(ev *Event, depth int) error {
	if !ev.IsActive() {
		return nil
	}
	if depth > maxSynthDepth {
		return &FSMError{Msg: fmt.Sprintf("synthesized event depth exceeded %d in state [%s]", maxSynthDepth, d.state)}
	}
	ev.StopPropagation()

	t, ok := d.getTransition(ev.Name, d.state)
	if !ok {
		return &FSMError{Msg: fmt.Sprintf("transition is undefined: (%s, %s)", ev.Name, d.state)}
	}
	log.Debugf("[%s] selected transition [event:%s,beginState:%s] -> [endState:%s]", d.Name, ev.Name, d.state, t.nextState)

	prevState := d.state
	stateChanged := false
	if t.nextState != "" {
		stateChanged = d.state != t.nextState
		d.state = t.nextState
	}
	if stateChanged && ev.Name == promptMatchEvent {
		d.carryPrompt(prevState)
	}

	if t.action != nil {
		if err := t.action(d); err != nil {
			return err
		}
	}

	if stateChanged {
		log.Debugf("[%s] generating event [%s]", d.Name, strings.ToLower(d.state))
		d.currentEvent = NewEvent(strings.ToLower(d.state))
		return d.process(d.currentEvent, depth+1)
	}
	return nil
}

// carryPrompt propagates a confirmed prompt into the state a
// prompt-match transition just entered, so the command loop keeps a
// prompt pattern without re-running discovery.
func (d *Device) carryPrompt(from string) {
	p, ok := d.prompt[from]
	if !ok || !p.IsFinal() {
		return
	}
	if _, exists := d.prompt[d.state]; exists {
		return
	}
	d.prompt[d.state] = &Prompt{Value: p.Value}
	if err := d.AddExpectPattern(promptMatchEvent, EscapePrompt(p.Value), d.state); err != nil {
		log.Debugf("[%s] could not carry prompt into [%s]: %v", d.Name, d.state, err)
	}
}

// AddEventAction registers a transition for event in each of the given
// begin states and, when pattern is non-empty, binds the pattern to the
// event in the per-state pattern map. Registering an event that already
// has a pattern in a state replaces the prior pattern.
func (d *Device) AddEventAction(event, pattern string, beginStates []string, endState string, action func(*Device) error) error {
	if len(beginStates) == 0 {
		beginStates = []string{WildcardState}
	}

	for _, state := range beginStates {
		if pattern == "" {
			if state == WildcardState {
				d.AddInputAny(event, action, endState)
			} else {
				d.AddTransition(event, state, action, endState)
			}
			continue
		}

		set := d.patternMap[state]
		if set == nil {
			set = &patternSet{}
			d.patternMap[state] = set
		}
		if prev, ok := set.find(event); ok && prev.pattern != pattern {
			set.remove(prev.pattern)
		}
		if err := d.AddExpectPattern(event, pattern, state); err != nil {
			return err
		}

		if state == WildcardState {
			d.AddInputAny(event, action, endState)
		} else {
			d.AddTransition(event, state, action, endState)
		}
	}
	return nil
}

// AddExpectPattern binds pattern to event in the given state without
// touching the transition tables.
func (d *Device) AddExpectPattern(event, pattern, state string) error {
	if pattern == "" {
		log.Warnf("[%s] skipped [%s] event with empty pattern", d.Name, event)
		return nil
	}
	re, err := compilePattern(pattern)
	if err != nil {
		return &FSMError{Msg: fmt.Sprintf("invalid pattern %q for event [%s]: %v", pattern, event, err)}
	}
	set := d.patternMap[state]
	if set == nil {
		set = &patternSet{}
		d.patternMap[state] = set
	}
	set.add(patternEntry{pattern: pattern, re: re, event: event})
	return nil
}

// RemovePattern drops a pattern from the given state's map.
func (d *Device) RemovePattern(pattern, state string) {
	set := d.patternMap[state]
	if set == nil || !set.remove(pattern) {
		log.Debugf("[%s] failed to delete patternMap[%s] entry [%s]: item not found", d.Name, state, pattern)
	}
}

// RemoveEvent drops whatever pattern is bound to event in state.
func (d *Device) RemoveEvent(event, state string) {
	if set := d.patternMap[state]; set != nil {
		set.removeEvent(event)
	}
}

// activePatterns snapshots the pattern set for the current state:
// state-specific entries first, then the wildcard bucket.
func (d *Device) activePatterns() []patternEntry {
	var entries []patternEntry
	if set := d.patternMap[d.state]; set != nil {
		entries = append(entries, set.entries...)
	}
	if set := d.patternMap[WildcardState]; set != nil {
		entries = append(entries, set.entries...)
	}
	return entries
}

// defaultEventHandler is the default-transition action: it turns an
// unexpected EOF into a typed error and swallows everything else.
func defaultEventHandler(d *Device) error {
	log.Debugf("[%s] in state [%s] got [%s] event", d.Name, d.state, d.currentEvent.Name)

	if d.currentEvent.Name == eofEvent {
		log.Infof("[%s] unexpected communication error in state [%s]", d.Name, d.state)
		return newConnectionClosed(d, "connection closed by peer", nil)
	}
	return nil
}
