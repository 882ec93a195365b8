// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package driver holds the process-wide registry of named drivers. A
// driver is a declarative bundle of patterns, transitions and tunables
// describing one class of device; drivers inherit unset attributes
// through a single parent link.
package driver

import (
	"fmt"
	"sort"
	"sync"
)

// EventSpec describes one event or transition entry of a driver:
// a pattern (empty for pure transitions), the name of the action to
// invoke, the states the entry applies to ("*" or empty means any
// state) and the state entered when the event fires.
type EventSpec struct {
	Pattern     string
	Action      string
	BeginStates []string
	EndState    string
}

// Settings are the scalar tunables of a driver. Nil means unset, in
// which case attribute lookup falls through to the parent driver.
type Settings struct {
	Parent                   *string
	MaxWait                  *float64
	DiscoverPrompt           *bool
	RediscoverPrompt         *bool
	CheckIfOutputComplete    *bool
	WaitBeforeClearingBuffer *float64
	SSHCommand               *string
	TelnetCommand            *string
	PromptRegexp             *string
	PromptPattern            *string
	Cache                    *string
}

// Driver is a named, read-only bundle created at configuration load.
type Driver struct {
	Name     string
	Settings Settings

	events      map[string]EventSpec
	transitions map[string]EventSpec
}

// NotFoundError is returned when a driver name is not in the registry.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s driver not defined", e.Name)
}

// ConfigError is returned when the driver configuration fails
// validation.
type ConfigError struct {
	Msg   string
	Cause error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

func (e *ConfigError) Unwrap() error { return e.Cause }

var (
	mu       sync.RWMutex
	registry = make(map[string]*Driver)
)

// Get looks a driver up by name.
func Get(name string) (*Driver, error) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := registry[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return d, nil
}

// Add registers d, replacing any driver with the same name.
func Add(d *Driver) {
	mu.Lock()
	defer mu.Unlock()
	registry[d.Name] = d
}

// Reset wipes all non-event attributes of every registered driver.
// Events and transitions survive so that a following Load can layer
// fresh tunables over them.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	for _, d := range registry {
		d.Settings = Settings{}
	}
}

// Names returns the registered driver names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EventKeys returns the driver's event keys in sorted order.
func (d *Driver) EventKeys() []string {
	return sortedKeys(d.events)
}

// Event returns the named event spec.
func (d *Driver) Event(key string) (EventSpec, bool) {
	spec, ok := d.events[key]
	return spec, ok
}

// TransitionKeys returns the driver's transition keys in sorted order.
func (d *Driver) TransitionKeys() []string {
	return sortedKeys(d.transitions)
}

// Transition returns the named transition spec.
func (d *Driver) Transition(key string) (EventSpec, bool) {
	spec, ok := d.transitions[key]
	return spec, ok
}

func sortedKeys(m map[string]EventSpec) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Parent resolves the parent driver, or nil when the chain ends.
func (d *Driver) Parent() (*Driver, error) {
	if d.Settings.Parent == nil {
		return nil, nil
	}
	return Get(*d.Settings.Parent)
}

// chain walks the inheritance chain starting at d, invoking visit for
// each driver until visit returns true. A cycle in the chain is
// reported as a ConfigError.
func (d *Driver) chain(visit func(*Driver) bool) error {
	seen := make(map[string]bool)
	for cur := d; cur != nil; {
		if seen[cur.Name] {
			return &ConfigError{Msg: fmt.Sprintf("driver inheritance cycle through [%s]", cur.Name)}
		}
		seen[cur.Name] = true
		if visit(cur) {
			return nil
		}
		parent, err := cur.Parent()
		if err != nil {
			return err
		}
		cur = parent
	}
	return nil
}

// Chain returns the inheritance chain root-first (most distant parent
// at index 0, d itself last), validating it on the way.
func (d *Driver) Chain() ([]*Driver, error) {
	var chain []*Driver
	err := d.chain(func(cur *Driver) bool {
		chain = append([]*Driver{cur}, chain...)
		return false
	})
	if err != nil {
		return nil, err
	}
	return chain, nil
}

func (d *Driver) stringAttr(get func(*Settings) *string) (string, bool) {
	var out string
	found := false
	d.chain(func(cur *Driver) bool {
		if v := get(&cur.Settings); v != nil {
			out = *v
			found = true
			return true
		}
		return false
	})
	return out, found
}

func (d *Driver) floatAttr(get func(*Settings) *float64) (float64, bool) {
	var out float64
	found := false
	d.chain(func(cur *Driver) bool {
		if v := get(&cur.Settings); v != nil {
			out = *v
			found = true
			return true
		}
		return false
	})
	return out, found
}

func (d *Driver) boolAttr(get func(*Settings) *bool) (bool, bool) {
	var out bool
	found := false
	d.chain(func(cur *Driver) bool {
		if v := get(&cur.Settings); v != nil {
			out = *v
			found = true
			return true
		}
		return false
	})
	return out, found
}

// MaxWait returns the read timeout in seconds.
func (d *Driver) MaxWait() (float64, bool) {
	return d.floatAttr(func(s *Settings) *float64 { return s.MaxWait })
}

// DiscoverPrompt reports whether prompt discovery is enabled.
func (d *Driver) DiscoverPrompt() (bool, bool) {
	return d.boolAttr(func(s *Settings) *bool { return s.DiscoverPrompt })
}

// RediscoverPrompt reports whether discovery restarts after a command
// timeout.
func (d *Driver) RediscoverPrompt() (bool, bool) {
	return d.boolAttr(func(s *Settings) *bool { return s.RediscoverPrompt })
}

// CheckIfOutputComplete reports whether command responses are re-read
// until stable.
func (d *Driver) CheckIfOutputComplete() (bool, bool) {
	return d.boolAttr(func(s *Settings) *bool { return s.CheckIfOutputComplete })
}

// WaitBeforeClearingBuffer returns the quiet period in seconds applied
// before the receive buffer is cleared.
func (d *Driver) WaitBeforeClearingBuffer() (float64, bool) {
	return d.floatAttr(func(s *Settings) *float64 { return s.WaitBeforeClearingBuffer })
}

// SSHCommand returns the hop connect command template for ssh.
func (d *Driver) SSHCommand() (string, bool) {
	return d.stringAttr(func(s *Settings) *string { return s.SSHCommand })
}

// TelnetCommand returns the hop connect command template for telnet.
func (d *Driver) TelnetCommand() (string, bool) {
	return d.stringAttr(func(s *Settings) *string { return s.TelnetCommand })
}

// PromptRegexp returns the discovery hint pattern.
func (d *Driver) PromptRegexp() (string, bool) {
	return d.stringAttr(func(s *Settings) *string { return s.PromptRegexp })
}

// PromptPattern returns the fixed prompt pattern, bypassing discovery.
func (d *Driver) PromptPattern() (string, bool) {
	return d.stringAttr(func(s *Settings) *string { return s.PromptPattern })
}

// CachePath returns the prompt cache location configured on the
// driver chain (conventionally under common).
func (d *Driver) CachePath() (string, bool) {
	return d.stringAttr(func(s *Settings) *string { return s.Cache })
}

func (d *Driver) String() string {
	return "driver:" + d.Name
}
