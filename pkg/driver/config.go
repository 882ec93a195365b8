// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

package driver

import (
	"fmt"
	"io/ioutil"

	"github.com/pelletier/go-toml"
)

// rawDriver carries the scalar tunables of one driver section; events
// and transitions sub-tables are walked separately.
type rawDriver struct {
	Parent                   *string  `toml:"parent"`
	MaxWait                  *float64 `toml:"maxWait"`
	DiscoverPrompt           *bool    `toml:"discoverPrompt"`
	RediscoverPrompt         *bool    `toml:"rediscoverPrompt"`
	CheckIfOutputComplete    *bool    `toml:"checkIfOutputComplete"`
	WaitBeforeClearingBuffer *float64 `toml:"waitBeforeClearingBuffer"`
	SSHCommand               *string  `toml:"sshCommand"`
	TelnetCommand            *string  `toml:"telnetCommand"`
	PromptRegexp             *string  `toml:"promptRegexp"`
	PromptPattern            *string  `toml:"promptPattern"`
	Cache                    *string  `toml:"cache"`
}

type rawEvent struct {
	Pattern  string `toml:"pattern"`
	Action   string `toml:"action"`
	EndState string `toml:"endState"`
}

// Load reads a driver configuration file and merges it into the
// registry.
func Load(path string) error {
	contents, err := ioutil.ReadFile(path)
	if err != nil {
		return &ConfigError{Msg: fmt.Sprintf("could not load driver configuration file (%s)", path), Cause: err}
	}
	return LoadBytes(contents)
}

// LoadBytes parses TOML driver configuration and merges it into the
// registry: one top-level table per driver, scalar tunables plus
// events.<key> and transitions.<key> sub-tables.
func LoadBytes(contents []byte) (err error) {
	// The toml package can panic on some malformed inputs; turn that
	// into a ConfigError like the parse-level errors.
	defer func() {
		if r := recover(); r != nil {
			err = &ConfigError{Msg: fmt.Sprintf("invalid driver configuration TOML (%v)", r)}
		}
	}()

	tree, err := toml.LoadBytes(contents)
	if err != nil {
		return &ConfigError{Msg: "unable to parse driver configuration", Cause: err}
	}

	for _, name := range tree.Keys() {
		section, ok := tree.Get(name).(*toml.Tree)
		if !ok {
			return &ConfigError{Msg: fmt.Sprintf("top level entry [%s] must be a driver table", name)}
		}
		d, err := buildDriver(name, section)
		if err != nil {
			return err
		}
		merge(d)
	}

	// inheritance must be acyclic and resolvable
	for _, name := range Names() {
		d, _ := Get(name)
		if _, err := d.Chain(); err != nil {
			return err
		}
	}
	return nil
}

// Reload resets the registry attributes and loads path again. Callers
// are responsible for serializing Reload against concurrent readers.
func Reload(path string) error {
	Reset()
	return Load(path)
}

func buildDriver(name string, section *toml.Tree) (*Driver, error) {
	raw := rawDriver{}
	if err := section.Unmarshal(&raw); err != nil {
		return nil, &ConfigError{Msg: fmt.Sprintf("invalid driver section [%s]", name), Cause: err}
	}

	events, err := buildSpecs(name, section, "events", true)
	if err != nil {
		return nil, err
	}
	transitions, err := buildSpecs(name, section, "transitions", false)
	if err != nil {
		return nil, err
	}

	return &Driver{
		Name: name,
		Settings: Settings{
			Parent:                   raw.Parent,
			MaxWait:                  raw.MaxWait,
			DiscoverPrompt:           raw.DiscoverPrompt,
			RediscoverPrompt:         raw.RediscoverPrompt,
			CheckIfOutputComplete:    raw.CheckIfOutputComplete,
			WaitBeforeClearingBuffer: raw.WaitBeforeClearingBuffer,
			SSHCommand:               raw.SSHCommand,
			TelnetCommand:            raw.TelnetCommand,
			PromptRegexp:             raw.PromptRegexp,
			PromptPattern:            raw.PromptPattern,
			Cache:                    raw.Cache,
		},
		events:      events,
		transitions: transitions,
	}, nil
}

func buildSpecs(driverName string, section *toml.Tree, kind string, patternAllowed bool) (map[string]EventSpec, error) {
	specs := make(map[string]EventSpec)
	sub, ok := section.Get(kind).(*toml.Tree)
	if !ok {
		return specs, nil
	}

	for _, key := range sub.Keys() {
		entry, ok := sub.Get(key).(*toml.Tree)
		if !ok {
			return nil, &ConfigError{Msg: fmt.Sprintf("[%s] %s entry [%s] must be a table", driverName, kind, key)}
		}

		raw := rawEvent{}
		if err := entry.Unmarshal(&raw); err != nil {
			return nil, &ConfigError{Msg: fmt.Sprintf("[%s] %s entry [%s]", driverName, kind, key), Cause: err}
		}
		if !patternAllowed && raw.Pattern != "" {
			return nil, &ConfigError{Msg: fmt.Sprintf("[%s] transition [%s] must not define a pattern", driverName, key)}
		}

		states, err := beginStates(entry.Get("beginState"))
		if err != nil {
			return nil, &ConfigError{Msg: fmt.Sprintf("[%s] %s entry [%s]", driverName, kind, key), Cause: err}
		}

		specs[key] = EventSpec{
			Pattern:     raw.Pattern,
			Action:      raw.Action,
			BeginStates: states,
			EndState:    raw.EndState,
		}
	}
	return specs, nil
}

// beginStates normalizes the beginState value, which may be a single
// state name or a list of names. Absent means any state.
func beginStates(v interface{}) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return []string{"*"}, nil
	case string:
		return []string{val}, nil
	case []string:
		return append([]string{}, val...), nil
	case []interface{}:
		states := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("beginState entries must be strings, got %T", item)
			}
			states = append(states, s)
		}
		return states, nil
	default:
		return nil, fmt.Errorf("beginState must be a string or list of strings, got %T", v)
	}
}

// merge layers d over any driver already registered with the same
// name: set scalars win, and event/transition entries are added or
// replaced key by key.
func merge(d *Driver) {
	existing, err := Get(d.Name)
	if err != nil {
		Add(d)
		return
	}
	if existing.events == nil {
		existing.events = make(map[string]EventSpec)
	}
	if existing.transitions == nil {
		existing.transitions = make(map[string]EventSpec)
	}

	s := &existing.Settings
	n := d.Settings
	if n.Parent != nil {
		s.Parent = n.Parent
	}
	if n.MaxWait != nil {
		s.MaxWait = n.MaxWait
	}
	if n.DiscoverPrompt != nil {
		s.DiscoverPrompt = n.DiscoverPrompt
	}
	if n.RediscoverPrompt != nil {
		s.RediscoverPrompt = n.RediscoverPrompt
	}
	if n.CheckIfOutputComplete != nil {
		s.CheckIfOutputComplete = n.CheckIfOutputComplete
	}
	if n.WaitBeforeClearingBuffer != nil {
		s.WaitBeforeClearingBuffer = n.WaitBeforeClearingBuffer
	}
	if n.SSHCommand != nil {
		s.SSHCommand = n.SSHCommand
	}
	if n.TelnetCommand != nil {
		s.TelnetCommand = n.TelnetCommand
	}
	if n.PromptRegexp != nil {
		s.PromptRegexp = n.PromptRegexp
	}
	if n.PromptPattern != nil {
		s.PromptPattern = n.PromptPattern
	}
	if n.Cache != nil {
		s.Cache = n.Cache
	}
	for key, spec := range d.events {
		existing.events[key] = spec
	}
	for key, spec := range d.transitions {
		existing.transitions[key] = spec
	}
}
