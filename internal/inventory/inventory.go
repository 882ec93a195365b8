// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package inventory loads the YAML device inventory mapping service
// level device names to device URLs.
package inventory

import (
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v2"
)

// Entry names one managed device.
type Entry struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`

	// Hops lists intermediate device names to pass through, in
	// order, before reaching this device.
	Hops []string `yaml:"hops,omitempty"`
}

// Inventory is the parsed device inventory file.
type Inventory struct {
	Devices []Entry `yaml:"devices"`
}

// Load reads and validates an inventory file.
func Load(path string) (*Inventory, error) {
	contents, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not load inventory file (%s): %v", path, err)
	}
	return Parse(contents)
}

// Parse decodes inventory YAML.
func Parse(contents []byte) (*Inventory, error) {
	inv := &Inventory{}
	if err := yaml.Unmarshal(contents, inv); err != nil {
		return nil, fmt.Errorf("unable to parse inventory: %v", err)
	}

	seen := make(map[string]bool, len(inv.Devices))
	for _, e := range inv.Devices {
		if e.Name == "" {
			return nil, fmt.Errorf("inventory entry without a name")
		}
		if e.URL == "" {
			return nil, fmt.Errorf("inventory entry %s without a url", e.Name)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("duplicate inventory entry %s", e.Name)
		}
		seen[e.Name] = true
	}
	return inv, nil
}

// ForName returns the entry with the given name.
func (inv *Inventory) ForName(name string) (Entry, bool) {
	for _, e := range inv.Devices {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}
