// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package service wires the process dependencies together: logging,
// driver registry, prompt cache and the device table built from the
// inventory.
package service

import (
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/netcube/device-cli-go/internal/cache"
	"github.com/netcube/device-cli-go/internal/common"
	"github.com/netcube/device-cli-go/internal/handler"
	"github.com/netcube/device-cli-go/internal/inventory"
	"github.com/netcube/device-cli-go/pkg/device"
	"github.com/netcube/device-cli-go/pkg/driver"
)

// Table maps inventory names to constructed devices. It satisfies
// handler.Registry.
type Table struct {
	mu      sync.RWMutex
	devices map[string]*device.Device
}

// ForName resolves a device by inventory name.
func (t *Table) ForName(name string) (handler.Sender, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.devices[name]
	return d, ok
}

// Device resolves the concrete device by inventory name.
func (t *Table) Device(name string) (*device.Device, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.devices[name]
	return d, ok
}

// Names lists the table's device names.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.devices))
	for name := range t.devices {
		names = append(names, name)
	}
	return names
}

// CloseAll tears down every open session.
func (t *Table) CloseAll() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, d := range t.devices {
		d.Close()
	}
}

// Init validates the configuration and initializes the service
// dependencies in order: logging, driver registry, prompt cache and
// the device table.
func Init(config *common.Config) (*Table, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	initializeLogging(config)

	if config.Drivers.File != "" {
		if err := driver.Load(config.Drivers.File); err != nil {
			return nil, err
		}
	}

	initializeCache(config)

	table, err := initializeDevices(config)
	if err != nil {
		return nil, err
	}

	log.Info("Service dependencies initialize successful.")
	return table, nil
}

func validateConfig(config *common.Config) error {
	if len(config.Service.Host) == 0 {
		return fmt.Errorf("fatal error; Host setting for service not configured")
	}
	if config.Service.Port == 0 {
		return fmt.Errorf("fatal error; Port setting for service not configured")
	}
	if len(config.Inventory.File) == 0 {
		return fmt.Errorf("fatal error; Inventory file not configured")
	}
	return nil
}

func initializeLogging(config *common.Config) {
	level, err := log.ParseLevel(config.Logging.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if config.Logging.File != "" {
		file, err := os.OpenFile(config.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Errorf("Could not open log file %s, using stderr: %v", config.Logging.File, err)
			return
		}
		log.SetOutput(file)
	}
}

func initializeCache(config *common.Config) {
	if !config.Cache.Enabled {
		return
	}
	store := cache.InitCache(config.Cache.Directory)
	if store == nil {
		log.Error("Prompt cache disabled after initialization failure")
		return
	}
	device.SetPromptCache(store)
	log.Infof("Prompt cache enabled at %s", config.Cache.Directory)
}

func initializeDevices(config *common.Config) (*Table, error) {
	inv, err := inventory.Load(config.Inventory.File)
	if err != nil {
		return nil, err
	}

	table := &Table{devices: make(map[string]*device.Device, len(inv.Devices))}
	for _, entry := range inv.Devices {
		d, err := device.New(entry.URL)
		if err != nil {
			return nil, fmt.Errorf("inventory entry %s: %v", entry.Name, err)
		}
		table.devices[entry.Name] = d
		log.Debugf("Added device %s (%s)", entry.Name, entry.URL)
	}

	// hop chains refer to other inventory entries by name
	for _, entry := range inv.Devices {
		if len(entry.Hops) == 0 {
			continue
		}
		target := table.devices[entry.Name]
		hops := make([]*device.Device, 0, len(entry.Hops))
		for _, hopName := range entry.Hops {
			hop, ok := table.devices[hopName]
			if !ok {
				return nil, fmt.Errorf("inventory entry %s: unknown hop %s", entry.Name, hopName)
			}
			hops = append(hops, hop)
		}
		target.Hops = hops
	}
	return table, nil
}
