// -*- mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

package common

// Config holds all of the local configuration settings for the
// service, decoded from the TOML configuration file.
type Config struct {
	Service   ServiceInfo
	Logging   LoggingInfo
	Drivers   DriversInfo
	Inventory InventoryInfo
	Cache     CacheInfo
	Schedules []ScheduleInfo
}

// ServiceInfo describes the HTTP command surface.
type ServiceInfo struct {
	Host    string
	Port    int
	Timeout int // milliseconds
}

// LoggingInfo selects log level and an optional log file.
type LoggingInfo struct {
	Level string
	File  string
}

// DriversInfo points at the driver configuration layered over the
// built-in driver set.
type DriversInfo struct {
	File string
}

// InventoryInfo points at the device inventory file.
type InventoryInfo struct {
	File string
}

// CacheInfo configures the prompt cache store.
type CacheInfo struct {
	Enabled   bool
	Directory string
}

// ScheduleInfo is one periodic command collection entry.
type ScheduleInfo struct {
	Name     string
	Schedule string
	Device   string
	Command  string
}
