// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package scheduler runs the configured periodic command collections:
// each schedule entry executes one command on one inventory device and
// logs the captured output.
package scheduler

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	cron "gopkg.in/robfig/cron.v2"

	"github.com/netcube/device-cli-go/internal/common"
	"github.com/netcube/device-cli-go/internal/handler"
)

var (
	schMgrOnce sync.Once
	cr         *cron.Cron
	entryMap   map[string]cron.EntryID
	registry   handler.Registry
)

// StartScheduler initializes the cron scheduler with the configured
// schedule entries.
func StartScheduler(schedules []common.ScheduleInfo, reg handler.Registry) {
	schMgrOnce.Do(func() {
		registry = reg
		cr = cron.New()
		cr.Start()
		entryMap = make(map[string]cron.EntryID)
		for _, sch := range schedules {
			if err := AddScheduleEvent(sch); err != nil {
				log.Error(err.Error())
			}
		}
	})
}

// AddScheduleEvent registers one schedule entry with the running
// scheduler.
func AddScheduleEvent(sch common.ScheduleInfo) error {
	cr.Stop()
	defer cr.Start()

	if _, ok := entryMap[sch.Name]; ok {
		return fmt.Errorf("schedule event %s already exists in scheduler", sch.Name)
	}
	if _, ok := registry.ForName(sch.Device); !ok {
		return fmt.Errorf("device %s for schedule event %s cannot be found in inventory", sch.Device, sch.Name)
	}

	exec := schEvtExec{sch: sch}
	entry, err := cr.AddJob(sch.Schedule, &exec)
	if err != nil {
		return err
	}
	entryMap[sch.Name] = entry
	log.Infof("Initialized schedule event %s", sch.Name)
	return nil
}

// RemoveScheduleEvent drops a schedule entry.
func RemoveScheduleEvent(name string) error {
	entry, ok := entryMap[name]
	if !ok {
		return fmt.Errorf("schedule event %s does not exist in scheduler", name)
	}

	cr.Remove(entry)
	delete(entryMap, name)
	return nil
}

// StopScheduler halts the scheduler.
func StopScheduler() {
	if cr != nil {
		cr.Stop()
	}
	log.Info("Stopped internal scheduler")
}

type schEvtExec struct {
	sch common.ScheduleInfo
}

func (e *schEvtExec) Run() {
	sender, ok := registry.ForName(e.sch.Device)
	if !ok {
		log.Errorf("Schedule event %s: device %s no longer in inventory", e.sch.Name, e.sch.Device)
		return
	}
	out, err := sender.Send(e.sch.Command)
	if err != nil {
		log.Errorf("Schedule event %s on %s failed: %v", e.sch.Name, e.sch.Device, err)
		return
	}
	log.Infof("Schedule event %s on %s: [%s]", e.sch.Name, e.sch.Device, out)
}
