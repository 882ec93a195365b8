// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Action is an event handler invoked by the FSM with the device the
// event fired on. Extra arguments come from partial application in the
// driver configuration (the ":name:arg:" form).
type Action func(d *Device, args ...string) error

var (
	actionsMu sync.RWMutex
	actions   = make(map[string]Action)
)

// RegisterAction adds a named action to the registry, replacing any
// previous registration. Driver configurations refer to actions by
// these names.
func RegisterAction(name string, fn Action) {
	actionsMu.Lock()
	defer actionsMu.Unlock()
	actions[name] = fn
}

func lookupAction(name string) (Action, bool) {
	actionsMu.RLock()
	defer actionsMu.RUnlock()
	fn, ok := actions[name]
	return fn, ok
}

// buildAction resolves an action string from a driver configuration
// into a bound handler. Supported forms: a bare name ("sendPassword"),
// a space separated name with arguments, and the ":name:arg1:arg2:"
// partial application form.
func buildAction(spec string) (func(*Device) error, error) {
	if spec == "" {
		return nil, nil
	}

	var parts []string
	if strings.HasPrefix(spec, ":") {
		parts = strings.Split(spec, ":")
		parts = parts[1 : len(parts)-1]
	} else {
		parts = strings.Fields(spec)
	}
	if len(parts) == 0 {
		return nil, &EventHandlerUndefinedError{Name: spec}
	}

	name := parts[0]
	args := parts[1:]
	fn, ok := lookupAction(name)
	if !ok {
		return nil, &EventHandlerUndefinedError{Name: name}
	}

	return func(d *Device) error {
		if len(args) > 0 {
			log.Debugf("[%s] invoking action [%s] with %v", d.Name, name, args)
		}
		return fn(d, args...)
	}, nil
}

func sendUsername(d *Device, args ...string) error {
	if d.Username == "" {
		return newMissingDeviceParameter(d, d.Name+" username undefined")
	}
	log.Debugf("[%s] sending username [%s] ...", d.Name, d.Username)
	return d.SendLine(d.Username)
}

func sendPassword(d *Device, args ...string) error {
	if d.Password == "" {
		return newMissingDeviceParameter(d, d.Name+" password undefined")
	}
	log.Debugf("[%s] sending password ...", d.Name)
	return d.SendLine(d.Password)
}

// sendLine sends its bound argument as a line, e.g. ":sendLine:yes:"
// to accept a host key confirmation.
func sendLine(d *Device, args ...string) error {
	if len(args) == 0 {
		return d.SendLine("")
	}
	return d.SendLine(strings.Join(args, " "))
}

// sendSpace feeds a pager without generating an FSM event.
func sendSpace(d *Device, args ...string) error {
	if d.esession == nil {
		return nil
	}
	return d.esession.pipe.Send(" ")
}

func commandError(d *Device, args ...string) error {
	after := ""
	if d.esession != nil {
		after = d.esession.pipe.After()
	}
	log.Errorf("[%s] detected error response [%s]", d.Name, after)
	return newCommandExecutionError(d, "detected error response "+after)
}

func permissionDenied(d *Device, args ...string) error {
	return newPermissionDenied(d, "authentication failed")
}

func connectionRefused(d *Device, args ...string) error {
	return newConnectionRefused(d, "connection refused by remote endpoint", nil)
}

func init() {
	RegisterAction("sendUsername", sendUsername)
	RegisterAction("sendPassword", sendPassword)
	RegisterAction("sendLine", sendLine)
	RegisterAction("sendSpace", sendSpace)
	RegisterAction("commandError", commandError)
	RegisterAction("permissionDenied", permissionDenied)
	RegisterAction("connectionRefused", connectionRefused)
}
