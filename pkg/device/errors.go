// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

package device

import "fmt"

// WrongDeviceURLError reports a malformed device URL.
type WrongDeviceURLError struct {
	URL string
	Msg string
}

func (e *WrongDeviceURLError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("invalid url %s: %s", e.URL, e.Msg)
	}
	return e.Msg
}

// MissingDeviceParameterError reports a required device field left
// unset, e.g. an ssh connection without a username.
type MissingDeviceParameterError struct {
	DeviceName string
	Msg        string
}

func (e *MissingDeviceParameterError) Error() string {
	return e.Msg
}

// UnsupportedProtocolError reports a protocol outside {ssh, telnet}.
type UnsupportedProtocolError struct {
	DeviceName string
	Protocol   string
}

func (e *UnsupportedProtocolError) Error() string {
	return fmt.Sprintf("unsupported protocol: %s", e.Protocol)
}

// EventHandlerUndefinedError reports an action name that cannot be
// resolved against the action registry.
type EventHandlerUndefinedError struct {
	Name string
}

func (e *EventHandlerUndefinedError) Error() string {
	return fmt.Sprintf("event handler %s not defined", e.Name)
}

// FSMError reports a dispatch failure: no transition matched, or
// synthesized state events recursed past the allowed depth.
type FSMError struct {
	Msg string
}

func (e *FSMError) Error() string {
	return e.Msg
}

// SessionError is the common part of every error raised out of a live
// expect session: the device it happened on, and the captured
// interaction log for diagnostics. Raising a session error force-closes
// the device so the caller never observes a half-open session.
type SessionError struct {
	DeviceName string
	Msg        string
	Log        string
	Cause      error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s: %s", e.DeviceName, e.Msg)
}

func (e *SessionError) Unwrap() error { return e.Cause }

// InteractionLog returns the captured session transcript up to the
// failure.
func (e *SessionError) InteractionLog() string { return e.Log }

// ConnectionRefusedError: the transport endpoint refused the
// connection.
type ConnectionRefusedError struct{ SessionError }

// ConnectionClosedError: unexpected EOF from the peer.
type ConnectionClosedError struct{ SessionError }

// ConnectionTimedOutError: a read timed out and no recovery path
// applied.
type ConnectionTimedOutError struct{ SessionError }

// PermissionDeniedError: the device rejected the credentials.
type PermissionDeniedError struct{ SessionError }

// LoginFailedError: the login sequence finished without leaving the
// ground state.
type LoginFailedError struct{ SessionError }

// CommandExecutionError: the driver matched a known error response.
type CommandExecutionError struct{ SessionError }

func (d *Device) sessionError(msg string, cause error) SessionError {
	log := ""
	if d.esession != nil {
		log = d.esession.InteractionLog()
	}
	d.Close()
	return SessionError{DeviceName: d.Name, Msg: msg, Log: log, Cause: cause}
}

func newConnectionRefused(d *Device, msg string, cause error) error {
	return &ConnectionRefusedError{d.sessionError(msg, cause)}
}

func newConnectionClosed(d *Device, msg string, cause error) error {
	return &ConnectionClosedError{d.sessionError(msg, cause)}
}

func newConnectionTimedOut(d *Device, msg string) error {
	return &ConnectionTimedOutError{d.sessionError(msg, nil)}
}

func newPermissionDenied(d *Device, msg string) error {
	return &PermissionDeniedError{d.sessionError(msg, nil)}
}

func newLoginFailed(d *Device, msg string) error {
	return &LoginFailedError{d.sessionError(msg, nil)}
}

func newCommandExecutionError(d *Device, msg string) error {
	return &CommandExecutionError{d.sessionError(msg, nil)}
}

func newMissingDeviceParameter(d *Device, msg string) error {
	d.Close()
	return &MissingDeviceParameterError{DeviceName: d.Name, Msg: msg}
}

func newUnsupportedProtocol(d *Device) error {
	d.Close()
	return &UnsupportedProtocolError{DeviceName: d.Name, Protocol: d.Protocol}
}
