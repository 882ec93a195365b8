// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netcube/device-cli-go/internal/common"
	"github.com/netcube/device-cli-go/pkg/device"
)

type fakeSender struct {
	out     string
	err     error
	lastCmd string
}

func (f *fakeSender) Send(command string) (string, error) {
	f.lastCmd = command
	return f.out, f.err
}

type fakeRegistry map[string]*fakeSender

func (r fakeRegistry) ForName(name string) (Sender, bool) {
	s, ok := r[name]
	return s, ok
}

func TestPing(t *testing.T) {
	router := NewRouter(fakeRegistry{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestCommandHandler(t *testing.T) {
	sender := &fakeSender{out: "uid=1000(netbox)"}
	router := NewRouter(fakeRegistry{"lab": sender})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/device/lab/command", strings.NewReader("id\n"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "uid=1000(netbox)", rec.Body.String())
	assert.Equal(t, "id", sender.lastCmd)
	assert.NotEmpty(t, rec.Header().Get(common.CorrelationHeader))
}

func TestCommandHandlerKeepsCorrelation(t *testing.T) {
	router := NewRouter(fakeRegistry{"lab": {out: "ok"}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/device/lab/command", strings.NewReader("id"))
	req.Header.Set(common.CorrelationHeader, "corr-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "corr-123", rec.Header().Get(common.CorrelationHeader))
}

func TestCommandHandlerUnknownDevice(t *testing.T) {
	router := NewRouter(fakeRegistry{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/device/nope/command", strings.NewReader("id"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommandHandlerMissingBody(t *testing.T) {
	router := NewRouter(fakeRegistry{"lab": {out: "ok"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/device/lab/command", strings.NewReader(""))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommandHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{&device.ConnectionTimedOutError{SessionError: device.SessionError{DeviceName: "lab", Msg: "prompt not hooked"}}, http.StatusGatewayTimeout},
		{&device.PermissionDeniedError{SessionError: device.SessionError{DeviceName: "lab", Msg: "authentication failed"}}, http.StatusBadGateway},
		{&device.LoginFailedError{SessionError: device.SessionError{DeviceName: "lab", Msg: "unable to connect"}}, http.StatusBadGateway},
		{&device.CommandExecutionError{SessionError: device.SessionError{DeviceName: "lab", Msg: "bad command"}}, http.StatusBadRequest},
		{&device.ConnectionClosedError{SessionError: device.SessionError{DeviceName: "lab", Msg: "closed"}}, http.StatusBadGateway},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		router := NewRouter(fakeRegistry{"lab": {err: tc.err}})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/device/lab/command", strings.NewReader("id"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code, "%T", tc.err)
	}
}
