// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package handler exposes the HTTP command surface: run a command line
// on a named device and return the captured CLI output.
package handler

import (
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/netcube/device-cli-go/internal/common"
	"github.com/netcube/device-cli-go/pkg/device"
	"github.com/netcube/device-cli-go/pkg/driver"
)

// Sender runs one command on a connected device session. A
// *device.Device satisfies it; tests substitute fakes.
type Sender interface {
	Send(command string) (string, error)
}

// Registry resolves service-level device names to senders.
type Registry interface {
	ForName(name string) (Sender, bool)
}

// NewRouter wires the service routes over the given device registry.
func NewRouter(reg Registry) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc(common.APIPingRoute, pingHandler).Methods(http.MethodGet)
	r.HandleFunc(common.APICommandRoute, commandHandler(reg)).Methods(http.MethodPost)
	return r
}

func pingHandler(w http.ResponseWriter, req *http.Request) {
	w.Write([]byte("pong"))
}

func commandHandler(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		correlation := req.Header.Get(common.CorrelationHeader)
		if correlation == "" {
			correlation = uuid.New().String()
		}
		w.Header().Set(common.CorrelationHeader, correlation)

		vars := mux.Vars(req)
		name := vars[common.NameVar]

		body, err := ioutil.ReadAll(req.Body)
		if err != nil {
			http.Error(w, "cannot read request body", http.StatusBadRequest)
			return
		}
		command := strings.TrimRight(string(body), "\r\n")
		if command == "" {
			log.Errorf("Missing command body for device %s (%s)", name, correlation)
			http.Error(w, "missing command", http.StatusBadRequest)
			return
		}

		sender, ok := reg.ForName(name)
		if !ok {
			log.Errorf("Cannot find the device %s (%s)", name, correlation)
			http.Error(w, "device not found", http.StatusNotFound)
			return
		}

		log.Infof("Handler - running [%s] on device %s (%s)", command, name, correlation)
		out, err := sender.Send(command)
		if err != nil {
			status := statusFor(err)
			log.Errorf("Command on device %s failed: %v (%s)", name, err, correlation)
			http.Error(w, err.Error(), status)
			return
		}

		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(out))
	}
}

// statusFor maps the engine's typed errors to HTTP statuses.
func statusFor(err error) int {
	switch err.(type) {
	case *device.WrongDeviceURLError, *device.MissingDeviceParameterError,
		*device.UnsupportedProtocolError, *device.CommandExecutionError:
		return http.StatusBadRequest
	case *driver.NotFoundError:
		return http.StatusNotFound
	case *device.PermissionDeniedError, *device.LoginFailedError:
		return http.StatusBadGateway
	case *device.ConnectionRefusedError, *device.ConnectionClosedError:
		return http.StatusBadGateway
	case *device.ConnectionTimedOutError:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
