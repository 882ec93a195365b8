// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

// This package provides the device-cli service: an HTTP surface over
// the interactive session engine, driven by the inventory and driver
// configuration files.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/netcube/device-cli-go/internal/common"
	"github.com/netcube/device-cli-go/internal/config"
	"github.com/netcube/device-cli-go/internal/handler"
	"github.com/netcube/device-cli-go/internal/scheduler"
	"github.com/netcube/device-cli-go/internal/service"
)

func main() {
	var profile string
	var confDir string
	flag.StringVar(&profile, "profile", "", "Specify a profile other than default.")
	flag.StringVar(&profile, "p", "", "Specify a profile other than default.")
	flag.StringVar(&confDir, "confdir", "", "Specify an alternate configuration directory.")
	flag.StringVar(&confDir, "c", "", "Specify an alternate configuration directory.")
	flag.Parse()

	cfg, err := config.LoadConfig(profile, confDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	table, err := service.Init(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	scheduler.StartScheduler(cfg.Schedules, table)

	timeout := time.Duration(cfg.Service.Timeout) * time.Millisecond
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.Port),
		Handler:      handler.NewRouter(table),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("%s %s listening on %s", common.ServiceName, common.ServiceVersion, srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-signals:
		log.Infof("Terminating on signal %v", sig)
	case err := <-errCh:
		log.Errorf("HTTP server error: %v", err)
	}

	scheduler.StopScheduler()
	table.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
