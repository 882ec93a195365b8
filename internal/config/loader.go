// -*- mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"io/ioutil"
	"path"
	"path/filepath"

	"github.com/pelletier/go-toml"
	log "github.com/sirupsen/logrus"

	"github.com/netcube/device-cli-go/internal/common"
)

// LoadConfig loads the local configuration file based upon the
// specified parameters and returns a pointer to the Config struct
// which holds all of the local configuration settings for the
// service. The profile and confDir are used to locate the local TOML
// config file.
func LoadConfig(profile string, confDir string) (*common.Config, error) {
	log.Infof("Init: profile: %s confDir: %s", profile, confDir)

	return loadConfigFromFile(profile, confDir)
}

func loadConfigFromFile(profile string, confDir string) (config *common.Config, err error) {
	if len(confDir) == 0 {
		confDir = common.ConfigDirectory
	}
	if len(profile) > 0 {
		confDir = path.Join(confDir, profile)
	}

	p := path.Join(confDir, common.ConfigFileName)
	absPath, err := filepath.Abs(p)
	if err != nil {
		return nil, fmt.Errorf("could not create absolute path to load configuration: %s; %v", p, err)
	}
	log.Infof("Loading configuration from: %s", absPath)

	// As the toml package can panic if TOML is invalid, or elements
	// are found that don't match members of the given struct, use a
	// deferred func to recover from the panic and output a useful
	// error.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("could not load configuration file; invalid TOML (%s)", p)
		}
	}()

	config = &common.Config{}
	contents, err := ioutil.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("could not load configuration file (%s): %v", p, err)
	}

	err = toml.Unmarshal(contents, config)
	if err != nil {
		return nil, fmt.Errorf("unable to parse configuration file (%s): %v", p, err)
	}

	return config, nil
}
