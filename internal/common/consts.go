// -*- mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

package common

const (
	ServiceName    = "device-cli"
	ServiceVersion = "1.0.0"

	APIv1Prefix = "/api/v1"

	ConfigDirectory = "./res"
	ConfigFileName  = "configuration.toml"

	APIPingRoute    = APIv1Prefix + "/ping"
	APICommandRoute = APIv1Prefix + "/device/{name}/command"
	APIDeviceRoute  = APIv1Prefix + "/device/{name}"

	NameVar = "name"

	CorrelationHeader = "X-Correlation-ID"
)
