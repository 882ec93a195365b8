// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

package device

import (
	log "github.com/sirupsen/logrus"
)

// PromptCache persists discovered prompts keyed by (device name,
// state). Both operations are best-effort: the engine logs and ignores
// cache failures, they never surface into the expect loop.
type PromptCache interface {
	Get(name, state string) (string, bool)

	// Save upserts the prompt for (name, state). Implementations must
	// apply the write atomically.
	Save(name, state, prompt string) error
}

var promptCache PromptCache

// SetPromptCache installs (or, with nil, removes) the process-wide
// prompt cache.
func SetPromptCache(c PromptCache) {
	promptCache = c
}

func cacheEnabled() bool {
	return promptCache != nil
}

func getCachedPrompt(d *Device) (string, bool) {
	log.Debugf("[%s] state [%s]: getting cached prompt", d.Name, d.state)
	return promptCache.Get(d.Name, d.state)
}

func saveCachedPrompt(d *Device) {
	if !cacheEnabled() {
		return
	}
	p, ok := d.prompt[d.state]
	if !ok {
		return
	}
	log.Debugf("[%s] state [%s]: caching prompt [%s]", d.Name, d.state, p.Value)
	if err := promptCache.Save(d.Name, d.state, p.Value); err != nil {
		log.Errorf("[%s] no prompt saved: %v", d.Name, err)
	}
}
