// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// discoverHandlerName identifies the discovery callbacks on the
// timeout and prompt-match events.
const discoverHandlerName = "discover-prompt"

// promptSpecials are the regex metacharacters escaped when a prompt
// literal is turned into a match pattern. Backslashes are pre-escaped
// separately.
var promptSpecials = []string{"[", "$", ".", "^", "*", "+", "?", "{", "}", "]", "|", "(", ")"}

// EscapePrompt turns a literal prompt into a regex matching exactly
// that text.
func EscapePrompt(prompt string) string {
	out := strings.Replace(prompt, "\\", "\\\\", -1)
	for _, special := range promptSpecials {
		out = strings.Replace(out, special, "\\"+special, -1)
	}
	return out
}

// enablePromptDiscovery wires the discovery callbacks into the timeout
// and prompt-match events and, when the cache holds a prompt for this
// device and state, seeds the tentative value from it.
func (d *Device) enablePromptDiscovery() {
	d.OnEvent(timeoutEvent, discoverHandlerName, discoverPromptCallback)
	d.OnEvent(promptMatchEvent, discoverHandlerName, discoverPromptCallback)

	if cacheEnabled() {
		if prompt, ok := getCachedPrompt(d); ok {
			log.Debugf("[%s] found cached [%s] prompt [%s]", d.Name, d.state, prompt)
			d.prompt[d.state] = &Prompt{Value: prompt, Tentative: true}
			if err := d.AddExpectPattern(promptMatchEvent, EscapePrompt(prompt), d.state); err != nil {
				log.Debugf("[%s] cached prompt unusable: %v", d.Name, err)
			}
			d.discoveryCounter = 0
		} else {
			log.Debugf("[%s] - [%s]: no prompt cached", d.Name, d.state)
		}
	}
}

func discoverPromptCallback(d *Device) error {
	return discoverPrompt(d, "")
}

// discoverPrompt infers the device prompt by round-tripping an empty
// line: take a tentative value from the captured output, install an
// exact-match pattern for it, and confirm once the device echoes the
// same text again. After three failed rounds discovery is disabled for
// the device.
func discoverPrompt(d *Device, tentativePrompt string) error {
	var output string
	switch {
	case tentativePrompt != "":
		output = tentativePrompt
	case d.currentEvent.Name == promptMatchEvent:
		output = d.esession.pipe.After()
	case d.currentEvent.IsTimeout():
		output = d.esession.pipe.Before()
	default:
		return &FSMError{Msg: fmt.Sprintf("prompt discovery failed; unexpected event [%s]", d.currentEvent.Name)}
	}

	log.Debugf("[%s] prompt discovery, raw output: [%s]", d.Name, output)

	// keep the default timeout/eof handling out of the way while the
	// discovery dialogue is in flight
	d.currentEvent.StopPropagation()

	sts := d.state

	if p, ok := d.prompt[sts]; ok {
		output = stripLeadingCRLF(output)

		log.Debugf("[%s] comparing [%s] == [%s]", d.Name, p.Value, output)
		if p.Value == output {
			d.discoveryCounter = 0
			log.Debugf("[%s] [%s] prompt discovered: [%s]", d.Name, sts, p.Value)
			p.SetExactValue(p.Value)

			saveCachedPrompt(d)

			if err := d.AddExpectPattern(promptMatchEvent, EscapePrompt(p.Value), sts); err != nil {
				return err
			}
			d.RemoveEventHandler(timeoutEvent, discoverHandlerName)
			d.RemoveEventHandler(promptMatchEvent, discoverHandlerName)

			// declare the discovery with the event
			d.currentEvent = NewEvent(promptMatchEvent)
			return nil
		}

		d.RemovePattern(EscapePrompt(p.Value), sts)

		if d.discoveryCounter == 2 {
			log.Debugf("[%s] [%s] unable to find the prompt, unsetting discovery. last output: [%s]", d.Name, sts, output)
			d.SetDiscoverPrompt(false)
			d.RemoveEventHandler(timeoutEvent, discoverHandlerName)
			d.RemoveEventHandler(promptMatchEvent, discoverHandlerName)
			return nil
		}

		p.Tentative = true
		p.Value = output
		log.Debugf("[%s] [%s] no prompt match, retrying discovery with [%s]", d.Name, sts, p.Value)
		if err := d.AddExpectPattern(promptMatchEvent, EscapePrompt(p.Value), sts); err != nil {
			return err
		}
		d.discoveryCounter++
	} else {
		rows := strings.Split(output, "\r\n")
		var tentative string
		if pr := d.PromptRegexp(); pr != "" {
			output = stripLeadingCRLF(output)
			tentative = output
			log.Debugf("[%s] promptRegexp tentative prompt: [%s]", d.Name, tentative)
			d.RemovePattern("\r\n"+pr, sts)
		} else {
			tentative = rows[len(rows)-1]
		}
		d.discoveryCounter = 0
		log.Debugf("[%s] tentative prompt: [%s]", d.Name, tentative)
		d.prompt[sts] = &Prompt{Value: tentative, Tentative: true}
		if err := d.AddExpectPattern(promptMatchEvent, EscapePrompt(tentative), sts); err != nil {
			return err
		}
	}

	d.clearBuffer()
	if err := d.SendLine(""); err != nil {
		return err
	}
	return d.expect(isTimeoutOrPromptMatch)
}

// DiscoverPromptWithRegexp uses regexp as a hint for discovery,
// guarded by a leading line break.
func (d *Device) DiscoverPromptWithRegexp(regexp, state string) error {
	if state == "" {
		state = WildcardState
	}
	if err := d.AddEventAction(promptMatchEvent, "\r\n"+regexp, []string{state}, "", nil); err != nil {
		return err
	}
	d.OnEvent(promptMatchEvent, discoverHandlerName, discoverPromptCallback)
	return nil
}

func stripLeadingCRLF(s string) string {
	if strings.HasPrefix(s, "\r\n") {
		return strings.Replace(s, "\r\n", "", 1)
	}
	return s
}
