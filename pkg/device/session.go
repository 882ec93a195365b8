// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"io"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/netcube/device-cli-go/pkg/transport"
)

// ExpectSession owns the transport pipe for one connection attempt and
// runs the read-match-dispatch loop that turns stream bytes into FSM
// events. One session serves the whole hop chain: the first hop dials,
// every later hop is reached by typing its connect command into the
// already open CLI.
type ExpectSession struct {
	id     string
	target *Device
	hops   []*Device
	pipe   *transport.Pipe
}

func newExpectSession(hops []*Device, target *Device) *ExpectSession {
	return &ExpectSession{
		id:     uuid.New().String(),
		target: target,
		hops:   hops,
	}
}

// Login walks the hop chain and logs every hop in, in order. An error
// is reported against the hop it happened on.
func (s *ExpectSession) Login() error {
	chain := make([]*Device, 0, len(s.hops)+1)
	chain = append(chain, s.hops...)
	chain = append(chain, s.target)

	for i, d := range chain {
		d.esession = s
		if d.currentEvent == nil {
			d.currentEvent = NewEvent("do-nothing-event")
		}

		if i == 0 {
			if err := s.connect(d); err != nil {
				return err
			}
		} else {
			command, err := d.connectCommand(chain[i-1])
			if err != nil {
				return err
			}
			log.Debugf("[%s] hopping with [%s]", s.id, command)
			if err := s.pipe.SendLine(command); err != nil {
				return newConnectionClosed(d, "failed to send connect command", err)
			}
		}

		if _, err := s.ProcessResponse(d, cliConnected); err != nil {
			log.Infof("[%s] in login phase on hop [%s] got error: %v", s.id, d.Name, err)
			return err
		}
		if d.state == GroundState || d.currentEvent.IsTimeout() {
			return newLoginFailed(d, "unable to connect: "+d.currentEvent.Name)
		}
		d.loggedin = true
		log.Debugf("[%s] hop [%s] connected in state [%s]", s.id, d.Name, d.state)
	}
	return nil
}

// connect dials the first hop directly.
func (s *ExpectSession) connect(d *Device) error {
	resolveAccount(d)

	switch d.Protocol {
	case "ssh":
		if d.Username == "" {
			return newMissingDeviceParameter(d, d.Name+" username undefined")
		}
	case "telnet":
	default:
		return newUnsupportedProtocol(d)
	}

	dial := d.dialer
	if dial == nil {
		dial = s.target.dialer
	}
	if dial == nil {
		dial = transport.Dial
	}

	tr, err := dial(transport.Config{
		Protocol: d.Protocol,
		Host:     d.Name,
		Port:     d.Port,
		Username: d.Username,
		Password: d.Password,
		Timeout:  d.MaxWait(),
	})
	if err != nil {
		switch {
		case transport.IsAuthFailure(err):
			return newPermissionDenied(d, err.Error())
		case transport.IsRefused(err):
			return newConnectionRefused(d, "connection refused by remote endpoint", err)
		case strings.Contains(err.Error(), "timeout"):
			return newConnectionTimedOut(d, err.Error())
		default:
			return newConnectionRefused(d, "unable to establish connection", err)
		}
	}
	s.pipe = transport.NewPipe(tr)
	return nil
}

// ProcessResponse is the expect loop: wait for one of the active
// patterns, translate the match into an event, run the callbacks and
// the FSM, and accumulate everything received before each match. The
// loop exits when the predicate is satisfied, or after a timeout event
// nobody recovered from.
func (s *ExpectSession) ProcessResponse(d *Device, pred func(*Device) (bool, error)) (string, error) {
	var out strings.Builder

	for {
		entries := d.activePatterns()
		patterns := make([]*regexp.Regexp, len(entries))
		for i := range entries {
			patterns[i] = entries[i].re
		}

		m, err := s.pipe.Expect(patterns, d.MaxWait())
		out.WriteString(m.Before)

		var ev *Event
		switch {
		case err == nil:
			ev = NewEvent(entries[m.Index].event)
			log.Debugf("[%s] matched [%s] -> event [%s]", d.Name, entries[m.Index].pattern, ev.Name)
		case errors.Is(err, transport.ErrExpectTimeout):
			ev = NewEvent(timeoutEvent)
		case errors.Is(err, io.EOF):
			ev = NewEvent(eofEvent)
		default:
			return out.String(), newConnectionClosed(d, "transport failure", err)
		}

		if derr := s.dispatch(d, ev); derr != nil {
			return out.String(), derr
		}

		done, perr := pred(d)
		if perr != nil {
			return out.String(), perr
		}
		if done {
			return out.String(), nil
		}
		if d.currentEvent.IsTimeout() {
			// nothing recovered from the timeout; give the caller a
			// chance to decide instead of spinning on the transport
			return out.String(), nil
		}
	}
}

// dispatch runs the registered event callbacks and then the FSM,
// unless propagation was stopped. A callback may substitute the
// current event (prompt discovery does, to declare its result); the
// substitute is what reaches the FSM.
func (s *ExpectSession) dispatch(d *Device, ev *Event) error {
	d.currentEvent = ev
	for _, h := range d.handlersFor(ev.Name) {
		if err := h.fn(d); err != nil {
			return err
		}
	}
	if d.currentEvent.IsActive() {
		return d.Process(d.currentEvent)
	}
	return nil
}

// SendLine writes a line to the transport.
func (s *ExpectSession) SendLine(text string) error {
	return s.pipe.SendLine(text)
}

// InteractionLog returns the captured transcript of this session.
func (s *ExpectSession) InteractionLog() string {
	if s.pipe == nil {
		return ""
	}
	return s.pipe.Logfile()
}

// Close releases the transport. Safe to call more than once.
func (s *ExpectSession) Close() {
	if s.pipe != nil {
		s.pipe.Close()
	}
}

// cliConnected is the login predicate: true once the hop's CLI shows a
// ready prompt. When no prompt is known yet it installs the fixed
// prompt pattern, or starts discovery.
func cliConnected(d *Device) (bool, error) {
	log.Debugf("[%s] [%s] state, [%s] event: checking if CLI is connected ...", d.Name, d.state, d.currentEvent.Name)

	if d.currentEvent.IsPromptMatch() {
		return true, nil
	}

	if pp := d.PromptPattern(); pp != "" {
		log.Debugf("[%s] matching prompt with pattern [%s]", d.state, pp)
		d.prompt[d.state] = &Prompt{Value: pp}
		if err := d.AddExpectPattern(promptMatchEvent, pp, d.state); err != nil {
			return false, err
		}
		return true, nil
	}

	if d.DiscoverPrompt() {
		log.Debugf("[%s] starting [%s] prompt discovery", d.Name, d.state)
		d.enablePromptDiscovery()
		if err := d.expect(isTimeoutOrPromptMatch); err != nil {
			return false, err
		}
		log.Debugf("[%s] prompt discovery executed, event: [%s]", d.Name, d.currentEvent.Name)
		return d.currentEvent.IsPromptMatch(), nil
	}
	return false, nil
}

func isTimeoutOrPromptMatch(d *Device) (bool, error) {
	return d.currentEvent.IsTimeout() || d.currentEvent.IsPromptMatch(), nil
}
