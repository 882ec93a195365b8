// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package simulator implements a small scripted telnet server used to
// exercise the session engine end to end. The script is TOML: a
// banner, one table per login state (LOGIN, PASSWD, then the command
// state) with the text to show, the next state and optional canned
// command responses.
package simulator

import (
	"bufio"
	"net"
	"strings"
	"sync"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// maxFailedLogins locks a client out after its second bad password.
const maxFailedLogins = 2

// StateConfig scripts one state of the simulated CLI.
type StateConfig struct {
	Response   string            `toml:"response"`
	NextStatus string            `toml:"next_status"`
	Password   string            `toml:"password"`
	Commands   map[string]string `toml:"commands"`
}

// Config is a parsed simulator script.
type Config struct {
	Banner string
	States map[string]StateConfig
}

// ParseScript decodes a simulator script.
func ParseScript(contents []byte) (*Config, error) {
	tree, err := toml.LoadBytes(contents)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse simulator script")
	}

	cfg := &Config{States: make(map[string]StateConfig)}
	if banner, ok := tree.Get("banner").(string); ok {
		cfg.Banner = banner
	}
	for _, key := range tree.Keys() {
		sub, ok := tree.Get(key).(*toml.Tree)
		if !ok {
			continue
		}
		state := StateConfig{}
		if err := sub.Unmarshal(&state); err != nil {
			return nil, errors.Wrapf(err, "invalid state table [%s]", key)
		}
		cfg.States[key] = state
	}
	if _, ok := cfg.States["LOGIN"]; !ok {
		return nil, errors.New("simulator script must define a LOGIN state")
	}
	return cfg, nil
}

// Server is a running simulator instance.
type Server struct {
	cfg      *Config
	ln       net.Listener
	quitOnce sync.Once
	quit     chan struct{}
	wg       sync.WaitGroup
}

// NewServer starts a simulator listening on addr (use "127.0.0.1:0"
// to pick a free port).
func NewServer(cfg *Config, addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on %s", addr)
	}

	s := &Server{cfg: cfg, ln: ln, quit: make(chan struct{})}
	s.wg.Add(1)
	go s.acceptLoop()
	log.Infof("simulator listening on %s", ln.Addr())
	return s, nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Stop shuts the simulator down and waits for client handlers.
func (s *Server) Stop() {
	s.quitOnce.Do(func() {
		close(s.quit)
		s.ln.Close()
	})
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				log.Debugf("simulator accept error: %v", err)
				return
			}
		}
		s.wg.Add(1)
		go s.handleClient(conn)
	}
}

type client struct {
	conn         net.Conn
	status       string
	failedLogins int
}

func (s *Server) handleClient(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	log.Debugf("simulator: opened connection to %s", conn.RemoteAddr())

	c := &client{conn: conn, status: "LOGIN"}
	c.send(s.cfg.Banner)
	c.send(s.cfg.States["LOGIN"].Response)

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			log.Debugf("simulator: lost connection to %s", conn.RemoteAddr())
			return
		}
		msg := strings.TrimRight(line, "\r\n")
		if !s.processLine(c, msg) {
			return
		}
	}
}

// processLine advances one client through the scripted states. It
// returns false when the client should be disconnected.
func (s *Server) processLine(c *client, msg string) bool {
	log.Debugf("simulator: --> %s", msg)

	switch c.status {
	case "LOGIN":
		// any username is accepted; the password decides
		c.status = s.cfg.States["LOGIN"].NextStatus
		c.send(s.cfg.States[c.status].Response)
		return true

	case "PASSWD":
		state := s.cfg.States[c.status]
		if state.Password == msg {
			c.status = state.NextStatus
			// the new state's banner must reach the client before
			// command processing starts
			c.send(s.cfg.States[c.status].Response)
			return true
		}
		c.failedLogins++
		if c.failedLogins >= maxFailedLogins {
			return false
		}
		c.send("\r\nLogin incorrect\r\n")
		c.send(s.cfg.States[c.status].Response)
		return true
	}

	state := s.cfg.States[c.status]
	if out, ok := state.Commands[msg]; ok {
		c.send(out + "\r\n")
	}
	c.send(state.Response)

	switch strings.ToLower(msg) {
	case "exit":
		return false
	}
	return true
}

func (c *client) send(text string) {
	if text == "" {
		return
	}
	c.conn.Write([]byte(text))
}
