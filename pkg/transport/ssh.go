// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// sshTransport drives an interactive shell over an ssh session with a
// requested pty, so the remote CLI behaves as it would for a human
// operator (prompts, echo, paging).
type sshTransport struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
	closed  bool
}

func dialSSH(cfg Config) (Transport, error) {
	// Some devices only offer keyboard-interactive; answer every
	// question with the configured password.
	keyboardInteractive := ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range questions {
			answers[i] = cfg.Password
		}
		return answers, nil
	})

	sshConfig := &ssh.ClientConfig{
		User: cfg.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(cfg.Password),
			keyboardInteractive,
		},
		Timeout:         cfg.Timeout,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // network devices rarely have stable host keys
	}

	client, err := ssh.Dial("tcp", cfg.addr(), sshConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", cfg.addr())
	}

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, "failed to open session")
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 115200,
		ssh.TTY_OP_OSPEED: 115200,
	}
	if err := session.RequestPty("vt100", 40, 160, modes); err != nil {
		session.Close()
		client.Close()
		return nil, errors.Wrap(err, "failed to request pty")
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, errors.Wrap(err, "failed to open stdin")
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, errors.Wrap(err, "failed to open stdout")
	}

	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		return nil, errors.Wrap(err, "failed to start shell")
	}

	return &sshTransport{
		client:  client,
		session: session,
		stdin:   stdin,
		stdout:  stdout,
	}, nil
}

func (t *sshTransport) Read(p []byte) (int, error) {
	return t.stdout.Read(p)
}

func (t *sshTransport) Write(p []byte) (int, error) {
	return t.stdin.Write(p)
}

func (t *sshTransport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.stdin.Close()
	t.session.Close()
	return t.client.Close()
}
