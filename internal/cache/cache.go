// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

// Package cache provides the on-disk prompt cache: a BadgerDB store
// keyed by (device name, state) holding discovered prompt literals.
package cache

import (
	"sync"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// keySep never appears in device names or state names.
const keySep = "\x1f"

// Store is a prompt cache backed by an embedded Badger database. Every
// save runs in a transaction so a partial update can never be
// observed.
type Store struct {
	db *badger.DB
}

var (
	initOnce sync.Once
	store    *Store
)

// InitCache opens the process-wide prompt cache at dir. Failures are
// logged and leave the cache disabled; the session engine works
// without it.
func InitCache(dir string) *Store {
	initOnce.Do(func() {
		s, err := NewStore(dir)
		if err != nil {
			log.Errorf("Prompt cache initialization failed: %v", err)
			return
		}
		store = s
	})
	return store
}

// Prompts returns the process-wide store, or nil when disabled.
func Prompts() *Store {
	return store
}

// NewStore opens a prompt cache at dir.
func NewStore(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open prompt cache at %s", dir)
	}
	return &Store{db: db}, nil
}

// Get returns the cached prompt for (name, state).
func (s *Store) Get(name, state string) (string, bool) {
	var prompt []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(name, state))
		if err != nil {
			return err
		}
		prompt, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			log.Debugf("no prompt cached for [%s/%s]: %v", name, state, err)
		}
		return "", false
	}
	return string(prompt), true
}

// Save upserts the prompt for (name, state).
func (s *Store) Save(name, state, prompt string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(name, state), []byte(prompt))
	})
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(name, state string) []byte {
	return []byte(name + keySep + state)
}
