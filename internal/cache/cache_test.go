// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2019 Netcube Ltd
//
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.Get("router1", "USER_PROMPT")
	assert.False(t, ok)

	require.NoError(t, store.Save("router1", "USER_PROMPT", "router1> "))
	prompt, ok := store.Get("router1", "USER_PROMPT")
	require.True(t, ok)
	assert.Equal(t, "router1> ", prompt)

	// save is an upsert
	require.NoError(t, store.Save("router1", "USER_PROMPT", "router1# "))
	prompt, ok = store.Get("router1", "USER_PROMPT")
	require.True(t, ok)
	assert.Equal(t, "router1# ", prompt)
}

func TestPromptKeysAreScopedByState(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save("router1", "USER_PROMPT", "router1> "))
	require.NoError(t, store.Save("router1", "ENABLE_PROMPT", "router1# "))
	require.NoError(t, store.Save("router2", "USER_PROMPT", "router2> "))

	p, ok := store.Get("router1", "USER_PROMPT")
	require.True(t, ok)
	assert.Equal(t, "router1> ", p)
	p, ok = store.Get("router1", "ENABLE_PROMPT")
	require.True(t, ok)
	assert.Equal(t, "router1# ", p)
	p, ok = store.Get("router2", "USER_PROMPT")
	require.True(t, ok)
	assert.Equal(t, "router2> ", p)
}

func TestInitCacheSingleton(t *testing.T) {
	dir := t.TempDir()
	first := InitCache(dir)
	require.NotNil(t, first)
	defer first.Close()

	second := InitCache(t.TempDir())
	assert.Same(t, first, second)
	assert.Same(t, first, Prompts())
}
