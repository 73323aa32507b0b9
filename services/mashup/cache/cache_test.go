// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func TestStoreSetGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "session:abc", `{"connectionId":"x"}`, time.Hour))

	value, found, err := s.Get(ctx, "session:abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"connectionId":"x"}`, value)
}

func TestStoreGetMissing(t *testing.T) {
	s := newTestStore(t)

	_, found, err := s.Get(context.Background(), "no-such-key")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStoreOverwrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "first", time.Hour))
	require.NoError(t, s.Set(ctx, "k", "second", time.Hour))

	value, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "second", value)
}

func TestStoreExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "short", "gone soon", time.Second))

	// Badger TTL resolution is one second, so wait past it.
	time.Sleep(1500 * time.Millisecond)

	_, found, err := s.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStoreEmptyKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, err := s.Get(ctx, "")
	assert.Error(t, err)

	err = s.Set(ctx, "", "v", time.Hour)
	assert.Error(t, err)
}

func TestStoreCancelledContext(t *testing.T) {
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.Get(ctx, "k")
	assert.Error(t, err)

	err = s.Set(ctx, "k", "v", time.Hour)
	assert.Error(t, err)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}
