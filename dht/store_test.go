// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dht

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nexusnet/nexusd/wire"
)

// storeTest exercises the Store contract against any implementation.
func storeTest(t *testing.T, s Store) {
	key := Key([]byte("some opaque input"))
	require.Len(t, key, wire.KeySize)

	// Miss before any write.
	_, found, err := s.Get(key)
	require.NoError(t, err)
	require.False(t, found)

	// Round trip.
	require.NoError(t, s.Put(key, []byte("value one")))
	v, found, err := s.Get(key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("value one"), v)

	// Overwrite.
	require.NoError(t, s.Put(key, []byte("value two")))
	v, found, err = s.Get(key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("value two"), v)

	// A stored empty value is a hit, not a miss.
	empty := Key([]byte("empty"))
	require.NoError(t, s.Put(empty, nil))
	_, found, err = s.Get(empty)
	require.NoError(t, err)
	require.True(t, found)
}

func TestMemStore(t *testing.T) {
	s := NewMemStore()
	defer s.Close()
	storeTest(t, s)
	require.Equal(t, 2, s.Len())
}

func TestLevelStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dhtstore")
	s, err := NewLevelStore(path)
	require.NoError(t, err)
	storeTest(t, s)
	require.NoError(t, s.Close())

	// Values survive a reopen.
	s, err = NewLevelStore(path)
	require.NoError(t, err)
	defer s.Close()
	v, found, err := s.Get(Key([]byte("some opaque input")))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("value two"), v)
}

func TestKeyIsContentAddressed(t *testing.T) {
	k1 := Key([]byte("input"))
	k2 := Key([]byte("input"))
	k3 := Key([]byte("other"))
	require.Equal(t, k1, k2)
	require.NotEqual(t, k1, k3)
}
