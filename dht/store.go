// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dht

import (
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"lukechampine.com/blake3"

	"github.com/nexusnet/nexusd/wire"
)

// Key derives the content-addressed DHT key for an opaque input, which is
// its BLAKE3 hash.
func Key(data []byte) wire.Key {
	return wire.Key(blake3.Sum256(data))
}

// Store is the abstract key-value sink behind put and get.  Values have no
// TTL; they live for the lifetime of the store.
type Store interface {
	// Put stores a value under a key, replacing any existing value.
	Put(key wire.Key, value []byte) error

	// Get returns the value stored under a key.  The second return
	// distinguishes a stored empty value from a miss.
	Get(key wire.Key) ([]byte, bool, error)

	// Close releases any resources held by the store.
	Close() error
}

// MemStore is an in-memory Store used by simulations and tests.  It is safe
// for concurrent access.
type MemStore struct {
	mtx    sync.RWMutex
	values map[wire.Key][]byte
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[wire.Key][]byte)}
}

// Put stores a value under a key, replacing any existing value.
func (s *MemStore) Put(key wire.Key, value []byte) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	s.values[key] = v
	return nil
}

// Get returns the value stored under a key.
func (s *MemStore) Get(key wire.Key) ([]byte, bool, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Close releases the store's contents.
func (s *MemStore) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.values = make(map[wire.Key][]byte)
	return nil
}

// Len returns the number of stored values.
func (s *MemStore) Len() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.values)
}

// LevelStore is a Store persisted in a leveldb database.  It is the sink a
// long-lived node plugs in so stored values survive restarts.
type LevelStore struct {
	db *leveldb.DB
}

// NewLevelStore opens (creating if necessary) a leveldb-backed store at the
// given path.
func NewLevelStore(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelStore{db: db}, nil
}

// Put stores a value under a key, replacing any existing value.
func (s *LevelStore) Put(key wire.Key, value []byte) error {
	return s.db.Put(key[:], value, nil)
}

// Get returns the value stored under a key.
func (s *LevelStore) Get(key wire.Key) ([]byte, bool, error) {
	v, err := s.db.Get(key[:], nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Close closes the underlying database.
func (s *LevelStore) Close() error {
	return s.db.Close()
}
