// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dht

import (
	"sync"

	"github.com/nexusnet/nexusd/identity"
	"github.com/nexusnet/nexusd/wire"
)

const (
	// DefaultBucketSize is the Kademlia K parameter: the capacity of
	// each routing table bucket and the width of lookup results.
	DefaultBucketSize = 20

	// numBuckets is the number of K-buckets in a routing table, one per
	// possible shared-prefix length of a 256-bit identifier plus the
	// bucket for a zero distance.
	numBuckets = 257
)

// bucket is a single K-bucket: an ordered list of peer snapshots with the
// most recently seen peer at the head.
type bucket struct {
	peers []wire.PeerInfo
}

// add inserts a peer snapshot at the head, replacing any existing entry
// with the same DeviceID and dropping the tail when the bucket exceeds
// maxSize.
func (b *bucket) add(peer wire.PeerInfo, maxSize int) {
	for i := range b.peers {
		if b.peers[i].DeviceID == peer.DeviceID {
			b.peers = append(b.peers[:i], b.peers[i+1:]...)
			break
		}
	}
	b.peers = append([]wire.PeerInfo{peer}, b.peers...)
	if len(b.peers) > maxSize {
		b.peers = b.peers[:maxSize]
	}
}

// snapshot returns a copy of the bucket's peers in most-recently-seen
// order.
func (b *bucket) snapshot() []wire.PeerInfo {
	out := make([]wire.PeerInfo, len(b.peers))
	copy(out, b.peers)
	return out
}

// Table is the weighted Kademlia routing table: 257 K-buckets over the raw
// XOR metric whose lookups sort candidates by the reputation-weighted
// metric.  Peers are stored as value snapshots; updates propagate only via
// fresh AddPeer calls.  It is safe for concurrent access.
type Table struct {
	mtx     sync.RWMutex
	local   wire.PeerInfo
	buckets [numBuckets]bucket
	k       int
}

// NewTable returns an empty routing table for the given local peer.  A
// non-positive k falls back to DefaultBucketSize.
func NewTable(local wire.PeerInfo, k int) *Table {
	if k <= 0 {
		k = DefaultBucketSize
	}
	return &Table{local: local, k: k}
}

// LocalPeer returns the local peer snapshot the table was built around.
func (t *Table) LocalPeer() wire.PeerInfo {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return t.local
}

// AddPeer places a peer snapshot into its bucket.  The local peer is never
// inserted.
func (t *Table) AddPeer(peer wire.PeerInfo) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	if peer.DeviceID == t.local.DeviceID {
		return
	}
	idx := BucketIndex(t.local.DeviceID, peer.DeviceID)
	t.buckets[idx].add(peer, t.k)
}

// FindClosest returns up to count peers sorted by weighted distance to the
// target with DeviceID tiebreak.  Candidates are gathered starting at the
// target's bucket, expanding outward symmetrically one bucket at a time
// until enough are collected or all buckets are exhausted.
func (t *Table) FindClosest(target identity.DeviceID, count int) []wire.PeerInfo {
	t.mtx.RLock()
	defer t.mtx.RUnlock()

	idx := BucketIndex(t.local.DeviceID, target)
	candidates := t.buckets[idx].snapshot()
	for i := 1; len(candidates) < count && (idx-i >= 0 || idx+i < numBuckets); i++ {
		if idx-i >= 0 {
			candidates = append(candidates, t.buckets[idx-i].snapshot()...)
		}
		if idx+i < numBuckets {
			candidates = append(candidates, t.buckets[idx+i].snapshot()...)
		}
	}

	SortByDistance(candidates, target)
	if len(candidates) > count {
		candidates = candidates[:count]
	}
	return candidates
}

// AllPeers returns every peer in the table in bucket order.
func (t *Table) AllPeers() []wire.PeerInfo {
	t.mtx.RLock()
	defer t.mtx.RUnlock()

	var out []wire.PeerInfo
	for i := range t.buckets {
		out = append(out, t.buckets[i].peers...)
	}
	return out
}

// NumPeers returns the number of peers in the table.
func (t *Table) NumPeers() int {
	t.mtx.RLock()
	defer t.mtx.RUnlock()

	var n int
	for i := range t.buckets {
		n += len(t.buckets[i].peers)
	}
	return n
}

// bucketLens returns the occupancy of every bucket.  Tests use it to check
// table invariants.
func (t *Table) bucketLens() [numBuckets]int {
	t.mtx.RLock()
	defer t.mtx.RUnlock()

	var lens [numBuckets]int
	for i := range t.buckets {
		lens[i] = len(t.buckets[i].peers)
	}
	return lens
}
