// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dht

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/davecgh/go-spew/spew"
	"github.com/decred/dcrd/lru"

	"github.com/nexusnet/nexusd/identity"
	"github.com/nexusnet/nexusd/wire"
)

const (
	// DefaultLookupAlpha is the parallelism of iterative lookups
	// (Kademlia alpha).
	DefaultLookupAlpha = 3

	// DefaultRoundTimeout is the deadline for a single lookup round.
	DefaultRoundTimeout = 60 * time.Second

	// replicatedKeyCacheSize bounds the cache of recently replicated
	// (key, value) pairs used to skip redundant stores when several
	// neighbors fan the same put out to us.
	replicatedKeyCacheSize = 1024
)

// ErrPeerOffline is returned by queries against a node that is simulating
// an unresponsive peer.
var ErrPeerOffline = errors.New("peer offline")

// DHT is the capability set of a DHT node.  Consumers depend only on these
// operations, never on a concrete implementation: MemDHT serves in-process
// simulation while a network-backed implementation serves production.
type DHT interface {
	// FindPeer runs an iterative lookup and returns up to K peers
	// sorted by weighted distance to the target.  Lookup failures are
	// partial-success: the accumulated peers, possibly none, are
	// returned with a nil error even when no queried peer answered;
	// only a canceled ctx produces an error.
	FindPeer(ctx context.Context, target identity.DeviceID) ([]wire.PeerInfo, error)

	// PutValue stores a value under a content-addressed key locally and
	// eagerly replicates it to every directly-connected peer.  The
	// local write happens before the replication fan-out.
	PutValue(ctx context.Context, key wire.Key, value []byte) error

	// GetValue returns the value for a key from the local store or,
	// failing that, from directly-connected peers in routing-table
	// order.
	GetValue(ctx context.Context, key wire.Key) ([]byte, bool, error)

	// AddPeer inserts a peer snapshot into the routing table.
	AddPeer(peer wire.PeerInfo) error

	// LocalPeer returns the local peer snapshot.
	LocalPeer() wire.PeerInfo
}

// Config holds the tunable parameters of a DHT node.
type Config struct {
	// K is the bucket size and lookup result width.  Defaults to
	// DefaultBucketSize.
	K int

	// Alpha is the lookup parallelism.  Defaults to DefaultLookupAlpha.
	Alpha int

	// RoundTimeout bounds each lookup round.  Pending sub-queries are
	// abandoned when it expires and the round completes with what was
	// received.  Defaults to DefaultRoundTimeout.
	RoundTimeout time.Duration

	// Store is the key-value sink.  Defaults to a fresh MemStore.
	Store Store
}

// normalize fills in defaults for unset fields.
func (cfg *Config) normalize() {
	if cfg.K <= 0 {
		cfg.K = DefaultBucketSize
	}
	if cfg.Alpha <= 0 {
		cfg.Alpha = DefaultLookupAlpha
	}
	if cfg.RoundTimeout <= 0 {
		cfg.RoundTimeout = DefaultRoundTimeout
	}
	if cfg.Store == nil {
		cfg.Store = NewMemStore()
	}
}

// Ensure MemDHT satisfies the DHT interface.
var _ DHT = (*MemDHT)(nil)

// MemDHT is the in-memory DHT node used for simulation and tests.  Nodes
// are meshed with Connect; queries between connected nodes go through
// handle methods that serialize on the owning node's locks, so a single
// process can host an entire overlay.
type MemDHT struct {
	cfg   Config
	local wire.PeerInfo
	table *Table
	store Store

	mtx        sync.RWMutex
	neighbors  map[identity.DeviceID]*MemDHT
	order      []identity.DeviceID
	offline    bool
	replicated lru.Cache
}

// NewMemDHT returns a new in-memory DHT node for the given local peer.
func NewMemDHT(local wire.PeerInfo, cfg Config) *MemDHT {
	cfg.normalize()
	return &MemDHT{
		cfg:        cfg,
		local:      local,
		table:      NewTable(local, cfg.K),
		store:      cfg.Store,
		neighbors:  make(map[identity.DeviceID]*MemDHT),
		replicated: lru.NewCache(replicatedKeyCacheSize),
	}
}

// LocalPeer returns the local peer snapshot.
func (d *MemDHT) LocalPeer() wire.PeerInfo {
	return d.local
}

// Table returns the node's routing table.
func (d *MemDHT) Table() *Table {
	return d.table
}

// AddPeer inserts a peer snapshot into the routing table.
func (d *MemDHT) AddPeer(peer wire.PeerInfo) error {
	log.Debugf("Adding peer %s", peer.DeviceID)
	d.table.AddPeer(peer)
	return nil
}

// Connect meshes two nodes: each gains a handle to the other and each
// learns the other's peer snapshot.
func (d *MemDHT) Connect(other *MemDHT) {
	d.addNeighbor(other)
	other.addNeighbor(d)
}

func (d *MemDHT) addNeighbor(other *MemDHT) {
	d.mtx.Lock()
	if _, ok := d.neighbors[other.local.DeviceID]; !ok {
		d.neighbors[other.local.DeviceID] = other
		d.order = append(d.order, other.local.DeviceID)
	}
	d.mtx.Unlock()

	d.table.AddPeer(other.local)
}

// SetOffline marks the node as unresponsive to queries from other nodes.
// Tests use it to exercise the lookup failure model.
func (d *MemDHT) SetOffline(offline bool) {
	d.mtx.Lock()
	d.offline = offline
	d.mtx.Unlock()
}

// neighborHandles returns the connected neighbors in connection order.
func (d *MemDHT) neighborHandles() []*MemDHT {
	d.mtx.RLock()
	defer d.mtx.RUnlock()

	out := make([]*MemDHT, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.neighbors[id])
	}
	return out
}

// neighbor returns the handle for a given device, if connected.
func (d *MemDHT) neighbor(id identity.DeviceID) (*MemDHT, bool) {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	n, ok := d.neighbors[id]
	return n, ok
}

// handleFindClosest answers a remote find-peer query from the local
// routing table.
func (d *MemDHT) handleFindClosest(target identity.DeviceID, count int) ([]wire.PeerInfo, error) {
	d.mtx.RLock()
	offline := d.offline
	d.mtx.RUnlock()
	if offline {
		return nil, ErrPeerOffline
	}
	return d.table.FindClosest(target, count), nil
}

// handlePut stores a replicated value.  A (key, value) pair seen recently
// is skipped so overlapping fan-outs of the same put from several
// neighbors do not rewrite it; a new value under a known key is stored.
func (d *MemDHT) handlePut(key wire.Key, value []byte) error {
	replica := [2]wire.Key{key, Key(value)}

	d.mtx.Lock()
	offline := d.offline
	if !offline {
		if d.replicated.Contains(replica) {
			d.mtx.Unlock()
			return nil
		}
		d.replicated.Add(replica)
	}
	d.mtx.Unlock()

	if offline {
		return ErrPeerOffline
	}
	return d.store.Put(key, value)
}

// handleGet answers a remote get from the local store.
func (d *MemDHT) handleGet(key wire.Key) ([]byte, bool, error) {
	d.mtx.RLock()
	offline := d.offline
	d.mtx.RUnlock()
	if offline {
		return nil, false, ErrPeerOffline
	}
	return d.store.Get(key)
}

// PutValue stores the value locally and then eagerly replicates it to
// every directly-connected peer.  The local write always happens before
// the fan-out.
func (d *MemDHT) PutValue(ctx context.Context, key wire.Key, value []byte) error {
	if err := d.store.Put(key, value); err != nil {
		return err
	}

	for _, n := range d.neighborHandles() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := n.handlePut(key, value); err != nil {
			// Replication is best-effort; the local write already
			// succeeded.
			log.Debugf("Replication of %x to %s failed: %v",
				key[:8], n.local.DeviceID, err)
		}
	}
	return nil
}

// GetValue returns the value for a key, consulting the local store first
// and then directly-connected peers in routing-table order.
func (d *MemDHT) GetValue(ctx context.Context, key wire.Key) ([]byte, bool, error) {
	if v, ok, err := d.store.Get(key); err != nil || ok {
		return v, ok, err
	}

	for _, peer := range d.table.AllPeers() {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		n, ok := d.neighbor(peer.DeviceID)
		if !ok {
			continue
		}
		v, found, err := n.handleGet(key)
		if err != nil {
			continue
		}
		if found {
			return v, true, nil
		}
	}
	return nil, false, nil
}

// lookupResult carries one peer's answer to a lookup round.
type lookupResult struct {
	from  identity.DeviceID
	peers []wire.PeerInfo
	err   error
}

// FindPeer runs the alpha-parallel iterative Kademlia lookup:
//
//  1. Seed the shortlist with the K closest locally known peers.
//  2. Each round, query the alpha closest not-yet-queried peers in
//     parallel, merge their answers, resort by weighted distance and dedup
//     by DeviceID.
//  3. Stop when a round yields nothing closer than the best known peer, or
//     when every peer in the shortlist has been queried.
//
// A peer that does not answer within the round deadline is dropped from
// consideration for the remainder of the lookup with no retry; it stays in
// the routing table.
func (d *MemDHT) FindPeer(ctx context.Context, target identity.DeviceID) ([]wire.PeerInfo, error) {
	shortlist := d.table.FindClosest(target, d.cfg.K)
	queried := make(map[identity.DeviceID]struct{})
	seen := make(map[identity.DeviceID]struct{})
	for _, p := range shortlist {
		seen[p.DeviceID] = struct{}{}
	}

	for {
		if err := ctx.Err(); err != nil {
			return shortlist, err
		}

		// Pick the alpha closest peers not yet queried.
		var round []wire.PeerInfo
		for _, p := range shortlist {
			if _, ok := queried[p.DeviceID]; ok {
				continue
			}
			round = append(round, p)
			if len(round) == d.cfg.Alpha {
				break
			}
		}
		if len(round) == 0 {
			break
		}

		var best *wire.PeerInfo
		if len(shortlist) > 0 {
			b := shortlist[0]
			best = &b
		}

		results := d.queryRound(ctx, round, target)
		for id := range results.queried {
			queried[id] = struct{}{}
		}

		var progressed bool
		for _, p := range results.peers {
			if p.DeviceID == d.local.DeviceID {
				continue
			}
			if _, ok := seen[p.DeviceID]; ok {
				continue
			}
			seen[p.DeviceID] = struct{}{}
			shortlist = append(shortlist, p)
			if best == nil || CompareByDistance(&p, best, target) < 0 {
				progressed = true
			}
		}

		SortByDistance(shortlist, target)
		if len(shortlist) > d.cfg.K {
			shortlist = shortlist[:d.cfg.K]
		}

		if !progressed {
			break
		}
	}

	if log.Level() <= btclog.LevelTrace {
		log.Tracef("Lookup for %s finished: %v", target,
			spew.Sdump(shortlist))
	}
	return shortlist, nil
}

// roundResults aggregates the answers of one lookup round.
type roundResults struct {
	peers   []wire.PeerInfo
	queried map[identity.DeviceID]struct{}
}

// queryRound dispatches one round of parallel queries and gathers answers
// until all complete or the round deadline expires.  Every dispatched peer
// counts as queried regardless of outcome: unresponsive peers are not
// retried.
func (d *MemDHT) queryRound(ctx context.Context, round []wire.PeerInfo, target identity.DeviceID) roundResults {
	results := roundResults{queried: make(map[identity.DeviceID]struct{})}

	roundCtx, cancel := context.WithTimeout(ctx, d.cfg.RoundTimeout)
	defer cancel()

	resCh := make(chan lookupResult, len(round))
	var dispatched int
	for _, p := range round {
		results.queried[p.DeviceID] = struct{}{}

		n, ok := d.neighbor(p.DeviceID)
		if !ok {
			// No transport handle for this peer; it contributes
			// nothing to the round.
			continue
		}
		dispatched++
		go func(n *MemDHT) {
			peers, err := n.handleFindClosest(target, d.cfg.K)
			select {
			case resCh <- lookupResult{from: n.local.DeviceID, peers: peers, err: err}:
			case <-roundCtx.Done():
			}
		}(n)
	}

	for i := 0; i < dispatched; i++ {
		select {
		case res := <-resCh:
			if res.err != nil {
				log.Debugf("Lookup query to %s failed: %v",
					res.from, res.err)
				continue
			}
			results.peers = append(results.peers, res.peers...)
		case <-roundCtx.Done():
			return results
		}
	}
	return results
}
