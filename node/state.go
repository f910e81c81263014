// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package node holds the per-process node aggregate: identity, role, known
// peers, active sessions, and counters.  There is no global state; a
// process may host any number of independent NodeState instances, which is
// what the in-process simulation harnesses rely on.
package node

import (
	"sort"
	"sync"
	"time"

	"github.com/nexusnet/nexusd/identity"
	"github.com/nexusnet/nexusd/wire"
)

// SessionKind classifies an active session from the local point of view.
type SessionKind uint8

const (
	// SessionControl is a session where we drive a remote device.
	SessionControl SessionKind = iota

	// SessionControlled is a session where a remote controller drives
	// us.
	SessionControlled

	// SessionRelay is a session where we relay traffic for others.
	SessionRelay
)

// String returns the SessionKind in human-readable form.
func (k SessionKind) String() string {
	switch k {
	case SessionControl:
		return "control"
	case SessionControlled:
		return "controlled"
	case SessionRelay:
		return "relay"
	}
	return "unknown"
}

// SessionInfo describes one active session.
type SessionInfo struct {
	// SessionID identifies the session.
	SessionID wire.SessionID

	// PeerID is the remote party.
	PeerID identity.PeerID

	// Kind classifies the session.
	Kind SessionKind

	// StartTime is when the session began.
	StartTime time.Time

	// LastActivity is the time of the last observed traffic.
	LastActivity time.Time

	// DataTransferred is the total bytes moved in the session.
	DataTransferred uint64
}

// NetworkStats accumulates a node's lifetime traffic counters.
type NetworkStats struct {
	// BytesSent is the total bytes sent.
	BytesSent uint64

	// BytesReceived is the total bytes received.
	BytesReceived uint64

	// RelaySessions is the number of completed relay sessions.
	RelaySessions uint64

	// TotalRelayDuration is the summed duration of completed relay
	// sessions in seconds.
	TotalRelayDuration uint64

	// TotalDataRelayed is the total bytes relayed for others.
	TotalDataRelayed uint64

	// SuccessfulConnections counts connections that completed their
	// handshake.
	SuccessfulConnections uint64

	// FailedConnections counts connections that did not.
	FailedConnections uint64
}

// NodeState is the per-process aggregate of a node's identity and runtime
// state.  Peers are stored as value snapshots, never shared mutable
// objects; updates land only via fresh AddPeer calls and staleness is
// tolerated.  All methods are safe for concurrent use.
type NodeState struct {
	mtx sync.RWMutex

	keypair    *identity.Keypair
	deviceID   identity.DeviceID
	role       wire.NodeRole
	reputation identity.ReputationScore

	knownPeers    map[identity.PeerID]wire.PeerInfo
	sessions      []SessionInfo
	lastHeartbeat time.Time
	stats         NetworkStats
}

// NewNodeState returns a fresh idle node state for the given keypair.
func NewNodeState(kp *identity.Keypair) *NodeState {
	return &NodeState{
		keypair:    kp,
		deviceID:   kp.DeviceID(),
		role:       wire.RoleIdle,
		reputation: identity.ReputationScore(identity.DefaultReputation),
		knownPeers: make(map[identity.PeerID]wire.PeerInfo),
	}
}

// Keypair returns the node's signing identity.
func (ns *NodeState) Keypair() *identity.Keypair {
	return ns.keypair
}

// DeviceID returns the node's overlay identifier.
func (ns *NodeState) DeviceID() identity.DeviceID {
	return ns.deviceID
}

// Role returns the node's current role.
func (ns *NodeState) Role() wire.NodeRole {
	ns.mtx.RLock()
	defer ns.mtx.RUnlock()
	return ns.role
}

// SetRole switches the node's role.
func (ns *NodeState) SetRole(role wire.NodeRole) {
	ns.mtx.Lock()
	ns.role = role
	ns.mtx.Unlock()
}

// Reputation returns the node's reputation score.
func (ns *NodeState) Reputation() identity.ReputationScore {
	ns.mtx.RLock()
	defer ns.mtx.RUnlock()
	return ns.reputation
}

// IncreaseReputation raises the reputation, saturating at the maximum.
func (ns *NodeState) IncreaseReputation(delta uint64) {
	ns.mtx.Lock()
	ns.reputation = ns.reputation.Increase(delta)
	ns.mtx.Unlock()
}

// DecreaseReputation lowers the reputation, saturating at zero.
func (ns *NodeState) DecreaseReputation(delta uint64) {
	ns.mtx.Lock()
	ns.reputation = ns.reputation.Decrease(delta)
	ns.mtx.Unlock()
}

// LocalPeerInfo assembles the node's own snapshot for routing tables and
// DHT responses.
func (ns *NodeState) LocalPeerInfo(peerID identity.PeerID, addresses []string, bandwidth uint64) wire.PeerInfo {
	ns.mtx.RLock()
	defer ns.mtx.RUnlock()
	return wire.PeerInfo{
		PeerID:             peerID,
		DeviceID:           ns.deviceID,
		Reputation:         ns.reputation,
		Role:               ns.role,
		Addresses:          addresses,
		AvailableBandwidth: bandwidth,
	}
}

// AddPeer records a peer snapshot, replacing any previous snapshot for the
// same handle.
func (ns *NodeState) AddPeer(peer wire.PeerInfo) {
	ns.mtx.Lock()
	ns.knownPeers[peer.PeerID] = peer
	ns.mtx.Unlock()
}

// RemovePeer forgets a peer.
func (ns *NodeState) RemovePeer(peerID identity.PeerID) {
	ns.mtx.Lock()
	delete(ns.knownPeers, peerID)
	ns.mtx.Unlock()
}

// Peer returns the snapshot recorded for a handle.
func (ns *NodeState) Peer(peerID identity.PeerID) (wire.PeerInfo, bool) {
	ns.mtx.RLock()
	defer ns.mtx.RUnlock()
	p, ok := ns.knownPeers[peerID]
	return p, ok
}

// NumPeers returns the number of known peers.
func (ns *NodeState) NumPeers() int {
	ns.mtx.RLock()
	defer ns.mtx.RUnlock()
	return len(ns.knownPeers)
}

// PeersByReputation returns all known peers sorted from highest to lowest
// reputation.
func (ns *NodeState) PeersByReputation() []wire.PeerInfo {
	ns.mtx.RLock()
	defer ns.mtx.RUnlock()

	out := make([]wire.PeerInfo, 0, len(ns.knownPeers))
	for _, p := range ns.knownPeers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Reputation != out[j].Reputation {
			return out[i].Reputation > out[j].Reputation
		}
		return out[i].PeerID < out[j].PeerID
	})
	return out
}

// RelayCandidates returns known peers that could relay for us: peers in
// the relay or idle role with at least the given reputation and non-zero
// advertised bandwidth.
func (ns *NodeState) RelayCandidates(minRep identity.ReputationScore) []wire.PeerInfo {
	ns.mtx.RLock()
	defer ns.mtx.RUnlock()

	var out []wire.PeerInfo
	for _, p := range ns.knownPeers {
		if p.Role != wire.RoleRelay && p.Role != wire.RoleIdle {
			continue
		}
		if p.Reputation < minRep || p.AvailableBandwidth == 0 {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Reputation != out[j].Reputation {
			return out[i].Reputation > out[j].Reputation
		}
		return out[i].PeerID < out[j].PeerID
	})
	return out
}

// AddSession records a new active session.
func (ns *NodeState) AddSession(session SessionInfo) {
	ns.mtx.Lock()
	ns.sessions = append(ns.sessions, session)
	ns.mtx.Unlock()
}

// RemoveSession drops an active session by identifier.
func (ns *NodeState) RemoveSession(id wire.SessionID) {
	ns.mtx.Lock()
	defer ns.mtx.Unlock()

	kept := ns.sessions[:0]
	for _, s := range ns.sessions {
		if s.SessionID != id {
			kept = append(kept, s)
		}
	}
	ns.sessions = kept
}

// Sessions returns a snapshot of the active sessions.
func (ns *NodeState) Sessions() []SessionInfo {
	ns.mtx.RLock()
	defer ns.mtx.RUnlock()

	out := make([]SessionInfo, len(ns.sessions))
	copy(out, ns.sessions)
	return out
}

// RecordDataTransfer adds to the traffic counters.
func (ns *NodeState) RecordDataTransfer(sent, received uint64) {
	ns.mtx.Lock()
	ns.stats.BytesSent += sent
	ns.stats.BytesReceived += received
	ns.mtx.Unlock()
}

// RecordRelaySession rolls a completed relay session into the counters.
func (ns *NodeState) RecordRelaySession(duration, dataRelayed uint64) {
	ns.mtx.Lock()
	ns.stats.RelaySessions++
	ns.stats.TotalRelayDuration += duration
	ns.stats.TotalDataRelayed += dataRelayed
	ns.mtx.Unlock()
}

// RecordConnection counts a connection attempt.
func (ns *NodeState) RecordConnection(success bool) {
	ns.mtx.Lock()
	if success {
		ns.stats.SuccessfulConnections++
	} else {
		ns.stats.FailedConnections++
	}
	ns.mtx.Unlock()
}

// Heartbeat stamps the node as alive now.
func (ns *NodeState) Heartbeat() {
	ns.mtx.Lock()
	ns.lastHeartbeat = time.Now()
	ns.mtx.Unlock()
}

// LastHeartbeat returns the time of the last heartbeat.
func (ns *NodeState) LastHeartbeat() time.Time {
	ns.mtx.RLock()
	defer ns.mtx.RUnlock()
	return ns.lastHeartbeat
}

// Stats returns a copy of the node's counters.
func (ns *NodeState) Stats() NetworkStats {
	ns.mtx.RLock()
	defer ns.mtx.RUnlock()
	return ns.stats
}
