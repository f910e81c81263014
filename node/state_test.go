// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nexusnet/nexusd/identity"
	"github.com/nexusnet/nexusd/wire"
)

func newTestState(t *testing.T) *NodeState {
	t.Helper()
	kp, err := identity.GenerateKeypair()
	require.NoError(t, err)
	return NewNodeState(kp)
}

func TestNewNodeStateDefaults(t *testing.T) {
	ns := newTestState(t)

	require.Equal(t, wire.RoleIdle, ns.Role())
	require.Equal(t, identity.DefaultReputation, ns.Reputation().Value())
	require.Zero(t, ns.NumPeers())
	require.Empty(t, ns.Sessions())
	require.Equal(t, ns.Keypair().DeviceID(), ns.DeviceID())
}

func TestPeerSnapshots(t *testing.T) {
	ns := newTestState(t)

	peer := wire.PeerInfo{
		PeerID:     "peer-1",
		Reputation: identity.NewReputationScore(200),
		Role:       wire.RoleIdle,
	}
	ns.AddPeer(peer)

	// Mutating the caller's copy after the fact does not reach the
	// stored snapshot.
	peer.Reputation = identity.NewReputationScore(900)
	stored, ok := ns.Peer("peer-1")
	require.True(t, ok)
	require.Equal(t, uint64(200), stored.Reputation.Value())

	// A fresh AddPeer replaces the snapshot.
	ns.AddPeer(peer)
	stored, _ = ns.Peer("peer-1")
	require.Equal(t, uint64(900), stored.Reputation.Value())
	require.Equal(t, 1, ns.NumPeers())

	ns.RemovePeer("peer-1")
	require.Zero(t, ns.NumPeers())
}

func TestPeersByReputation(t *testing.T) {
	ns := newTestState(t)
	for i, rep := range []uint64{300, 900, 100, 600} {
		ns.AddPeer(wire.PeerInfo{
			PeerID:     identity.PeerID(string(rune('a' + i))),
			Reputation: identity.NewReputationScore(rep),
		})
	}

	peers := ns.PeersByReputation()
	require.Len(t, peers, 4)
	for i := 1; i < len(peers); i++ {
		require.GreaterOrEqual(t,
			peers[i-1].Reputation.Value(), peers[i].Reputation.Value())
	}
}

func TestRelayCandidates(t *testing.T) {
	ns := newTestState(t)
	minRep := identity.NewReputationScore(100)

	ns.AddPeer(wire.PeerInfo{
		PeerID: "relay-high", Role: wire.RoleRelay,
		Reputation:         identity.NewReputationScore(800),
		AvailableBandwidth: 100_000_000,
	})
	ns.AddPeer(wire.PeerInfo{
		PeerID: "idle-ok", Role: wire.RoleIdle,
		Reputation:         identity.NewReputationScore(150),
		AvailableBandwidth: 10_000_000,
	})
	ns.AddPeer(wire.PeerInfo{
		PeerID: "controller", Role: wire.RoleController,
		Reputation:         identity.NewReputationScore(900),
		AvailableBandwidth: 100_000_000,
	})
	ns.AddPeer(wire.PeerInfo{
		PeerID: "low-rep", Role: wire.RoleRelay,
		Reputation:         identity.NewReputationScore(50),
		AvailableBandwidth: 100_000_000,
	})
	ns.AddPeer(wire.PeerInfo{
		PeerID: "no-bandwidth", Role: wire.RoleRelay,
		Reputation: identity.NewReputationScore(500),
	})

	candidates := ns.RelayCandidates(minRep)
	require.Len(t, candidates, 2)
	require.Equal(t, identity.PeerID("relay-high"), candidates[0].PeerID)
	require.Equal(t, identity.PeerID("idle-ok"), candidates[1].PeerID)
}

func TestSessionLifecycle(t *testing.T) {
	ns := newTestState(t)

	s1 := SessionInfo{SessionID: wire.SessionID{1}, PeerID: "a", Kind: SessionRelay}
	s2 := SessionInfo{SessionID: wire.SessionID{2}, PeerID: "b", Kind: SessionControl}
	ns.AddSession(s1)
	ns.AddSession(s2)
	require.Len(t, ns.Sessions(), 2)

	ns.RemoveSession(s1.SessionID)
	sessions := ns.Sessions()
	require.Len(t, sessions, 1)
	require.Equal(t, s2.SessionID, sessions[0].SessionID)

	// Removing an unknown session is harmless.
	ns.RemoveSession(wire.SessionID{9})
	require.Len(t, ns.Sessions(), 1)
}

func TestStatsCounters(t *testing.T) {
	ns := newTestState(t)

	ns.RecordDataTransfer(100, 200)
	ns.RecordDataTransfer(1, 2)
	ns.RecordRelaySession(60, 5<<20)
	ns.RecordConnection(true)
	ns.RecordConnection(false)
	ns.RecordConnection(true)

	stats := ns.Stats()
	require.Equal(t, uint64(101), stats.BytesSent)
	require.Equal(t, uint64(202), stats.BytesReceived)
	require.Equal(t, uint64(1), stats.RelaySessions)
	require.Equal(t, uint64(60), stats.TotalRelayDuration)
	require.Equal(t, uint64(5<<20), stats.TotalDataRelayed)
	require.Equal(t, uint64(2), stats.SuccessfulConnections)
	require.Equal(t, uint64(1), stats.FailedConnections)
}

func TestHeartbeat(t *testing.T) {
	ns := newTestState(t)
	require.True(t, ns.LastHeartbeat().IsZero())

	before := time.Now()
	ns.Heartbeat()
	require.False(t, ns.LastHeartbeat().Before(before))
}

func TestRoleSwitch(t *testing.T) {
	ns := newTestState(t)
	ns.SetRole(wire.RoleRelay)
	require.Equal(t, wire.RoleRelay, ns.Role())

	info := ns.LocalPeerInfo("me", []string{"192.0.2.1:9735"}, 1_000_000)
	require.Equal(t, wire.RoleRelay, info.Role)
	require.Equal(t, ns.DeviceID(), info.DeviceID)
}
