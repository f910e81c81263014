// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relay

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nexusnet/nexusd/chaincfg"
	"github.com/nexusnet/nexusd/identity"
	"github.com/nexusnet/nexusd/wire"
)

func TestAdmission(t *testing.T) {
	m := NewManager(DefaultConfig())

	// Below the reputation threshold admission fails with the specific
	// reason and leaves no state behind.
	_, err := m.StartSession("client", "target",
		identity.NewReputationScore(50))
	require.ErrorIs(t, err, ErrInsufficientReputation)
	require.Zero(t, m.NumActiveSessions())

	// At the threshold the session is admitted.
	sess, err := m.StartSession("client", "target",
		identity.NewReputationScore(100))
	require.NoError(t, err)
	require.Equal(t, SessionActive, sess.State)
	require.Equal(t, identity.PeerID("client"), sess.Client)
	require.Equal(t, 1, m.NumActiveSessions())

	// Fill the remaining capacity; the 11th concurrent session is
	// refused.
	for i := 1; i < 10; i++ {
		_, err := m.StartSession("client", "target",
			identity.NewReputationScore(500))
		require.NoError(t, err)
	}
	_, err = m.StartSession("client", "target",
		identity.NewReputationScore(500))
	require.ErrorIs(t, err, ErrSessionCapacity)

	// Ending a session frees a slot.
	_, err = m.EndSession(sess.ID)
	require.NoError(t, err)
	_, err = m.StartSession("client", "target",
		identity.NewReputationScore(500))
	require.NoError(t, err)
}

func TestRecordData(t *testing.T) {
	m := NewManager(DefaultConfig())
	sess, err := m.StartSession("client", "target",
		identity.NewReputationScore(500))
	require.NoError(t, err)

	// 2 MiB at 1 NEXUS/MiB.
	earned, err := m.RecordData(sess.ID, 2<<20)
	require.NoError(t, err)
	require.Equal(t, uint64(2), earned.Uint64())

	// Sub-MiB updates truncate.
	earned, err = m.RecordData(sess.ID, 512<<10)
	require.NoError(t, err)
	require.Zero(t, earned.Uint64())

	_, err = m.RecordData(wire.SessionID{0xff}, 1)
	require.ErrorIs(t, err, ErrSessionNotFound)

	active := m.ActiveSessions()
	require.Len(t, active, 1)
	require.Equal(t, uint64(2<<20+512<<10), active[0].DataRelayed)
}

func TestEndSessionReceipt(t *testing.T) {
	m := NewManager(ConfigFromParams(&chaincfg.SimNetParams))
	start := time.Unix(1_700_000_000, 0)
	now := start
	m.now = func() time.Time { return now }

	sess, err := m.StartSession("client", "target",
		identity.NewReputationScore(500))
	require.NoError(t, err)

	const data = 5<<20 + 300<<10 // 5.29 MiB
	_, err = m.RecordData(sess.ID, data)
	require.NoError(t, err)

	now = start.Add(90 * time.Second)
	rc, err := m.EndSession(sess.ID)
	require.NoError(t, err)

	require.Equal(t, sess.ID, rc.SessionID)
	require.Equal(t, uint64(data), rc.DataRelayed)
	require.Equal(t, uint64(90), rc.Duration)
	require.Equal(t, uint64(now.Unix()), rc.Timestamp)

	// amount = floor(data / 1 MiB) * tokens_per_mb.
	require.Equal(t, uint64(5), rc.Amount.Uint64())

	// The receipt leaves the relay unsigned; signatures are the wallet
	// layer's job.
	require.Nil(t, rc.RelaySig)
	require.Nil(t, rc.ClientSig)
	require.False(t, rc.IsFullySigned())

	// The session is gone and the stats rolled up.
	require.Zero(t, m.NumActiveSessions())
	stats := m.Stats()
	require.Equal(t, uint64(1), stats.Sessions)
	require.Equal(t, uint64(90), stats.TotalDuration)
	require.Equal(t, uint64(data), stats.TotalDataRelayed)

	_, err = m.EndSession(sess.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestConcurrentMetering(t *testing.T) {
	m := NewManager(DefaultConfig())

	var ids []wire.SessionID
	for i := 0; i < 4; i++ {
		sess, err := m.StartSession("client", "target",
			identity.NewReputationScore(500))
		require.NoError(t, err)
		ids = append(ids, sess.ID)
	}

	const updates = 50
	const chunk = 1 << 18

	var wg sync.WaitGroup
	for _, id := range ids {
		for i := 0; i < updates; i++ {
			wg.Add(1)
			go func(id wire.SessionID) {
				defer wg.Done()
				_, err := m.RecordData(id, chunk)
				require.NoError(t, err)
			}(id)
		}
	}
	wg.Wait()

	for _, id := range ids {
		rc, err := m.EndSession(id)
		require.NoError(t, err)
		require.Equal(t, uint64(updates*chunk), rc.DataRelayed)
	}
	require.Equal(t, uint64(4*updates*chunk), m.Stats().TotalDataRelayed)
}
