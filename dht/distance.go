// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dht

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/bits"
	"sort"

	"github.com/nexusnet/nexusd/identity"
	"github.com/nexusnet/nexusd/wire"
)

// Distance returns the raw XOR distance between two identifiers, compared
// as a big-endian 32-byte unsigned integer.
func Distance(a, b identity.DeviceID) [identity.DeviceIDSize]byte {
	var d [identity.DeviceIDSize]byte
	for i := range d {
		d[i] = a[i] ^ b[i]
	}
	return d
}

// WeightedDistance returns the XOR distance from a peer to a target with
// the top 8 bytes scaled by the peer's reputation weight
// 2000/(reputation+1000): 1.0 at full reputation, 2.0 at none.  High
// reputation therefore shrinks the effective distance and is preferred in
// candidate sorts.
//
// The weighting is confined to the high 8 bytes deliberately: it biases
// selection at the top of the tree where it matters while the low 24 bytes
// keep their full tiebreaking precision.
func WeightedDistance(peer, target identity.DeviceID, rep identity.ReputationScore) [identity.DeviceIDSize]byte {
	d := Distance(peer, target)

	// Full reputation means a weight of exactly 1, so the weighted
	// distance is the XOR distance bit for bit.
	if rep.Value() == identity.MaxReputation {
		return d
	}

	weight := 2000.0 / (float64(rep.Value()) + 1000.0)
	hi := binary.BigEndian.Uint64(d[:8])

	weighted := float64(hi) * weight
	var scaled uint64
	if weighted >= math.MaxUint64 {
		scaled = math.MaxUint64
	} else {
		scaled = uint64(weighted)
	}
	binary.BigEndian.PutUint64(d[:8], scaled)
	return d
}

// CompareByDistance orders two peers by their weighted distance to a
// target, breaking ties by DeviceID compared lexicographically big-endian.
// The result is negative, zero, or positive in the manner of bytes.Compare.
func CompareByDistance(a, b *wire.PeerInfo, target identity.DeviceID) int {
	da := WeightedDistance(a.DeviceID, target, a.Reputation)
	db := WeightedDistance(b.DeviceID, target, b.Reputation)
	if c := bytes.Compare(da[:], db[:]); c != 0 {
		return c
	}
	return bytes.Compare(a.DeviceID[:], b.DeviceID[:])
}

// SortByDistance sorts peers in place by weighted distance to the target.
func SortByDistance(peers []wire.PeerInfo, target identity.DeviceID) {
	sort.Slice(peers, func(i, j int) bool {
		return CompareByDistance(&peers[i], &peers[j], target) < 0
	})
}

// BucketIndex returns the routing table bucket a peer belongs in relative
// to the local identifier: the number of leading zero bits of the XOR
// distance, capped at 256.
func BucketIndex(self, peer identity.DeviceID) int {
	d := Distance(self, peer)
	var zeros int
	for _, b := range d {
		if b == 0 {
			zeros += 8
			continue
		}
		zeros += bits.LeadingZeros8(b)
		break
	}
	if zeros > 256 {
		zeros = 256
	}
	return zeros
}
