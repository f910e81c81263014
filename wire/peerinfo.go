// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"

	"github.com/nexusnet/nexusd/identity"
)

// PeerInfo describes a peer as carried in routing tables and DHT responses.
// It is always handled by value: holders keep snapshots, never shared
// mutable peer objects, and staleness is tolerated until a fresh snapshot
// arrives.
type PeerInfo struct {
	// PeerID is the advisory transport-layer handle for the peer.
	PeerID identity.PeerID

	// DeviceID is the peer's end-to-end identity, the SHA-256 of its
	// public key.  Any signed artifact the peer produces must verify
	// against a key hashing to this value.
	DeviceID identity.DeviceID

	// Reputation is the peer's last known reputation score.
	Reputation identity.ReputationScore

	// Role is the peer's last known role.
	Role NodeRole

	// Addresses are the transport addresses the peer advertises.
	Addresses []string

	// AvailableBandwidth is the bandwidth, in bits per second, the peer
	// offers for relaying.
	AvailableBandwidth uint64
}

// Encode serializes the peer info using the overlay's fixed big-endian
// format.
func (p *PeerInfo) Encode(w io.Writer) error {
	if err := writeVarString(w, string(p.PeerID)); err != nil {
		return err
	}
	if _, err := w.Write(p.DeviceID[:]); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(p.Reputation.Value())); err != nil {
		return err
	}
	if err := writeUint8(w, uint8(p.Role)); err != nil {
		return err
	}
	if len(p.Addresses) > MaxAddresses {
		return messageError("PeerInfo.Encode",
			fmt.Sprintf("too many addresses [count %d, max %d]",
				len(p.Addresses), MaxAddresses))
	}
	if err := writeUint8(w, uint8(len(p.Addresses))); err != nil {
		return err
	}
	for _, addr := range p.Addresses {
		if err := writeVarString(w, addr); err != nil {
			return err
		}
	}
	return writeUint64(w, p.AvailableBandwidth)
}

// Decode deserializes the peer info from the overlay's fixed big-endian
// format.
func (p *PeerInfo) Decode(r io.Reader) error {
	peerID, err := readVarString(r)
	if err != nil {
		return err
	}
	p.PeerID = identity.PeerID(peerID)

	if _, err := io.ReadFull(r, p.DeviceID[:]); err != nil {
		return err
	}

	rep, err := readUint32(r)
	if err != nil {
		return err
	}
	p.Reputation = identity.NewReputationScore(uint64(rep))

	role, err := readUint8(r)
	if err != nil {
		return err
	}
	if role > uint8(RoleRelay) {
		return messageError("PeerInfo.Decode",
			fmt.Sprintf("invalid node role %d", role))
	}
	p.Role = NodeRole(role)

	count, err := readUint8(r)
	if err != nil {
		return err
	}
	if count > MaxAddresses {
		return messageError("PeerInfo.Decode",
			fmt.Sprintf("too many addresses [count %d, max %d]",
				count, MaxAddresses))
	}
	p.Addresses = make([]string, 0, count)
	for i := uint8(0); i < count; i++ {
		addr, err := readVarString(r)
		if err != nil {
			return err
		}
		p.Addresses = append(p.Addresses, addr)
	}

	p.AvailableBandwidth, err = readUint64(r)
	return err
}
