// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/nexusnet/nexusd/identity"
	"github.com/nexusnet/nexusd/token"
)

// ChannelID is a unique identifier for a payment channel.
type ChannelID [32]byte

// newChannelID returns a fresh random channel identifier.
func newChannelID() ChannelID {
	var id ChannelID
	if _, err := rand.Read(id[:]); err != nil {
		panic("wallet: unable to read random channel id: " + err.Error())
	}
	return id
}

// ChannelStatus tracks the lifecycle of a payment channel.
type ChannelStatus uint8

const (
	// ChannelOpen is an active channel whose balances may still move.
	ChannelOpen ChannelStatus = iota

	// ChannelClosing is a channel whose cooperative close is underway.
	ChannelClosing

	// ChannelClosed is a settled channel.
	ChannelClosed
)

// String returns the ChannelStatus in human-readable form.
func (s ChannelStatus) String() string {
	switch s {
	case ChannelOpen:
		return "open"
	case ChannelClosing:
		return "closing"
	case ChannelClosed:
		return "closed"
	}
	return "unknown"
}

// Channel is a bilateral payment channel funded from the wallet balance.
// While open, OurBalance plus TheirBalance always equals Capacity.
type Channel struct {
	// ID uniquely identifies the channel.
	ID ChannelID

	// PeerID is the remote party.
	PeerID identity.PeerID

	// Capacity is the total amount locked in the channel.
	Capacity token.Amount

	// OurBalance is the local side's claim on the capacity.
	OurBalance token.Amount

	// TheirBalance is the remote side's claim on the capacity.
	TheirBalance token.Amount

	// LastUpdate is when the channel state last changed.
	LastUpdate time.Time

	// Status is the lifecycle state.
	Status ChannelStatus

	// lastSequence is the sequence number of the last applied update.
	lastSequence uint64
}

// updateSigHashSize is the size of the canonical byte sequence both
// parties sign for a channel update.
const updateSigHashSize = len(ChannelID{}) + 2*token.AmountSize + 8

// ChannelUpdate is one cooperatively signed state transition of a payment
// channel.  Sequence numbers increase monotonically; an update whose
// sequence is not beyond the last applied one is ignored.
type ChannelUpdate struct {
	// ChannelID names the channel being updated.
	ChannelID ChannelID

	// OurBalance is the local side's balance after the update.
	OurBalance token.Amount

	// TheirBalance is the remote side's balance after the update.
	TheirBalance token.Amount

	// Sequence orders updates within the channel.
	Sequence uint64

	// OurSig is the local party's signature over SigHash, or empty
	// while unsigned.
	OurSig []byte

	// TheirSig is the remote party's signature over SigHash, once
	// countersigned.
	TheirSig []byte
}

// SigHash returns the exact byte sequence both parties sign for the
// update: channel id, both balances, and the sequence number in
// fixed-width big-endian fields.  Signatures are always produced and
// verified over this sequence.
func (u *ChannelUpdate) SigHash() []byte {
	b := make([]byte, updateSigHashSize)
	off := copy(b, u.ChannelID[:])
	our := u.OurBalance.Bytes()
	off += copy(b[off:], our[:])
	their := u.TheirBalance.Bytes()
	off += copy(b[off:], their[:])
	binary.BigEndian.PutUint64(b[off:], u.Sequence)
	return b
}

// Sign fills the local signature slot with the keypair's signature over
// the canonical bytes.
func (u *ChannelUpdate) Sign(kp *identity.Keypair) {
	u.OurSig = kp.Sign(u.SigHash())
}

// VerifyTheirSig reports whether the counterparty's signature slot holds a
// valid signature over the canonical bytes by the given key.
func (u *ChannelUpdate) VerifyTheirSig(pub ed25519.PublicKey) bool {
	return identity.VerifySignature(pub, u.SigHash(), u.TheirSig)
}
