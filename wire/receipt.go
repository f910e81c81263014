// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"io"

	"github.com/nexusnet/nexusd/identity"
	"github.com/nexusnet/nexusd/token"
)

const (
	// SessionIDSize is the size, in bytes, of a relay session identifier.
	SessionIDSize = 32

	// receiptSigHashSize is the size of the canonical byte sequence both
	// parties sign: session id, data relayed, duration, amount, and
	// timestamp in fixed-width big-endian fields.
	receiptSigHashSize = SessionIDSize + 8 + 8 + token.AmountSize + 8
)

// SessionID identifies a relay session.
type SessionID [SessionIDSize]byte

// Receipt is the cooperative two-party record of a finished relay session.
// The relay produces it unsigned from its meter; both parties then sign the
// canonical serialization returned by SigHash and exchange signatures.
type Receipt struct {
	// SessionID is the relay session this receipt settles.
	SessionID SessionID

	// DataRelayed is the total number of bytes metered for the session.
	DataRelayed uint64

	// Duration is the session length in seconds.
	Duration uint64

	// Amount is the token amount owed for the session.
	Amount token.Amount

	// RelaySig is the relay's 64-byte signature over SigHash, or empty
	// while unsigned.
	RelaySig []byte

	// ClientSig is the client's 64-byte signature over SigHash, or empty
	// while unsigned.
	ClientSig []byte

	// Timestamp is the Unix time, in seconds, the receipt was produced.
	Timestamp uint64
}

// SigHash returns the exact byte sequence both parties sign.  Signatures
// are always produced and verified over this sequence, never over any other
// serialization of the receipt.
func (rc *Receipt) SigHash() []byte {
	b := make([]byte, receiptSigHashSize)
	off := copy(b, rc.SessionID[:])
	binary.BigEndian.PutUint64(b[off:], rc.DataRelayed)
	off += 8
	binary.BigEndian.PutUint64(b[off:], rc.Duration)
	off += 8
	amt := rc.Amount.Bytes()
	off += copy(b[off:], amt[:])
	binary.BigEndian.PutUint64(b[off:], rc.Timestamp)
	return b
}

// IsFullySigned reports whether both signature slots carry a plausible
// Ed25519 signature.
func (rc *Receipt) IsFullySigned() bool {
	return len(rc.RelaySig) == identity.SignatureSize &&
		len(rc.ClientSig) == identity.SignatureSize
}

// Encode serializes the receipt, including signature slots.  Unsigned slots
// are carried as zero-filled fields.
func (rc *Receipt) Encode(w io.Writer) error {
	if _, err := w.Write(rc.SigHash()); err != nil {
		return err
	}
	if err := writeSigSlot(w, rc.RelaySig); err != nil {
		return err
	}
	return writeSigSlot(w, rc.ClientSig)
}

// Decode deserializes a receipt produced by Encode.
func (rc *Receipt) Decode(r io.Reader) error {
	if _, err := io.ReadFull(r, rc.SessionID[:]); err != nil {
		return err
	}
	var err error
	if rc.DataRelayed, err = readUint64(r); err != nil {
		return err
	}
	if rc.Duration, err = readUint64(r); err != nil {
		return err
	}
	var amt [token.AmountSize]byte
	if _, err := io.ReadFull(r, amt[:]); err != nil {
		return err
	}
	rc.Amount = token.AmountFromBytes(amt)
	if rc.Timestamp, err = readUint64(r); err != nil {
		return err
	}
	if rc.RelaySig, err = readSigSlot(r); err != nil {
		return err
	}
	rc.ClientSig, err = readSigSlot(r)
	return err
}

// writeSigSlot writes a fixed 64-byte signature slot, zero-filled when the
// signature is absent.
func writeSigSlot(w io.Writer, sig []byte) error {
	var slot [identity.SignatureSize]byte
	if len(sig) == identity.SignatureSize {
		copy(slot[:], sig)
	} else if len(sig) != 0 {
		return messageError("writeSigSlot", "signature has wrong length")
	}
	_, err := w.Write(slot[:])
	return err
}

// readSigSlot reads a fixed 64-byte signature slot, mapping an all-zero
// slot back to an absent signature.
func readSigSlot(r io.Reader) ([]byte, error) {
	var slot [identity.SignatureSize]byte
	if _, err := io.ReadFull(r, slot[:]); err != nil {
		return nil, err
	}
	if slot == [identity.SignatureSize]byte{} {
		return nil, nil
	}
	sig := make([]byte, identity.SignatureSize)
	copy(sig, slot[:])
	return sig, nil
}
