// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"

	"github.com/nexusnet/nexusd/identity"
)

// KeySize is the size, in bytes, of a DHT key, which is the BLAKE3 hash of
// an opaque input.
const KeySize = 32

// Key is a content-addressed DHT key.
type Key [KeySize]byte

// MaxFindPeerResults bounds the number of peers a find-peer response may
// carry.  It matches the routing table bucket size.
const MaxFindPeerResults = 20

// MsgFindPeer asks a peer for the peers it knows closest to a target
// identifier.
type MsgFindPeer struct {
	Target identity.DeviceID
}

// Command returns the framing command byte for the message.
func (m *MsgFindPeer) Command() Command { return CmdFindPeer }

// Encode writes the message payload.
func (m *MsgFindPeer) Encode(w io.Writer) error {
	_, err := w.Write(m.Target[:])
	return err
}

// Decode reads the message payload.
func (m *MsgFindPeer) Decode(r io.Reader) error {
	_, err := io.ReadFull(r, m.Target[:])
	return err
}

// MsgFindPeerResp carries up to MaxFindPeerResults peers sorted by weighted
// distance to the requested target.
type MsgFindPeerResp struct {
	Peers []PeerInfo
}

// Command returns the framing command byte for the message.
func (m *MsgFindPeerResp) Command() Command { return CmdFindPeerResp }

// Encode writes the message payload.
func (m *MsgFindPeerResp) Encode(w io.Writer) error {
	if len(m.Peers) > MaxFindPeerResults {
		return messageError("MsgFindPeerResp.Encode",
			fmt.Sprintf("too many peers [count %d, max %d]",
				len(m.Peers), MaxFindPeerResults))
	}
	if err := writeUint8(w, uint8(len(m.Peers))); err != nil {
		return err
	}
	for i := range m.Peers {
		if err := m.Peers[i].Encode(w); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads the message payload.
func (m *MsgFindPeerResp) Decode(r io.Reader) error {
	count, err := readUint8(r)
	if err != nil {
		return err
	}
	if count > MaxFindPeerResults {
		return messageError("MsgFindPeerResp.Decode",
			fmt.Sprintf("too many peers [count %d, max %d]",
				count, MaxFindPeerResults))
	}
	m.Peers = make([]PeerInfo, count)
	for i := range m.Peers {
		if err := m.Peers[i].Decode(r); err != nil {
			return err
		}
	}
	return nil
}

// MsgPut stores a value under a content-addressed key.
type MsgPut struct {
	Key   Key
	Value []byte
}

// Command returns the framing command byte for the message.
func (m *MsgPut) Command() Command { return CmdPut }

// Encode writes the message payload.
func (m *MsgPut) Encode(w io.Writer) error {
	if _, err := w.Write(m.Key[:]); err != nil {
		return err
	}
	return writeVarBytes(w, m.Value)
}

// Decode reads the message payload.
func (m *MsgPut) Decode(r io.Reader) error {
	if _, err := io.ReadFull(r, m.Key[:]); err != nil {
		return err
	}
	var err error
	m.Value, err = readVarBytes(r)
	return err
}

// MsgPutAck acknowledges a put.
type MsgPutAck struct {
	Key Key
}

// Command returns the framing command byte for the message.
func (m *MsgPutAck) Command() Command { return CmdPutAck }

// Encode writes the message payload.
func (m *MsgPutAck) Encode(w io.Writer) error {
	_, err := w.Write(m.Key[:])
	return err
}

// Decode reads the message payload.
func (m *MsgPutAck) Decode(r io.Reader) error {
	_, err := io.ReadFull(r, m.Key[:])
	return err
}

// MsgGet requests the value stored under a key.
type MsgGet struct {
	Key Key
}

// Command returns the framing command byte for the message.
func (m *MsgGet) Command() Command { return CmdGet }

// Encode writes the message payload.
func (m *MsgGet) Encode(w io.Writer) error {
	_, err := w.Write(m.Key[:])
	return err
}

// Decode reads the message payload.
func (m *MsgGet) Decode(r io.Reader) error {
	_, err := io.ReadFull(r, m.Key[:])
	return err
}

// MsgGetResp answers a get.  Found distinguishes a stored empty value from
// a miss.
type MsgGetResp struct {
	Key   Key
	Found bool
	Value []byte
}

// Command returns the framing command byte for the message.
func (m *MsgGetResp) Command() Command { return CmdGetResp }

// Encode writes the message payload.
func (m *MsgGetResp) Encode(w io.Writer) error {
	if _, err := w.Write(m.Key[:]); err != nil {
		return err
	}
	var found uint8
	if m.Found {
		found = 1
	}
	if err := writeUint8(w, found); err != nil {
		return err
	}
	if !m.Found {
		return nil
	}
	return writeVarBytes(w, m.Value)
}

// Decode reads the message payload.
func (m *MsgGetResp) Decode(r io.Reader) error {
	if _, err := io.ReadFull(r, m.Key[:]); err != nil {
		return err
	}
	found, err := readUint8(r)
	if err != nil {
		return err
	}
	if found > 1 {
		return messageError("MsgGetResp.Decode",
			fmt.Sprintf("invalid found flag %d", found))
	}
	m.Found = found == 1
	m.Value = nil
	if !m.Found {
		return nil
	}
	m.Value, err = readVarBytes(r)
	return err
}
