// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"

	"github.com/nexusnet/nexusd/identity"
)

// RefuseReason explains why a relay refused to open a session.
type RefuseReason uint8

// Reasons a relay may refuse a session.
const (
	// RefuseNone means the session was accepted.
	RefuseNone RefuseReason = iota

	// RefuseCapacity means the relay is at its session limit.
	RefuseCapacity

	// RefuseReputation means the client's reputation is below the
	// relay's admission threshold.
	RefuseReputation
)

// Map of refusal reasons back to their constant names for pretty printing.
var refuseStrings = map[RefuseReason]string{
	RefuseNone:       "none",
	RefuseCapacity:   "capacity",
	RefuseReputation: "reputation",
}

// String returns the RefuseReason in human-readable form.
func (rr RefuseReason) String() string {
	if s, ok := refuseStrings[rr]; ok {
		return s
	}
	return fmt.Sprintf("unknown refuse reason (%d)", uint8(rr))
}

// MsgRelayOpen asks a relay to open a bandwidth-selling session between a
// client and a target.
type MsgRelayOpen struct {
	ClientPeer identity.PeerID
	TargetPeer identity.PeerID
	Quality    QualityPreset
}

// Command returns the framing command byte for the message.
func (m *MsgRelayOpen) Command() Command { return CmdRelayOpen }

// Encode writes the message payload.
func (m *MsgRelayOpen) Encode(w io.Writer) error {
	if err := writeVarString(w, string(m.ClientPeer)); err != nil {
		return err
	}
	if err := writeVarString(w, string(m.TargetPeer)); err != nil {
		return err
	}
	return writeUint8(w, uint8(m.Quality))
}

// Decode reads the message payload.
func (m *MsgRelayOpen) Decode(r io.Reader) error {
	client, err := readVarString(r)
	if err != nil {
		return err
	}
	target, err := readVarString(r)
	if err != nil {
		return err
	}
	quality, err := readUint8(r)
	if err != nil {
		return err
	}
	if quality > uint8(QualityUltra) {
		return messageError("MsgRelayOpen.Decode",
			fmt.Sprintf("invalid quality preset %d", quality))
	}
	m.ClientPeer = identity.PeerID(client)
	m.TargetPeer = identity.PeerID(target)
	m.Quality = QualityPreset(quality)
	return nil
}

// MsgRelayOpenResp answers a relay open with either a session id or a
// refusal reason.
type MsgRelayOpenResp struct {
	Accepted  bool
	SessionID SessionID
	Reason    RefuseReason
}

// Command returns the framing command byte for the message.
func (m *MsgRelayOpenResp) Command() Command { return CmdRelayOpenResp }

// Encode writes the message payload.
func (m *MsgRelayOpenResp) Encode(w io.Writer) error {
	var accepted uint8
	if m.Accepted {
		accepted = 1
	}
	if err := writeUint8(w, accepted); err != nil {
		return err
	}
	if m.Accepted {
		_, err := w.Write(m.SessionID[:])
		return err
	}
	return writeUint8(w, uint8(m.Reason))
}

// Decode reads the message payload.
func (m *MsgRelayOpenResp) Decode(r io.Reader) error {
	accepted, err := readUint8(r)
	if err != nil {
		return err
	}
	if accepted > 1 {
		return messageError("MsgRelayOpenResp.Decode",
			fmt.Sprintf("invalid accepted flag %d", accepted))
	}
	m.Accepted = accepted == 1
	if m.Accepted {
		m.Reason = RefuseNone
		_, err := io.ReadFull(r, m.SessionID[:])
		return err
	}
	reason, err := readUint8(r)
	if err != nil {
		return err
	}
	if reason == uint8(RefuseNone) || reason > uint8(RefuseReputation) {
		return messageError("MsgRelayOpenResp.Decode",
			fmt.Sprintf("invalid refuse reason %d", reason))
	}
	m.SessionID = SessionID{}
	m.Reason = RefuseReason(reason)
	return nil
}

// MsgRelayData is the periodic meter update a relay session produces.
type MsgRelayData struct {
	SessionID  SessionID
	BytesDelta uint64
}

// Command returns the framing command byte for the message.
func (m *MsgRelayData) Command() Command { return CmdRelayData }

// Encode writes the message payload.
func (m *MsgRelayData) Encode(w io.Writer) error {
	if _, err := w.Write(m.SessionID[:]); err != nil {
		return err
	}
	return writeUint64(w, m.BytesDelta)
}

// Decode reads the message payload.
func (m *MsgRelayData) Decode(r io.Reader) error {
	if _, err := io.ReadFull(r, m.SessionID[:]); err != nil {
		return err
	}
	var err error
	m.BytesDelta, err = readUint64(r)
	return err
}

// MsgRelayClose asks the relay to end a session.
type MsgRelayClose struct {
	SessionID SessionID
}

// Command returns the framing command byte for the message.
func (m *MsgRelayClose) Command() Command { return CmdRelayClose }

// Encode writes the message payload.
func (m *MsgRelayClose) Encode(w io.Writer) error {
	_, err := w.Write(m.SessionID[:])
	return err
}

// Decode reads the message payload.
func (m *MsgRelayClose) Decode(r io.Reader) error {
	_, err := io.ReadFull(r, m.SessionID[:])
	return err
}

// MsgRelayCloseResp carries the unsigned receipt for a closed session.
type MsgRelayCloseResp struct {
	Receipt Receipt
}

// Command returns the framing command byte for the message.
func (m *MsgRelayCloseResp) Command() Command { return CmdRelayCloseResp }

// Encode writes the message payload.
func (m *MsgRelayCloseResp) Encode(w io.Writer) error {
	return m.Receipt.Encode(w)
}

// Decode reads the message payload.
func (m *MsgRelayCloseResp) Decode(r io.Reader) error {
	return m.Receipt.Decode(r)
}
