// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"
)

// MaxMessagePayload is the largest payload a framed overlay message may
// carry.
const MaxMessagePayload = MaxValueSize + 1024

// Command identifies the payload type of a framed overlay message.
type Command uint8

// Commands understood by the overlay protocol.
const (
	CmdFindPeer Command = iota + 1
	CmdFindPeerResp
	CmdPut
	CmdPutAck
	CmdGet
	CmdGetResp
	CmdRelayOpen
	CmdRelayOpenResp
	CmdRelayData
	CmdRelayClose
	CmdRelayCloseResp
)

// Map of commands back to their constant names for pretty printing.
var cmdStrings = map[Command]string{
	CmdFindPeer:       "findpeer",
	CmdFindPeerResp:   "findpeerresp",
	CmdPut:            "put",
	CmdPutAck:         "putack",
	CmdGet:            "get",
	CmdGetResp:        "getresp",
	CmdRelayOpen:      "relayopen",
	CmdRelayOpenResp:  "relayopenresp",
	CmdRelayData:      "relaydata",
	CmdRelayClose:     "relayclose",
	CmdRelayCloseResp: "relaycloseresp",
}

// String returns the Command in human-readable form.
func (c Command) String() string {
	if s, ok := cmdStrings[c]; ok {
		return s
	}
	return fmt.Sprintf("unknown command (%d)", uint8(c))
}

// Message is the interface every overlay wire message satisfies.
type Message interface {
	// Command returns the framing command byte for the message.
	Command() Command

	// Encode writes the message payload in fixed big-endian form.
	Encode(w io.Writer) error

	// Decode reads the message payload in fixed big-endian form.
	Decode(r io.Reader) error
}

// makeEmptyMessage returns a zero message for the given command.
func makeEmptyMessage(cmd Command) (Message, error) {
	switch cmd {
	case CmdFindPeer:
		return &MsgFindPeer{}, nil
	case CmdFindPeerResp:
		return &MsgFindPeerResp{}, nil
	case CmdPut:
		return &MsgPut{}, nil
	case CmdPutAck:
		return &MsgPutAck{}, nil
	case CmdGet:
		return &MsgGet{}, nil
	case CmdGetResp:
		return &MsgGetResp{}, nil
	case CmdRelayOpen:
		return &MsgRelayOpen{}, nil
	case CmdRelayOpenResp:
		return &MsgRelayOpenResp{}, nil
	case CmdRelayData:
		return &MsgRelayData{}, nil
	case CmdRelayClose:
		return &MsgRelayClose{}, nil
	case CmdRelayCloseResp:
		return &MsgRelayCloseResp{}, nil
	}
	return nil, messageError("makeEmptyMessage",
		fmt.Sprintf("unhandled command %d", uint8(cmd)))
}

// WriteMessage frames and writes a message to w: network magic, command
// byte, payload length, payload.
func WriteMessage(w io.Writer, net OverlayNet, msg Message) error {
	var payload bytes.Buffer
	if err := msg.Encode(&payload); err != nil {
		return err
	}
	if payload.Len() > MaxMessagePayload {
		return messageError("WriteMessage",
			fmt.Sprintf("payload too large [len %d, max %d]",
				payload.Len(), MaxMessagePayload))
	}

	if err := writeUint32(w, uint32(net)); err != nil {
		return err
	}
	if err := writeUint8(w, uint8(msg.Command())); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(payload.Len())); err != nil {
		return err
	}
	_, err := w.Write(payload.Bytes())
	return err
}

// ReadMessage reads a framed message from r, rejecting messages from the
// wrong overlay network and malformed frames.
func ReadMessage(r io.Reader, net OverlayNet) (Message, error) {
	magic, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if OverlayNet(magic) != net {
		return nil, messageError("ReadMessage",
			fmt.Sprintf("message from wrong network [got %v, want %v]",
				OverlayNet(magic), net))
	}

	cmd, err := readUint8(r)
	if err != nil {
		return nil, err
	}
	msg, err := makeEmptyMessage(Command(cmd))
	if err != nil {
		return nil, err
	}

	plen, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if plen > MaxMessagePayload {
		return nil, messageError("ReadMessage",
			fmt.Sprintf("payload too large [len %d, max %d]",
				plen, MaxMessagePayload))
	}

	payload := make([]byte, plen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	pr := bytes.NewReader(payload)
	if err := msg.Decode(pr); err != nil {
		return nil, err
	}
	if pr.Len() != 0 {
		return nil, messageError("ReadMessage",
			fmt.Sprintf("%d trailing bytes after %v payload",
				pr.Len(), msg.Command()))
	}
	return msg, nil
}
