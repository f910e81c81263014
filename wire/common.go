// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxValueSize is the largest byte value the overlay will carry in a put or
// get message.
const MaxValueSize = 1 << 20

// MaxAddresses is the most addresses a single PeerInfo may advertise.
const MaxAddresses = 16

// maxStringSize bounds any length-prefixed string on the wire.
const maxStringSize = 1 << 10

// MessageError describes a malformed wire message.
type MessageError struct {
	Func        string
	Description string
}

// Error satisfies the error interface.
func (e *MessageError) Error() string {
	if e.Func != "" {
		return fmt.Sprintf("%v: %v", e.Func, e.Description)
	}
	return e.Description
}

// messageError creates a MessageError given a function name and description.
func messageError(f string, desc string) *MessageError {
	return &MessageError{Func: f, Description: desc}
}

func writeUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func readUint8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func writeUint16(w io.Writer, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// writeVarString writes a uint16 length-prefixed string.
func writeVarString(w io.Writer, s string) error {
	if len(s) > maxStringSize {
		return messageError("writeVarString",
			fmt.Sprintf("string too long [len %d, max %d]",
				len(s), maxStringSize))
	}
	if err := writeUint16(w, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// readVarString reads a uint16 length-prefixed string.
func readVarString(r io.Reader) (string, error) {
	n, err := readUint16(r)
	if err != nil {
		return "", err
	}
	if n > maxStringSize {
		return "", messageError("readVarString",
			fmt.Sprintf("string too long [len %d, max %d]",
				n, maxStringSize))
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

// writeVarBytes writes a uint32 length-prefixed byte slice.
func writeVarBytes(w io.Writer, b []byte) error {
	if len(b) > MaxValueSize {
		return messageError("writeVarBytes",
			fmt.Sprintf("value too large [len %d, max %d]",
				len(b), MaxValueSize))
	}
	if err := writeUint32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// readVarBytes reads a uint32 length-prefixed byte slice.
func readVarBytes(r io.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if n > MaxValueSize {
		return nil, messageError("readVarBytes",
			fmt.Sprintf("value too large [len %d, max %d]",
				n, MaxValueSize))
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
