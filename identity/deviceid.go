// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package identity

import (
	"encoding/hex"
	"fmt"
)

// DeviceIDSize is the size, in bytes, of a DeviceID.
const DeviceIDSize = 32

// DeviceID uniquely identifies a device on the overlay.  It is the SHA-256
// hash of the device's Ed25519 public key and is immutable for the lifetime
// of an identity.
type DeviceID [DeviceIDSize]byte

// NewDeviceID returns a DeviceID from a raw 32-byte slice.  An error is
// returned when the slice is not exactly DeviceIDSize bytes.
func NewDeviceID(b []byte) (DeviceID, error) {
	var id DeviceID
	if len(b) != DeviceIDSize {
		return id, fmt.Errorf("invalid device ID length of %d, want %d",
			len(b), DeviceIDSize)
	}
	copy(id[:], b)
	return id, nil
}

// NewDeviceIDFromHex returns a DeviceID from its canonical lowercase hex
// form.
func NewDeviceIDFromHex(s string) (DeviceID, error) {
	var id DeviceID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	return NewDeviceID(b)
}

// Bytes returns a copy of the identifier as a byte slice.
func (id DeviceID) Bytes() []byte {
	b := make([]byte, DeviceIDSize)
	copy(b, id[:])
	return b
}

// String returns the canonical textual form of the identifier, which is
// lowercase hex with no prefix.
func (id DeviceID) String() string {
	return hex.EncodeToString(id[:])
}

// Equal reports whether two identifiers hold the same bytes.
func (id DeviceID) Equal(other DeviceID) bool {
	return id == other
}

// IsZero reports whether the identifier is all zeros.
func (id DeviceID) IsZero() bool {
	return id == DeviceID{}
}

// PeerID is a free-form transport-layer handle for a peer.  A peer is
// identified end-to-end by its DeviceID; the PeerID is advisory and only
// meaningful to the transport that issued it.
type PeerID string

// String returns the handle as a plain string.
func (p PeerID) String() string {
	return string(p)
}
