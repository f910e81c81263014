// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
)

const (
	// ProtocolVersion is the latest overlay protocol version this package
	// supports.
	ProtocolVersion uint32 = 1
)

// OverlayNet represents which overlay network a message belongs to.
type OverlayNet uint32

// Constants used to indicate the overlay network.  They are the first bytes
// of every framed message and keep networks from cross-talking.
const (
	// MainNet represents the main overlay network.
	MainNet OverlayNet = 0x6e78734d // "nxsM"

	// SimNet represents the in-process simulation network used by tests
	// and multi-node harnesses.
	SimNet OverlayNet = 0x6e787353 // "nxsS"
)

// onStrings is a map of overlay networks back to their constant names for
// pretty printing.
var onStrings = map[OverlayNet]string{
	MainNet: "MainNet",
	SimNet:  "SimNet",
}

// String returns the OverlayNet in human-readable form.
func (n OverlayNet) String() string {
	if s, ok := onStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown OverlayNet (%d)", uint32(n))
}

// NodeRole identifies what a node is currently doing on the overlay.
type NodeRole uint8

const (
	// RoleIdle is a node with no active session that can switch into any
	// other role.
	RoleIdle NodeRole = iota

	// RoleController is a node driving a remote-control session.
	RoleController

	// RoleControlled is a node being driven by a remote controller.
	RoleControlled

	// RoleRelay is a node selling bandwidth by relaying traffic for
	// other peers.
	RoleRelay
)

// Map of node roles back to their constant names for pretty printing.
var roleStrings = map[NodeRole]string{
	RoleIdle:       "Idle",
	RoleController: "Controller",
	RoleControlled: "Controlled",
	RoleRelay:      "Relay",
}

// String returns the NodeRole in human-readable form.
func (r NodeRole) String() string {
	if s, ok := roleStrings[r]; ok {
		return s
	}
	return fmt.Sprintf("Unknown NodeRole (%d)", uint8(r))
}

// QualityPreset is the connection quality hint a controller requests for a
// session.
type QualityPreset uint8

const (
	// QualityLow targets minimal bandwidth.
	QualityLow QualityPreset = iota

	// QualityMedium targets a balanced bitrate.
	QualityMedium

	// QualityHigh targets a high bitrate.
	QualityHigh

	// QualityUltra targets the maximum bitrate.
	QualityUltra
)

// TargetBitrate returns the target bitrate, in bits per second, for the
// preset.
func (q QualityPreset) TargetBitrate() uint32 {
	switch q {
	case QualityLow:
		return 500_000
	case QualityMedium:
		return 2_000_000
	case QualityHigh:
		return 5_000_000
	case QualityUltra:
		return 15_000_000
	}
	return 0
}

// String returns the QualityPreset in human-readable form.
func (q QualityPreset) String() string {
	switch q {
	case QualityLow:
		return "Low"
	case QualityMedium:
		return "Medium"
	case QualityHigh:
		return "High"
	case QualityUltra:
		return "Ultra"
	}
	return fmt.Sprintf("Unknown QualityPreset (%d)", uint8(q))
}
