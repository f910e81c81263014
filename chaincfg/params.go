// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"errors"
	"time"

	"github.com/nexusnet/nexusd/wire"
)

// ErrDuplicateNet describes an error where the parameters for an overlay
// network could not be set due to the network already being a standard
// network or previously-registered via this package.
var ErrDuplicateNet = errors.New("duplicate overlay network")

// Params defines an overlay network by its parameters.  These parameters
// may be used by overlay applications to differentiate networks as well as
// addresses and keys for one network from those intended for use on another
// network.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net wire.OverlayNet

	// DefaultPort defines the default peer-to-peer port for the network.
	DefaultPort string

	// BucketSize is the maximum number of peers per routing table
	// K-bucket and the result width of DHT lookups (Kademlia K).
	BucketSize int

	// LookupAlpha is the parallelism of iterative DHT lookups
	// (Kademlia alpha).
	LookupAlpha int

	// LookupRoundTimeout is the deadline for a single round of an
	// iterative lookup.  Sub-queries still pending when it expires are
	// abandoned for the remainder of the lookup.
	LookupRoundTimeout time.Duration

	// NewUserPowDifficulty is the number of leading zero bits required
	// of the proof-of-work puzzle when bootstrapping a new identity.
	NewUserPowDifficulty uint32

	// ReturningUserPowDifficulty is the number of leading zero bits
	// required of the proof-of-work puzzle for a returning identity.
	ReturningUserPowDifficulty uint32

	// PowReward is the token reward, in NEXUS units, for a successful
	// mining ceremony.
	PowReward uint64

	// RelayMaxSessions is the number of concurrent sessions a relay
	// admits before refusing with a capacity error.
	RelayMaxSessions int

	// RelayMaxSessionBandwidth is the per-session bandwidth cap in bits
	// per second.
	RelayMaxSessionBandwidth uint64

	// RelayMinReputation is the minimum client reputation a relay
	// requires for admission.
	RelayMinReputation uint64

	// RelayTokensPerMB is the metering rate in NEXUS units per MiB
	// relayed.
	RelayTokensPerMB uint64

	// OverdraftBase is the overdraft allowance, in NEXUS units, granted
	// to a wallet at zero reputation.
	OverdraftBase uint64

	// OverdraftPerRep10 is the additional overdraft allowance granted
	// per ten points of reputation.
	OverdraftPerRep10 uint64

	// ReceiptMaxAge is the policy window for accepting relay receipts.
	// Receipts stamped further in the past are rejected at settlement.
	ReceiptMaxAge time.Duration
}

// MainNetParams defines the overlay parameters for the main network.
var MainNetParams = Params{
	Name:        "mainnet",
	Net:         wire.MainNet,
	DefaultPort: "9735",

	BucketSize:         20,
	LookupAlpha:        3,
	LookupRoundTimeout: 60 * time.Second,

	NewUserPowDifficulty:       16,
	ReturningUserPowDifficulty: 20,
	PowReward:                  10,

	RelayMaxSessions:         10,
	RelayMaxSessionBandwidth: 100_000_000,
	RelayMinReputation:       100,
	RelayTokensPerMB:         1,

	OverdraftBase:     50,
	OverdraftPerRep10: 1,

	ReceiptMaxAge: time.Hour,
}

// SimNetParams defines the overlay parameters for the simulation test
// network.  This network is intended for in-process multi-node harnesses,
// so the proof-of-work difficulties are low enough to solve in test time.
var SimNetParams = Params{
	Name:        "simnet",
	Net:         wire.SimNet,
	DefaultPort: "19735",

	BucketSize:         20,
	LookupAlpha:        3,
	LookupRoundTimeout: 5 * time.Second,

	NewUserPowDifficulty:       8,
	ReturningUserPowDifficulty: 10,
	PowReward:                  10,

	RelayMaxSessions:         10,
	RelayMaxSessionBandwidth: 100_000_000,
	RelayMinReputation:       100,
	RelayTokensPerMB:         1,

	OverdraftBase:     50,
	OverdraftPerRep10: 1,

	ReceiptMaxAge: time.Hour,
}

var (
	registeredNets = make(map[wire.OverlayNet]struct{})
)

// Register registers the network parameters for an overlay network.  This
// may error with ErrDuplicateNet if the network is already registered
// (either due to a previous Register call, or the network being one of the
// default networks).
//
// Network parameters should be registered into this package by a main
// package as early as possible.
func Register(params *Params) error {
	if _, ok := registeredNets[params.Net]; ok {
		return ErrDuplicateNet
	}
	registeredNets[params.Net] = struct{}{}
	return nil
}

// mustRegister performs the same function as Register except it panics if
// there is an error.  This should only be called from package init
// functions.
func mustRegister(params *Params) {
	if err := Register(params); err != nil {
		panic("failed to register network: " + err.Error())
	}
}

func init() {
	// Register all default networks when the package is initialized.
	mustRegister(&MainNetParams)
	mustRegister(&SimNetParams)
}
