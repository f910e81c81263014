// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package simnet builds whole in-process overlays for experiments and
// tests: meshes of DHT nodes with configurable reputation distributions,
// lookup campaigns over them, and the statistics that show how strongly
// the weighted metric favors reputable nodes.
package simnet

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/nexusnet/nexusd/chaincfg"
	"github.com/nexusnet/nexusd/dht"
	"github.com/nexusnet/nexusd/identity"
	"github.com/nexusnet/nexusd/token"
	"github.com/nexusnet/nexusd/wallet"
	"github.com/nexusnet/nexusd/wire"
)

// Node bundles the pieces of one simulated overlay participant.
type Node struct {
	// Info is the node's peer snapshot.
	Info wire.PeerInfo

	// Keypair is the node's signing identity.
	Keypair *identity.Keypair

	// DHT is the node's in-memory DHT instance.
	DHT *dht.MemDHT

	// Wallet is the node's in-memory wallet.
	Wallet *wallet.MemWallet
}

// NewNode creates a simulated node with the given reputation and initial
// balance.
func NewNode(rep identity.ReputationScore, initialBalance uint64) (*Node, error) {
	kp, err := identity.GenerateKeypair()
	if err != nil {
		return nil, err
	}

	info := wire.PeerInfo{
		PeerID:             identity.PeerID(kp.DeviceID().String()),
		DeviceID:           kp.DeviceID(),
		Reputation:         rep,
		Role:               wire.RoleIdle,
		AvailableBandwidth: 100_000_000,
	}

	return &Node{
		Info:    info,
		Keypair: kp,
		DHT: dht.NewMemDHT(info, dht.Config{
			K:            chaincfg.SimNetParams.BucketSize,
			Alpha:        chaincfg.SimNetParams.LookupAlpha,
			RoundTimeout: chaincfg.SimNetParams.LookupRoundTimeout,
		}),
		Wallet: wallet.NewMemWalletWithBalance(kp, &chaincfg.SimNetParams,
			token.NewAmount(initialBalance)),
	}, nil
}

// MeshConfig describes the shape of a simulated overlay.
type MeshConfig struct {
	// NumHighRep is the number of nodes drawn from the high reputation
	// band.
	NumHighRep int

	// NumLowRep is the number of nodes drawn from the low reputation
	// band.
	NumLowRep int

	// HighRepMin and HighRepMax bound the high band, inclusive.
	HighRepMin, HighRepMax uint64

	// LowRepMin and LowRepMax bound the low band, inclusive.
	LowRepMin, LowRepMax uint64

	// Degree is the number of distinct random others each node links
	// to.  Links are mutual, so a node's neighbor count is at least
	// Degree and usually more.
	Degree int
}

// Network is a built overlay mesh.
type Network struct {
	// Nodes holds every node, high reputation band first.
	Nodes []*Node

	// NumHighRep is the size of the high reputation band.
	NumHighRep int

	highRep map[identity.DeviceID]struct{}
}

// IsHighRep reports whether an identifier belongs to the high reputation
// band.
func (n *Network) IsHighRep(id identity.DeviceID) bool {
	_, ok := n.highRep[id]
	return ok
}

// BuildMesh creates a network per the config and links every node to
// Degree random distinct others.  Links are mutual, so a node also gains
// the neighbors that picked it.
func BuildMesh(cfg MeshConfig, rng *rand.Rand) (*Network, error) {
	total := cfg.NumHighRep + cfg.NumLowRep
	if total == 0 {
		return nil, fmt.Errorf("empty mesh")
	}
	if cfg.Degree >= total {
		return nil, fmt.Errorf("degree %d too large for %d nodes",
			cfg.Degree, total)
	}

	net := &Network{
		NumHighRep: cfg.NumHighRep,
		highRep:    make(map[identity.DeviceID]struct{}),
	}

	for i := 0; i < total; i++ {
		var rep uint64
		if i < cfg.NumHighRep {
			rep = cfg.HighRepMin +
				uint64(rng.Int63n(int64(cfg.HighRepMax-cfg.HighRepMin+1)))
		} else {
			rep = cfg.LowRepMin +
				uint64(rng.Int63n(int64(cfg.LowRepMax-cfg.LowRepMin+1)))
		}

		node, err := NewNode(identity.NewReputationScore(rep), 0)
		if err != nil {
			return nil, err
		}
		net.Nodes = append(net.Nodes, node)
		if i < cfg.NumHighRep {
			net.highRep[node.Info.DeviceID] = struct{}{}
		}
	}

	// Mesh every node with Degree distinct random others.
	for i, node := range net.Nodes {
		linked := make(map[int]struct{})
		for len(linked) < cfg.Degree {
			j := rng.Intn(total)
			if j == i {
				continue
			}
			if _, ok := linked[j]; ok {
				continue
			}
			linked[j] = struct{}{}
			node.DHT.Connect(net.Nodes[j].DHT)
		}
	}

	return net, nil
}

// CampaignStats summarizes a lookup campaign.
type CampaignStats struct {
	// Lookups is the number of lookups issued.
	Lookups int

	// Slots is the total number of result slots filled.
	Slots int

	// HighRepSlots is the number of slots filled by high reputation
	// nodes.
	HighRepSlots int

	// HighRepShare is the population share of the high reputation band.
	HighRepShare float64
}

// SlotShare returns the fraction of result slots filled by high reputation
// nodes.
func (cs *CampaignStats) SlotShare() float64 {
	if cs.Slots == 0 {
		return 0
	}
	return float64(cs.HighRepSlots) / float64(cs.Slots)
}

// AdvantageRatio returns how far the high reputation band's slot share
// exceeds its population share.
func (cs *CampaignStats) AdvantageRatio() float64 {
	if cs.HighRepShare == 0 {
		return 0
	}
	return cs.SlotShare() / cs.HighRepShare
}

// RunLookupCampaign issues lookups lookups with uniformly random targets
// from random origin nodes, selecting the selectCount closest results of
// each, and tallies how many of those slots went to high reputation nodes.
func (n *Network) RunLookupCampaign(ctx context.Context, lookups, selectCount int, rng *rand.Rand) (*CampaignStats, error) {
	stats := &CampaignStats{
		Lookups:      lookups,
		HighRepShare: float64(n.NumHighRep) / float64(len(n.Nodes)),
	}

	for i := 0; i < lookups; i++ {
		var target identity.DeviceID
		rng.Read(target[:])

		origin := n.Nodes[rng.Intn(len(n.Nodes))]
		found, err := origin.DHT.FindPeer(ctx, target)
		if err != nil {
			return nil, err
		}
		if len(found) > selectCount {
			found = found[:selectCount]
		}

		stats.Slots += len(found)
		for _, p := range found {
			if n.IsHighRep(p.DeviceID) {
				stats.HighRepSlots++
			}
		}
	}
	return stats, nil
}
