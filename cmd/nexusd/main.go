// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nexusnet/nexusd/dht"
	"github.com/nexusnet/nexusd/identity"
	"github.com/nexusnet/nexusd/node"
	"github.com/nexusnet/nexusd/relay"
	"github.com/nexusnet/nexusd/wallet"
	"github.com/nexusnet/nexusd/wire"
	"github.com/nexusnet/nexusd/wsserver"
)

// version is the release version of the daemon.
const version = "0.1.0"

func main() {
	if err := nexusdMain(); err != nil {
		os.Exit(1)
	}
}

// nexusdMain is the real main function for nexusd.  It is necessary to
// work around the fact that deferred functions do not run when os.Exit is
// called.
func nexusdMain() error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	if cfg.ShowVersion {
		fmt.Printf("nexusd version %s\n", version)
		return nil
	}

	nexdLog.Infof("Version %s", version)
	nexdLog.Infof("Overlay network: %s", cfg.params.Name)

	// Load the node identity, generating and persisting a fresh one on
	// first run.
	kp, created, err := loadIdentity(cfg.keyFilePath())
	if err != nil {
		nexdLog.Errorf("Unable to load identity: %v", err)
		return err
	}
	if created {
		nexdLog.Infof("Generated new identity")
	}
	nexdLog.Infof("Device ID: %s", kp.DeviceID())

	// Assemble the node: state aggregate, persistent DHT store, DHT
	// instance, wallet, and relay manager.
	nodeState := node.NewNodeState(kp)

	store, err := dht.NewLevelStore(filepath.Join(cfg.DataDir, "dhtstore"))
	if err != nil {
		nexdLog.Errorf("Unable to open DHT store: %v", err)
		return err
	}
	defer store.Close()

	localInfo := nodeState.LocalPeerInfo(
		identity.PeerID(kp.DeviceID().String()[:16]), nil,
		cfg.params.RelayMaxSessionBandwidth)
	dhtNode := dht.NewMemDHT(localInfo, dht.Config{
		K:            cfg.params.BucketSize,
		Alpha:        cfg.params.LookupAlpha,
		RoundTimeout: cfg.params.LookupRoundTimeout,
		Store:        store,
	})
	nexdLog.Infof("DHT ready: local peer %s (K=%d, alpha=%d)",
		dhtNode.LocalPeer().PeerID, cfg.params.BucketSize,
		cfg.params.LookupAlpha)

	walletState := wallet.NewMemWallet(kp, &cfg.params)
	relayMgr := relay.NewManager(relay.ConfigFromParams(&cfg.params))
	nexdLog.Infof("Wallet ready: balance %v, reputation %v, overdraft %v",
		walletState.Balance(), walletState.Reputation(),
		walletState.OverdraftLimit())
	nexdLog.Infof("Relay manager ready: %d session slots",
		cfg.params.RelayMaxSessions)

	// The observability server is strictly optional telemetry.
	var wsSrv *wsserver.Server
	if !cfg.NoWsServer {
		wsSrv = wsserver.New(wsserver.Config{
			Addr: cfg.Listen,
			Node: nodeState,
		})
		if err := wsSrv.Start(); err != nil {
			nexdLog.Errorf("Unable to start observability server: %v", err)
			return err
		}
		defer wsSrv.Stop()
	}

	nodeState.SetRole(wire.RoleIdle)
	nodeState.Heartbeat()
	nexdLog.Infof("Node started")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A fresh identity bootstraps its first tokens with the
	// proof-of-work ceremony in the background.
	mineDone := make(chan struct{})
	if created {
		go func() {
			defer close(mineDone)
			result, err := walletState.Mine(ctx)
			if err != nil {
				nexdLog.Warnf("Initial mining aborted: %v", err)
				return
			}
			nexdLog.Infof("Initial mining complete: %d NEXUS after "+
				"%d attempts in %v", result.Reward, result.Attempts,
				result.Elapsed)
		}()
	} else {
		close(mineDone)
	}

	// Wait until an interrupt signal is received.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	<-interrupt

	nexdLog.Infof("Shutting down...")
	cancel()
	<-mineDone

	stats := relayMgr.Stats()
	nexdLog.Infof("Relayed %d bytes across %d sessions",
		stats.TotalDataRelayed, stats.Sessions)
	return nil
}

// loadIdentity reads the Ed25519 seed from the key file, creating a new
// identity on first run.  The second return reports whether a fresh
// identity was generated.
func loadIdentity(path string) (*identity.Keypair, bool, error) {
	seedHex, err := os.ReadFile(path)
	if err == nil {
		seed, err := hex.DecodeString(string(seedHex))
		if err != nil {
			return nil, false, fmt.Errorf("malformed key file %s: %w", path, err)
		}
		kp, err := identity.KeypairFromSecret(seed)
		if err != nil {
			return nil, false, fmt.Errorf("malformed key file %s: %w", path, err)
		}
		return kp, false, nil
	}
	if !os.IsNotExist(err) {
		return nil, false, err
	}

	kp, err := identity.GenerateKeypair()
	if err != nil {
		return nil, false, err
	}
	encoded := hex.EncodeToString(kp.Secret())
	if err := os.WriteFile(path, []byte(encoded), 0600); err != nil {
		return nil, false, err
	}
	return kp, true, nil
}
