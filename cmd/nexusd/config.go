// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/go-socks/socks"
	flags "github.com/jessevdk/go-flags"

	"github.com/nexusnet/nexusd/chaincfg"
)

const (
	defaultLogFilename = "nexusd.log"
	defaultKeyFilename = "nexusd.key"
	defaultDebugLevel  = "info"
	defaultListenAddr  = "127.0.0.1:8081"
)

var (
	defaultHomeDir = btcutil.AppDataDir("nexusd", false)
	defaultDataDir = filepath.Join(defaultHomeDir, "data")
	defaultLogDir  = filepath.Join(defaultHomeDir, "logs")
)

// config defines the configuration options for nexusd.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	DataDir     string `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir      string `long:"logdir" description:"Directory to log output"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	SimNet      bool   `long:"simnet" description:"Use the simulation test network"`
	Listen      string `long:"listen" description:"Listen address of the websocket observability server"`
	NoWsServer  bool   `long:"nowsserver" description:"Disable the websocket observability server"`
	Proxy       string `long:"proxy" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyUser   string `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass   string `long:"proxypass" default-mask:"-" description:"Password for proxy server"`

	BucketSize       int    `long:"k" description:"Routing table bucket size and lookup width"`
	LookupAlpha      int    `long:"alpha" description:"Iterative lookup parallelism"`
	PowNewDiff       uint32 `long:"pownewdiff" description:"Proof-of-work difficulty for new identities"`
	PowReturningDiff uint32 `long:"powretdiff" description:"Proof-of-work difficulty for returning identities"`
	PowReward        uint64 `long:"powreward" description:"Token reward for a successful mining ceremony"`
	MaxRelaySessions int    `long:"maxrelaysessions" description:"Maximum concurrent relay sessions"`
	MaxRelayBW       uint64 `long:"maxrelaybandwidth" description:"Per-session relay bandwidth cap in bits per second"`
	MinRelayRep      uint64 `long:"minrelayreputation" description:"Minimum client reputation for relay admission"`
	RelayTokensPerMB uint64 `long:"relaytokenspermb" description:"Relay metering rate in NEXUS per MiB"`
	OverdraftBase    uint64 `long:"overdraftbase" description:"Overdraft allowance at zero reputation"`
	OverdraftPerRep  uint64 `long:"overdraftperrep10" description:"Additional overdraft per ten points of reputation"`

	// dial connects to the given TCP address, optionally through the
	// configured proxy.
	dial func(network, addr string, timeout time.Duration) (net.Conn, error)

	// params is the active overlay parameter set after command line
	// overrides.
	params chaincfg.Params
}

// loadConfig initializes and parses the config using command line options.
//
// The configuration proceeds from sane defaults, to the active network's
// parameters, to command line overrides, so later sources take precedence.
func loadConfig() (*config, []string, error) {
	cfg := config{
		DataDir:    defaultDataDir,
		LogDir:     defaultLogDir,
		DebugLevel: defaultDebugLevel,
		Listen:     defaultListenAddr,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, nil, err
	}

	// Pick the active network and layer the command line overrides over
	// its parameters.
	cfg.params = chaincfg.MainNetParams
	netDir := "mainnet"
	if cfg.SimNet {
		cfg.params = chaincfg.SimNetParams
		netDir = "simnet"
	}
	if cfg.BucketSize > 0 {
		cfg.params.BucketSize = cfg.BucketSize
	}
	if cfg.LookupAlpha > 0 {
		cfg.params.LookupAlpha = cfg.LookupAlpha
	}
	if cfg.PowNewDiff > 0 {
		cfg.params.NewUserPowDifficulty = cfg.PowNewDiff
	}
	if cfg.PowReturningDiff > 0 {
		cfg.params.ReturningUserPowDifficulty = cfg.PowReturningDiff
	}
	if cfg.PowReward > 0 {
		cfg.params.PowReward = cfg.PowReward
	}
	if cfg.MaxRelaySessions > 0 {
		cfg.params.RelayMaxSessions = cfg.MaxRelaySessions
	}
	if cfg.MaxRelayBW > 0 {
		cfg.params.RelayMaxSessionBandwidth = cfg.MaxRelayBW
	}
	if cfg.MinRelayRep > 0 {
		cfg.params.RelayMinReputation = cfg.MinRelayRep
	}
	if cfg.RelayTokensPerMB > 0 {
		cfg.params.RelayTokensPerMB = cfg.RelayTokensPerMB
	}
	if cfg.OverdraftBase > 0 {
		cfg.params.OverdraftBase = cfg.OverdraftBase
	}
	if cfg.OverdraftPerRep > 0 {
		cfg.params.OverdraftPerRep10 = cfg.OverdraftPerRep
	}

	// Keep the data of each network in its own directory.
	cfg.DataDir = filepath.Join(cfg.DataDir, netDir)
	cfg.LogDir = filepath.Join(cfg.LogDir, netDir)

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Initialize log rotation.  After log rotation has been initialized,
	// the logger variables may be used.
	initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return nil, nil, fmt.Errorf("%w\nThe valid debug levels are "+
			"{trace, debug, info, warn, error, critical}", err)
	}

	if !cfg.NoWsServer {
		if _, _, err := net.SplitHostPort(cfg.Listen); err != nil {
			return nil, nil, fmt.Errorf("invalid listen address %q: %w",
				cfg.Listen, err)
		}
	}

	// Setup dial function depending on the specified options.  The
	// default is to use the standard net.DialTimeout function.  When a
	// proxy is specified, the dial function is set to the proxy specific
	// dial function.
	cfg.dial = net.DialTimeout
	if cfg.Proxy != "" {
		if _, _, err := net.SplitHostPort(cfg.Proxy); err != nil {
			return nil, nil, fmt.Errorf("invalid proxy address %q: %w",
				cfg.Proxy, err)
		}
		proxy := &socks.Proxy{
			Addr:     cfg.Proxy,
			Username: cfg.ProxyUser,
			Password: cfg.ProxyPass,
		}
		cfg.dial = proxy.DialTimeout
	}

	return &cfg, remainingArgs, nil
}

// keyFilePath returns the location of the identity key file.
func (cfg *config) keyFilePath() string {
	return filepath.Join(cfg.DataDir, defaultKeyFilename)
}
