// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package relay implements the bandwidth-selling side of the overlay: it
// admits relay sessions, meters the bytes they move, and turns finished
// sessions into receipts for the wallet layer to sign and settle.
package relay

import (
	"crypto/rand"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nexusnet/nexusd/chaincfg"
	"github.com/nexusnet/nexusd/identity"
	"github.com/nexusnet/nexusd/token"
	"github.com/nexusnet/nexusd/wire"
)

var (
	// ErrSessionCapacity is returned when the manager is at its
	// concurrent session limit.
	ErrSessionCapacity = errors.New("max relay sessions reached")

	// ErrInsufficientReputation is returned when a client's reputation
	// is below the admission threshold.
	ErrInsufficientReputation = errors.New("insufficient reputation for relay")

	// ErrSessionNotFound is returned when operating on an unknown
	// session.
	ErrSessionNotFound = errors.New("relay session not found")
)

// Config holds the admission and metering policy of a relay.
type Config struct {
	// MaxSessions is the number of concurrent sessions admitted before
	// refusing with ErrSessionCapacity.
	MaxSessions int

	// MaxBandwidthPerSession is the per-session bandwidth cap in bits
	// per second.
	MaxBandwidthPerSession uint64

	// MinReputation is the minimum client reputation for admission.
	MinReputation identity.ReputationScore

	// TokensPerMB is the metering rate in NEXUS units per MiB relayed.
	TokensPerMB uint64
}

// DefaultConfig returns the stock relay policy.
func DefaultConfig() Config {
	return Config{
		MaxSessions:            10,
		MaxBandwidthPerSession: 100_000_000,
		MinReputation:          identity.NewReputationScore(100),
		TokensPerMB:            1,
	}
}

// ConfigFromParams derives the relay policy from network parameters.
func ConfigFromParams(params *chaincfg.Params) Config {
	return Config{
		MaxSessions:            params.RelayMaxSessions,
		MaxBandwidthPerSession: params.RelayMaxSessionBandwidth,
		MinReputation:          identity.NewReputationScore(params.RelayMinReputation),
		TokensPerMB:            params.RelayTokensPerMB,
	}
}

// SessionState tracks a relay session through its lifecycle:
// Pending -> Active -> Closing -> Settled.
type SessionState uint8

const (
	// SessionPending is a session whose admission is still in flight.
	SessionPending SessionState = iota

	// SessionActive is an admitted session moving data.
	SessionActive

	// SessionClosing is a session whose receipt has been produced but
	// not yet countersigned.
	SessionClosing

	// SessionSettled is a session whose receipt both parties signed.
	SessionSettled
)

// String returns the SessionState in human-readable form.
func (s SessionState) String() string {
	switch s {
	case SessionPending:
		return "pending"
	case SessionActive:
		return "active"
	case SessionClosing:
		return "closing"
	case SessionSettled:
		return "settled"
	}
	return "unknown"
}

// Session is one metered relay session.
type Session struct {
	// ID uniquely identifies the session.
	ID wire.SessionID

	// Client is the peer buying the bandwidth.
	Client identity.PeerID

	// Target is the peer the client is relayed to.
	Target identity.PeerID

	// StartTime is when the session was admitted.
	StartTime time.Time

	// DataRelayed is the total bytes metered so far.
	DataRelayed uint64

	// CurrentBandwidth is the most recently observed throughput in
	// bits per second.
	CurrentBandwidth uint64

	// TokenRate is the metering rate the session was admitted under.
	TokenRate uint64

	// State is the lifecycle state.
	State SessionState
}

// session is the manager-internal session record.  Its mutex serializes
// per-session metering while distinct sessions meter concurrently.
type session struct {
	mtx sync.Mutex
	s   Session
}

// Stats accumulates a relay's lifetime counters.
type Stats struct {
	// Sessions is the number of completed sessions.
	Sessions uint64

	// TotalDuration is the summed duration of completed sessions in
	// seconds.
	TotalDuration uint64

	// TotalDataRelayed is the summed bytes of all metering updates.
	TotalDataRelayed uint64
}

// Manager admits, meters, and tears down relay sessions.  It is safe for
// concurrent access from multiple peers.
type Manager struct {
	// totalDataRelayed is accessed atomically by concurrent metering
	// updates.
	totalDataRelayed atomic.Uint64

	cfg Config

	mtx           sync.RWMutex
	sessions      map[wire.SessionID]*session
	doneSessions  uint64
	totalDuration uint64

	// now is the clock, swappable by tests.
	now func() time.Time
}

// NewManager returns a relay manager with the given policy.
func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:      cfg,
		sessions: make(map[wire.SessionID]*session),
		now:      time.Now,
	}
}

// newSessionID returns a fresh random session identifier.
func newSessionID() wire.SessionID {
	var id wire.SessionID
	if _, err := rand.Read(id[:]); err != nil {
		panic("relay: unable to read random session id: " + err.Error())
	}
	return id
}

// StartSession admits a new relay session for a client.  Admission fails
// with ErrSessionCapacity at the session limit and with
// ErrInsufficientReputation below the reputation threshold; a refused
// session leaves no state behind and the caller decides whether to try
// another relay.
func (m *Manager) StartSession(client, target identity.PeerID, clientRep identity.ReputationScore) (*Session, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if len(m.sessions) >= m.cfg.MaxSessions {
		return nil, ErrSessionCapacity
	}
	if clientRep < m.cfg.MinReputation {
		return nil, ErrInsufficientReputation
	}

	sess := &session{s: Session{
		ID:        newSessionID(),
		Client:    client,
		Target:    target,
		StartTime: m.now(),
		TokenRate: m.cfg.TokensPerMB,
		State:     SessionActive,
	}}
	m.sessions[sess.s.ID] = sess

	log.Debugf("Admitted relay session %x for %s -> %s",
		sess.s.ID[:8], client, target)

	out := sess.s
	return &out, nil
}

// RecordData meters bytes moved by a session and returns the pro-rated
// earnings for them.  Metering is safe under concurrent calls for distinct
// sessions; updates to one session are serialized.
func (m *Manager) RecordData(id wire.SessionID, bytes uint64) (token.Amount, error) {
	m.mtx.RLock()
	sess, ok := m.sessions[id]
	m.mtx.RUnlock()
	if !ok {
		return token.ZeroAmount, ErrSessionNotFound
	}

	sess.mtx.Lock()
	sess.s.DataRelayed += bytes
	sess.mtx.Unlock()

	m.totalDataRelayed.Add(bytes)

	return token.RelayMetered(bytes, m.cfg.TokensPerMB), nil
}

// EndSession tears a session down and returns its receipt with empty
// signature slots; the wallet layer of each party fills them before the
// mutual exchange.  The final amount truncates the metered MiB at the
// session's token rate.
func (m *Manager) EndSession(id wire.SessionID) (*wire.Receipt, error) {
	m.mtx.Lock()
	sess, ok := m.sessions[id]
	if !ok {
		m.mtx.Unlock()
		return nil, ErrSessionNotFound
	}
	delete(m.sessions, id)

	now := m.now()

	sess.mtx.Lock()
	sess.s.State = SessionClosing
	data := sess.s.DataRelayed
	start := sess.s.StartTime
	rate := sess.s.TokenRate
	sess.mtx.Unlock()

	duration := uint64(now.Sub(start) / time.Second)
	m.doneSessions++
	m.totalDuration += duration
	m.mtx.Unlock()

	amount := token.RelayMetered(data, rate)

	log.Debugf("Closed relay session %x: %d bytes over %ds for %v",
		id[:8], data, duration, amount)

	return &wire.Receipt{
		SessionID:   id,
		DataRelayed: data,
		Duration:    duration,
		Amount:      amount,
		Timestamp:   uint64(now.Unix()),
	}, nil
}

// ActiveSessions returns a snapshot of the sessions currently admitted.
func (m *Manager) ActiveSessions() []Session {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	out := make([]Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sess.mtx.Lock()
		out = append(out, sess.s)
		sess.mtx.Unlock()
	}
	return out
}

// NumActiveSessions returns the number of admitted sessions.
func (m *Manager) NumActiveSessions() int {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return len(m.sessions)
}

// Stats returns the relay's lifetime counters.
func (m *Manager) Stats() Stats {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return Stats{
		Sessions:         m.doneSessions,
		TotalDuration:    m.totalDuration,
		TotalDataRelayed: m.totalDataRelayed.Load(),
	}
}
