// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wsserver exposes the overlay's observability surface: a
// websocket endpoint streaming JSON events about peers and routing.  The
// surface is read-only telemetry for dashboards and debugging; nothing in
// the core depends on it.
package wsserver

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/btcsuite/websocket"
	"github.com/google/uuid"

	"github.com/nexusnet/nexusd/node"
	"github.com/nexusnet/nexusd/wire"
)

// Event type discriminators carried in the "type" field of every message.
const (
	EventWelcome       = "welcome"
	EventPeers         = "peers"
	EventRoutingStats  = "routing_stats"
	EventCommandResult = "command_result"
)

// peerSummary is the JSON shape of one known peer.
type peerSummary struct {
	PeerID     string `json:"peer_id"`
	DeviceID   string `json:"device_id"`
	Reputation uint64 `json:"reputation"`
	Role       string `json:"role"`
	Bandwidth  uint64 `json:"available_bandwidth"`
}

// routingStats is the JSON payload of a routing_stats event.
type routingStats struct {
	DeviceID        string  `json:"device_id"`
	Role            string  `json:"role"`
	Reputation      uint64  `json:"reputation"`
	KnownPeers      int     `json:"known_peers"`
	ActiveSessions  int     `json:"active_sessions"`
	WeightedRouting bool    `json:"weighted_routing"`
	AdvantageRatio  float64 `json:"advantage_ratio"`
}

// Config holds the server's collaborators and policy.
type Config struct {
	// Addr is the listen address, e.g. "127.0.0.1:8081".
	Addr string

	// Node is the node state the server reports on.
	Node *node.NodeState

	// AdvantageRatio, when non-nil, supplies the observed
	// reputation-routing advantage for routing_stats events.
	AdvantageRatio func() float64
}

// Server is the websocket observability server.
type Server struct {
	cfg Config

	mtx      sync.Mutex
	listener net.Listener
	httpSrv  *http.Server
	started  bool
	wg       sync.WaitGroup
}

// New returns a server for the given configuration.
func New(cfg Config) *Server {
	return &Server{cfg: cfg}
}

// Start binds the listener and serves websocket clients until Stop.
func (s *Server) Start() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.started {
		return nil
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebsocket)
	s.httpSrv = &http.Server{Handler: mux}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpSrv.Serve(listener); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Websocket server exited: %v", err)
		}
	}()

	s.started = true
	log.Infof("Observability server listening on %s", listener.Addr())
	return nil
}

// Stop closes the listener and waits for the serve loop to finish.
func (s *Server) Stop() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if !s.started {
		return nil
	}
	err := s.httpSrv.Close()
	s.wg.Wait()
	s.started = false
	return err
}

// Addr returns the bound listen address.
func (s *Server) Addr() net.Addr {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// handleWebsocket upgrades an HTTP request and runs the client loop.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	// Attempt to upgrade the connection to a websocket connection using
	// the default size for read/write buffers.
	ws, err := websocket.Upgrade(w, r, nil, 0, 0)
	if err != nil {
		if _, ok := err.(websocket.HandshakeError); ok {
			http.Error(w, "400 Bad Request", http.StatusBadRequest)
			return
		}
		log.Errorf("Unexpected websocket error: %v", err)
		return
	}

	clientID := uuid.New().String()
	log.Infof("New websocket client %s from %s", clientID, r.RemoteAddr)

	defer ws.Close()

	welcome := s.newEvent(EventWelcome, map[string]interface{}{
		"client_id": clientID,
		"message":   "connected to nexusd observability stream",
	})
	if err := s.writeEvent(ws, welcome); err != nil {
		return
	}

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			log.Debugf("Websocket client %s gone: %v", clientID, err)
			return
		}

		resp := s.handleCommand(payload)
		if err := s.writeEvent(ws, resp); err != nil {
			return
		}
	}
}

// writeEvent marshals and sends one event.
func (s *Server) writeEvent(ws *websocket.Conn, event map[string]interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, payload)
}

// newEvent stamps an event with its type discriminator and a Unix-seconds
// timestamp.
func (s *Server) newEvent(eventType string, fields map[string]interface{}) map[string]interface{} {
	event := map[string]interface{}{
		"type":      eventType,
		"timestamp": time.Now().Unix(),
	}
	for k, v := range fields {
		event[k] = v
	}
	return event
}

// handleCommand parses one client command and produces the response event.
func (s *Server) handleCommand(payload []byte) map[string]interface{} {
	var cmd struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return s.newEvent(EventCommandResult, map[string]interface{}{
			"success": false,
			"error":   "malformed command",
		})
	}

	switch cmd.Type {
	case EventPeers:
		return s.peersEvent()
	case EventRoutingStats:
		return s.routingStatsEvent()
	default:
		return s.newEvent(EventCommandResult, map[string]interface{}{
			"success": false,
			"error":   "unknown command: " + cmd.Type,
		})
	}
}

// peersEvent reports the node's known peers.
func (s *Server) peersEvent() map[string]interface{} {
	peers := s.cfg.Node.PeersByReputation()
	summaries := make([]peerSummary, 0, len(peers))
	for _, p := range peers {
		summaries = append(summaries, summarizePeer(p))
	}
	return s.newEvent(EventPeers, map[string]interface{}{
		"peers": summaries,
		"count": len(summaries),
	})
}

// routingStatsEvent reports the local node and routing counters.
func (s *Server) routingStatsEvent() map[string]interface{} {
	ns := s.cfg.Node

	var ratio float64
	if s.cfg.AdvantageRatio != nil {
		ratio = s.cfg.AdvantageRatio()
	}

	stats := routingStats{
		DeviceID:        ns.DeviceID().String(),
		Role:            ns.Role().String(),
		Reputation:      ns.Reputation().Value(),
		KnownPeers:      ns.NumPeers(),
		ActiveSessions:  len(ns.Sessions()),
		WeightedRouting: true,
		AdvantageRatio:  ratio,
	}
	return s.newEvent(EventRoutingStats, map[string]interface{}{
		"stats": stats,
	})
}

// summarizePeer converts a peer snapshot to its JSON shape.
func summarizePeer(p wire.PeerInfo) peerSummary {
	return peerSummary{
		PeerID:     p.PeerID.String(),
		DeviceID:   p.DeviceID.String(),
		Reputation: p.Reputation.Value(),
		Role:       p.Role.String(),
		Bandwidth:  p.AvailableBandwidth,
	}
}
