// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"context"
	"math"
	"sync"
	"time"
)

const (
	// hpsUpdateSecs is the number of seconds to wait in between each
	// update to the hashes per second monitor.
	hpsUpdateSecs = 10
)

// Config holds the tunable parameters of the proof-of-work ceremony.
type Config struct {
	// NewUserDifficulty is the leading-zero-bit requirement for a fresh
	// identity bootstrapping its first tokens.
	NewUserDifficulty uint32

	// ReturningUserDifficulty is the leading-zero-bit requirement for an
	// identity that has mined before.
	ReturningUserDifficulty uint32

	// Reward is the number of NEXUS units credited for a successful
	// solve.
	Reward uint64
}

// DefaultConfig returns the production difficulty schedule.
func DefaultConfig() Config {
	return Config{
		NewUserDifficulty:       16,
		ReturningUserDifficulty: 20,
		Reward:                  10,
	}
}

// Result describes a completed solve.
type Result struct {
	// Nonce is the winning nonce.
	Nonce uint64

	// Attempts is the number of hashes evaluated.
	Attempts uint64

	// Elapsed is the wall-clock search time.
	Elapsed time.Duration

	// Reward is the token reward earned, in NEXUS units.
	Reward uint64
}

// Miner provides facilities for solving the seeded hash puzzle used both
// for initial token minting and as an anti-Sybil gate on new identities.
// It is safe for concurrent use; the puzzle is deterministic given seed and
// difficulty, so concurrent attempts over the same seed are harmless and
// the first win commits.
type Miner struct {
	cfg Config

	mtx              sync.Mutex
	started          bool
	updateHashes     chan uint64
	speedMonitorQuit chan struct{}
	quit             chan struct{}
	wg               sync.WaitGroup
}

// NewMiner returns a new miner with the given configuration.
func NewMiner(cfg Config) *Miner {
	return &Miner{
		cfg:          cfg,
		updateHashes: make(chan uint64),
	}
}

// speedMonitor handles tracking the number of hashes per second the mining
// process is performing.  It must be run as a goroutine.
func (m *Miner) speedMonitor(quit chan struct{}) {
	log.Tracef("PoW speed monitor started")

	var hashesPerSec uint64
	var totalHashes uint64
	ticker := time.NewTicker(time.Second * hpsUpdateSecs)
	defer ticker.Stop()

out:
	for {
		select {
		// Periodic update to the hashes per second monitor.
		case numHashes := <-m.updateHashes:
			totalHashes += numHashes

		case <-ticker.C:
			curHashesPerSec := totalHashes / hpsUpdateSecs
			if curHashesPerSec != hashesPerSec {
				log.Infof("Hash speed: %d kilohashes/s",
					curHashesPerSec/1000)
				hashesPerSec = curHashesPerSec
			}
			totalHashes = 0

		// Request to shutdown the speed monitor.
		case <-quit:
			break out
		}
	}

	m.wg.Done()
	log.Tracef("PoW speed monitor done")
}

// Start launches the background speed monitor.  Calling Start is optional;
// Mine works without it and simply reports no hash speed.
func (m *Miner) Start() {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.started {
		return
	}
	m.speedMonitorQuit = make(chan struct{})
	m.quit = make(chan struct{})
	m.wg.Add(1)
	go m.speedMonitor(m.speedMonitorQuit)
	m.started = true

	log.Infof("PoW miner started")
}

// Stop shuts down the background speed monitor and waits for it to finish.
func (m *Miner) Stop() {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if !m.started {
		return
	}
	close(m.speedMonitorQuit)
	close(m.quit)
	m.wg.Wait()
	m.started = false

	log.Infof("PoW miner stopped")
}

// reportHashes feeds the speed monitor without blocking when it is not
// running or busy.
func (m *Miner) reportHashes(n uint64) {
	m.mtx.Lock()
	started := m.started
	quit := m.quit
	m.mtx.Unlock()
	if !started {
		return
	}
	select {
	case m.updateHashes <- n:
	case <-quit:
	default:
	}
}

// Mine runs the new-user ceremony over the given seed and returns the
// winning nonce along with search statistics.  The search is cooperative:
// it periodically yields and honors ctx cancellation.
func (m *Miner) Mine(ctx context.Context, seed []byte) (*Result, error) {
	return m.mine(ctx, seed, m.cfg.NewUserDifficulty)
}

// MineReturning runs the returning-user ceremony over the given seed.
func (m *Miner) MineReturning(ctx context.Context, seed []byte) (*Result, error) {
	return m.mine(ctx, seed, m.cfg.ReturningUserDifficulty)
}

func (m *Miner) mine(ctx context.Context, seed []byte, difficulty uint32) (*Result, error) {
	log.Debugf("Solving puzzle at difficulty %d", difficulty)

	start := time.Now()
	nonce, attempts, err := Solve(ctx, seed, difficulty)
	m.reportHashes(attempts)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	log.Infof("Puzzle solved: nonce %d after %d attempts in %v",
		nonce, attempts, elapsed)

	return &Result{
		Nonce:    nonce,
		Attempts: attempts,
		Elapsed:  elapsed,
		Reward:   m.cfg.Reward,
	}, nil
}

// Verify checks a solution against the difficulty schedule.  New identities
// are held to the new-user difficulty, returning identities to the higher
// returning-user difficulty.
func (m *Miner) Verify(seed []byte, nonce uint64, newUser bool) bool {
	difficulty := m.cfg.ReturningUserDifficulty
	if newUser {
		difficulty = m.cfg.NewUserDifficulty
	}
	return VerifySolution(seed, nonce, difficulty)
}

// EstimateSolveTime returns a rough expected search duration for the given
// difficulty, anchored at one second for difficulty 16 on a typical CPU.
// Each additional bit doubles the expectation.
func (m *Miner) EstimateSolveTime(difficulty uint32) time.Duration {
	const baseDifficulty = 16
	base := float64(time.Second)
	secs := base * math.Pow(2, float64(int64(difficulty)-baseDifficulty))
	if secs > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(secs)
}
