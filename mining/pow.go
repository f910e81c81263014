// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"context"
	"encoding/binary"
	"math/bits"
	"runtime"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	// yieldInterval is the number of hash attempts between cooperative
	// yield points.  The solver checks for cancellation and yields the
	// processor at every boundary so a tight mining loop cannot starve
	// other work sharing the scheduler.
	yieldInterval = 100_000

	// MaxDifficulty is the largest meaningful difficulty: a 32-byte
	// hash cannot have more than 256 leading zero bits.
	MaxDifficulty = 256
)

// solutionHash computes h(n) = SHA256(SHA256(seed) || be64(n)).  The seed
// is pre-hashed once by the caller.
func solutionHash(seedHash []byte, nonce uint64) []byte {
	var buf [chainhash.HashSize + 8]byte
	copy(buf[:chainhash.HashSize], seedHash)
	binary.BigEndian.PutUint64(buf[chainhash.HashSize:], nonce)
	return chainhash.HashB(buf[:])
}

// leadingZeroBits counts the number of leading zero bits of a hash
// interpreted as a big-endian integer.
func leadingZeroBits(h []byte) uint32 {
	var count uint32
	for _, b := range h {
		if b == 0 {
			count += 8
			continue
		}
		count += uint32(bits.LeadingZeros8(b))
		break
	}
	return count
}

// Solve searches nonces 0, 1, 2, ... for the first one whose solution hash
// has at least difficulty leading zero bits.  The search honors ctx and
// yields the processor every yieldInterval attempts; when canceled it
// returns ctx's error with the number of attempts made so far.
func Solve(ctx context.Context, seed []byte, difficulty uint32) (uint64, uint64, error) {
	seedHash := chainhash.HashB(seed)

	var attempts uint64
	for nonce := uint64(0); ; nonce++ {
		if leadingZeroBits(solutionHash(seedHash, nonce)) >= difficulty {
			return nonce, attempts + 1, nil
		}
		attempts++

		if attempts%yieldInterval == 0 {
			select {
			case <-ctx.Done():
				return 0, attempts, ctx.Err()
			default:
			}
			runtime.Gosched()
		}
	}
}

// VerifySolution reports whether nonce solves the puzzle for the given seed
// at the given difficulty.
func VerifySolution(seed []byte, nonce uint64, difficulty uint32) bool {
	seedHash := chainhash.HashB(seed)
	return leadingZeroBits(solutionHash(seedHash, nonce)) >= difficulty
}
