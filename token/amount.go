// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package token

import (
	"encoding/binary"
	"math"
	"math/big"
	"math/bits"
)

// AmountSize is the size, in bytes, of the wire form of an Amount.
const AmountSize = 16

// Amount is a non-negative quantity of NEXUS, the smallest indivisible unit
// of the native token, held as a 128-bit unsigned integer.  Addition
// saturates at the maximum representable value and subtraction reports
// failure instead of wrapping.
type Amount struct {
	hi, lo uint64
}

// ZeroAmount is the zero token amount.
var ZeroAmount = Amount{}

// MaxAmount is the largest representable token amount.
var MaxAmount = Amount{hi: math.MaxUint64, lo: math.MaxUint64}

// NewAmount returns an Amount holding the given number of units.
func NewAmount(units uint64) Amount {
	return Amount{lo: units}
}

// AmountFromBytes decodes a big-endian 16-byte amount.
func AmountFromBytes(b [AmountSize]byte) Amount {
	return Amount{
		hi: binary.BigEndian.Uint64(b[:8]),
		lo: binary.BigEndian.Uint64(b[8:]),
	}
}

// Bytes returns the big-endian 16-byte wire form of the amount.
func (a Amount) Bytes() [AmountSize]byte {
	var b [AmountSize]byte
	binary.BigEndian.PutUint64(b[:8], a.hi)
	binary.BigEndian.PutUint64(b[8:], a.lo)
	return b
}

// SaturatingAdd returns a+b, saturating at MaxAmount on overflow.
func (a Amount) SaturatingAdd(b Amount) Amount {
	lo, carry := bits.Add64(a.lo, b.lo, 0)
	hi, carry := bits.Add64(a.hi, b.hi, carry)
	if carry != 0 {
		return MaxAmount
	}
	return Amount{hi: hi, lo: lo}
}

// CheckedSub returns a-b.  The second return is false when the subtraction
// would underflow, in which case the amount is unchanged semantics-wise and
// the zero value is returned.
func (a Amount) CheckedSub(b Amount) (Amount, bool) {
	lo, borrow := bits.Sub64(a.lo, b.lo, 0)
	hi, borrow := bits.Sub64(a.hi, b.hi, borrow)
	if borrow != 0 {
		return Amount{}, false
	}
	return Amount{hi: hi, lo: lo}, true
}

// Cmp compares two amounts, returning -1, 0, or 1.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a.hi < b.hi:
		return -1
	case a.hi > b.hi:
		return 1
	case a.lo < b.lo:
		return -1
	case a.lo > b.lo:
		return 1
	}
	return 0
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.hi == 0 && a.lo == 0
}

// Uint64 returns the amount as a uint64, clamping at MaxUint64 when the
// high word is in use.
func (a Amount) Uint64() uint64 {
	if a.hi != 0 {
		return math.MaxUint64
	}
	return a.lo
}

// String returns the amount in decimal followed by the unit name.
func (a Amount) String() string {
	v := new(big.Int).SetUint64(a.hi)
	v.Lsh(v, 64)
	v.Or(v, new(big.Int).SetUint64(a.lo))
	return v.String() + " NEXUS"
}
