// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package token

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/nexusnet/nexusd/identity"
)

func TestAmountArithmetic(t *testing.T) {
	a := NewAmount(100)
	b := NewAmount(50)

	sum := a.SaturatingAdd(b)
	require.Equal(t, uint64(150), sum.Uint64())

	diff, ok := sum.CheckedSub(a)
	require.True(t, ok)
	require.Equal(t, uint64(50), diff.Uint64())

	// Underflow fails instead of wrapping.
	_, ok = b.CheckedSub(a)
	require.False(t, ok)

	// Overflow saturates.
	require.Equal(t, MaxAmount, MaxAmount.SaturatingAdd(NewAmount(1)))

	// Carry into the high word.
	carry := NewAmount(math.MaxUint64).SaturatingAdd(NewAmount(1))
	require.NotEqual(t, MaxAmount, carry)
	require.Equal(t, uint64(math.MaxUint64), carry.Uint64())

	back, ok := carry.CheckedSub(NewAmount(1))
	require.True(t, ok)
	require.Equal(t, uint64(math.MaxUint64), back.Uint64())
}

func TestAmountBytesRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := NewAmount(rapid.Uint64().Draw(t, "lo"))
		a = a.SaturatingAdd(NewAmount(rapid.Uint64().Draw(t, "extra")))
		decoded := AmountFromBytes(a.Bytes())
		if decoded.Cmp(a) != 0 {
			t.Fatalf("round trip mismatch: %v != %v", decoded, a)
		}
	})
}

func TestAmountString(t *testing.T) {
	require.Equal(t, "0 NEXUS", ZeroAmount.String())
	require.Equal(t, "42 NEXUS", NewAmount(42).String())

	// 2^64 exactly, exercising the high word.
	carry := NewAmount(math.MaxUint64).SaturatingAdd(NewAmount(1))
	require.Equal(t, "18446744073709551616 NEXUS", carry.String())
}

func TestRelayCost(t *testing.T) {
	const mb = uint64(1 << 20)

	// High reputation pays less than low reputation.
	costLow := RelayCost(10*mb, identity.NewReputationScore(100))
	costHigh := RelayCost(10*mb, identity.NewReputationScore(900))
	require.LessOrEqual(t, costHigh.Cmp(costLow), 0)

	// Top reputation: 10 MiB * (1 - 1000/2000) = 5.
	cost := RelayCost(10*mb, identity.NewReputationScore(1000))
	require.Equal(t, uint64(5), cost.Uint64())

	// Zero reputation pays the full rate.
	cost = RelayCost(10*mb, identity.NewReputationScore(0))
	require.Equal(t, uint64(10), cost.Uint64())

	// A tiny non-zero transfer still costs the minimum charge.
	cost = RelayCost(1, identity.NewReputationScore(1000))
	require.Equal(t, uint64(1), cost.Uint64())

	// Nothing relayed, nothing charged.
	require.True(t, RelayCost(0, identity.NewReputationScore(0)).IsZero())
}

func TestRelayEarnings(t *testing.T) {
	const mb = uint64(1 << 20)

	// High reputation earns more than low reputation.
	earnLow := RelayEarnings(10*mb, identity.NewReputationScore(100))
	earnHigh := RelayEarnings(10*mb, identity.NewReputationScore(900))
	require.GreaterOrEqual(t, earnHigh.Cmp(earnLow), 0)

	// Top reputation: 10 MiB * 1.5 = 15.
	earn := RelayEarnings(10*mb, identity.NewReputationScore(1000))
	require.Equal(t, uint64(15), earn.Uint64())

	// Earnings truncate: 1 MiB at rep 100 is 1.05 -> 1.
	earn = RelayEarnings(mb, identity.NewReputationScore(100))
	require.Equal(t, uint64(1), earn.Uint64())
}

func TestRelayMetered(t *testing.T) {
	const mb = uint64(1 << 20)

	// Whole MiB at the stock rate.
	require.Equal(t, uint64(5), RelayMetered(5*mb, 1).Uint64())

	// Fractions truncate.
	require.Equal(t, uint64(5), RelayMetered(5*mb+512<<10, 1).Uint64())
	require.Zero(t, RelayMetered(mb-1, 1).Uint64())

	// The rate scales linearly.
	require.Equal(t, uint64(15), RelayMetered(5*mb, 3).Uint64())
	require.True(t, RelayMetered(0, 10).IsZero())

	// The meter is reputation-blind: the reputation curves only diverge
	// from it on the selection side.
	require.Equal(t,
		RelayMetered(64*mb, 1),
		RelayEarnings(64*mb, identity.NewReputationScore(0)))
}

func TestPriorityScore(t *testing.T) {
	low := PriorityScore(identity.NewReputationScore(100), NewAmount(10))
	high := PriorityScore(identity.NewReputationScore(900), NewAmount(500))
	require.Greater(t, high, low)

	// Balance contribution caps at 1000 units.
	capped := PriorityScore(identity.NewReputationScore(0), NewAmount(1000))
	huge := PriorityScore(identity.NewReputationScore(0), NewAmount(1_000_000))
	require.Equal(t, capped, huge)

	// Full marks on both axes.
	require.InDelta(t, 1.0,
		PriorityScore(identity.NewReputationScore(1000), NewAmount(1000)),
		1e-9)
}
