// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package token

import (
	"math"

	"github.com/nexusnet/nexusd/identity"
)

// bytesPerMB is the metering unit for relay pricing.
const bytesPerMB = 1 << 20

// RelayCost returns the payer-side price for relaying the given number of
// bytes.  The base rate is one NEXUS per MiB, discounted by up to 50% for
// top reputation:
//
//	cost = (bytes / 1 MiB) * (1 - reputation/2000)
//
// The result is rounded up after the multiplication and any non-zero
// transfer costs at least one unit, the smallest representable non-zero
// charge.
func RelayCost(dataBytes uint64, rep identity.ReputationScore) Amount {
	if dataBytes == 0 {
		return ZeroAmount
	}
	mb := float64(dataBytes) / bytesPerMB
	discount := 1.0 - float64(rep.Value())/2000.0
	units := uint64(math.Ceil(mb * discount))
	if units == 0 {
		units = 1
	}
	return NewAmount(units)
}

// RelayEarnings returns the payee-side credit for relaying the given number
// of bytes.  The base rate is one NEXUS per MiB with up to a 50% bonus for
// top reputation:
//
//	earnings = (bytes / 1 MiB) * (1 + reputation/2000)
//
// The result truncates to whole units.
func RelayEarnings(dataBytes uint64, rep identity.ReputationScore) Amount {
	mb := float64(dataBytes) / bytesPerMB
	bonus := 1.0 + float64(rep.Value())/2000.0
	return NewAmount(uint64(mb * bonus))
}

// RelayMetered returns the flat metered amount for the given number of
// bytes at a relay's advertised rate:
//
//	amount = trunc((bytes / 1 MiB) * tokensPerMB)
//
// This is the canonical amount a relay stamps into a session receipt and
// the amount a wallet expects at settlement.  The reputation-adjusted
// RelayCost and RelayEarnings curves are what peers use to choose and
// price relays around this meter; they never appear in a receipt.
func RelayMetered(dataBytes, tokensPerMB uint64) Amount {
	mb := float64(dataBytes) / bytesPerMB
	return NewAmount(uint64(mb * float64(tokensPerMB)))
}

// PriorityScore combines reputation and balance into a [0,1] admission
// priority used by external policies.  Reputation carries 70% of the
// weight, balance (capped at 1000 units) the remaining 30%.
func PriorityScore(rep identity.ReputationScore, balance Amount) float64 {
	repScore := float64(rep.Value()) / 1000.0

	bal := balance.Uint64()
	if bal > 1000 {
		bal = 1000
	}
	balScore := float64(bal) / 1000.0

	return 0.7*repScore + 0.3*balScore
}
