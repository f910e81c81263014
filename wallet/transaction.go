// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/nexusnet/nexusd/identity"
	"github.com/nexusnet/nexusd/token"
)

// TxKind classifies a wallet transaction.
type TxKind uint8

const (
	// TxMining is a credit from the proof-of-work ceremony.
	TxMining TxKind = iota

	// TxRelayEarnings is a credit from a settled relay receipt.
	TxRelayEarnings

	// TxRelayPayment is a debit paying for relayed bandwidth.
	TxRelayPayment

	// TxTransfer is a generic transfer, including channel funding and
	// refunds.
	TxTransfer

	// TxReward is a system reward.
	TxReward
)

// Map of transaction kinds back to their constant names for pretty
// printing.
var txKindStrings = map[TxKind]string{
	TxMining:        "mining",
	TxRelayEarnings: "relay-earnings",
	TxRelayPayment:  "relay-payment",
	TxTransfer:      "transfer",
	TxReward:        "reward",
}

// String returns the TxKind in human-readable form.
func (k TxKind) String() string {
	if s, ok := txKindStrings[k]; ok {
		return s
	}
	return fmt.Sprintf("unknown kind (%d)", uint8(k))
}

// TxID identifies a transaction in the wallet log.
type TxID [32]byte

// newTxID returns a fresh random transaction identifier.
func newTxID() TxID {
	var id TxID
	if _, err := rand.Read(id[:]); err != nil {
		panic("wallet: unable to read random transaction id: " + err.Error())
	}
	return id
}

// Transaction is one append-only entry of the wallet log.  Entries are
// never mutated after they are appended.
type Transaction struct {
	// ID uniquely identifies the entry.
	ID TxID

	// Kind classifies the entry.
	Kind TxKind

	// Amount is the magnitude of the credit or debit.
	Amount token.Amount

	// Counterparty names the other party when there is one.
	Counterparty identity.PeerID

	// Timestamp is when the entry was appended.
	Timestamp time.Time

	// Description is a short human-readable note.
	Description string
}
