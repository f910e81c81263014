// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wallet implements the token economy side of the overlay: balances
// with a reputation-indexed overdraft, an append-only transaction log,
// payment channels, proof-of-work minting, and relay receipt settlement.
package wallet

import (
	"context"
	"crypto/ed25519"
	"sync"
	"time"

	"github.com/nexusnet/nexusd/chaincfg"
	"github.com/nexusnet/nexusd/identity"
	"github.com/nexusnet/nexusd/mining"
	"github.com/nexusnet/nexusd/token"
	"github.com/nexusnet/nexusd/wire"
)

// Wallet is the capability set of the token economy.  Consumers depend
// only on these operations, never on a concrete implementation: MemWallet
// serves simulation and single-process nodes while a network-backed
// implementation settles against remote parties.
type Wallet interface {
	// Balance returns the non-negative spendable balance.
	Balance() token.Amount

	// EffectiveBalance returns the balance plus the unused overdraft
	// allowance.
	EffectiveBalance() token.Amount

	// OverdraftLimit returns the reputation-indexed overdraft
	// allowance.
	OverdraftLimit() token.Amount

	// CanPay reports whether an amount is payable from the effective
	// balance.
	CanPay(amount token.Amount) bool

	// Spend debits the wallet, drawing on the overdraft when the cash
	// balance is short.  A failed spend leaves the wallet unchanged and
	// appends nothing.
	Spend(amount token.Amount, kind TxKind, desc string, counterparty identity.PeerID) error

	// AddTokens credits the wallet and appends a transaction of the
	// given kind.
	AddTokens(amount token.Amount, kind TxKind, desc string)

	// Mine runs the proof-of-work ceremony seeded by the wallet's
	// DeviceID and credits the reward on success.
	Mine(ctx context.Context) (*mining.Result, error)

	// OpenChannel locks capacity from the balance into a fresh payment
	// channel with the peer.
	OpenChannel(peer identity.PeerID, capacity token.Amount) (*Channel, error)

	// ApplyChannelUpdate applies a cooperative channel state update.
	// Stale updates are ignored without error.
	ApplyChannelUpdate(peer identity.PeerID, update *ChannelUpdate) error

	// CloseChannel settles a channel and credits the local side's
	// balance back to the wallet, returning the refunded amount.
	CloseChannel(peer identity.PeerID) (token.Amount, error)

	// SubmitRelayProof settles a fully signed relay receipt, crediting
	// the amount and bumping reputation.  Resubmission of an applied
	// receipt is a no-op.
	SubmitRelayProof(receipt *wire.Receipt, clientPub ed25519.PublicKey) error

	// Reputation returns the wallet's reputation score.
	Reputation() identity.ReputationScore

	// Transactions returns a copy of the append-only transaction log.
	Transactions() []Transaction

	// Channels returns a copy of the open channel set.
	Channels() []Channel

	// TotalEarned returns the lifetime credited amount.
	TotalEarned() token.Amount

	// TotalSpent returns the lifetime debited amount.
	TotalSpent() token.Amount
}

// Ensure MemWallet satisfies the Wallet interface.
var _ Wallet = (*MemWallet)(nil)

// MemWallet is the in-memory Wallet implementation.  A single mutex owns
// every field, so all operations are atomic with respect to each other.
type MemWallet struct {
	mtx sync.Mutex

	keypair *identity.Keypair
	params  *chaincfg.Params
	miner   *mining.Miner

	balance        token.Amount
	overdraftUsed  token.Amount
	overdraftLimit token.Amount
	reputation     identity.ReputationScore
	totalEarned    token.Amount
	totalSpent     token.Amount

	channels     map[identity.PeerID]*Channel
	transactions []Transaction

	// appliedReceipts makes receipt settlement idempotent by session.
	appliedReceipts map[wire.SessionID]struct{}

	// now is the clock, swappable by tests.
	now func() time.Time
}

// NewMemWallet returns an empty wallet owned by the given keypair, using
// the overdraft curve, mining schedule, and receipt policy of the supplied
// network parameters.
func NewMemWallet(kp *identity.Keypair, params *chaincfg.Params) *MemWallet {
	w := &MemWallet{
		keypair: kp,
		params:  params,
		miner: mining.NewMiner(mining.Config{
			NewUserDifficulty:       params.NewUserPowDifficulty,
			ReturningUserDifficulty: params.ReturningUserPowDifficulty,
			Reward:                  params.PowReward,
		}),
		reputation:      identity.ReputationScore(identity.DefaultReputation),
		channels:        make(map[identity.PeerID]*Channel),
		appliedReceipts: make(map[wire.SessionID]struct{}),
		now:             time.Now,
	}
	w.overdraftLimit = w.computeOverdraftLimit()
	return w
}

// NewMemWalletWithBalance returns a wallet pre-funded with an initial
// balance.  The initial balance is the baseline of the conservation
// invariant, so no transaction is appended for it.
func NewMemWalletWithBalance(kp *identity.Keypair, params *chaincfg.Params, initial token.Amount) *MemWallet {
	w := NewMemWallet(kp, params)
	w.balance = initial
	return w
}

// DeviceID returns the identifier of the owning identity.
func (w *MemWallet) DeviceID() identity.DeviceID {
	return w.keypair.DeviceID()
}

// computeOverdraftLimit evaluates the overdraft curve
// base + reputation/10 for the current reputation.  Callers hold the
// mutex or run before the wallet is shared.
func (w *MemWallet) computeOverdraftLimit() token.Amount {
	bonus := w.reputation.Value() / 10 * w.params.OverdraftPerRep10
	return token.NewAmount(w.params.OverdraftBase + bonus)
}

// Balance returns the non-negative spendable balance.
func (w *MemWallet) Balance() token.Amount {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.balance
}

// OverdraftLimit returns the cached reputation-indexed overdraft
// allowance.
func (w *MemWallet) OverdraftLimit() token.Amount {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.overdraftLimit
}

// Reputation returns the wallet's reputation score.
func (w *MemWallet) Reputation() identity.ReputationScore {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.reputation
}

// effectiveBalance is the balance plus unused overdraft.  Callers hold the
// mutex.
func (w *MemWallet) effectiveBalance() token.Amount {
	headroom, ok := w.overdraftLimit.CheckedSub(w.overdraftUsed)
	if !ok {
		// A reputation drop can shrink the limit below the debt; no
		// headroom remains until the debt is repaid.
		headroom = token.ZeroAmount
	}
	return w.balance.SaturatingAdd(headroom)
}

// EffectiveBalance returns the balance plus the unused overdraft
// allowance.
func (w *MemWallet) EffectiveBalance() token.Amount {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.effectiveBalance()
}

// CanPay reports whether an amount is payable from the effective balance.
func (w *MemWallet) CanPay(amount token.Amount) bool {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.effectiveBalance().Cmp(amount) >= 0
}

// appendTx appends one log entry.  Callers hold the mutex.
func (w *MemWallet) appendTx(kind TxKind, amount token.Amount, counterparty identity.PeerID, desc string) {
	w.transactions = append(w.transactions, Transaction{
		ID:           newTxID(),
		Kind:         kind,
		Amount:       amount,
		Counterparty: counterparty,
		Timestamp:    w.now(),
		Description:  desc,
	})
}

// credit adds an amount to the balance, repaying outstanding overdraft
// debt first.  Callers hold the mutex.
func (w *MemWallet) credit(amount token.Amount) {
	w.balance = w.balance.SaturatingAdd(amount)
	if w.overdraftUsed.IsZero() {
		return
	}
	repay := w.overdraftUsed
	if w.balance.Cmp(repay) < 0 {
		repay = w.balance
	}
	w.balance, _ = w.balance.CheckedSub(repay)
	w.overdraftUsed, _ = w.overdraftUsed.CheckedSub(repay)
}

// debit removes an amount from the balance, drawing the shortfall from the
// overdraft.  Callers hold the mutex and have already checked CanPay.
func (w *MemWallet) debit(amount token.Amount) {
	if rest, ok := w.balance.CheckedSub(amount); ok {
		w.balance = rest
		return
	}
	shortfall, _ := amount.CheckedSub(w.balance)
	w.balance = token.ZeroAmount
	w.overdraftUsed = w.overdraftUsed.SaturatingAdd(shortfall)
}

// AddTokens credits the wallet and appends a transaction of the given
// kind.
func (w *MemWallet) AddTokens(amount token.Amount, kind TxKind, desc string) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	w.credit(amount)
	w.totalEarned = w.totalEarned.SaturatingAdd(amount)
	w.appendTx(kind, amount, "", desc)

	log.Debugf("Credited %v (%v): %s", amount, kind, desc)
}

// Spend debits the wallet.  It fails with ErrInsufficientFunds when the
// amount exceeds the effective balance and in that case leaves the wallet
// unchanged with nothing appended to the log.
func (w *MemWallet) Spend(amount token.Amount, kind TxKind, desc string, counterparty identity.PeerID) error {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if w.effectiveBalance().Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}

	w.debit(amount)
	w.totalSpent = w.totalSpent.SaturatingAdd(amount)
	w.appendTx(kind, amount, counterparty, desc)

	log.Debugf("Spent %v (%v): %s", amount, kind, desc)
	return nil
}

// Mine runs the proof-of-work ceremony seeded by the wallet's DeviceID at
// the new-user difficulty and credits the reward on success.  Concurrent
// attempts are harmless: the puzzle is deterministic given seed and
// difficulty, and each successful solve credits exactly once.
func (w *MemWallet) Mine(ctx context.Context) (*mining.Result, error) {
	seed := w.keypair.DeviceID()

	result, err := w.miner.Mine(ctx, seed[:])
	if err != nil {
		return nil, err
	}

	w.AddTokens(token.NewAmount(result.Reward), TxMining, "proof-of-work reward")
	return result, nil
}

// OpenChannel locks capacity from the balance into a fresh payment channel
// with the peer.  The debit is atomic with the channel creation.
func (w *MemWallet) OpenChannel(peer identity.PeerID, capacity token.Amount) (*Channel, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if _, ok := w.channels[peer]; ok {
		return nil, ErrChannelExists
	}
	if w.effectiveBalance().Cmp(capacity) < 0 {
		return nil, ErrInsufficientFunds
	}

	w.debit(capacity)

	ch := &Channel{
		ID:           newChannelID(),
		PeerID:       peer,
		Capacity:     capacity,
		OurBalance:   capacity,
		TheirBalance: token.ZeroAmount,
		LastUpdate:   w.now(),
		Status:       ChannelOpen,
	}
	w.channels[peer] = ch
	w.appendTx(TxTransfer, capacity, peer, "channel funding")

	log.Debugf("Opened channel %x with %s, capacity %v", ch.ID[:8], peer, capacity)

	chCopy := *ch
	return &chCopy, nil
}

// ApplyChannelUpdate applies a cooperative state update to the channel
// with the peer.  Updates whose sequence is not beyond the last applied
// one are ignored without error; updates that do not conserve the channel
// capacity are rejected.
//
// The update's signature slots are produced and checked over
// ChannelUpdate.SigHash by the session layer that holds the peer's public
// key (see ChannelUpdate.VerifyTheirSig); the wallet applies the
// already-verified state.
func (w *MemWallet) ApplyChannelUpdate(peer identity.PeerID, update *ChannelUpdate) error {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	ch, ok := w.channels[peer]
	if !ok {
		return ErrChannelNotFound
	}
	if ch.Status != ChannelOpen {
		return ErrChannelClosed
	}
	if update.ChannelID != ch.ID {
		return ErrChannelNotFound
	}
	if update.Sequence <= ch.lastSequence {
		log.Debugf("Ignoring stale update %d for channel %x",
			update.Sequence, ch.ID[:8])
		return nil
	}
	if update.OurBalance.SaturatingAdd(update.TheirBalance).Cmp(ch.Capacity) != 0 {
		return ErrChannelBalance
	}

	ch.OurBalance = update.OurBalance
	ch.TheirBalance = update.TheirBalance
	ch.lastSequence = update.Sequence
	ch.LastUpdate = w.now()
	return nil
}

// CloseChannel settles the channel with the peer and credits the local
// side's balance back to the wallet.
func (w *MemWallet) CloseChannel(peer identity.PeerID) (token.Amount, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	ch, ok := w.channels[peer]
	if !ok {
		return token.ZeroAmount, ErrChannelNotFound
	}
	delete(w.channels, peer)

	refund := ch.OurBalance
	ch.Status = ChannelClosed
	w.credit(refund)
	w.appendTx(TxTransfer, refund, peer, "channel settlement")

	log.Debugf("Closed channel %x with %s, refunded %v", ch.ID[:8], peer, refund)
	return refund, nil
}

// SubmitRelayProof settles a fully signed relay receipt.  Both signatures
// must verify over the receipt's canonical bytes: the relay signature
// against this wallet's own key and the client signature against the given
// client key.  The amount must match the flat metered rate for the
// receipt's data within rounding, and the timestamp must be neither in the
// future nor older than the acceptance window.  A receipt already applied
// for its session is a no-op rather than a double credit.
func (w *MemWallet) SubmitRelayProof(receipt *wire.Receipt, clientPub ed25519.PublicKey) error {
	w.mtx.Lock()

	if _, done := w.appliedReceipts[receipt.SessionID]; done {
		w.mtx.Unlock()
		log.Debugf("Receipt for session %x already applied",
			receipt.SessionID[:8])
		return nil
	}

	now := w.now()
	w.mtx.Unlock()

	sigHash := receipt.SigHash()
	if !w.keypair.Verify(sigHash, receipt.RelaySig) {
		return ErrReceiptSignature
	}
	if !identity.VerifySignature(clientPub, sigHash, receipt.ClientSig) {
		return ErrReceiptSignature
	}

	ts := time.Unix(int64(receipt.Timestamp), 0)
	if ts.After(now) {
		return ErrReceiptFromFuture
	}
	if now.Sub(ts) > w.params.ReceiptMaxAge {
		return ErrReceiptExpired
	}

	// The amount must match the flat metered rate a relay stamps into
	// its receipts, within one unit of rounding slack.  The
	// reputation-adjusted pricing curves govern relay selection, never
	// the receipt itself.
	want := token.RelayMetered(receipt.DataRelayed, w.params.RelayTokensPerMB)
	diff, ok := want.CheckedSub(receipt.Amount)
	if !ok {
		diff, _ = receipt.Amount.CheckedSub(want)
	}
	if diff.Cmp(token.NewAmount(1)) > 0 {
		return ErrReceiptAmount
	}

	w.mtx.Lock()
	defer w.mtx.Unlock()

	// Re-check under the lock: a concurrent submission may have won.
	if _, done := w.appliedReceipts[receipt.SessionID]; done {
		return nil
	}
	w.appliedReceipts[receipt.SessionID] = struct{}{}

	w.credit(receipt.Amount)
	w.totalEarned = w.totalEarned.SaturatingAdd(receipt.Amount)
	w.appendTx(TxRelayEarnings, receipt.Amount, "", "relay receipt settlement")

	w.reputation = w.reputation.Increase(1)
	w.overdraftLimit = w.computeOverdraftLimit()

	log.Infof("Settled receipt for session %x: %v, reputation %v",
		receipt.SessionID[:8], receipt.Amount, w.reputation)
	return nil
}

// Transactions returns a copy of the append-only transaction log in
// application order.
func (w *MemWallet) Transactions() []Transaction {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	out := make([]Transaction, len(w.transactions))
	copy(out, w.transactions)
	return out
}

// Channels returns a copy of the open channel set.
func (w *MemWallet) Channels() []Channel {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	out := make([]Channel, 0, len(w.channels))
	for _, ch := range w.channels {
		out = append(out, *ch)
	}
	return out
}

// TotalEarned returns the lifetime credited amount.
func (w *MemWallet) TotalEarned() token.Amount {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.totalEarned
}

// TotalSpent returns the lifetime debited amount.
func (w *MemWallet) TotalSpent() token.Amount {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.totalSpent
}

// OverdraftUsed returns the outstanding overdraft debt.
func (w *MemWallet) OverdraftUsed() token.Amount {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	return w.overdraftUsed
}
