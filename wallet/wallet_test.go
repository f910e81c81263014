// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/nexusnet/nexusd/chaincfg"
	"github.com/nexusnet/nexusd/identity"
	"github.com/nexusnet/nexusd/token"
	"github.com/nexusnet/nexusd/wire"
)

// newTestWallet returns a wallet on simnet parameters so mining difficulty
// stays test-sized.
func newTestWallet(t *testing.T, initial uint64) *MemWallet {
	t.Helper()
	kp, err := identity.GenerateKeypair()
	require.NoError(t, err)
	return NewMemWalletWithBalance(kp, &chaincfg.SimNetParams,
		token.NewAmount(initial))
}

func TestWalletRoundTrip(t *testing.T) {
	// Fresh wallet: balance 0, reputation 100, so the overdraft curve
	// gives 50 + 100/10 = 60.
	w := newTestWallet(t, 0)
	require.Equal(t, uint64(60), w.OverdraftLimit().Uint64())

	require.True(t, w.CanPay(token.NewAmount(25)))
	require.False(t, w.CanPay(token.NewAmount(200)))

	w.AddTokens(token.NewAmount(100), TxMining, "ceremony")
	require.Equal(t, uint64(100), w.Balance().Uint64())
	require.True(t, w.CanPay(token.NewAmount(149)))

	require.NoError(t, w.Spend(token.NewAmount(50), TxTransfer, "test", ""))
	require.Equal(t, uint64(50), w.Balance().Uint64())
	require.Len(t, w.Transactions(), 2)
}

func TestSpendAtomicOnFailure(t *testing.T) {
	w := newTestWallet(t, 10)

	err := w.Spend(token.NewAmount(1_000_000), TxTransfer, "too much", "peer")
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// The failed spend left no trace.
	require.Equal(t, uint64(10), w.Balance().Uint64())
	require.Empty(t, w.Transactions())
	require.True(t, w.TotalSpent().IsZero())
}

func TestSpendIntoOverdraft(t *testing.T) {
	w := newTestWallet(t, 10)

	// 40 > 10 cash but within 10 + 60 effective.
	require.NoError(t, w.Spend(token.NewAmount(40), TxRelayPayment, "relay", "r"))
	require.True(t, w.Balance().IsZero())
	require.Equal(t, uint64(30), w.OverdraftUsed().Uint64())
	require.Equal(t, uint64(30), w.EffectiveBalance().Uint64())

	// A credit repays the debt before building balance.
	w.AddTokens(token.NewAmount(50), TxRelayEarnings, "earnings")
	require.True(t, w.OverdraftUsed().IsZero())
	require.Equal(t, uint64(20), w.Balance().Uint64())
}

func TestOverdraftExhausted(t *testing.T) {
	w := newTestWallet(t, 0)

	require.NoError(t, w.Spend(token.NewAmount(60), TxTransfer, "max overdraft", ""))
	require.True(t, w.EffectiveBalance().IsZero())
	require.False(t, w.CanPay(token.NewAmount(1)))

	// The overdraft invariant: a refused payment really exceeds
	// balance plus remaining allowance.
	require.ErrorIs(t,
		w.Spend(token.NewAmount(1), TxTransfer, "beyond", ""),
		ErrInsufficientFunds)
}

func TestChannelAtomicity(t *testing.T) {
	w := newTestWallet(t, 100)

	ch, err := w.OpenChannel("peer-1", token.NewAmount(80))
	require.NoError(t, err)
	require.Equal(t, uint64(20), w.Balance().Uint64())
	require.Equal(t, uint64(80), ch.OurBalance.Uint64())
	require.True(t, ch.TheirBalance.IsZero())
	require.Equal(t, ChannelOpen, ch.Status)

	refund, err := w.CloseChannel("peer-1")
	require.NoError(t, err)
	require.Equal(t, uint64(80), refund.Uint64())
	require.Equal(t, uint64(100), w.Balance().Uint64())
	require.Empty(t, w.Channels())
}

func TestChannelOpenRequiresFunds(t *testing.T) {
	w := newTestWallet(t, 10)

	_, err := w.OpenChannel("peer-1", token.NewAmount(10_000))
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Equal(t, uint64(10), w.Balance().Uint64())
	require.Empty(t, w.Channels())

	// Only one channel per peer.
	_, err = w.OpenChannel("peer-1", token.NewAmount(5))
	require.NoError(t, err)
	_, err = w.OpenChannel("peer-1", token.NewAmount(1))
	require.ErrorIs(t, err, ErrChannelExists)
}

func TestChannelUpdateSequence(t *testing.T) {
	w := newTestWallet(t, 100)
	ch, err := w.OpenChannel("peer-1", token.NewAmount(80))
	require.NoError(t, err)

	update := &ChannelUpdate{
		ChannelID:    ch.ID,
		OurBalance:   token.NewAmount(60),
		TheirBalance: token.NewAmount(20),
		Sequence:     1,
	}
	require.NoError(t, w.ApplyChannelUpdate("peer-1", update))

	chans := w.Channels()
	require.Len(t, chans, 1)
	require.Equal(t, uint64(60), chans[0].OurBalance.Uint64())

	// A replayed or reordered update with a stale sequence is ignored.
	stale := &ChannelUpdate{
		ChannelID:    ch.ID,
		OurBalance:   token.NewAmount(80),
		TheirBalance: token.ZeroAmount,
		Sequence:     1,
	}
	require.NoError(t, w.ApplyChannelUpdate("peer-1", stale))
	require.Equal(t, uint64(60), w.Channels()[0].OurBalance.Uint64())

	// An update that does not conserve capacity is rejected.
	bad := &ChannelUpdate{
		ChannelID:    ch.ID,
		OurBalance:   token.NewAmount(60),
		TheirBalance: token.NewAmount(60),
		Sequence:     2,
	}
	require.ErrorIs(t, w.ApplyChannelUpdate("peer-1", bad), ErrChannelBalance)

	// Closing after an update refunds the updated local balance.
	refund, err := w.CloseChannel("peer-1")
	require.NoError(t, err)
	require.Equal(t, uint64(60), refund.Uint64())
	require.Equal(t, uint64(80), w.Balance().Uint64())
}

// signedReceipt builds a receipt for the given wallet's session carrying
// the flat metered amount a relay stamps, signed by the wallet (relay
// side) and a client keypair.
func signedReceipt(t *testing.T, w *MemWallet, client *identity.Keypair, data uint64, ts time.Time) *wire.Receipt {
	t.Helper()
	rc := &wire.Receipt{
		SessionID:   wire.SessionID{0xa1, 0xb2},
		DataRelayed: data,
		Duration:    60,
		Amount:      token.RelayMetered(data, w.params.RelayTokensPerMB),
		Timestamp:   uint64(ts.Unix()),
	}
	sigHash := rc.SigHash()
	rc.RelaySig = w.keypair.Sign(sigHash)
	rc.ClientSig = client.Sign(sigHash)
	return rc
}

func TestSubmitRelayProof(t *testing.T) {
	w := newTestWallet(t, 0)
	client, err := identity.GenerateKeypair()
	require.NoError(t, err)

	const data = 10 << 20
	rc := signedReceipt(t, w, client, data, time.Now())
	want := rc.Amount

	require.NoError(t, w.SubmitRelayProof(rc, client.PublicKey()))
	require.Equal(t, want, w.Balance())
	require.Equal(t, uint64(101), w.Reputation().Value())

	// Reputation growth refreshes the overdraft curve.
	require.Equal(t, uint64(60), w.OverdraftLimit().Uint64())

	txs := w.Transactions()
	require.Len(t, txs, 1)
	require.Equal(t, TxRelayEarnings, txs[0].Kind)

	// Resubmission of the same session is a no-op, not a double credit.
	require.NoError(t, w.SubmitRelayProof(rc, client.PublicKey()))
	require.Equal(t, want, w.Balance())
	require.Equal(t, uint64(101), w.Reputation().Value())
	require.Len(t, w.Transactions(), 1)
}

func TestSubmitRelayProofRejectsBadSignature(t *testing.T) {
	w := newTestWallet(t, 0)
	client, err := identity.GenerateKeypair()
	require.NoError(t, err)

	rc := signedReceipt(t, w, client, 1<<20, time.Now())

	// Tampering after signing invalidates the relay signature.
	rc.DataRelayed += 1 << 20
	require.ErrorIs(t, w.SubmitRelayProof(rc, client.PublicKey()),
		ErrReceiptSignature)

	// A receipt signed by the wrong client key fails too.
	other, err := identity.GenerateKeypair()
	require.NoError(t, err)
	rc = signedReceipt(t, w, client, 1<<20, time.Now())
	require.ErrorIs(t, w.SubmitRelayProof(rc, other.PublicKey()),
		ErrReceiptSignature)

	// An unsigned receipt never settles.
	rc = signedReceipt(t, w, client, 1<<20, time.Now())
	rc.ClientSig = nil
	require.ErrorIs(t, w.SubmitRelayProof(rc, client.PublicKey()),
		ErrReceiptSignature)

	require.True(t, w.Balance().IsZero())
	require.Empty(t, w.Transactions())
}

func TestSubmitRelayProofTimestampPolicy(t *testing.T) {
	w := newTestWallet(t, 0)
	client, err := identity.GenerateKeypair()
	require.NoError(t, err)

	future := signedReceipt(t, w, client, 1<<20, time.Now().Add(time.Hour))
	require.ErrorIs(t, w.SubmitRelayProof(future, client.PublicKey()),
		ErrReceiptFromFuture)

	stale := signedReceipt(t, w, client, 1<<20,
		time.Now().Add(-w.params.ReceiptMaxAge-time.Minute))
	require.ErrorIs(t, w.SubmitRelayProof(stale, client.PublicKey()),
		ErrReceiptExpired)
}

func TestSubmitRelayProofRejectsWrongAmount(t *testing.T) {
	w := newTestWallet(t, 0)
	client, err := identity.GenerateKeypair()
	require.NoError(t, err)

	rc := &wire.Receipt{
		SessionID:   wire.SessionID{0x01},
		DataRelayed: 10 << 20,
		Duration:    60,
		Amount:      token.NewAmount(1_000),
		Timestamp:   uint64(time.Now().Unix()),
	}
	sigHash := rc.SigHash()
	rc.RelaySig = w.keypair.Sign(sigHash)
	rc.ClientSig = client.Sign(sigHash)

	require.ErrorIs(t, w.SubmitRelayProof(rc, client.PublicKey()),
		ErrReceiptAmount)
}

func TestMine(t *testing.T) {
	w := newTestWallet(t, 0)

	result, err := w.Mine(context.Background())
	require.NoError(t, err)
	require.Equal(t, chaincfg.SimNetParams.PowReward, result.Reward)
	require.Equal(t, result.Reward, w.Balance().Uint64())

	txs := w.Transactions()
	require.Len(t, txs, 1)
	require.Equal(t, TxMining, txs[0].Kind)
}

func TestMineCancellation(t *testing.T) {
	kp, err := identity.GenerateKeypair()
	require.NoError(t, err)

	// Mainnet difficulty is too high to finish here; cancellation must
	// stop the search promptly and credit nothing.
	params := chaincfg.MainNetParams
	params.NewUserPowDifficulty = 64
	w := NewMemWallet(kp, &params)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = w.Mine(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.True(t, w.Balance().IsZero())
	require.Empty(t, w.Transactions())
}

// TestConservation drives a random operation sequence and checks the
// wallet's books: balance plus channel-locked funds minus overdraft debt
// always equals the initial balance plus lifetime earnings minus lifetime
// spending.
func TestConservation(t *testing.T) {
	kp, err := identity.GenerateKeypair()
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Uint64Range(0, 1000).Draw(t, "initial")
		w := NewMemWalletWithBalance(kp, &chaincfg.SimNetParams,
			token.NewAmount(initial))

		nops := rapid.IntRange(1, 40).Draw(t, "nops")
		for i := 0; i < nops; i++ {
			amount := token.NewAmount(rapid.Uint64Range(0, 200).Draw(t, "amount"))
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				w.AddTokens(amount, TxReward, "credit")
			case 1:
				// May fail with insufficient funds; either way
				// the books must balance.
				_ = w.Spend(amount, TxTransfer, "debit", "")
			case 2:
				_, _ = w.OpenChannel(
					identity.PeerID(rapid.StringMatching(`peer-[0-9]`).Draw(t, "peer")),
					amount)
			case 3:
				_, _ = w.CloseChannel(
					identity.PeerID(rapid.StringMatching(`peer-[0-9]`).Draw(t, "peer")))
			}
		}

		locked := token.ZeroAmount
		for _, ch := range w.Channels() {
			locked = locked.SaturatingAdd(ch.OurBalance)
		}

		lhs := w.Balance().SaturatingAdd(locked)
		rhs := token.NewAmount(initial).
			SaturatingAdd(w.TotalEarned()).
			SaturatingAdd(w.OverdraftUsed())
		rhs, ok := rhs.CheckedSub(w.TotalSpent())
		if !ok {
			t.Fatalf("books underflow: spent more than initial+earned+debt")
		}
		if lhs.Cmp(rhs) != 0 {
			t.Fatalf("conservation violated: %v != %v", lhs, rhs)
		}
	})
}
