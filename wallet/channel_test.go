// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nexusnet/nexusd/identity"
	"github.com/nexusnet/nexusd/token"
)

func TestChannelUpdateSigHash(t *testing.T) {
	update := &ChannelUpdate{
		ChannelID:    ChannelID{0x11, 0x22},
		OurBalance:   token.NewAmount(60),
		TheirBalance: token.NewAmount(20),
		Sequence:     7,
	}

	sigHash := update.SigHash()
	require.Len(t, sigHash, updateSigHashSize)

	// The canonical bytes exclude the signature slots: signing does not
	// change them.
	local, err := identity.GenerateKeypair()
	require.NoError(t, err)
	remote, err := identity.GenerateKeypair()
	require.NoError(t, err)

	update.Sign(local)
	update.TheirSig = remote.Sign(update.SigHash())
	require.Equal(t, sigHash, update.SigHash())

	require.True(t, local.Verify(update.SigHash(), update.OurSig))
	require.True(t, update.VerifyTheirSig(remote.PublicKey()))
	require.False(t, update.VerifyTheirSig(local.PublicKey()))

	// Every signed field is bound: changing any of them invalidates the
	// countersignature.
	tampered := *update
	tampered.Sequence++
	require.False(t, tampered.VerifyTheirSig(remote.PublicKey()))

	tampered = *update
	tampered.OurBalance = token.NewAmount(61)
	require.False(t, tampered.VerifyTheirSig(remote.PublicKey()))

	tampered = *update
	tampered.ChannelID[0] ^= 0xff
	require.False(t, tampered.VerifyTheirSig(remote.PublicKey()))

	// An unsigned slot never verifies.
	unsigned := &ChannelUpdate{ChannelID: update.ChannelID}
	require.False(t, unsigned.VerifyTheirSig(remote.PublicKey()))
}
