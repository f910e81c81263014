// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package identity

import (
	"bytes"
	"crypto/sha256"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeypairDeviceID(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)

	id := kp.DeviceID()
	require.False(t, id.IsZero())

	// The DeviceID must be the SHA-256 of the raw public key bytes.
	want := sha256.Sum256(kp.PublicKey())
	require.Equal(t, DeviceID(want), id)
}

func TestKeypairFromSecretRoundTrip(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)

	restored, err := KeypairFromSecret(kp.Secret())
	require.NoError(t, err)
	require.Equal(t, kp.DeviceID(), restored.DeviceID())
	require.True(t, bytes.Equal(kp.PublicKey(), restored.PublicKey()))

	_, err = KeypairFromSecret([]byte{0x01, 0x02})
	require.ErrorIs(t, err, ErrMalformedKey)
}

func TestSignAndVerify(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)

	msg := []byte("hello, overlay")
	sig := kp.Sign(msg)
	require.Len(t, sig, SignatureSize)

	require.True(t, kp.Verify(msg, sig))
	require.False(t, kp.Verify([]byte("wrong message"), sig))

	// Tampered signature must fail.
	sig[0] ^= 0xff
	require.False(t, kp.Verify(msg, sig))

	// Malformed inputs fail cleanly rather than panic.
	require.False(t, VerifySignature(nil, msg, sig))
	require.False(t, VerifySignature(kp.PublicKey(), msg, sig[:10]))
}

func TestDeviceIDHex(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)
	id := kp.DeviceID()

	s := id.String()
	require.Len(t, s, DeviceIDSize*2)
	require.Equal(t, strings.ToLower(s), s)

	parsed, err := NewDeviceIDFromHex(s)
	require.NoError(t, err)
	require.True(t, parsed.Equal(id))

	_, err = NewDeviceIDFromHex("abcd")
	require.Error(t, err)
	_, err = NewDeviceIDFromHex("zz")
	require.Error(t, err)
}

func TestReputationClamp(t *testing.T) {
	require.Equal(t, uint64(1000), NewReputationScore(2000).Value())
	require.Equal(t, uint64(1000),
		NewReputationScore(math.MaxUint64).Increase(10).Value())
	require.Equal(t, uint64(100), NewReputationScore(100).Value())
}

func TestReputationSaturation(t *testing.T) {
	r := NewReputationScore(995)
	require.Equal(t, uint64(1000), r.Increase(10).Value())

	r = NewReputationScore(5)
	require.Equal(t, uint64(0), r.Decrease(10).Value())
	require.Equal(t, uint64(0), r.Decrease(math.MaxUint64).Value())

	// Increase from zero lands exactly on delta.
	require.Equal(t, uint64(7), NewReputationScore(0).Increase(7).Value())
}
