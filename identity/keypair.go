// Copyright (c) 2025 The Nexus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

const (
	// PublicKeySize is the size, in bytes, of an Ed25519 public key.
	PublicKeySize = ed25519.PublicKeySize

	// SignatureSize is the size, in bytes, of an Ed25519 signature.
	SignatureSize = ed25519.SignatureSize

	// SecretKeySize is the size, in bytes, of the seed half of an Ed25519
	// private key.
	SecretKeySize = ed25519.SeedSize
)

// ErrMalformedKey describes a key of the wrong length or form.
var ErrMalformedKey = errors.New("malformed key")

// Keypair is the Ed25519 signing identity of a node.  The DeviceID is
// derived from the public half, so a keypair pins the node's overlay
// identity for its entire lifetime.
type Keypair struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// GenerateKeypair returns a fresh random keypair.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Keypair{priv: priv, pub: pub}, nil
}

// KeypairFromSecret reconstructs a keypair from a 32-byte secret seed.
func KeypairFromSecret(secret []byte) (*Keypair, error) {
	if len(secret) != SecretKeySize {
		return nil, ErrMalformedKey
	}
	priv := ed25519.NewKeyFromSeed(secret)
	return &Keypair{
		priv: priv,
		pub:  priv.Public().(ed25519.PublicKey),
	}, nil
}

// PublicKey returns the public half of the keypair.
func (k *Keypair) PublicKey() ed25519.PublicKey {
	return k.pub
}

// Secret returns the 32-byte seed the keypair can be reconstructed from.
func (k *Keypair) Secret() []byte {
	return k.priv.Seed()
}

// DeviceID derives the node's overlay identifier, which is the SHA-256 of
// the public key bytes.
func (k *Keypair) DeviceID() DeviceID {
	return DeviceIDForPublicKey(k.pub)
}

// Sign signs the given message and returns the 64-byte signature.
func (k *Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.priv, msg)
}

// Verify reports whether sig is a valid signature over msg by this
// keypair's public key.
func (k *Keypair) Verify(msg, sig []byte) bool {
	return VerifySignature(k.pub, msg, sig)
}

// DeviceIDForPublicKey derives the DeviceID for an arbitrary public key.
func DeviceIDForPublicKey(pub ed25519.PublicKey) DeviceID {
	var id DeviceID
	copy(id[:], chainhash.HashB(pub))
	return id
}

// VerifySignature reports whether sig is a valid signature over msg by pub.
// Malformed keys and signatures simply fail verification.
func VerifySignature(pub ed25519.PublicKey, msg, sig []byte) bool {
	if len(pub) != PublicKeySize || len(sig) != SignatureSize {
		return false
	}
	return ed25519.Verify(pub, msg, sig)
}
