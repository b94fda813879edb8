// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package keyring

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"github.com/attestry/attestry/lib/secret"
)

// Purpose is the fixed first path component of every Attestry key
// derivation. The value spells "ATST" in ASCII. Changing it would
// silently re-key every publisher identity, so it is a protocol
// constant.
const Purpose uint32 = 0x41545354

// hardenedOffset marks a path component as hardened. All Attestry
// derivation is hardened: child public keys cannot be derived without
// the seed, which is the right property for signing identities.
const hardenedOffset uint32 = 0x80000000

// curveKey is the HMAC key for the master node, per the SLIP-0010
// construction for Ed25519.
var curveKey = []byte("ed25519 seed")

// Keypair is a derived Ed25519 signing keypair. The private key is a
// transient heap value: call Zero as soon as signing is done, and
// never persist it in plaintext.
type Keypair struct {
	// Public is the 32-byte Ed25519 public key. Safe to publish;
	// this is the value that appears in manifests and trust policy
	// keyrings.
	Public ed25519.PublicKey

	// Private is the 64-byte Ed25519 private key.
	Private ed25519.PrivateKey

	// Account and Index record the path the keypair was derived
	// from, for display and key metadata records.
	Account uint32
	Index   uint32
}

// Zero overwrites the private key bytes. The keypair is unusable for
// signing afterwards.
func (k *Keypair) Zero() {
	secret.Zero(k.Private)
}

// DeriveKeypair deterministically derives the Ed25519 keypair at path
// Purpose'/account'/index' from a 64-byte seed. The same seed and path
// always yield the same keypair; different (account, index) pairs
// yield unrelated keypairs.
//
// The seed buffer is borrowed (read via Bytes) and NOT closed.
func DeriveKeypair(seed *secret.Buffer, account, index uint32) (*Keypair, error) {
	if seed.Len() != SeedSize {
		return nil, fmt.Errorf("keyring: seed is %d bytes, want %d", seed.Len(), SeedSize)
	}
	if account >= hardenedOffset || index >= hardenedOffset {
		return nil, fmt.Errorf("keyring: account and index must be below 2^31")
	}

	// Master node: I = HMAC-SHA512("ed25519 seed", seed).
	// IL is the node key, IR the chain code.
	mac := hmac.New(sha512.New, curveKey)
	mac.Write(seed.Bytes())
	node := mac.Sum(nil)

	for _, component := range []uint32{Purpose, account, index} {
		node = deriveChild(node, component|hardenedOffset)
	}

	// The first 32 bytes of the final node seed the Ed25519 keypair.
	private := ed25519.NewKeyFromSeed(node[:32])
	secret.Zero(node)

	public := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(public, private[ed25519.SeedSize:])

	return &Keypair{
		Public:  public,
		Private: private,
		Account: account,
		Index:   index,
	}, nil
}

// deriveChild computes one hardened child step:
// I = HMAC-SHA512(chainCode, 0x00 || nodeKey || ser32(index)).
// The parent node bytes are zeroed before returning.
func deriveChild(parent []byte, index uint32) []byte {
	var payload [1 + 32 + 4]byte
	copy(payload[1:33], parent[:32])
	binary.BigEndian.PutUint32(payload[33:], index)

	mac := hmac.New(sha512.New, parent[32:])
	mac.Write(payload[:])
	child := mac.Sum(nil)

	secret.Zero(parent)
	secret.Zero(payload[:])
	return child
}
