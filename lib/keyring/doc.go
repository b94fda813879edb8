// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

// Package keyring provides deterministic signing key derivation and
// Ed25519 signatures.
//
// A publisher identity starts from a BIP-39 mnemonic. The mnemonic
// yields a 64-byte seed, and keypairs are derived from the seed along
// a hardened hierarchical path (purpose'/account'/index', HMAC-SHA512
// chain in the SLIP-0010 construction for Ed25519). The same mnemonic
// and path always reproduce the same keypair, so a publisher can
// recover signing keys from the phrase alone; different (account,
// index) pairs yield unrelated keypairs.
//
// Seed material lives in secret.Buffer guarded memory. Private keys
// are transient values; persisting one in plaintext anywhere outside
// the encrypted store is a bug.
package keyring
