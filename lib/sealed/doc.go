// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed provides age encryption for Attestry key material at
// rest. It wraps filippo.io/age for the operations the secret store
// needs: generate x25519 keypairs, encrypt to one or more recipients,
// and decrypt with a private key.
//
// Ciphertext is base64-encoded so it can sit in JSON and YAML files
// without escaping concerns. Private keys and decrypted plaintext are
// returned as [secret.Buffer] values backed by mmap memory outside the
// Go heap (locked against swap, excluded from core dumps, zeroed on
// Close).
//
// Key exports:
//
//   - [GenerateKeypair] -- new age x25519 keypair in a secret.Buffer
//   - [Encrypt] / [Decrypt] -- seal and unseal byte payloads
//   - [ParsePublicKey] / [ParsePrivateKey] -- key validation
//
// Used by the receipt store's file-backed secret store to protect the
// database master key, and by the keys CLI to seal exported seeds.
//
// Depends on lib/secret for secure memory allocation.
package sealed
