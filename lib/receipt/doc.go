// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

// Package receipt persists verification receipts: durable, encrypted
// records that a given artifact was verified against a given manifest
// under a given policy at a given time.
//
// Receipts are content-addressed. A receipt's hash is the BLAKE3
// digest of the canonical encoding of its identity tuple (artifact
// ID, artifact version, root, signer key), so repeating the same
// verification collides to the same address and storing it again is a
// no-op; the first stored record wins. A stored record whose subject
// differs from the incoming receipt under the same address is
// reported as [ErrReceiptCollision] and stored data is left untouched.
//
// Records are zstd-compressed and encrypted with XChaCha20-Poly1305
// before they reach SQLite. Each record's key is derived from the
// store master key and the receipt hash via HKDF-SHA256, and the
// receipt hash is bound into the AEAD as additional authenticated
// data, so a record cannot be moved to another row without failing
// authentication.
//
// The master key comes from a [SecretStore], a small capability
// interface with a file-backed implementation (age-sealed key file)
// and an in-process fallback. [Chain] tries stores in order, so a
// missing platform keystore degrades to the fallback instead of
// failing outright.
package receipt
