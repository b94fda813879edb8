// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

// Package hashing provides the content hash primitive used throughout
// Attestry: BLAKE3 with a fixed 32-byte output. Chunk digests, root
// commitments, receipt hashes, and resume-state checksums are all
// values of the Hash type defined here.
//
// Hashing is deterministic and order-sensitive: the digest of a||b
// differs from the digest of b||a. The streaming Hasher produces
// exactly the same digest as hashing the fully concatenated input in
// one call, so callers can pick whichever form fits their I/O shape.
package hashing
