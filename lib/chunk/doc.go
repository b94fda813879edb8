// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

// Package chunk splits artifact bytes into fixed-size chunks and
// hashes each one. Chunking is deterministic: the same bytes and the
// same artifact type always produce the same chunk boundaries and the
// same digests, which is what allows a publisher and a consumer to
// agree on chunk digest lists without exchanging the content itself.
//
// Chunk size is a function of the artifact type alone; it is never
// configurable per artifact, so a manifest's type tag fully determines
// how its content is split.
package chunk
