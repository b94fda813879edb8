// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

// Package bundle packs session memory records into a single
// compressed, manifested artifact.
//
// A bundle is the CBOR encoding of a record list wrapped in an lz4
// frame. Export writes the bundle file, chunks it at the memory
// artifact chunk size, computes its commitment, and signs a manifest
// for it, so a bundle travels through the same verification pipeline
// as any other artifact. Import refuses to unpack anything until the
// bundle bytes verify against their manifest.
package bundle
