// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Attestry's canonical binary encoding: CBOR
// with Core Deterministic Encoding (RFC 8949 §4.2). The same logical
// value always encodes to identical bytes, which is what makes it safe
// to sign encoded payloads: manifest signatures and receipt hashes
// are computed over codec.Marshal output.
//
// Decoding ignores unknown fields, so records written by a newer
// version of the software remain readable by an older one.
package codec
