// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest defines the signed record binding an artifact's
// identity to its root commitment and publisher.
//
// A manifest is immutable once signed: the signature covers the
// deterministic CBOR encoding of every field except the signature
// itself, so changing any field invalidates it. The interchange format
// is JSON (version "1.0") with hex-encoded binary values; unknown
// top-level fields are ignored for forward compatibility, but unknown
// versions are rejected outright rather than guessed at.
//
// Structural validation and signature verification are distinct
// failure classes. A malformed manifest (missing fields, wrong types,
// unknown version) is reported before any signature math runs, so
// callers can distinguish "garbage input" from "forged or tampered
// manifest".
package manifest
