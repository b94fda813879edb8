// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

// Package commitment computes and verifies root commitments: a single
// digest summarizing an ordered list of chunk digests, used to cheaply
// decide whether two parties hold the same artifact.
//
// The strategy tag is part of every serialized commitment so that
// artifacts committed under different strategies are never silently
// cross-verified. The shipped strategy hashes the flat concatenation
// of chunk digests; it deliberately is not a Merkle tree, so no
// per-chunk inclusion proof is possible; re-deriving the root always
// requires the full digest list. A tree strategy can be added later as
// a new tag without changing any caller, but the flat format must be
// preserved for compatibility with existing manifests.
package commitment
