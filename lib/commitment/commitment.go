// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package commitment

import (
	"errors"
	"fmt"
	"time"

	"github.com/attestry/attestry/lib/chunk"
	"github.com/attestry/attestry/lib/hashing"
)

// Strategy identifies the algorithm that combines chunk digests into a
// root. The tag travels with every serialized commitment.
type Strategy string

const (
	// StrategyFlatV1 hashes the in-order concatenation of all chunk
	// digests: root = H(d0 || d1 || ... || dn-1). O(1) root
	// comparison, O(n) re-derivation, no per-chunk membership proofs.
	StrategyFlatV1 Strategy = "flat-v1"
)

// Errors returned by Compute and Verify.
var (
	ErrUnknownStrategy = errors.New("commitment: unknown strategy")
	ErrNoChunks        = errors.New("commitment: empty chunk digest list")
	ErrCountMismatch   = errors.New("commitment: chunk count mismatch")
	ErrDigestMismatch  = errors.New("commitment: chunk digest mismatch")
	ErrRootMismatch    = errors.New("commitment: root mismatch")
)

// rootStrategy is the internal interface every strategy implements.
// Adding a tree-based strategy later means adding a new entry to the
// strategies table; callers are unaffected.
type rootStrategy interface {
	computeRoot(chunkDigests []hashing.Hash) hashing.Hash
}

var strategies = map[Strategy]rootStrategy{
	StrategyFlatV1: flatConcat{},
}

// flatConcat is the shipped strategy: one hash over the concatenated
// digest list, streamed so no concatenation buffer is allocated.
type flatConcat struct{}

func (flatConcat) computeRoot(chunkDigests []hashing.Hash) hashing.Hash {
	hasher := hashing.New()
	for _, digest := range chunkDigests {
		hasher.Write(digest[:])
	}
	return hasher.Sum()
}

// Metadata describes the artifact a commitment covers. It is carried
// alongside the root for display and sanity checks; it does not feed
// into the root computation.
type Metadata struct {
	// ArtifactType is the type tag that determined the chunk size.
	ArtifactType chunk.ArtifactType `json:"artifactType" cbor:"artifact_type"`

	// TotalSize is the artifact size in bytes.
	TotalSize int64 `json:"totalSize" cbor:"total_size"`

	// ChunkCount is the number of chunks. Always equal to the length
	// of the digest list the root was computed from.
	ChunkCount int `json:"chunkCount" cbor:"chunk_count"`

	// Timestamp is when the commitment was computed.
	Timestamp time.Time `json:"timestamp" cbor:"timestamp"`
}

// Commitment binds an ordered chunk digest list to its root under a
// named strategy. The root is recomputable by any party from the
// digest list alone; no secret material is involved.
type Commitment struct {
	Strategy     Strategy       `json:"strategy" cbor:"strategy"`
	Root         hashing.Hash   `json:"root" cbor:"root"`
	ChunkDigests []hashing.Hash `json:"chunkDigests" cbor:"chunk_digests"`
	Metadata     Metadata       `json:"metadata" cbor:"metadata"`
}

// Compute builds a commitment over chunkDigests under the given
// strategy. An empty digest list is rejected: a zero-chunk artifact
// can never be committed to, so it can never be "verified".
func Compute(strategy Strategy, chunkDigests []hashing.Hash, metadata Metadata) (*Commitment, error) {
	impl, ok := strategies[strategy]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
	if len(chunkDigests) == 0 {
		return nil, ErrNoChunks
	}

	metadata.ChunkCount = len(chunkDigests)
	digests := make([]hashing.Hash, len(chunkDigests))
	copy(digests, chunkDigests)

	return &Commitment{
		Strategy:     strategy,
		Root:         impl.computeRoot(digests),
		ChunkDigests: digests,
		Metadata:     metadata,
	}, nil
}

// ComputeRoot derives just the root for a digest list under a
// strategy, without building the full Commitment. The downloader uses
// this for its final root check against the temp file.
func ComputeRoot(strategy Strategy, chunkDigests []hashing.Hash) (hashing.Hash, error) {
	impl, ok := strategies[strategy]
	if !ok {
		return hashing.Hash{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
	if len(chunkDigests) == 0 {
		return hashing.Hash{}, ErrNoChunks
	}
	return impl.computeRoot(chunkDigests), nil
}

// Verify checks actualDigests against the stored commitment. All three
// checks are mandatory and run in order:
//
//  1. chunk counts are equal
//  2. every chunk digest is bit-equal, in order
//  3. the root recomputed from actualDigests is bit-equal to the
//     stored root
//
// Passing (1) and (2) without (3) still fails: a commitment whose
// stored root disagrees with its own digest list is corrupt and must
// never verify.
func (c *Commitment) Verify(actualDigests []hashing.Hash) error {
	if len(actualDigests) != len(c.ChunkDigests) {
		return fmt.Errorf("%w: commitment has %d chunks, artifact has %d",
			ErrCountMismatch, len(c.ChunkDigests), len(actualDigests))
	}
	for i := range actualDigests {
		if actualDigests[i] != c.ChunkDigests[i] {
			return fmt.Errorf("%w: chunk %d", ErrDigestMismatch, i)
		}
	}

	root, err := ComputeRoot(c.Strategy, actualDigests)
	if err != nil {
		return err
	}
	if root != c.Root {
		return fmt.Errorf("%w: recomputed %s, stored %s",
			ErrRootMismatch, hashing.FormatHash(root), hashing.FormatHash(c.Root))
	}
	return nil
}

// Equal reports whether two commitments commit to the same content:
// bit-equal roots under the same strategy.
func Equal(a, b *Commitment) bool {
	return a.Strategy == b.Strategy && a.Root == b.Root
}
