// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package receipt

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/attestry/attestry/lib/codec"
	"github.com/attestry/attestry/lib/hashing"
	"github.com/attestry/attestry/lib/trust"
)

// Receipt records one successful verification of an artifact. Values
// are immutable once stored. The content address covers the identity
// fields only (artifact, root, signer), so repeating the same
// verification later addresses the same stored receipt.
type Receipt struct {
	// ArtifactID and ArtifactVersion identify what was verified.
	ArtifactID      string `cbor:"artifact_id"`
	ArtifactVersion string `cbor:"artifact_version"`

	// Root is the commitment root the artifact bytes verified
	// against.
	Root hashing.Hash `cbor:"root"`

	// SignerKey is the manifest publisher's Ed25519 public key.
	SignerKey ed25519.PublicKey `cbor:"signer_key"`

	// Policy is the trust policy that was active, and Status the
	// signer key's evaluated status at verification time.
	Policy trust.Policy `cbor:"policy"`
	Status trust.Status `cbor:"status"`

	// Warnings are any cautions surfaced during verification
	// (non-team signer, key near expiry).
	Warnings []string `cbor:"warnings,omitempty"`

	// VerifiedAt is when verification completed.
	VerifiedAt time.Time `cbor:"verified_at"`
}

// CanonicalBytes returns the deterministic CBOR encoding of the full
// receipt. These are the bytes stored (encrypted) in the database.
func (r *Receipt) CanonicalBytes() ([]byte, error) {
	encoded, err := codec.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("receipt: encoding: %w", err)
	}
	return encoded, nil
}

// receiptIdentity is the tuple the content address derives from. What
// was verified and who signed it, never when or under which policy.
type receiptIdentity struct {
	ArtifactID      string            `cbor:"artifact_id"`
	ArtifactVersion string            `cbor:"artifact_version"`
	Root            hashing.Hash      `cbor:"root"`
	SignerKey       ed25519.PublicKey `cbor:"signer_key"`
}

// Hash returns the receipt's content address: the BLAKE3 digest of
// the deterministic encoding of (artifact ID, artifact version, root,
// signer key). Verifying the same artifact against the same signer
// always yields the same address, regardless of verification time.
func (r *Receipt) Hash() (hashing.Hash, error) {
	encoded, err := codec.Marshal(receiptIdentity{
		ArtifactID:      r.ArtifactID,
		ArtifactVersion: r.ArtifactVersion,
		Root:            r.Root,
		SignerKey:       r.SignerKey,
	})
	if err != nil {
		return hashing.Hash{}, fmt.Errorf("receipt: encoding identity: %w", err)
	}
	return hashing.HashBytes(encoded), nil
}

// sameIdentity reports whether two receipts describe the same
// verification subject.
func (r *Receipt) sameIdentity(other *Receipt) bool {
	return r.ArtifactID == other.ArtifactID &&
		r.ArtifactVersion == other.ArtifactVersion &&
		r.Root == other.Root &&
		bytes.Equal(r.SignerKey, other.SignerKey)
}

// validate checks the fields a receipt must carry before it can be
// stored.
func (r *Receipt) validate() error {
	if r.ArtifactID == "" {
		return fmt.Errorf("receipt: missing artifact ID")
	}
	if len(r.SignerKey) != ed25519.PublicKeySize {
		return fmt.Errorf("receipt: signer key is %d bytes, want %d",
			len(r.SignerKey), ed25519.PublicKeySize)
	}
	if r.VerifiedAt.IsZero() {
		return fmt.Errorf("receipt: missing verification time")
	}
	return nil
}
