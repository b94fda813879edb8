// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/attestry/attestry/lib/chunk"
	"github.com/attestry/attestry/lib/codec"
	"github.com/attestry/attestry/lib/commitment"
	"github.com/attestry/attestry/lib/hashing"
	"github.com/attestry/attestry/lib/keyring"
)

// Version is the manifest format version this package reads and
// writes. Manifests carrying any other version are rejected.
const Version = "1.0"

// Errors returned by manifest operations.
var (
	ErrUnsupportedVersion = errors.New("manifest: unsupported version")
	ErrMalformed          = errors.New("manifest: malformed")
	ErrBadSignature       = errors.New("manifest: invalid signature")
)

// Publisher identifies who signed a manifest.
type Publisher struct {
	// Name is a human-readable publisher name. Informational only;
	// trust decisions are made on the public key, never the name.
	Name string `cbor:"name"`

	// PublicKey is the publisher's 32-byte Ed25519 public key.
	PublicKey ed25519.PublicKey `cbor:"public_key"`
}

// Summary is the commitment portion of a manifest: the strategy tag,
// the root, and the full ordered chunk digest list.
type Summary struct {
	Strategy     commitment.Strategy `cbor:"strategy"`
	Root         hashing.Hash        `cbor:"root"`
	ChunkDigests []hashing.Hash      `cbor:"chunk_digests"`
}

// Metadata carries descriptive fields about the artifact.
type Metadata struct {
	// Size is the artifact size in bytes.
	Size int64 `cbor:"size"`

	// ChunkSize is the chunk size the digest list was computed with.
	// Always the size implied by the artifact type; recorded
	// explicitly so a verifier can cross-check without consulting
	// the type table.
	ChunkSize uint32 `cbor:"chunk_size"`

	// ChunkCount is the number of chunks.
	ChunkCount int `cbor:"chunk_count"`

	// Description is optional free text.
	Description string `cbor:"description,omitempty"`

	// CreatedAt is when the manifest was signed.
	CreatedAt time.Time `cbor:"created_at"`
}

// Manifest is a signed, versioned record binding an artifact identity
// to its commitment and publisher. Treat values as immutable once
// signed.
type Manifest struct {
	Version         string             `cbor:"version"`
	ArtifactID      string             `cbor:"artifact_id"`
	ArtifactVersion string             `cbor:"artifact_version"`
	ArtifactType    chunk.ArtifactType `cbor:"artifact_type"`
	Publisher       Publisher          `cbor:"publisher"`
	Commitment      Summary            `cbor:"commitment"`
	Metadata        Metadata           `cbor:"metadata"`

	// Signature is an Ed25519 signature over SigningPayload(). It is
	// excluded from the signed bytes.
	Signature []byte `cbor:"-"`
}

// CreateParams are the inputs to Create.
type CreateParams struct {
	ArtifactID      string
	ArtifactVersion string
	ArtifactType    chunk.ArtifactType
	PublisherName   string
	Strategy        commitment.Strategy
	Root            hashing.Hash
	ChunkDigests    []hashing.Hash
	Size            int64
	Description     string
	CreatedAt       time.Time
}

// Create builds a manifest from params, signs its canonical payload
// with the keypair, and attaches the signature. The keypair's public
// key becomes the manifest's publisher key.
func Create(params CreateParams, signer *keyring.Keypair) (*Manifest, error) {
	if params.ArtifactID == "" {
		return nil, fmt.Errorf("%w: artifact ID is required", ErrMalformed)
	}
	chunkSize, err := params.ArtifactType.ChunkSize()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(params.ChunkDigests) == 0 {
		return nil, fmt.Errorf("%w: empty chunk digest list", ErrMalformed)
	}

	built := &Manifest{
		Version:         Version,
		ArtifactID:      params.ArtifactID,
		ArtifactVersion: params.ArtifactVersion,
		ArtifactType:    params.ArtifactType,
		Publisher: Publisher{
			Name:      params.PublisherName,
			PublicKey: append(ed25519.PublicKey{}, signer.Public...),
		},
		Commitment: Summary{
			Strategy:     params.Strategy,
			Root:         params.Root,
			ChunkDigests: append([]hashing.Hash{}, params.ChunkDigests...),
		},
		Metadata: Metadata{
			Size:        params.Size,
			ChunkSize:   chunkSize,
			ChunkCount:  len(params.ChunkDigests),
			Description: params.Description,
			CreatedAt:   params.CreatedAt.UTC(),
		},
	}

	payload, err := built.SigningPayload()
	if err != nil {
		return nil, err
	}
	signature, err := keyring.Sign(payload, signer.Private)
	if err != nil {
		return nil, fmt.Errorf("manifest: signing: %w", err)
	}
	built.Signature = signature
	return built, nil
}

// SigningPayload returns the canonical bytes the signature covers: the
// deterministic CBOR encoding of every field except the signature.
// Any party holding the manifest can recompute these bytes exactly.
func (m *Manifest) SigningPayload() ([]byte, error) {
	payload, err := codec.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("manifest: encoding signing payload: %w", err)
	}
	return payload, nil
}

// VerifySignature recomputes the canonical payload and checks the
// attached signature against the publisher's public key. Returns
// ErrBadSignature if the signature does not verify.
func (m *Manifest) VerifySignature() error {
	payload, err := m.SigningPayload()
	if err != nil {
		return err
	}
	if !keyring.VerifySignature(payload, m.Signature, m.Publisher.PublicKey) {
		return ErrBadSignature
	}
	return nil
}

// VerifyIntegrity checks the manifest's commitment against the chunk
// digests and root freshly computed from actual content. This is the
// bridge between manifest trust and on-disk byte integrity: a manifest
// whose signature verifies still must not be trusted to describe bytes
// it does not match.
//
// All three checks run: chunk count, per-chunk digest equality in
// order, and root equality. The commitment package's sentinel errors
// identify which check failed.
func (m *Manifest) VerifyIntegrity(actualDigests []hashing.Hash, actualRoot hashing.Hash) error {
	stored := &commitment.Commitment{
		Strategy:     m.Commitment.Strategy,
		Root:         m.Commitment.Root,
		ChunkDigests: m.Commitment.ChunkDigests,
	}
	if err := stored.Verify(actualDigests); err != nil {
		return err
	}
	if actualRoot != m.Commitment.Root {
		return fmt.Errorf("%w: computed %s, manifest has %s", commitment.ErrRootMismatch,
			hashing.FormatHash(actualRoot), hashing.FormatHash(m.Commitment.Root))
	}
	return nil
}

// validate checks structural invariants common to freshly parsed and
// about-to-be-serialized manifests. Violations are ErrMalformed (or
// ErrUnsupportedVersion), never signature errors.
func (m *Manifest) validate() error {
	if m.Version != Version {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, m.Version)
	}
	if m.ArtifactID == "" {
		return fmt.Errorf("%w: missing artifact ID", ErrMalformed)
	}
	if !m.ArtifactType.Valid() {
		return fmt.Errorf("%w: unknown artifact type %q", ErrMalformed, string(m.ArtifactType))
	}
	if len(m.Publisher.PublicKey) != keyring.PublicKeySize {
		return fmt.Errorf("%w: publisher key is %d bytes, want %d",
			ErrMalformed, len(m.Publisher.PublicKey), keyring.PublicKeySize)
	}
	if m.Commitment.Strategy == "" {
		return fmt.Errorf("%w: missing commitment strategy", ErrMalformed)
	}
	if len(m.Commitment.ChunkDigests) == 0 {
		return fmt.Errorf("%w: empty chunk digest list", ErrMalformed)
	}
	if m.Metadata.ChunkCount != len(m.Commitment.ChunkDigests) {
		return fmt.Errorf("%w: metadata says %d chunks, digest list has %d",
			ErrMalformed, m.Metadata.ChunkCount, len(m.Commitment.ChunkDigests))
	}
	if len(m.Signature) != keyring.SignatureSize {
		return fmt.Errorf("%w: signature is %d bytes, want %d",
			ErrMalformed, len(m.Signature), keyring.SignatureSize)
	}
	return nil
}
