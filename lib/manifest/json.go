// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/attestry/attestry/lib/chunk"
	"github.com/attestry/attestry/lib/commitment"
	"github.com/attestry/attestry/lib/hashing"
)

// Wire types for the JSON interchange format. Binary values are hex
// strings; timestamps are RFC 3339. Unknown top-level fields decode
// into nothing and are ignored (encoding/json default), which is the
// forward-compatibility behavior the format requires.

type wireManifest struct {
	Version         string         `json:"version"`
	ArtifactID      string         `json:"artifactId"`
	ArtifactVersion string         `json:"artifactVersion"`
	ArtifactType    string         `json:"artifactType"`
	Publisher       wirePublisher  `json:"publisher"`
	Commitment      wireCommitment `json:"commitment"`
	Metadata        wireMetadata   `json:"metadata"`
	Signature       string         `json:"signature"`
}

type wirePublisher struct {
	Name   string `json:"name"`
	PubKey string `json:"pubkey"`
}

type wireCommitment struct {
	Strategy     string   `json:"strategy"`
	Root         string   `json:"root"`
	ChunkDigests []string `json:"chunkDigests"`
}

type wireMetadata struct {
	Size        int64  `json:"size"`
	ChunkSize   uint32 `json:"chunkSize"`
	ChunkCount  int    `json:"chunkCount"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// MarshalJSON encodes the manifest in the interchange format.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	digests := make([]string, len(m.Commitment.ChunkDigests))
	for i, digest := range m.Commitment.ChunkDigests {
		digests[i] = hashing.FormatHash(digest)
	}

	return json.Marshal(wireManifest{
		Version:         m.Version,
		ArtifactID:      m.ArtifactID,
		ArtifactVersion: m.ArtifactVersion,
		ArtifactType:    string(m.ArtifactType),
		Publisher: wirePublisher{
			Name:   m.Publisher.Name,
			PubKey: hex.EncodeToString(m.Publisher.PublicKey),
		},
		Commitment: wireCommitment{
			Strategy:     string(m.Commitment.Strategy),
			Root:         hashing.FormatHash(m.Commitment.Root),
			ChunkDigests: digests,
		},
		Metadata: wireMetadata{
			Size:        m.Metadata.Size,
			ChunkSize:   m.Metadata.ChunkSize,
			ChunkCount:  m.Metadata.ChunkCount,
			Description: m.Metadata.Description,
			CreatedAt:   m.Metadata.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
		Signature: hex.EncodeToString(m.Signature),
	})
}

// UnmarshalJSON decodes the interchange format, including structural
// validation. Version checking happens first: an unknown version is
// ErrUnsupportedVersion before any other field is interpreted.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var wire wireManifest
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if wire.Version != Version {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, wire.Version)
	}

	publicKey, err := hex.DecodeString(wire.Publisher.PubKey)
	if err != nil {
		return fmt.Errorf("%w: publisher key: %v", ErrMalformed, err)
	}
	root, err := hashing.ParseHash(wire.Commitment.Root)
	if err != nil {
		return fmt.Errorf("%w: root: %v", ErrMalformed, err)
	}
	digests := make([]hashing.Hash, len(wire.Commitment.ChunkDigests))
	for i, encoded := range wire.Commitment.ChunkDigests {
		if digests[i], err = hashing.ParseHash(encoded); err != nil {
			return fmt.Errorf("%w: chunk digest %d: %v", ErrMalformed, i, err)
		}
	}
	signature, err := hex.DecodeString(wire.Signature)
	if err != nil {
		return fmt.Errorf("%w: signature: %v", ErrMalformed, err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, wire.Metadata.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: createdAt: %v", ErrMalformed, err)
	}

	decoded := Manifest{
		Version:         wire.Version,
		ArtifactID:      wire.ArtifactID,
		ArtifactVersion: wire.ArtifactVersion,
		ArtifactType:    chunk.ArtifactType(wire.ArtifactType),
		Publisher: Publisher{
			Name:      wire.Publisher.Name,
			PublicKey: ed25519.PublicKey(publicKey),
		},
		Commitment: Summary{
			Strategy:     commitment.Strategy(wire.Commitment.Strategy),
			Root:         root,
			ChunkDigests: digests,
		},
		Metadata: Metadata{
			Size:        wire.Metadata.Size,
			ChunkSize:   wire.Metadata.ChunkSize,
			ChunkCount:  wire.Metadata.ChunkCount,
			Description: wire.Metadata.Description,
			CreatedAt:   createdAt,
		},
		Signature: signature,
	}
	if err := decoded.validate(); err != nil {
		return err
	}

	*m = decoded
	return nil
}

// ValidateStructure parses raw JSON and reports structural problems
// without checking the signature. Use this to separate "malformed
// input" from "valid structure, bad signature": a manifest that passes
// ValidateStructure can still fail VerifySignature.
func ValidateStructure(raw []byte) error {
	var parsed Manifest
	return json.Unmarshal(raw, &parsed)
}

// Parse decodes and structurally validates a manifest from raw JSON.
// The signature is NOT verified; call VerifySignature on the result.
func Parse(raw []byte) (*Manifest, error) {
	var parsed Manifest
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}
