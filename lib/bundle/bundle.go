// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pierrec/lz4/v4"

	"github.com/attestry/attestry/lib/chunk"
	"github.com/attestry/attestry/lib/codec"
	"github.com/attestry/attestry/lib/commitment"
	"github.com/attestry/attestry/lib/keyring"
	"github.com/attestry/attestry/lib/manifest"
)

// ErrNotVerified means a bundle's bytes did not match its manifest
// and unpacking was refused.
var ErrNotVerified = errors.New("bundle: verification failed")

// Record is one entry in a memory export: an opaque payload under a
// caller-chosen key.
type Record struct {
	Key       string    `cbor:"key"`
	CreatedAt time.Time `cbor:"created_at"`
	Data      []byte    `cbor:"data"`
}

// Write encodes records as deterministic CBOR and writes them to w
// inside an lz4 frame.
func Write(w io.Writer, records []Record) error {
	encoded, err := codec.Marshal(records)
	if err != nil {
		return fmt.Errorf("bundle: encoding records: %w", err)
	}

	compressor := lz4.NewWriter(w)
	if _, err := compressor.Write(encoded); err != nil {
		return fmt.Errorf("bundle: compressing: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return fmt.Errorf("bundle: finalizing lz4 frame: %w", err)
	}
	return nil
}

// Read decompresses and decodes a bundle stream.
func Read(r io.Reader) ([]Record, error) {
	decompressed, err := io.ReadAll(lz4.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("bundle: decompressing: %w", err)
	}
	var records []Record
	if err := codec.Unmarshal(decompressed, &records); err != nil {
		return nil, fmt.Errorf("bundle: decoding records: %w", err)
	}
	return records, nil
}

// ExportParams identify the exported bundle.
type ExportParams struct {
	ArtifactID      string
	ArtifactVersion string
	PublisherName   string
	Description     string
	CreatedAt       time.Time
}

// Export writes records as a bundle file at path and returns a signed
// manifest describing it. The bundle is chunked at the memory
// artifact chunk size.
func Export(path string, records []Record, params ExportParams, signer *keyring.Keypair) (*manifest.Manifest, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("bundle: creating %s: %w", path, err)
	}
	if err := Write(file, records); err != nil {
		file.Close()
		os.Remove(path)
		return nil, err
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("bundle: closing %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("bundle: stat %s: %w", path, err)
	}
	chunks, err := chunk.File(path, chunk.MemoryChunkSize)
	if err != nil {
		return nil, err
	}
	digests := chunk.Digests(chunks)
	root, err := commitment.ComputeRoot(commitment.StrategyFlatV1, digests)
	if err != nil {
		return nil, err
	}

	return manifest.Create(manifest.CreateParams{
		ArtifactID:      params.ArtifactID,
		ArtifactVersion: params.ArtifactVersion,
		ArtifactType:    chunk.TypeMemory,
		PublisherName:   params.PublisherName,
		Strategy:        commitment.StrategyFlatV1,
		Root:            root,
		ChunkDigests:    digests,
		Size:            info.Size(),
		Description:     params.Description,
		CreatedAt:       params.CreatedAt,
	}, signer)
}

// Import verifies the bundle file against its manifest and unpacks
// it. The manifest signature and the byte integrity are both checked;
// any failure is ErrNotVerified and no records are returned.
func Import(path string, m *manifest.Manifest) ([]Record, error) {
	if err := m.VerifySignature(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotVerified, err)
	}

	chunkSize, err := m.ArtifactType.ChunkSize()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotVerified, err)
	}
	chunks, err := chunk.File(path, chunkSize)
	if err != nil {
		return nil, err
	}
	digests := chunk.Digests(chunks)
	root, err := commitment.ComputeRoot(m.Commitment.Strategy, digests)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotVerified, err)
	}
	if err := m.VerifyIntegrity(digests, root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotVerified, err)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bundle: opening %s: %w", path, err)
	}
	defer file.Close()
	return Read(file)
}
