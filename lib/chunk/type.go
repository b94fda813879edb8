// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package chunk

import "fmt"

// ArtifactType tags the kind of content an artifact carries. The type
// determines the chunk size and is recorded in the artifact's manifest;
// it must never change between publication and verification.
type ArtifactType string

const (
	// TypeModel is a model weights file. Large, so chunked coarsely.
	TypeModel ArtifactType = "model"

	// TypeMemory is a session memory export bundle.
	TypeMemory ArtifactType = "memory"

	// TypePlugin is a plugin package.
	TypePlugin ArtifactType = "plugin"

	// TypeUI is a UI asset bundle.
	TypeUI ArtifactType = "ui"
)

// Chunk sizes per artifact type. These are protocol constants: a
// manifest's chunk digest list is only meaningful against the exact
// size its type implies, so changing any of these breaks verification
// of all previously published artifacts of that type.
const (
	ModelChunkSize  = 1 << 20 // 1 MiB
	MemoryChunkSize = 1 << 16 // 64 KiB
	PluginChunkSize = 1 << 18 // 256 KiB
	UIChunkSize     = 1 << 19 // 512 KiB
)

// ChunkSize returns the fixed chunk size in bytes for this artifact
// type. Returns an error for unknown types rather than guessing; an
// unknown type tag in a manifest must fail verification, not silently
// chunk with a default size.
func (t ArtifactType) ChunkSize() (uint32, error) {
	switch t {
	case TypeModel:
		return ModelChunkSize, nil
	case TypeMemory:
		return MemoryChunkSize, nil
	case TypePlugin:
		return PluginChunkSize, nil
	case TypeUI:
		return UIChunkSize, nil
	default:
		return 0, fmt.Errorf("unknown artifact type %q", string(t))
	}
}

// Valid reports whether t is one of the defined artifact types.
func (t ArtifactType) Valid() bool {
	_, err := t.ChunkSize()
	return err == nil
}

// ParseArtifactType parses the manifest string form of an artifact
// type.
func ParseArtifactType(name string) (ArtifactType, error) {
	candidate := ArtifactType(name)
	if !candidate.Valid() {
		return "", fmt.Errorf("unknown artifact type %q", name)
	}
	return candidate, nil
}
