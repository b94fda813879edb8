// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/attestry/attestry/lib/chunk"
	"github.com/attestry/attestry/lib/commitment"
	"github.com/attestry/attestry/lib/keyring"
	"github.com/attestry/attestry/lib/manifest"
	"github.com/attestry/attestry/lib/testutil"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// testArtifact builds content spanning several chunks plus a short
// tail, with its signed manifest.
func testArtifact(t *testing.T) ([]byte, *manifest.Manifest) {
	t.Helper()
	content := testutil.PatternBytes(3*chunk.MemoryChunkSize + 4096)

	chunks, err := chunk.Buffer(content, chunk.MemoryChunkSize)
	if err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	digests := chunk.Digests(chunks)
	root, err := commitment.ComputeRoot(commitment.StrategyFlatV1, digests)
	if err != nil {
		t.Fatalf("ComputeRoot: %v", err)
	}

	seed, err := keyring.SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic: %v", err)
	}
	defer seed.Close()
	signer, err := keyring.DeriveKeypair(seed, 0, 0)
	if err != nil {
		t.Fatalf("DeriveKeypair: %v", err)
	}

	m, err := manifest.Create(manifest.CreateParams{
		ArtifactID:      "memory-export-42",
		ArtifactVersion: "1",
		ArtifactType:    chunk.TypeMemory,
		PublisherName:   "test publisher",
		Strategy:        commitment.StrategyFlatV1,
		Root:            root,
		ChunkDigests:    digests,
		Size:            int64(len(content)),
		CreatedAt:       time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}, signer)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return content, m
}

// contentFetcher serves chunks straight from a byte slice and records
// which indexes were requested.
func contentFetcher(content []byte, chunkSize uint32, requested *[]int) FetchFunc {
	return func(ctx context.Context, index int) ([]byte, error) {
		if requested != nil {
			*requested = append(*requested, index)
		}
		start := int64(index) * int64(chunkSize)
		end := start + int64(chunk.SizeOf(index, int64(len(content)), chunkSize))
		return append([]byte{}, content[start:end]...), nil
	}
}

func TestRunDownloadsAndInstalls(t *testing.T) {
	content, m := testArtifact(t)
	target := filepath.Join(t.TempDir(), "artifact.bin")

	err := Run(context.Background(), Config{
		Manifest:   m,
		Fetch:      contentFetcher(content, m.Metadata.ChunkSize, nil),
		TargetPath: target,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	installed, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("reading target: %v", err)
	}
	if !bytes.Equal(installed, content) {
		t.Error("installed content does not match the source")
	}

	for _, leftover := range []string{target + ".partial", target + ".resume.json"} {
		if _, err := os.Stat(leftover); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("working file %s still present after success", leftover)
		}
	}
}

func TestRunRejectsCorruptChunk(t *testing.T) {
	content, m := testArtifact(t)
	target := filepath.Join(t.TempDir(), "artifact.bin")

	corrupting := func(ctx context.Context, index int) ([]byte, error) {
		data, _ := contentFetcher(content, m.Metadata.ChunkSize, nil)(ctx, index)
		if index == 2 {
			data[10] ^= 0x01
		}
		return data, nil
	}

	err := Run(context.Background(), Config{
		Manifest:   m,
		Fetch:      corrupting,
		TargetPath: target,
	})
	if !errors.Is(err, ErrChunkMismatch) {
		t.Fatalf("Run with corrupt chunk: error = %v, want ErrChunkMismatch", err)
	}
	if _, statErr := os.Stat(target); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("target file exists after failed download")
	}

	// Verified progress before the bad chunk survives for a retry.
	state, present, err := readState(target + ".resume.json")
	if err != nil || !present {
		t.Fatalf("resume state after failure: present=%v err=%v", present, err)
	}
	if state.Completed != 2 {
		t.Errorf("resume state records %d completed chunks, want 2", state.Completed)
	}
}

func TestRunResumesAfterInterruption(t *testing.T) {
	content, m := testArtifact(t)
	target := filepath.Join(t.TempDir(), "artifact.bin")

	// First attempt dies after two chunks.
	failAfter := func(ctx context.Context, index int) ([]byte, error) {
		if index >= 2 {
			return nil, fmt.Errorf("connection reset")
		}
		return contentFetcher(content, m.Metadata.ChunkSize, nil)(ctx, index)
	}
	err := Run(context.Background(), Config{Manifest: m, Fetch: failAfter, TargetPath: target})
	if err == nil {
		t.Fatal("interrupted Run succeeded")
	}

	// Second attempt fetches only the remaining chunks.
	var requested []int
	err = Run(context.Background(), Config{
		Manifest:   m,
		Fetch:      contentFetcher(content, m.Metadata.ChunkSize, &requested),
		TargetPath: target,
	})
	if err != nil {
		t.Fatalf("resumed Run: %v", err)
	}
	for _, index := range requested {
		if index < 2 {
			t.Errorf("resumed run refetched already-verified chunk %d", index)
		}
	}

	installed, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("reading target: %v", err)
	}
	if !bytes.Equal(installed, content) {
		t.Error("resumed download produced wrong content")
	}
}

func TestRunRestartsOnPoisonedPartial(t *testing.T) {
	content, m := testArtifact(t)
	target := filepath.Join(t.TempDir(), "artifact.bin")

	failAfter := func(ctx context.Context, index int) ([]byte, error) {
		if index >= 3 {
			return nil, fmt.Errorf("connection reset")
		}
		return contentFetcher(content, m.Metadata.ChunkSize, nil)(ctx, index)
	}
	if err := Run(context.Background(), Config{Manifest: m, Fetch: failAfter, TargetPath: target}); err == nil {
		t.Fatal("interrupted Run succeeded")
	}

	// Flip a byte inside an already-verified chunk of the partial
	// file.
	partialPath := target + ".partial"
	partial, err := os.OpenFile(partialPath, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("opening partial: %v", err)
	}
	if _, err := partial.WriteAt([]byte{0xFF}, int64(chunk.MemoryChunkSize)+77); err != nil {
		t.Fatalf("corrupting partial: %v", err)
	}
	partial.Close()

	var requested []int
	err = Run(context.Background(), Config{
		Manifest:   m,
		Fetch:      contentFetcher(content, m.Metadata.ChunkSize, &requested),
		TargetPath: target,
	})
	if err != nil {
		t.Fatalf("Run after poisoning: %v", err)
	}
	if len(requested) == 0 || requested[0] != 0 {
		t.Errorf("poisoned partial was not discarded; first fetched chunk = %v", requested)
	}

	installed, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("reading target: %v", err)
	}
	if !bytes.Equal(installed, content) {
		t.Error("final content wrong after restart")
	}
}

func TestRunDiscardsStateForDifferentArtifact(t *testing.T) {
	content, m := testArtifact(t)
	target := filepath.Join(t.TempDir(), "artifact.bin")

	// Plant resume state claiming progress on another artifact.
	if err := writeState(target+".resume.json", resumeState{
		ArtifactID:      "some-other-artifact",
		ArtifactVersion: "1",
		Root:            "00",
		ChunkSize:       m.Metadata.ChunkSize,
		ChunkCount:      len(m.Commitment.ChunkDigests),
		TotalSize:       m.Metadata.Size,
		Completed:       2,
	}); err != nil {
		t.Fatalf("writeState: %v", err)
	}
	if err := os.WriteFile(target+".partial", content[:2*chunk.MemoryChunkSize], 0o644); err != nil {
		t.Fatalf("writing partial: %v", err)
	}

	var requested []int
	err := Run(context.Background(), Config{
		Manifest:   m,
		Fetch:      contentFetcher(content, m.Metadata.ChunkSize, &requested),
		TargetPath: target,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(requested) == 0 || requested[0] != 0 {
		t.Error("state for a different artifact was not discarded")
	}
}

func TestRunDiscardsTamperedState(t *testing.T) {
	content, m := testArtifact(t)
	target := filepath.Join(t.TempDir(), "artifact.bin")
	statePath := target + ".resume.json"

	if err := writeState(statePath, resumeState{
		ArtifactID:      m.ArtifactID,
		ArtifactVersion: m.ArtifactVersion,
		Root:            "00",
		ChunkSize:       m.Metadata.ChunkSize,
		ChunkCount:      len(m.Commitment.ChunkDigests),
		TotalSize:       m.Metadata.Size,
		Completed:       1,
	}); err != nil {
		t.Fatalf("writeState: %v", err)
	}

	// Hand-edit the state file without fixing the checksum.
	raw, err := os.ReadFile(statePath)
	if err != nil {
		t.Fatalf("reading state: %v", err)
	}
	edited := bytes.Replace(raw, []byte(`"completedChunks": 1`), []byte(`"completedChunks": 3`), 1)
	if bytes.Equal(edited, raw) {
		t.Fatal("test did not modify the state file")
	}
	if err := os.WriteFile(statePath, edited, 0o644); err != nil {
		t.Fatalf("writing edited state: %v", err)
	}

	if _, present, err := readState(statePath); present || !errors.Is(err, ErrResumeInvalid) {
		t.Errorf("tampered state: present=%v err=%v, want ErrResumeInvalid", present, err)
	}

	var requested []int
	if err := Run(context.Background(), Config{
		Manifest:   m,
		Fetch:      contentFetcher(content, m.Metadata.ChunkSize, &requested),
		TargetPath: target,
	}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(requested) == 0 || requested[0] != 0 {
		t.Error("tampered state was not discarded")
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	content, m := testArtifact(t)
	target := filepath.Join(t.TempDir(), "artifact.bin")

	ctx, cancel := context.WithCancel(context.Background())
	cancelAfter := func(fetchCtx context.Context, index int) ([]byte, error) {
		if index == 2 {
			cancel()
		}
		return contentFetcher(content, m.Metadata.ChunkSize, nil)(fetchCtx, index)
	}

	err := Run(ctx, Config{Manifest: m, Fetch: cancelAfter, TargetPath: target})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: error = %v, want context.Canceled", err)
	}

	// The persisted state must describe verified chunks only.
	state, present, err := readState(target + ".resume.json")
	if err != nil || !present {
		t.Fatalf("resume state after cancel: present=%v err=%v", present, err)
	}
	for index := range state.Completed {
		data, err := chunk.ReadAt(target+".partial", index, state.ChunkSize)
		if err != nil {
			t.Fatalf("ReadAt(%d): %v", index, err)
		}
		if !chunk.Verify(data, m.Commitment.ChunkDigests[index]) {
			t.Errorf("persisted chunk %d does not verify", index)
		}
	}
}

func TestRunRejectsInconsistentManifest(t *testing.T) {
	_, m := testArtifact(t)
	m.Metadata.Size += int64(chunk.MemoryChunkSize)

	err := Run(context.Background(), Config{
		Manifest:   m,
		Fetch:      func(context.Context, int) ([]byte, error) { return nil, nil },
		TargetPath: filepath.Join(t.TempDir(), "artifact.bin"),
	})
	if err == nil {
		t.Error("Run accepted a manifest whose size and chunk count disagree")
	}
}

func TestResumeStateRoundTripCarriesTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	before := time.Now().Add(-time.Minute)

	if err := writeState(path, resumeState{
		ArtifactID:      "artifact",
		ArtifactVersion: "1",
		Root:            "00",
		ChunkSize:       64,
		ChunkCount:      4,
		TotalSize:       256,
		Completed:       2,
	}); err != nil {
		t.Fatalf("writeState: %v", err)
	}

	state, present, err := readState(path)
	if err != nil || !present {
		t.Fatalf("readState: present=%v err=%v", present, err)
	}
	if state.Completed != 2 {
		t.Errorf("Completed = %d, want 2", state.Completed)
	}
	if state.Timestamp.IsZero() || state.Timestamp.Before(before) {
		t.Errorf("write time not recorded: %v", state.Timestamp)
	}
}
