// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/attestry/attestry/lib/chunk"
	"github.com/attestry/attestry/lib/commitment"
	"github.com/attestry/attestry/lib/hashing"
	"github.com/attestry/attestry/lib/manifest"
)

// FetchFunc retrieves one chunk by index. The transport behind it is
// the caller's business: HTTP range requests, a peer protocol, a
// local mirror. The returned bytes are verified against the manifest
// before they touch disk, so the fetcher is fully untrusted.
type FetchFunc func(ctx context.Context, index int) ([]byte, error)

// ReverifyDepth is how many trailing completed chunks are re-hashed
// from the partial file before a resumed download fetches anything
// new. Bounded so resuming a large artifact stays cheap while still
// catching a partial file modified since the last run.
const ReverifyDepth = 5

// ErrChunkMismatch means a fetched chunk did not match the manifest's
// digest (or expected size) for its index. The chunk was discarded
// without being written; retrying the download is safe.
var ErrChunkMismatch = errors.New("download: chunk digest mismatch")

// Config holds the inputs to Run.
type Config struct {
	// Manifest describes the artifact. The caller is expected to
	// have verified its signature and signer trust already; Run
	// only enforces byte integrity.
	Manifest *manifest.Manifest

	// Fetch retrieves chunks.
	Fetch FetchFunc

	// TargetPath is the final artifact location. The partial file
	// and resume manifest live next to it as TargetPath+".partial"
	// and TargetPath+".resume.json".
	TargetPath string

	// Logger receives progress and resume decisions. If nil, a
	// no-op logger is used.
	Logger *slog.Logger
}

// Run downloads, verifies, and installs the artifact. On success the
// verified bytes are at TargetPath and all working files are gone. On
// error the partial file and resume manifest are left in a state a
// later Run can pick up from, except when verification implicates the
// partial file itself, in which case it is discarded.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Manifest == nil || cfg.Fetch == nil || cfg.TargetPath == "" {
		return fmt.Errorf("download: Manifest, Fetch, and TargetPath are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m := cfg.Manifest
	chunkSize := m.Metadata.ChunkSize
	totalSize := m.Metadata.Size
	count := len(m.Commitment.ChunkDigests)
	if chunkSize == 0 || totalSize <= 0 || count == 0 {
		return fmt.Errorf("download: manifest metadata incomplete")
	}
	if expected := chunk.Count(totalSize, chunkSize); expected != count {
		return fmt.Errorf("download: manifest lists %d chunks but size %d at chunk size %d needs %d",
			count, totalSize, chunkSize, expected)
	}

	partialPath := cfg.TargetPath + ".partial"
	statePath := cfg.TargetPath + ".resume.json"

	completed := resumePoint(m, partialPath, statePath, logger)
	if completed == 0 {
		// Fresh start: clear leftovers from any discarded attempt.
		if err := os.Remove(partialPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("download: clearing partial file: %w", err)
		}
		if err := os.Remove(statePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("download: clearing resume state: %w", err)
		}
	}

	partial, err := os.OpenFile(partialPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("download: opening partial file: %w", err)
	}
	defer partial.Close()

	logger.Info("download starting",
		"artifact_id", m.ArtifactID,
		"chunks_total", count,
		"chunks_done", completed,
	)

	for index := completed; index < count; index++ {
		if err := ctx.Err(); err != nil {
			// Progress through index-1 is already persisted.
			return err
		}

		data, err := cfg.Fetch(ctx, index)
		if err != nil {
			return fmt.Errorf("download: fetching chunk %d: %w", index, err)
		}
		expectedSize := chunk.SizeOf(index, totalSize, chunkSize)
		if uint32(len(data)) != expectedSize {
			return fmt.Errorf("%w: chunk %d is %d bytes, want %d",
				ErrChunkMismatch, index, len(data), expectedSize)
		}
		if !chunk.Verify(data, m.Commitment.ChunkDigests[index]) {
			return fmt.Errorf("%w: chunk %d", ErrChunkMismatch, index)
		}

		offset := int64(index) * int64(chunkSize)
		if _, err := partial.WriteAt(data, offset); err != nil {
			return fmt.Errorf("download: writing chunk %d: %w", index, err)
		}
		if err := partial.Sync(); err != nil {
			return fmt.Errorf("download: syncing chunk %d: %w", index, err)
		}

		if err := writeState(statePath, resumeState{
			ArtifactID:      m.ArtifactID,
			ArtifactVersion: m.ArtifactVersion,
			Root:            hashing.FormatHash(m.Commitment.Root),
			ChunkSize:       chunkSize,
			ChunkCount:      count,
			TotalSize:       totalSize,
			Completed:       index + 1,
		}); err != nil {
			return err
		}
	}

	if err := partial.Close(); err != nil {
		return fmt.Errorf("download: closing partial file: %w", err)
	}

	// Final pass: re-chunk the assembled file and hold it against
	// the manifest. Per-chunk checks already ran, so a failure here
	// means the file changed underneath us; the partial is not
	// salvageable.
	actualChunks, err := chunk.File(partialPath, chunkSize)
	if err != nil {
		return fmt.Errorf("download: re-reading assembled file: %w", err)
	}
	actualDigests := chunk.Digests(actualChunks)
	actualRoot, err := commitment.ComputeRoot(m.Commitment.Strategy, actualDigests)
	if err != nil {
		return err
	}
	if err := m.VerifyIntegrity(actualDigests, actualRoot); err != nil {
		discard(partialPath, statePath, logger)
		return fmt.Errorf("download: final verification: %w", err)
	}

	if err := finalize(partialPath, cfg.TargetPath); err != nil {
		return err
	}
	if err := os.Remove(statePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("download: removing resume state: %w", err)
	}

	logger.Info("download complete",
		"artifact_id", m.ArtifactID,
		"target", cfg.TargetPath,
		"root", hashing.FormatHash(actualRoot),
	)
	return nil
}

// resumePoint decides where to start. It returns the number of chunks
// that can be trusted from a previous run, or 0 for a fresh start.
// Resume state is advisory: anything inconsistent means restart, never
// failure.
func resumePoint(m *manifest.Manifest, partialPath, statePath string, logger *slog.Logger) int {
	state, present, err := readState(statePath)
	if err != nil || !present {
		if err != nil {
			logger.Warn("discarding resume state", "reason", err.Error())
		}
		return 0
	}

	if state.ArtifactID != m.ArtifactID ||
		state.ArtifactVersion != m.ArtifactVersion ||
		state.Root != hashing.FormatHash(m.Commitment.Root) ||
		state.ChunkSize != m.Metadata.ChunkSize ||
		state.ChunkCount != len(m.Commitment.ChunkDigests) ||
		state.TotalSize != m.Metadata.Size {
		logger.Warn("discarding resume state", "reason", "describes a different artifact or manifest")
		return 0
	}
	if state.Completed <= 0 || state.Completed > state.ChunkCount {
		logger.Warn("discarding resume state", "reason", "completed chunk count out of range")
		return 0
	}

	info, err := os.Stat(partialPath)
	if err != nil {
		logger.Warn("discarding resume state", "reason", "partial file missing")
		return 0
	}
	lastOffset := int64(state.Completed-1) * int64(state.ChunkSize)
	lastSize := chunk.SizeOf(state.Completed-1, state.TotalSize, state.ChunkSize)
	if info.Size() < lastOffset+int64(lastSize) {
		logger.Warn("discarding resume state", "reason", "partial file shorter than recorded progress")
		return 0
	}

	// Re-hash the tail of the partial file. A file modified since
	// the last run (bit rot, tampering, a concurrent writer) is
	// caught here instead of surviving into the final artifact.
	reverifyFrom := state.Completed - ReverifyDepth
	if reverifyFrom < 0 {
		reverifyFrom = 0
	}
	for index := reverifyFrom; index < state.Completed; index++ {
		data, err := chunk.ReadAt(partialPath, index, state.ChunkSize)
		if err != nil {
			logger.Warn("discarding resume state", "reason", fmt.Sprintf("re-reading chunk %d: %v", index, err))
			return 0
		}
		if !chunk.Verify(data, m.Commitment.ChunkDigests[index]) {
			logger.Warn("discarding resume state",
				"reason", "partial file failed re-verification",
				"chunk", index,
			)
			return 0
		}
	}

	logger.Info("resuming download",
		"artifact_id", m.ArtifactID,
		"chunks_done", state.Completed,
		"reverified", state.Completed-reverifyFrom,
	)
	return state.Completed
}

// finalize moves the verified partial file to the target path. Rename
// is atomic on the same filesystem; across filesystems it falls back
// to copy then delete, syncing the copy before the target name
// appears.
func finalize(partialPath, targetPath string) error {
	if err := os.Rename(partialPath, targetPath); err == nil {
		return nil
	}

	source, err := os.Open(partialPath)
	if err != nil {
		return fmt.Errorf("download: opening partial for copy: %w", err)
	}
	defer source.Close()

	tempTarget := targetPath + ".installing"
	target, err := os.OpenFile(tempTarget, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("download: creating target: %w", err)
	}
	if _, err := io.Copy(target, source); err != nil {
		target.Close()
		os.Remove(tempTarget)
		return fmt.Errorf("download: copying to target: %w", err)
	}
	if err := target.Sync(); err != nil {
		target.Close()
		os.Remove(tempTarget)
		return fmt.Errorf("download: syncing target: %w", err)
	}
	if err := target.Close(); err != nil {
		os.Remove(tempTarget)
		return fmt.Errorf("download: closing target: %w", err)
	}
	if err := os.Rename(tempTarget, targetPath); err != nil {
		os.Remove(tempTarget)
		return fmt.Errorf("download: installing target: %w", err)
	}
	if err := os.Remove(partialPath); err != nil {
		return fmt.Errorf("download: removing partial after copy: %w", err)
	}
	return nil
}

// discard removes the partial file and resume state after a failure
// that implicates the partial bytes themselves.
func discard(partialPath, statePath string, logger *slog.Logger) {
	if err := os.Remove(partialPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("removing partial file", "error", err.Error())
	}
	if err := os.Remove(statePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("removing resume state", "error", err.Error())
	}
}
