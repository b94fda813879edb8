// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package download

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/attestry/attestry/lib/hashing"
)

// ErrResumeInvalid means the resume manifest could not be used: it
// was corrupt, described a different artifact or root, or disagreed
// with the partial file on disk. The caller discards and restarts;
// this error never aborts a download.
var ErrResumeInvalid = errors.New("download: resume state invalid")

// resumeState is the on-disk resume manifest, written next to the
// partial file after every completed chunk. Completed is a prefix
// count: chunks [0, Completed) are fully written and verified.
type resumeState struct {
	ArtifactID      string `json:"artifactId"`
	ArtifactVersion string `json:"artifactVersion"`
	Root            string `json:"root"`
	ChunkSize       uint32 `json:"chunkSize"`
	ChunkCount      int    `json:"chunkCount"`
	TotalSize       int64  `json:"totalSize"`
	Completed       int    `json:"completedChunks"`

	// Timestamp is when this state was last written. Informational;
	// it plays no part in resume validation.
	Timestamp time.Time `json:"timestamp"`

	// Checksum is the hex BLAKE3 digest of this structure encoded
	// with Checksum empty. A state file that fails its own checksum
	// is discarded.
	Checksum string `json:"checksum"`
}

// checksum computes the self-checksum over the state with the
// Checksum field cleared.
func (s resumeState) checksum() (string, error) {
	s.Checksum = ""
	encoded, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("download: encoding resume state: %w", err)
	}
	return hashing.FormatHash(hashing.HashBytes(encoded)), nil
}

// writeState persists the resume manifest atomically: write to a
// temporary file in the same directory, fsync, rename over the old
// state. A crash mid-write leaves the previous state intact.
func writeState(path string, state resumeState) error {
	state.Timestamp = time.Now().UTC()
	sum, err := state.checksum()
	if err != nil {
		return err
	}
	state.Checksum = sum

	encoded, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("download: encoding resume state: %w", err)
	}

	temp, err := os.CreateTemp(filepath.Dir(path), ".resume-*")
	if err != nil {
		return fmt.Errorf("download: creating temp state file: %w", err)
	}
	tempPath := temp.Name()
	if _, err := temp.Write(encoded); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("download: writing resume state: %w", err)
	}
	if err := temp.Sync(); err != nil {
		temp.Close()
		os.Remove(tempPath)
		return fmt.Errorf("download: syncing resume state: %w", err)
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("download: closing resume state: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("download: installing resume state: %w", err)
	}
	return nil
}

// readState loads and checksums a resume manifest. Missing file is
// (resumeState{}, false, nil): a fresh download, not an error.
// A present but unusable file is ErrResumeInvalid.
func readState(path string) (resumeState, bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return resumeState{}, false, nil
	}
	if err != nil {
		return resumeState{}, false, fmt.Errorf("download: reading resume state: %w", err)
	}

	var state resumeState
	if err := json.Unmarshal(raw, &state); err != nil {
		return resumeState{}, false, fmt.Errorf("%w: %v", ErrResumeInvalid, err)
	}
	expected, err := state.checksum()
	if err != nil {
		return resumeState{}, false, err
	}
	if state.Checksum != expected {
		return resumeState{}, false, fmt.Errorf("%w: checksum mismatch", ErrResumeInvalid)
	}
	return state, true, nil
}
