// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
)

// fataler is the subset of *testing.T the fixture helpers need.
type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

// WriteFixture writes content to name inside dir, creating parent
// directories as needed, and fails the test on error. Returns the
// full path.
func WriteFixture(t fataler, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating fixture directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
	return path
}

// PatternBytes returns size bytes of a deterministic non-trivial
// pattern. Tests use this instead of crypto/rand so failures are
// reproducible.
func PatternBytes(size int) []byte {
	data := make([]byte, size)
	state := uint64(0x9E3779B97F4A7C15)
	for i := range data {
		state = state*6364136223846793005 + 1442695040888963407
		data[i] = byte(state >> 56)
	}
	return data
}
