// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package hashing

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHashBytesDeterministic(t *testing.T) {
	input := make([]byte, 4096)
	for i := range input {
		input[i] = byte(i * 31)
	}

	first := HashBytes(input)
	second := HashBytes(input)
	if first != second {
		t.Error("repeated HashBytes calls on the same input differ")
	}
}

func TestHashBytesOrderSensitive(t *testing.T) {
	a := []byte("first half of the input")
	b := []byte("second half of the input")

	forward := HashBytes(append(append([]byte{}, a...), b...))
	backward := HashBytes(append(append([]byte{}, b...), a...))
	if forward == backward {
		t.Error("hash(a||b) == hash(b||a); hash is not order-sensitive")
	}
}

func TestHashBytesSingleBitSensitivity(t *testing.T) {
	input := make([]byte, 1024)
	base := HashBytes(input)

	mutated := make([]byte, len(input))
	copy(mutated, input)
	mutated[0] ^= 0x01

	if HashBytes(mutated) == base {
		t.Error("flipping one bit did not change the digest")
	}
}

func TestStreamingMatchesOneShot(t *testing.T) {
	input := make([]byte, 100*1024)
	for i := range input {
		input[i] = byte(i ^ 0x5A)
	}

	oneShot := HashBytes(input)

	// Feed the same bytes in uneven increments.
	hasher := New()
	splits := []int{0, 1, 17, 4096, 4097, 65536, len(input)}
	for i := 1; i < len(splits); i++ {
		hasher.Write(input[splits[i-1]:splits[i]])
	}

	if streamed := hasher.Sum(); streamed != oneShot {
		t.Errorf("streaming digest %s != one-shot digest %s",
			FormatHash(streamed), FormatHash(oneShot))
	}
}

func TestHasherReset(t *testing.T) {
	hasher := New()
	hasher.Write([]byte("discarded input"))
	hasher.Reset()
	hasher.Write([]byte("kept input"))

	if hasher.Sum() != HashBytes([]byte("kept input")) {
		t.Error("Reset did not clear the hasher state")
	}
}

func TestHashFile(t *testing.T) {
	content := make([]byte, 300*1024)
	for i := range content {
		content[i] = byte(i * 7)
	}

	path := filepath.Join(t.TempDir(), "artifact.bin")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	fromFile, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if fromFile != HashBytes(content) {
		t.Error("HashFile digest differs from HashBytes on the same content")
	}
}

func TestHashFileMissing(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "does-not-exist")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	digest := HashBytes([]byte("round trip"))
	parsed, err := ParseHash(FormatHash(digest))
	if err != nil {
		t.Fatalf("ParseHash: %v", err)
	}
	if parsed != digest {
		t.Error("format/parse round trip lost the digest")
	}
}

func TestParseHashRejectsBadInput(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"short", "abcd"},
		{"not hex", "zz" + FormatHash(Hash{})[2:]},
		{"too long", FormatHash(Hash{}) + "00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseHash(tc.input); err == nil {
				t.Errorf("ParseHash(%q) accepted invalid input", tc.input)
			}
		})
	}
}
