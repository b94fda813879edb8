// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package hashing

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Size is the byte length of every hash value in the system. BLAKE3
// produces an extendable output; Attestry always truncates to 32 bytes.
const Size = 32

// Hash is a 32-byte BLAKE3 digest. It is a comparable value type so it
// can be used directly as a map key and compared with ==.
type Hash [Size]byte

// HashBytes computes the BLAKE3 digest of data. Deterministic: the same
// bytes always produce the same digest, across calls and across
// processes.
func HashBytes(data []byte) Hash {
	return Hash(blake3.Sum256(data))
}

// Hasher is a streaming hash computation. Feeding bytes incrementally
// through Write produces the same digest as HashBytes on the full
// concatenation. The zero value is not usable; call New.
type Hasher struct {
	inner *blake3.Hasher
}

// New returns a new streaming Hasher.
func New() *Hasher {
	return &Hasher{inner: blake3.New()}
}

// Write absorbs more input bytes. Never returns an error (the signature
// matches io.Writer so a Hasher can sit in an io.MultiWriter).
func (h *Hasher) Write(data []byte) (int, error) {
	return h.inner.Write(data)
}

// Sum returns the digest of all bytes written so far. The hasher state
// is not consumed: further writes continue the stream.
func (h *Hasher) Sum() Hash {
	var digest Hash
	copy(digest[:], h.inner.Sum(nil))
	return digest
}

// Reset restores the hasher to its initial state so it can be reused
// for a new input without allocating.
func (h *Hasher) Reset() {
	h.inner.Reset()
}

// HashFile computes the digest of the file at path, streaming the
// contents through the hash in fixed-size reads so memory usage is
// constant regardless of file size.
func HashFile(path string) (Hash, error) {
	file, err := os.Open(path)
	if err != nil {
		return Hash{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := New()
	if _, err := io.Copy(hasher, file); err != nil {
		return Hash{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return hasher.Sum(), nil
}

// FormatHash returns the lowercase hex encoding of a hash. This is the
// canonical textual form used in manifest JSON, resume state, and log
// output.
func FormatHash(digest Hash) string {
	return hex.EncodeToString(digest[:])
}

// ParseHash parses the canonical 64-character hex form back into a
// Hash. Returns an error for anything that is not exactly 32 bytes of
// valid hex.
func ParseHash(hexString string) (Hash, error) {
	var digest Hash
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("parsing hash: %w", err)
	}
	if len(decoded) != Size {
		return digest, fmt.Errorf("hash is %d bytes, want %d", len(decoded), Size)
	}
	copy(digest[:], decoded)
	return digest, nil
}
