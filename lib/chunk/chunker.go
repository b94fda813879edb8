// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package chunk

import (
	"fmt"
	"io"
	"os"

	"github.com/attestry/attestry/lib/hashing"
)

// Chunk describes one fixed-size slice of an artifact. Chunks are
// produced in strictly increasing offset order; every chunk has the
// configured size except possibly the last, which covers the
// remainder. Chunks never overlap and their sizes sum to the artifact
// size.
type Chunk struct {
	// Index is the zero-based position of this chunk.
	Index uint32

	// Offset is the byte offset of the chunk's first byte within the
	// artifact.
	Offset uint64

	// Size is the chunk length in bytes.
	Size uint32

	// Digest is the BLAKE3 hash of the chunk's bytes.
	Digest hashing.Hash
}

// Count returns the number of chunks a totalSize-byte artifact splits
// into at the given chunk size. Zero for a zero-length artifact.
func Count(totalSize int64, chunkSize uint32) int {
	if totalSize <= 0 || chunkSize == 0 {
		return 0
	}
	return int((totalSize + int64(chunkSize) - 1) / int64(chunkSize))
}

// SizeOf returns the size of the chunk at index for a totalSize-byte
// artifact: chunkSize for every chunk except the last, which covers
// the remainder.
func SizeOf(index int, totalSize int64, chunkSize uint32) uint32 {
	count := Count(totalSize, chunkSize)
	if index < 0 || index >= count {
		return 0
	}
	if index == count-1 {
		remainder := totalSize - int64(index)*int64(chunkSize)
		return uint32(remainder)
	}
	return chunkSize
}

// Buffer splits an in-memory byte slice into chunks and hashes each
// one. A zero-length input yields an empty slice; callers that
// require content must reject the empty result explicitly, because a
// chunk count of zero is never considered verified.
func Buffer(data []byte, chunkSize uint32) ([]Chunk, error) {
	if chunkSize == 0 {
		return nil, fmt.Errorf("chunk size must be positive")
	}
	if len(data) == 0 {
		return nil, nil
	}

	chunks := make([]Chunk, 0, Count(int64(len(data)), chunkSize))
	for offset := 0; offset < len(data); offset += int(chunkSize) {
		end := offset + int(chunkSize)
		if end > len(data) {
			end = len(data)
		}
		slice := data[offset:end]
		chunks = append(chunks, Chunk{
			Index:  uint32(len(chunks)),
			Offset: uint64(offset),
			Size:   uint32(len(slice)),
			Digest: hashing.HashBytes(slice),
		})
	}
	return chunks, nil
}

// File streams the file at path through the chunker without loading it
// wholly into memory: one chunk-sized buffer is reused for the entire
// pass. A zero-length file yields an empty slice.
func File(path string, chunkSize uint32) ([]Chunk, error) {
	if chunkSize == 0 {
		return nil, fmt.Errorf("chunk size must be positive")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s for chunking: %w", path, err)
	}
	defer file.Close()

	var (
		chunks []Chunk
		buffer = make([]byte, chunkSize)
		offset uint64
	)
	for {
		read, err := io.ReadFull(file, buffer)
		if read > 0 {
			slice := buffer[:read]
			chunks = append(chunks, Chunk{
				Index:  uint32(len(chunks)),
				Offset: offset,
				Size:   uint32(read),
				Digest: hashing.HashBytes(slice),
			})
			offset += uint64(read)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s at offset %d: %w", path, offset, err)
		}
	}
	return chunks, nil
}

// ReadAt reads the bytes of a single chunk by index from the file at
// path, without touching any other chunk. The chunk's extent is
// computed from the file's actual size, so callers can re-read and
// re-verify individual chunks of a partial download.
func ReadAt(path string, index int, chunkSize uint32) ([]byte, error) {
	if chunkSize == 0 {
		return nil, fmt.Errorf("chunk size must be positive")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s for chunk read: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("statting %s: %w", path, err)
	}

	size := SizeOf(index, info.Size(), chunkSize)
	if size == 0 {
		return nil, fmt.Errorf("chunk index %d out of range for %d-byte file with %d-byte chunks",
			index, info.Size(), chunkSize)
	}

	buffer := make([]byte, size)
	if _, err := file.ReadAt(buffer, int64(index)*int64(chunkSize)); err != nil {
		return nil, fmt.Errorf("reading chunk %d of %s: %w", index, path, err)
	}
	return buffer, nil
}

// Verify reports whether data hashes to the expected digest. O(len
// of the chunk) with no allocation beyond the caller's chunk buffer.
func Verify(data []byte, expected hashing.Hash) bool {
	return hashing.HashBytes(data) == expected
}

// Digests extracts the ordered digest list from a chunk slice. This is
// the form the commitment and manifest layers consume.
func Digests(chunks []Chunk) []hashing.Hash {
	digests := make([]hashing.Hash, len(chunks))
	for i, c := range chunks {
		digests[i] = c.Digest
	}
	return digests
}
