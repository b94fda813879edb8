// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package chunk

import (
	"testing"

	"github.com/attestry/attestry/lib/hashing"
	"github.com/attestry/attestry/lib/testutil"
)

func TestChunkSizeTable(t *testing.T) {
	cases := []struct {
		artifactType ArtifactType
		want         uint32
	}{
		{TypeModel, 1048576},
		{TypeMemory, 65536},
		{TypePlugin, 262144},
		{TypeUI, 524288},
	}
	for _, tc := range cases {
		size, err := tc.artifactType.ChunkSize()
		if err != nil {
			t.Errorf("%s: %v", tc.artifactType, err)
			continue
		}
		if size != tc.want {
			t.Errorf("%s chunk size = %d, want %d", tc.artifactType, size, tc.want)
		}
	}
}

func TestUnknownArtifactTypeRejected(t *testing.T) {
	if _, err := ParseArtifactType("firmware"); err == nil {
		t.Error("ParseArtifactType accepted an unknown type")
	}
	if _, err := ArtifactType("").ChunkSize(); err == nil {
		t.Error("empty artifact type produced a chunk size")
	}
}

func TestBufferEmptyInput(t *testing.T) {
	chunks, err := Buffer(nil, ModelChunkSize)
	if err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for empty input, got %d", len(chunks))
	}
}

func TestBufferRejectsZeroChunkSize(t *testing.T) {
	if _, err := Buffer([]byte("data"), 0); err == nil {
		t.Error("Buffer accepted chunk size 0")
	}
}

func TestBufferExactMultiple(t *testing.T) {
	input := testutil.PatternBytes(4 * MemoryChunkSize)

	chunks, err := Buffer(input, MemoryChunkSize)
	if err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	if len(chunks) != 4 {
		t.Fatalf("chunk count = %d, want 4", len(chunks))
	}
	for i, c := range chunks {
		if c.Size != MemoryChunkSize {
			t.Errorf("chunk %d size = %d, want %d", i, c.Size, MemoryChunkSize)
		}
	}
}

func TestBufferModelHalfChunkTail(t *testing.T) {
	// 2.5 MiB at the MODEL chunk size must produce exactly three
	// chunks: 1048576 / 1048576 / 524288.
	input := testutil.PatternBytes(ModelChunkSize*2 + ModelChunkSize/2)

	chunks, err := Buffer(input, ModelChunkSize)
	if err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("chunk count = %d, want 3", len(chunks))
	}
	wantSizes := []uint32{1048576, 1048576, 524288}
	for i, c := range chunks {
		if c.Size != wantSizes[i] {
			t.Errorf("chunk %d size = %d, want %d", i, c.Size, wantSizes[i])
		}
	}
}

func TestBufferInvariants(t *testing.T) {
	input := testutil.PatternBytes(3*PluginChunkSize + 100)

	chunks, err := Buffer(input, PluginChunkSize)
	if err != nil {
		t.Fatalf("Buffer: %v", err)
	}

	var total uint64
	for i, c := range chunks {
		if int(c.Index) != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.Offset != total {
			t.Errorf("chunk %d offset = %d, want %d (chunks must be contiguous)", i, c.Offset, total)
		}
		total += uint64(c.Size)
	}
	if total != uint64(len(input)) {
		t.Errorf("chunk sizes sum to %d, input is %d bytes", total, len(input))
	}
}

func TestFileMatchesBuffer(t *testing.T) {
	input := testutil.PatternBytes(2*MemoryChunkSize + 777)
	path := testutil.WriteFixture(t, t.TempDir(), "artifact.bin", input)

	fromBuffer, err := Buffer(input, MemoryChunkSize)
	if err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	fromFile, err := File(path, MemoryChunkSize)
	if err != nil {
		t.Fatalf("File: %v", err)
	}

	if len(fromFile) != len(fromBuffer) {
		t.Fatalf("file chunking produced %d chunks, buffer produced %d", len(fromFile), len(fromBuffer))
	}
	for i := range fromFile {
		if fromFile[i] != fromBuffer[i] {
			t.Errorf("chunk %d differs between file and buffer chunking", i)
		}
	}
}

func TestFileEmpty(t *testing.T) {
	path := testutil.WriteFixture(t, t.TempDir(), "empty.bin", nil)
	chunks, err := File(path, MemoryChunkSize)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for empty file, got %d", len(chunks))
	}
}

func TestReadAtSingleChunk(t *testing.T) {
	input := testutil.PatternBytes(3*MemoryChunkSize + 500)
	path := testutil.WriteFixture(t, t.TempDir(), "artifact.bin", input)

	chunks, err := Buffer(input, MemoryChunkSize)
	if err != nil {
		t.Fatalf("Buffer: %v", err)
	}

	for _, index := range []int{0, 2, 3} {
		data, err := ReadAt(path, index, MemoryChunkSize)
		if err != nil {
			t.Fatalf("ReadAt(%d): %v", index, err)
		}
		if uint32(len(data)) != chunks[index].Size {
			t.Errorf("ReadAt(%d) returned %d bytes, want %d", index, len(data), chunks[index].Size)
		}
		if !Verify(data, chunks[index].Digest) {
			t.Errorf("ReadAt(%d) bytes do not match the chunk digest", index)
		}
	}
}

func TestReadAtOutOfRange(t *testing.T) {
	path := testutil.WriteFixture(t, t.TempDir(), "small.bin", testutil.PatternBytes(100))
	if _, err := ReadAt(path, 5, MemoryChunkSize); err == nil {
		t.Error("ReadAt accepted an out-of-range index")
	}
}

func TestVerifyDetectsSingleByteMutation(t *testing.T) {
	data := testutil.PatternBytes(MemoryChunkSize)
	digest := hashing.HashBytes(data)

	if !Verify(data, digest) {
		t.Fatal("Verify rejected unmodified bytes")
	}

	data[MemoryChunkSize/2] ^= 0x80
	if Verify(data, digest) {
		t.Error("Verify accepted mutated bytes")
	}
}

func TestDeterministicAcrossCalls(t *testing.T) {
	input := testutil.PatternBytes(5 * MemoryChunkSize)

	first, _ := Buffer(input, MemoryChunkSize)
	second, _ := Buffer(input, MemoryChunkSize)
	for i := range first {
		if first[i].Digest != second[i].Digest {
			t.Errorf("chunk %d digest differs between identical runs", i)
		}
	}
}

func TestCountAndSizeOf(t *testing.T) {
	cases := []struct {
		total     int64
		chunkSize uint32
		count     int
		lastSize  uint32
	}{
		{0, 100, 0, 0},
		{1, 100, 1, 1},
		{100, 100, 1, 100},
		{101, 100, 2, 1},
		{250, 100, 3, 50},
	}
	for _, tc := range cases {
		if got := Count(tc.total, tc.chunkSize); got != tc.count {
			t.Errorf("Count(%d, %d) = %d, want %d", tc.total, tc.chunkSize, got, tc.count)
		}
		if tc.count > 0 {
			if got := SizeOf(tc.count-1, tc.total, tc.chunkSize); got != tc.lastSize {
				t.Errorf("SizeOf(last, %d, %d) = %d, want %d", tc.total, tc.chunkSize, got, tc.lastSize)
			}
		}
	}
}
