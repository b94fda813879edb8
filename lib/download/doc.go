// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

// Package download implements resumable, verify-as-you-go artifact
// retrieval driven by a signed manifest.
//
// Chunks are fetched sequentially through a caller-supplied
// [FetchFunc], hashed, and compared against the manifest's digest
// list before a single byte is written to the partial file. Progress
// is persisted to a checksummed resume manifest after every chunk, so
// an interrupted download continues where it stopped instead of
// starting over.
//
// Resume is treated as untrusted input. The resume manifest's own
// checksum, artifact identity, and expected root must all match the
// current request, and the tail of the partial file (the last
// [ReverifyDepth] completed chunks) is re-hashed against the manifest
// before any new chunk is fetched. Any inconsistency discards the
// partial state and restarts from chunk zero; a poisoned partial file
// never survives into a completed download.
//
// After the last chunk, the whole partial file is re-chunked and the
// commitment root recomputed and compared against the manifest. Only
// then is the file moved into place, atomically when the filesystem
// allows rename, with a copy-and-delete fallback across filesystems.
package download
