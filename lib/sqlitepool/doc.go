// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the Attestry-standard SQLite connection
// pool.
//
// Local structured storage in Attestry (the receipt store, key
// metadata, download bookkeeping) goes through this package. It wraps
// zombiezen.com/go/sqlite with production defaults: WAL journal mode,
// NORMAL synchronous, memory-mapped reads, and a busy timeout so
// concurrent writers wait instead of failing with SQLITE_BUSY.
//
// The pool is built on zombiezen's sqlitex.Pool, which manages a
// fixed-size set of connections. Callers [Pool.Take] a connection,
// perform work, and [Pool.Put] it back. Connections are NOT safe for
// concurrent use. Each goroutine holds its own connection for the
// duration of its work.
//
// # Pragmas
//
// Every connection in the pool is initialized with these pragmas:
//
//   - journal_mode=WAL: write-ahead logging for concurrent readers and
//     a single writer. Reads never block writes; writes never block
//     reads.
//   - synchronous=NORMAL: transactions survive process crashes. Not
//     durable across power failure, which is acceptable here: every
//     record the store holds can be recomputed or re-verified from the
//     artifact bytes and manifests it describes.
//   - busy_timeout=5000: wait up to 5 seconds for a write lock instead
//     of returning SQLITE_BUSY immediately.
//   - foreign_keys=OFF: the stores manage referential integrity
//     explicitly; receipts are content-addressed and never cascade.
//   - cache_size=-8192: 8 MB page cache per connection.
//   - mmap_size=268435456: 256 MB memory-mapped I/O for reads.
//   - temp_store=MEMORY: temporary tables and indexes in memory.
//
// # Design
//
// This package is intentionally thin: it applies standard pragmas and
// exposes the underlying zombiezen types directly. There is no query
// builder and no attempt to hide SQLite's connection model. Callers
// write SQL, use sqlitex.Execute for cached statements, and manage
// transactions with sqlitex.ImmediateTransaction.
package sqlitepool
