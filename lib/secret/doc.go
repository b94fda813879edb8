// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret provides a guarded memory buffer for sensitive data:
// seed material, private signing keys, and the receipt store master
// key.
//
// Buffer allocates memory outside the Go heap via mmap(MAP_ANONYMOUS),
// locks it into physical RAM via mlock (preventing swap), and marks it
// excluded from core dumps via madvise(MADV_DONTDUMP). On Close, the
// memory is zeroed, unlocked, and unmapped. Because the memory is
// outside the Go heap, the garbage collector never copies or relocates
// it, so zeroing on Close genuinely removes the secret from memory.
package secret
