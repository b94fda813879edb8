// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability. Production code
// injects Real(); tests inject NewFake() and advance time explicitly.
// Key expiry, manifest timestamps, and resume-state timestamps all go
// through a Clock so their behavior is deterministic under test.
package clock
