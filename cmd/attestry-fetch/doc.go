// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

// Command attestry-fetch retrieves and verifies an artifact described
// by a signed manifest.
//
// The pipeline is: parse the manifest, verify its signature, evaluate
// the publisher key against the trust policy, download chunk by chunk
// with per-chunk and final-root verification (resuming any previous
// partial download), install the artifact atomically, and record an
// encrypted verification receipt.
package main
