// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

// Command attestry-publish chunks an artifact file, computes its
// commitment, and writes a signed manifest for it.
//
// The signing key is derived from a BIP-39 mnemonic read on stdin
// (hidden when stdin is a terminal); the derivation account and index
// come from the publisher section of the configuration file.
package main
