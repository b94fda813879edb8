// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

// Command attestry-keys manages signing keys and trust state.
//
// It generates BIP-39 mnemonics, derives and displays signing keys,
// and edits the trust sections of the configuration file: adding team
// keys, approving and revoking publisher keys, and reporting keys
// near expiry.
package main
