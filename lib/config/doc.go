// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Attestry
// components.
//
// Configuration is loaded from a single file specified by:
//   - ATTESTRY_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. Environment variables
// never override file values. This keeps configuration deterministic
// and auditable: what the file says is what runs.
//
// The file also carries the trust policy state (team keyring, approved
// and revoked keys). Commands that mutate trust state write the whole
// file back with [SaveFile].
package config
