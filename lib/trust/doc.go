// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

// Package trust decides whether a signer's public key is acceptable
// under the active trust policy.
//
// Trust state is never ambient: it lives in an explicit State value,
// usually held behind a Store whose mutation API (approve, revoke) is
// atomic with respect to concurrent trust checks. A check never
// observes a half-applied revocation.
//
// The evaluation order is fixed: revocation first, then expiration,
// then approval status. Revocation is terminal and wins under every
// policy: a key that is both revoked and in the team keyring is
// rejected everywhere. Expiration is recomputed at verification time
// from the key's issuance time, never cached.
package trust
