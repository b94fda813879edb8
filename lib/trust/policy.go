// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package trust

import (
	"fmt"
	"time"
)

// Policy selects how strictly signer keys are evaluated.
type Policy string

const (
	// PolicyStrict trusts only team keyring keys.
	PolicyStrict Policy = "strict"

	// PolicyWarn trusts team keys silently and user-approved keys
	// with a warning surfaced to the caller.
	PolicyWarn Policy = "warn"

	// PolicyBestEffort trusts any key that is not revoked or
	// expired, always with a warning. For air-gapped or development
	// environments only.
	PolicyBestEffort Policy = "best-effort"
)

// ParsePolicy parses the configuration string form of a policy.
func ParsePolicy(name string) (Policy, error) {
	switch Policy(name) {
	case PolicyStrict, PolicyWarn, PolicyBestEffort:
		return Policy(name), nil
	default:
		return "", fmt.Errorf("trust: unknown policy %q", name)
	}
}

// Key lifetimes. Expiry is computed at verification time as
// issuance + lifetime; it is never stored, so extending a lifetime in
// a future release retroactively applies to existing keys.
const (
	// TeamKeyLifetime applies to keys in the team keyring.
	TeamKeyLifetime = 2 * 365 * 24 * time.Hour

	// ApprovedKeyLifetime applies to user-approved keys. Shorter
	// than the team lifetime: individually approved keys get less
	// standing trust than keys vetted into the team keyring.
	ApprovedKeyLifetime = 180 * 24 * time.Hour
)

// DefaultExpiryWarningDays is how far ahead of expiry a key starts
// surfacing warnings if the configuration does not say otherwise.
const DefaultExpiryWarningDays = 30

// Status is a key's position in the trust state machine.
type Status string

const (
	// StatusUnknown means the key appears in no keyring.
	StatusUnknown Status = "unknown"

	// StatusApproved means the user explicitly approved the key.
	StatusApproved Status = "approved"

	// StatusTeam means the key is in the team keyring.
	StatusTeam Status = "team"

	// StatusRevoked means the key was revoked. Terminal: no
	// subsequent approval resurrects it.
	StatusRevoked Status = "revoked"

	// StatusExpired means the key's lifetime has elapsed.
	StatusExpired Status = "expired"
)

// Decision is the result of a trust check.
type Decision struct {
	// Trusted reports whether the key is acceptable under the
	// active policy.
	Trusted bool

	// Warning is set when the key is trusted but the caller should
	// surface a caution: non-team key under WARN, any key under
	// BEST_EFFORT, or a key within the expiry warning window.
	Warning bool

	// Status is the key's evaluated status.
	Status Status

	// Reason is a human-readable explanation of the decision.
	Reason string
}

// State is the complete serializable trust policy state. Maps go from
// hex-encoded public keys to issuance timestamps. State values are
// plain data; wrap one in a Store for concurrent use.
type State struct {
	Policy            Policy               `yaml:"policy"`
	TeamKeyring       map[string]time.Time `yaml:"teamKeyring"`
	UserApprovedKeys  map[string]time.Time `yaml:"userApprovedKeys"`
	RevokedKeys       map[string]time.Time `yaml:"revokedKeys"`
	ExpiryWarningDays int                  `yaml:"expiryWarningDays"`
}

// NewState returns an empty state under the given policy.
func NewState(policy Policy) State {
	return State{
		Policy:            policy,
		TeamKeyring:       make(map[string]time.Time),
		UserApprovedKeys:  make(map[string]time.Time),
		RevokedKeys:       make(map[string]time.Time),
		ExpiryWarningDays: DefaultExpiryWarningDays,
	}
}
