// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package trust

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/attestry/attestry/lib/clock"
)

// Errors returned by trust state mutations.
var (
	ErrKeyRevoked = errors.New("trust: key is revoked")
	ErrBadKey     = errors.New("trust: malformed public key")
)

// Store holds trust state behind a lock so that approvals and
// revocations are atomic with respect to concurrent trust checks.
type Store struct {
	mu    sync.RWMutex
	state State
	clock clock.Clock
}

// NewStore wraps a state value. The state is copied; later changes to
// the caller's value do not affect the store. A nil clock means
// clock.Real().
func NewStore(state State, clk clock.Clock) (*Store, error) {
	if clk == nil {
		clk = clock.Real()
	}
	copied := NewState(state.Policy)
	if _, err := ParsePolicy(string(state.Policy)); err != nil {
		return nil, err
	}
	if state.ExpiryWarningDays > 0 {
		copied.ExpiryWarningDays = state.ExpiryWarningDays
	}
	for _, pair := range []struct {
		src map[string]time.Time
		dst map[string]time.Time
	}{
		{state.TeamKeyring, copied.TeamKeyring},
		{state.UserApprovedKeys, copied.UserApprovedKeys},
		{state.RevokedKeys, copied.RevokedKeys},
	} {
		for encoded, issuedAt := range pair.src {
			if _, err := decodeKey(encoded); err != nil {
				return nil, err
			}
			pair.dst[encoded] = issuedAt
		}
	}
	return &Store{state: copied, clock: clk}, nil
}

// NewEmptyStore returns a store with no keys under the given policy.
func NewEmptyStore(policy Policy, clk clock.Clock) (*Store, error) {
	return NewStore(NewState(policy), clk)
}

// Policy returns the active policy.
func (s *Store) Policy() Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Policy
}

// SetPolicy switches the active policy.
func (s *Store) SetPolicy(policy Policy) error {
	if _, err := ParsePolicy(string(policy)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Policy = policy
	return nil
}

// AddTeamKey records a team keyring key with the given issuance time.
// Idempotent: re-adding an existing key keeps its original issuance.
func (s *Store) AddTeamKey(public ed25519.PublicKey, issuedAt time.Time) error {
	encoded, err := encodeKey(public)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, present := s.state.TeamKeyring[encoded]; !present {
		s.state.TeamKeyring[encoded] = issuedAt.UTC()
	}
	return nil
}

// ApproveKey records a user approval for a key, with issuance at the
// current time. Idempotent for already-approved keys. Approving a
// revoked key fails with ErrKeyRevoked: revocation is terminal.
func (s *Store) ApproveKey(public ed25519.PublicKey) error {
	encoded, err := encodeKey(public)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, revoked := s.state.RevokedKeys[encoded]; revoked {
		return fmt.Errorf("%w: %s", ErrKeyRevoked, encoded)
	}
	if _, present := s.state.UserApprovedKeys[encoded]; !present {
		s.state.UserApprovedKeys[encoded] = s.clock.Now().UTC()
	}
	return nil
}

// RevokeKey marks a key revoked at the current time. The key stays in
// whatever keyring it was in; revocation is checked first during
// verification, so membership elsewhere no longer matters. Idempotent.
func (s *Store) RevokeKey(public ed25519.PublicKey) error {
	encoded, err := encodeKey(public)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, present := s.state.RevokedKeys[encoded]; !present {
		s.state.RevokedKeys[encoded] = s.clock.Now().UTC()
	}
	return nil
}

// VerifyKeyTrust evaluates a signer key against the current state and
// policy. Checks run in fixed order: revocation, then expiration, then
// approval status. A revoked key is rejected under every policy even
// if it also sits in the team keyring.
func (s *Store) VerifyKeyTrust(public ed25519.PublicKey) (Decision, error) {
	encoded, err := encodeKey(public)
	if err != nil {
		return Decision{}, err
	}
	now := s.clock.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if revokedAt, revoked := s.state.RevokedKeys[encoded]; revoked {
		return Decision{
			Status: StatusRevoked,
			Reason: fmt.Sprintf("key revoked at %s", revokedAt.Format(time.RFC3339)),
		}, nil
	}

	teamIssued, inTeam := s.state.TeamKeyring[encoded]
	approvedAt, approved := s.state.UserApprovedKeys[encoded]

	// Expiry applies to keys with a recorded issuance. Team
	// membership governs the lifetime when a key is in both rings.
	if inTeam || approved {
		issuedAt, lifetime := approvedAt, ApprovedKeyLifetime
		if inTeam {
			issuedAt, lifetime = teamIssued, TeamKeyLifetime
		}
		expiresAt := issuedAt.Add(lifetime)
		if !now.Before(expiresAt) {
			return Decision{
				Status: StatusExpired,
				Reason: fmt.Sprintf("key expired at %s", expiresAt.Format(time.RFC3339)),
			}, nil
		}
		decision := s.statusDecision(inTeam)
		warnWindow := time.Duration(s.state.ExpiryWarningDays) * 24 * time.Hour
		if decision.Trusted && now.Add(warnWindow).After(expiresAt) {
			decision.Warning = true
			decision.Reason = fmt.Sprintf("%s; key expires at %s", decision.Reason, expiresAt.Format(time.RFC3339))
		}
		return decision, nil
	}

	// Unknown key: only BEST_EFFORT accepts it, always with a
	// warning.
	if s.state.Policy == PolicyBestEffort {
		return Decision{
			Trusted: true,
			Warning: true,
			Status:  StatusUnknown,
			Reason:  "unknown key accepted under best-effort policy",
		}, nil
	}
	return Decision{
		Status: StatusUnknown,
		Reason: fmt.Sprintf("key not in any keyring under %s policy", s.state.Policy),
	}, nil
}

// statusDecision maps a live (non-revoked, non-expired) key's ring
// membership to a decision under the active policy. Caller holds the
// read lock.
func (s *Store) statusDecision(inTeam bool) Decision {
	if inTeam {
		// Best-effort acceptance always carries a warning, even for
		// team keys.
		if s.state.Policy == PolicyBestEffort {
			return Decision{
				Trusted: true,
				Warning: true,
				Status:  StatusTeam,
				Reason:  "team keyring key accepted under best-effort policy",
			}
		}
		return Decision{Trusted: true, Status: StatusTeam, Reason: "team keyring key"}
	}
	switch s.state.Policy {
	case PolicyStrict:
		return Decision{
			Status: StatusApproved,
			Reason: "user-approved key rejected under strict policy",
		}
	case PolicyWarn:
		return Decision{
			Trusted: true,
			Warning: true,
			Status:  StatusApproved,
			Reason:  "user-approved key accepted with warning",
		}
	default:
		return Decision{
			Trusted: true,
			Warning: true,
			Status:  StatusApproved,
			Reason:  "user-approved key accepted under best-effort policy",
		}
	}
}

// Snapshot returns a deep copy of the current state, suitable for
// serialization to the configuration file.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := NewState(s.state.Policy)
	copied.ExpiryWarningDays = s.state.ExpiryWarningDays
	for encoded, issuedAt := range s.state.TeamKeyring {
		copied.TeamKeyring[encoded] = issuedAt
	}
	for encoded, issuedAt := range s.state.UserApprovedKeys {
		copied.UserApprovedKeys[encoded] = issuedAt
	}
	for encoded, issuedAt := range s.state.RevokedKeys {
		copied.RevokedKeys[encoded] = issuedAt
	}
	return copied
}

// ExpiringKeys returns the hex-encoded keys whose computed expiry
// falls within the given number of days from now, mapped to their
// expiry times. Revoked keys are excluded.
func (s *Store) ExpiringKeys(withinDays int) map[string]time.Time {
	horizon := s.clock.Now().Add(time.Duration(withinDays) * 24 * time.Hour)

	s.mu.RLock()
	defer s.mu.RUnlock()

	expiring := make(map[string]time.Time)
	for encoded, issuedAt := range s.state.TeamKeyring {
		if _, revoked := s.state.RevokedKeys[encoded]; revoked {
			continue
		}
		if expiresAt := issuedAt.Add(TeamKeyLifetime); expiresAt.Before(horizon) {
			expiring[encoded] = expiresAt
		}
	}
	for encoded, issuedAt := range s.state.UserApprovedKeys {
		if _, revoked := s.state.RevokedKeys[encoded]; revoked {
			continue
		}
		if _, inTeam := s.state.TeamKeyring[encoded]; inTeam {
			continue
		}
		if expiresAt := issuedAt.Add(ApprovedKeyLifetime); expiresAt.Before(horizon) {
			expiring[encoded] = expiresAt
		}
	}
	return expiring
}

func encodeKey(public ed25519.PublicKey) (string, error) {
	if len(public) != ed25519.PublicKeySize {
		return "", fmt.Errorf("%w: %d bytes, want %d", ErrBadKey, len(public), ed25519.PublicKeySize)
	}
	return hex.EncodeToString(public), nil
}

func decodeKey(encoded string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadKey, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrBadKey, len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}
