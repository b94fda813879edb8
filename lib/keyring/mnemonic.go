// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package keyring

import (
	"fmt"

	"github.com/tyler-smith/go-bip39"

	"github.com/attestry/attestry/lib/secret"
)

// SeedSize is the byte length of the seed derived from a mnemonic.
const SeedSize = 64

// NewMnemonic generates a fresh BIP-39 mnemonic phrase. wordCount must
// be 12 (128 bits of entropy) or 24 (256 bits).
func NewMnemonic(wordCount int) (string, error) {
	var entropyBits int
	switch wordCount {
	case 12:
		entropyBits = 128
	case 24:
		entropyBits = 256
	default:
		return "", fmt.Errorf("keyring: word count must be 12 or 24, got %d", wordCount)
	}

	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", fmt.Errorf("keyring: generating entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("keyring: encoding mnemonic: %w", err)
	}
	return mnemonic, nil
}

// SeedFromMnemonic derives the 64-byte seed from a mnemonic phrase and
// optional passphrase. The mnemonic's checksum is validated, so a phrase
// with a typo is rejected rather than silently deriving a different
// identity. The returned buffer is guarded memory; the caller must
// Close it.
func SeedFromMnemonic(mnemonic, passphrase string) (*secret.Buffer, error) {
	seedBytes, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("keyring: invalid mnemonic: %w", err)
	}
	// NewFromBytes zeros seedBytes after copying.
	buffer, err := secret.NewFromBytes(seedBytes)
	if err != nil {
		return nil, fmt.Errorf("keyring: protecting seed: %w", err)
	}
	return buffer, nil
}

// ValidateMnemonic checks that a phrase is a well-formed BIP-39
// mnemonic with a valid checksum.
func ValidateMnemonic(mnemonic string) error {
	if !bip39.IsMnemonicValid(mnemonic) {
		return fmt.Errorf("keyring: invalid mnemonic")
	}
	return nil
}
