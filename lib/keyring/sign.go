// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package keyring

import (
	"crypto/ed25519"
	"fmt"
)

// SignatureSize is the fixed size of an Ed25519 signature.
const SignatureSize = ed25519.SignatureSize // 64 bytes

// PublicKeySize is the fixed size of an Ed25519 public key.
const PublicKeySize = ed25519.PublicKeySize // 32 bytes

// Sign signs message with the private key and returns the 64-byte
// signature.
func Sign(message []byte, private ed25519.PrivateKey) ([]byte, error) {
	if len(private) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keyring: private key is %d bytes, want %d",
			len(private), ed25519.PrivateKeySize)
	}
	return ed25519.Sign(private, message), nil
}

// VerifySignature reports whether signature is a valid Ed25519
// signature over exactly these message bytes under exactly this public
// key. Any single-byte change to the message, the signature, or the
// key flips the result to false. Malformed keys or signatures verify
// as false, never as an error; a garbage signature is just invalid.
func VerifySignature(message, signature []byte, public ed25519.PublicKey) bool {
	if len(public) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(public, message, signature)
}
