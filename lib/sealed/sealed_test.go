// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestGenerateKeypair(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	defer keypair.Close()

	if !strings.HasPrefix(keypair.PrivateKey.String(), "AGE-SECRET-KEY-1") {
		t.Error("private key missing AGE-SECRET-KEY-1 prefix")
	}
	if !strings.HasPrefix(keypair.PublicKey, "age1") {
		t.Errorf("PublicKey = %q, want prefix age1", keypair.PublicKey)
	}
}

func TestGenerateKeypairUnique(t *testing.T) {
	keypair1, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	defer keypair1.Close()
	keypair2, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	defer keypair2.Close()

	if keypair1.PrivateKey.String() == keypair2.PrivateKey.String() {
		t.Error("two generated keypairs have identical private keys")
	}
	if keypair1.PublicKey == keypair2.PublicKey {
		t.Error("two generated keypairs have identical public keys")
	}
}

func TestEncryptDecryptSingleRecipient(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	defer keypair.Close()

	plaintext := []byte("receipt store master key material")
	ciphertext, err := Encrypt(plaintext, []string{keypair.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	if _, err := base64.StdEncoding.DecodeString(ciphertext); err != nil {
		t.Errorf("Encrypt() returned invalid base64: %v", err)
	}

	decrypted, err := Decrypt(ciphertext, keypair.PrivateKey)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	defer decrypted.Close()
	if decrypted.String() != string(plaintext) {
		t.Errorf("Decrypt() = %q, want %q", decrypted.String(), plaintext)
	}
}

func TestEncryptDecryptMultipleRecipients(t *testing.T) {
	// Machine key plus a recovery key: both must decrypt
	// independently.
	machine, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	defer machine.Close()
	recovery, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	defer recovery.Close()

	plaintext := []byte("sealed to two recipients")
	ciphertext, err := Encrypt(plaintext, []string{machine.PublicKey, recovery.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	for name, keypair := range map[string]*Keypair{"machine": machine, "recovery": recovery} {
		decrypted, err := Decrypt(ciphertext, keypair.PrivateKey)
		if err != nil {
			t.Fatalf("Decrypt(%s) error: %v", name, err)
		}
		if decrypted.String() != string(plaintext) {
			t.Errorf("Decrypt(%s) = %q, want %q", name, decrypted.String(), plaintext)
		}
		decrypted.Close()
	}
}

func TestDecryptWrongKey(t *testing.T) {
	owner, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	defer owner.Close()
	stranger, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	defer stranger.Close()

	ciphertext, err := Encrypt([]byte("only for the owner"), []string{owner.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	if _, err := Decrypt(ciphertext, stranger.PrivateKey); err == nil {
		t.Error("Decrypt with the wrong key succeeded")
	}
}

func TestDecryptCorruptCiphertext(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	defer keypair.Close()

	if _, err := Decrypt("not base64 at all!!", keypair.PrivateKey); err == nil {
		t.Error("Decrypt accepted invalid base64")
	}

	garbage := base64.StdEncoding.EncodeToString([]byte("random bytes, not an age file"))
	if _, err := Decrypt(garbage, keypair.PrivateKey); err == nil {
		t.Error("Decrypt accepted garbage ciphertext")
	}
}

func TestEncryptRequiresRecipients(t *testing.T) {
	if _, err := Encrypt([]byte("payload"), nil); err == nil {
		t.Error("Encrypt with no recipients succeeded")
	}
}

func TestParseKeys(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	defer keypair.Close()

	if err := ParsePublicKey(keypair.PublicKey); err != nil {
		t.Errorf("ParsePublicKey on a valid key: %v", err)
	}
	if err := ParsePublicKey("age1notavalidkey"); err == nil {
		t.Error("ParsePublicKey accepted an invalid key")
	}
	if err := ParsePrivateKey(keypair.PrivateKey); err != nil {
		t.Errorf("ParsePrivateKey on a valid key: %v", err)
	}
}
