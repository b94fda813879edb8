// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package receipt

import (
	"bytes"
	"testing"

	"github.com/attestry/attestry/lib/hashing"
	"github.com/attestry/attestry/lib/secret"
)

func testMaster(t *testing.T) *secret.Buffer {
	t.Helper()
	master, err := secret.NewFromBytes(testMasterKey())
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	t.Cleanup(func() { master.Close() })
	return master
}

func TestRecordRoundTrip(t *testing.T) {
	master := testMaster(t)
	receiptHash := hashing.HashBytes([]byte("identity"))
	plaintext := []byte(`{"artifact":"model-alpha","repeated":"aaaaaaaaaaaaaaaaaaaaaaaa"}`)

	blob, err := encryptRecord(plaintext, master, receiptHash)
	if err != nil {
		t.Fatalf("encryptRecord: %v", err)
	}
	if bytes.Contains(blob, []byte("model-alpha")) {
		t.Error("plaintext visible in encrypted record")
	}

	decrypted, err := decryptRecord(blob, master, receiptHash)
	if err != nil {
		t.Fatalf("decryptRecord: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Error("round trip did not recover the plaintext")
	}
}

func TestRecordBoundToReceiptHash(t *testing.T) {
	master := testMaster(t)
	blob, err := encryptRecord([]byte("payload"), master, hashing.HashBytes([]byte("original")))
	if err != nil {
		t.Fatalf("encryptRecord: %v", err)
	}

	if _, err := decryptRecord(blob, master, hashing.HashBytes([]byte("other"))); err == nil {
		t.Error("record decrypted under a different receipt hash")
	}
}

func TestRecordTamperDetected(t *testing.T) {
	master := testMaster(t)
	receiptHash := hashing.HashBytes([]byte("identity"))
	blob, err := encryptRecord([]byte("payload"), master, receiptHash)
	if err != nil {
		t.Fatalf("encryptRecord: %v", err)
	}

	flipped := append([]byte{}, blob...)
	flipped[len(flipped)-1] ^= 0x01
	if _, err := decryptRecord(flipped, master, receiptHash); err == nil {
		t.Error("tampered ciphertext decrypted")
	}

	versionBumped := append([]byte{}, blob...)
	versionBumped[0] = 0x02
	if _, err := decryptRecord(versionBumped, master, receiptHash); err == nil {
		t.Error("unknown version byte accepted")
	}

	if _, err := decryptRecord(blob[:10], master, receiptHash); err == nil {
		t.Error("truncated record accepted")
	}
}
