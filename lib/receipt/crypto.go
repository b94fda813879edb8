// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package receipt

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/attestry/attestry/lib/hashing"
	"github.com/attestry/attestry/lib/secret"
)

// MasterKeySize is the size in bytes of the store master key and of
// every derived per-record key.
const MasterKeySize = 32

// recordBlobVersion is the version byte prepended to every encrypted
// record. Included in the AEAD additional authenticated data, so
// tampering with it fails authentication.
const recordBlobVersion byte = 0x01

// recordBlobOverhead is the byte overhead per encrypted record:
// 1 (version) + 24 (XChaCha20-Poly1305 nonce) + 16 (Poly1305 tag).
const recordBlobOverhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// hkdfInfoRecord is the HKDF info prefix for per-record keys.
// Changing it invalidates every stored record.
var hkdfInfoRecord = []byte("attestry.receipt.record.v1")

// Shared zstd coders. Records are small; EncodeAll/DecodeAll on
// shared instances avoids per-record initialization overhead.
// zstd.Encoder and zstd.Decoder are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("receipt: initializing zstd encoder: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("receipt: initializing zstd decoder: " + err.Error())
	}
}

// deriveRecordKey derives the per-record encryption key from the
// master key and the receipt hash via HKDF-SHA256. The salt is nil:
// the master key is already uniformly random, so the extract phase
// with a zero key is appropriate per RFC 5869.
//
// The masterKey is borrowed and NOT closed. The returned buffer must
// be closed by the caller.
func deriveRecordKey(masterKey *secret.Buffer, receiptHash hashing.Hash) (*secret.Buffer, error) {
	info := make([]byte, len(hkdfInfoRecord)+len(receiptHash))
	copy(info, hkdfInfoRecord)
	copy(info[len(hkdfInfoRecord):], receiptHash[:])

	reader := hkdf.New(sha256.New, masterKey.Bytes(), nil, info)
	derived := make([]byte, MasterKeySize)
	if _, err := io.ReadFull(reader, derived); err != nil {
		secret.Zero(derived)
		return nil, fmt.Errorf("receipt: HKDF key derivation: %w", err)
	}
	return secret.NewFromBytes(derived)
}

// encryptRecord compresses and encrypts a canonical receipt encoding
// for storage. The output format is:
//
//	[Version: 1 byte] [Nonce: 24 bytes (random)] [Ciphertext+Tag]
//
// The version byte and receipt hash are additional authenticated
// data, binding the ciphertext to its row.
func encryptRecord(plaintext []byte, masterKey *secret.Buffer, receiptHash hashing.Hash) ([]byte, error) {
	recordKey, err := deriveRecordKey(masterKey, receiptHash)
	if err != nil {
		return nil, err
	}
	defer recordKey.Close()

	compressed := zstdEncoder.EncodeAll(plaintext, nil)

	aead, err := chacha20poly1305.NewX(recordKey.Bytes())
	if err != nil {
		return nil, fmt.Errorf("receipt: creating cipher: %w", err)
	}

	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("receipt: generating nonce: %w", err)
	}

	output := make([]byte, 1+chacha20poly1305.NonceSizeX, 1+chacha20poly1305.NonceSizeX+len(compressed)+aead.Overhead())
	output[0] = recordBlobVersion
	copy(output[1:], nonce[:])

	return aead.Seal(output, nonce[:], compressed, buildAAD(recordBlobVersion, receiptHash)), nil
}

// decryptRecord reverses encryptRecord: authenticate, decrypt,
// decompress. Fails if the blob was tampered with, encrypted under a
// different master key, or attached to a different receipt hash.
func decryptRecord(blob []byte, masterKey *secret.Buffer, receiptHash hashing.Hash) ([]byte, error) {
	if len(blob) < recordBlobOverhead {
		return nil, fmt.Errorf("receipt: record is %d bytes, minimum is %d", len(blob), recordBlobOverhead)
	}
	if blob[0] != recordBlobVersion {
		return nil, fmt.Errorf("receipt: unsupported record version %d", blob[0])
	}

	recordKey, err := deriveRecordKey(masterKey, receiptHash)
	if err != nil {
		return nil, err
	}
	defer recordKey.Close()

	aead, err := chacha20poly1305.NewX(recordKey.Bytes())
	if err != nil {
		return nil, fmt.Errorf("receipt: creating cipher: %w", err)
	}

	nonce := blob[1 : 1+chacha20poly1305.NonceSizeX]
	ciphertext := blob[1+chacha20poly1305.NonceSizeX:]

	compressed, err := aead.Open(nil, nonce, ciphertext, buildAAD(blob[0], receiptHash))
	if err != nil {
		return nil, fmt.Errorf("receipt: record authentication failed: %w", err)
	}

	plaintext, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("receipt: decompressing record: %w", err)
	}
	return plaintext, nil
}

func buildAAD(version byte, receiptHash hashing.Hash) []byte {
	aad := make([]byte, 1+len(receiptHash))
	aad[0] = version
	copy(aad[1:], receiptHash[:])
	return aad
}
