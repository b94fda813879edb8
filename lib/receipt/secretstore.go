// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package receipt

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/attestry/attestry/lib/sealed"
	"github.com/attestry/attestry/lib/secret"
)

// ErrNoSecret means no secret store in a chain could produce the
// master key.
var ErrNoSecret = errors.New("receipt: no secret store available")

// SecretStore supplies the store master key. Implementations hold
// whatever platform capability they need (a sealed key file, an OS
// keystore handle) and produce the key on demand.
//
// MasterKey returns a fresh secret.Buffer owned by the caller. Name
// identifies the store in logs and error messages.
type SecretStore interface {
	MasterKey() (*secret.Buffer, error)
	Name() string
}

// FileStore reads the master key from an age-sealed file on disk.
type FileStore struct {
	// Path is the sealed key file, as written by InitFile.
	Path string

	// Identity is the age private key that can unseal the file.
	// Borrowed: the FileStore never closes it.
	Identity *secret.Buffer
}

// Name implements SecretStore.
func (f *FileStore) Name() string { return "sealed-file:" + f.Path }

// MasterKey unseals the key file and returns the master key.
func (f *FileStore) MasterKey() (*secret.Buffer, error) {
	ciphertext, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("receipt: reading sealed key file: %w", err)
	}
	key, err := sealed.Decrypt(strings.TrimSpace(string(ciphertext)), f.Identity)
	if err != nil {
		return nil, fmt.Errorf("receipt: unsealing key file %s: %w", f.Path, err)
	}
	if key.Len() != MasterKeySize {
		key.Close()
		return nil, fmt.Errorf("receipt: sealed key is %d bytes, want %d", key.Len(), MasterKeySize)
	}
	return key, nil
}

// InitFile generates a fresh random master key, seals it to the given
// age recipients, and writes the ciphertext to path with mode 0600.
// Fails if the file already exists: an existing key file guards
// records that would become unreadable if it were overwritten.
func InitFile(path string, recipients []string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("receipt: key file %s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("receipt: checking key file: %w", err)
	}

	key := make([]byte, MasterKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return fmt.Errorf("receipt: generating master key: %w", err)
	}
	defer secret.Zero(key)

	ciphertext, err := sealed.Encrypt(key, recipients)
	if err != nil {
		return fmt.Errorf("receipt: sealing master key: %w", err)
	}
	if err := os.WriteFile(path, []byte(ciphertext+"\n"), 0o600); err != nil {
		return fmt.Errorf("receipt: writing key file: %w", err)
	}
	return nil
}

// StaticStore holds key material directly. It is the fallback when no
// platform-backed store is available, and the usual choice in tests.
// The key bytes are copied into guarded memory on each MasterKey call.
type StaticStore struct {
	// Key is the raw 32-byte master key.
	Key []byte
}

// Name implements SecretStore.
func (s *StaticStore) Name() string { return "static" }

// MasterKey copies the key into a fresh secret.Buffer.
func (s *StaticStore) MasterKey() (*secret.Buffer, error) {
	if len(s.Key) != MasterKeySize {
		return nil, fmt.Errorf("receipt: static key is %d bytes, want %d", len(s.Key), MasterKeySize)
	}
	copied := make([]byte, MasterKeySize)
	copy(copied, s.Key)
	return secret.NewFromBytes(copied)
}

// Chain tries each store in order and returns the first master key it
// can produce. Use it to prefer a platform-backed store with an
// explicit fallback:
//
//	receipt.Chain{fileStore, &receipt.StaticStore{Key: derived}}
type Chain []SecretStore

// Name implements SecretStore.
func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, store := range c {
		names[i] = store.Name()
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// MasterKey returns the first store's key that loads successfully.
// If every store fails, the error wraps ErrNoSecret and lists each
// store's failure.
func (c Chain) MasterKey() (*secret.Buffer, error) {
	var failures []string
	for _, store := range c {
		key, err := store.MasterKey()
		if err == nil {
			return key, nil
		}
		failures = append(failures, fmt.Sprintf("%s: %v", store.Name(), err))
	}
	if len(failures) == 0 {
		return nil, fmt.Errorf("%w: empty chain", ErrNoSecret)
	}
	return nil, fmt.Errorf("%w: %s", ErrNoSecret, strings.Join(failures, "; "))
}
