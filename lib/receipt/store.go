// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/attestry/attestry/lib/clock"
	"github.com/attestry/attestry/lib/codec"
	"github.com/attestry/attestry/lib/hashing"
	"github.com/attestry/attestry/lib/secret"
	"github.com/attestry/attestry/lib/sqlitepool"
)

// Errors returned by store operations.
var (
	ErrNotFound = errors.New("receipt: not found")

	// ErrReceiptCollision means a stored record exists under the
	// same hash but describes a different verification subject. With
	// a 256-bit content address this indicates corruption or
	// tampering, never chance.
	ErrReceiptCollision = errors.New("receipt: hash collision with differing content")
)

const schema = `
CREATE TABLE IF NOT EXISTS receipts (
	receipt_hash TEXT PRIMARY KEY,
	artifact_id  TEXT NOT NULL,
	verified_at  INTEGER NOT NULL,
	record       BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS receipts_by_artifact
	ON receipts (artifact_id, verified_at);

CREATE TABLE IF NOT EXISTS signer_keys (
	public_key TEXT PRIMARY KEY,
	role       TEXT NOT NULL,
	issued_at  INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS signer_keys_by_expiry
	ON signer_keys (expires_at);
`

// Config holds the parameters for opening a receipt store.
type Config struct {
	// Path is the SQLite database file. Required.
	Path string

	// PoolSize is forwarded to the connection pool.
	PoolSize int

	// Secrets supplies the master key. Required. Use Chain to
	// provide a fallback behind a platform-backed store.
	Secrets SecretStore

	// Logger receives operational messages. If nil, a no-op logger
	// is used.
	Logger *slog.Logger

	// Clock supplies time for key expiry queries. If nil,
	// clock.Real() is used.
	Clock clock.Clock
}

// Store is an encrypted, content-addressed receipt database. Safe for
// concurrent use.
type Store struct {
	pool   *sqlitepool.Pool
	master *secret.Buffer
	logger *slog.Logger
	clock  clock.Clock
}

// Open loads the master key from the secret store and opens the
// database, creating the schema if needed. The caller must Close the
// store when done.
func Open(cfg Config) (*Store, error) {
	if cfg.Secrets == nil {
		return nil, fmt.Errorf("receipt: Secrets is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	master, err := cfg.Secrets.MasterKey()
	if err != nil {
		return nil, err
	}
	if master.Len() != MasterKeySize {
		master.Close()
		return nil, fmt.Errorf("receipt: master key from %s is %d bytes, want %d",
			cfg.Secrets.Name(), master.Len(), MasterKeySize)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		master.Close()
		return nil, err
	}

	logger.Info("receipt store opened",
		"path", cfg.Path,
		"secret_store", cfg.Secrets.Name(),
	)
	return &Store{pool: pool, master: master, logger: logger, clock: clk}, nil
}

// Close closes the database pool and releases the master key.
func (s *Store) Close() error {
	poolErr := s.pool.Close()
	keyErr := s.master.Close()
	if poolErr != nil {
		return poolErr
	}
	return keyErr
}

// Put stores a receipt and returns its content address. Repeating a
// verification of the same artifact against the same signer collides
// to the already-stored receipt: the first record wins and Put is a
// no-op. A stored record under the same hash describing a different
// subject is ErrReceiptCollision; the stored record is left untouched.
func (s *Store) Put(ctx context.Context, r *Receipt) (hashing.Hash, error) {
	if err := r.validate(); err != nil {
		return hashing.Hash{}, err
	}
	canonical, err := r.CanonicalBytes()
	if err != nil {
		return hashing.Hash{}, err
	}
	receiptHash, err := r.Hash()
	if err != nil {
		return hashing.Hash{}, err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return hashing.Hash{}, err
	}
	defer s.pool.Put(conn)

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return hashing.Hash{}, fmt.Errorf("receipt: beginning transaction: %w", err)
	}
	defer endFn(&err)

	existing, err := s.loadRecord(conn, receiptHash)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return hashing.Hash{}, err
	}
	if existing != nil {
		var stored *Receipt
		stored, err = decodeReceipt(existing)
		if err != nil {
			return hashing.Hash{}, err
		}
		if !r.sameIdentity(stored) {
			err = fmt.Errorf("%w: %s", ErrReceiptCollision, hashing.FormatHash(receiptHash))
			return hashing.Hash{}, err
		}
		// Same subject already verified; the first receipt wins.
		return receiptHash, nil
	}

	record, err := encryptRecord(canonical, s.master, receiptHash)
	if err != nil {
		return hashing.Hash{}, err
	}
	err = sqlitex.Execute(conn,
		"INSERT INTO receipts (receipt_hash, artifact_id, verified_at, record) VALUES (?, ?, ?, ?)",
		&sqlitex.ExecOptions{
			Args: []any{
				hashing.FormatHash(receiptHash),
				r.ArtifactID,
				r.VerifiedAt.UTC().Unix(),
				record,
			},
		})
	if err != nil {
		return hashing.Hash{}, fmt.Errorf("receipt: inserting record: %w", err)
	}

	s.logger.Info("receipt stored",
		"receipt_hash", hashing.FormatHash(receiptHash),
		"artifact_id", r.ArtifactID,
	)
	return receiptHash, nil
}

// Get retrieves a receipt by its content address.
func (s *Store) Get(ctx context.Context, receiptHash hashing.Hash) (*Receipt, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	record, err := s.loadRecord(conn, receiptHash)
	if err != nil {
		return nil, err
	}
	return decodeReceipt(record)
}

// ListArtifact returns every receipt for an artifact, oldest first.
func (s *Store) ListArtifact(ctx context.Context, artifactID string) ([]*Receipt, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	type row struct {
		hash   hashing.Hash
		record []byte
	}
	var rows []row
	err = sqlitex.Execute(conn,
		"SELECT receipt_hash, record FROM receipts WHERE artifact_id = ? ORDER BY verified_at, receipt_hash",
		&sqlitex.ExecOptions{
			Args: []any{artifactID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				parsed, err := hashing.ParseHash(stmt.ColumnText(0))
				if err != nil {
					return fmt.Errorf("receipt: corrupt hash column: %w", err)
				}
				record := make([]byte, stmt.ColumnLen(1))
				stmt.ColumnBytes(1, record)
				rows = append(rows, row{hash: parsed, record: record})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("receipt: listing artifact %q: %w", artifactID, err)
	}

	receipts := make([]*Receipt, 0, len(rows))
	for _, r := range rows {
		canonical, err := decryptRecord(r.record, s.master, r.hash)
		if err != nil {
			return nil, err
		}
		decoded, err := decodeReceipt(canonical)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, decoded)
	}
	return receipts, nil
}

// loadRecord fetches and decrypts the canonical bytes stored under a
// hash. Returns (nil, ErrNotFound) when no row exists.
func (s *Store) loadRecord(conn *sqlite.Conn, receiptHash hashing.Hash) ([]byte, error) {
	var record []byte
	err := sqlitex.Execute(conn,
		"SELECT record FROM receipts WHERE receipt_hash = ?",
		&sqlitex.ExecOptions{
			Args: []any{hashing.FormatHash(receiptHash)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				record = make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, record)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("receipt: loading record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, hashing.FormatHash(receiptHash))
	}
	return decryptRecord(record, s.master, receiptHash)
}

func decodeReceipt(canonical []byte) (*Receipt, error) {
	var decoded Receipt
	if err := codec.Unmarshal(canonical, &decoded); err != nil {
		return nil, fmt.Errorf("receipt: decoding record: %w", err)
	}
	return &decoded, nil
}

// KeyMetadata describes a signer key tracked for expiry reporting.
type KeyMetadata struct {
	// PublicKey is the hex-encoded Ed25519 public key.
	PublicKey string

	// Role is where the key's trust comes from ("team" or
	// "approved").
	Role string

	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RecordKeyMetadata upserts expiry metadata for a signer key.
func (s *Store) RecordKeyMetadata(ctx context.Context, meta KeyMetadata) error {
	if meta.PublicKey == "" {
		return fmt.Errorf("receipt: key metadata missing public key")
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO signer_keys (public_key, role, issued_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (public_key) DO UPDATE SET
			role = excluded.role,
			issued_at = excluded.issued_at,
			expires_at = excluded.expires_at`,
		&sqlitex.ExecOptions{
			Args: []any{
				meta.PublicKey,
				meta.Role,
				meta.IssuedAt.UTC().Unix(),
				meta.ExpiresAt.UTC().Unix(),
			},
		})
	if err != nil {
		return fmt.Errorf("receipt: recording key metadata: %w", err)
	}
	return nil
}

// ExpiringKeys returns keys whose expiry falls within the given
// number of days from now, soonest first. Already-expired keys are
// included: they need attention most.
func (s *Store) ExpiringKeys(ctx context.Context, withinDays int) ([]KeyMetadata, error) {
	horizon := s.clock.Now().Add(time.Duration(withinDays) * 24 * time.Hour).UTC().Unix()

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var keys []KeyMetadata
	err = sqlitex.Execute(conn,
		"SELECT public_key, role, issued_at, expires_at FROM signer_keys WHERE expires_at <= ? ORDER BY expires_at",
		&sqlitex.ExecOptions{
			Args: []any{horizon},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				keys = append(keys, KeyMetadata{
					PublicKey: stmt.ColumnText(0),
					Role:      stmt.ColumnText(1),
					IssuedAt:  time.Unix(stmt.ColumnInt64(2), 0).UTC(),
					ExpiresAt: time.Unix(stmt.ColumnInt64(3), 0).UTC(),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("receipt: querying expiring keys: %w", err)
	}
	return keys, nil
}
