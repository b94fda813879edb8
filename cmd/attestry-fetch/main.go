// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/attestry/attestry/lib/chunk"
	"github.com/attestry/attestry/lib/config"
	"github.com/attestry/attestry/lib/download"
	"github.com/attestry/attestry/lib/manifest"
	"github.com/attestry/attestry/lib/receipt"
	"github.com/attestry/attestry/lib/sealed"
	"github.com/attestry/attestry/lib/secret"
	"github.com/attestry/attestry/lib/trust"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("attestry-fetch", pflag.ExitOnError)
	configPath := flags.String("config", os.Getenv("ATTESTRY_CONFIG"), "path to attestry.yaml")
	manifestPath := flags.String("manifest", "", "manifest JSON file")
	sourcePath := flags.String("source", "", "source artifact file to fetch chunks from (default: config download.source_dir + artifact id)")
	outputPath := flags.String("output", "", "target path (default: config downloads dir + artifact id)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	if *manifestPath == "" {
		return fmt.Errorf("--manifest is required")
	}
	if *configPath == "" {
		return fmt.Errorf("--config or ATTESTRY_CONFIG is required")
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	raw, err := os.ReadFile(*manifestPath)
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}
	m, err := manifest.Parse(raw)
	if err != nil {
		return err
	}
	if err := m.VerifySignature(); err != nil {
		return err
	}

	// Trust gate before any bytes move.
	store, err := trust.NewStore(cfg.Trust, nil)
	if err != nil {
		return err
	}
	decision, err := store.VerifyKeyTrust(m.Publisher.PublicKey)
	if err != nil {
		return err
	}
	if !decision.Trusted {
		return fmt.Errorf("publisher key rejected: %s", decision.Reason)
	}
	var warnings []string
	if decision.Warning {
		warnings = append(warnings, decision.Reason)
		logger.Warn("publisher key accepted with warning", "reason", decision.Reason)
	}

	if *sourcePath == "" {
		if cfg.Download.SourceDir == "" {
			return fmt.Errorf("--source or download.source_dir is required")
		}
		*sourcePath = filepath.Join(cfg.Download.SourceDir, m.ArtifactID)
	}
	if *outputPath == "" {
		*outputPath = filepath.Join(cfg.Paths.Downloads, m.ArtifactID)
	}

	fetch := fileFetcher(*sourcePath, m.Metadata.ChunkSize)
	if err := download.Run(ctx, download.Config{
		Manifest:   m,
		Fetch:      fetch,
		TargetPath: *outputPath,
		Logger:     logger,
	}); err != nil {
		return err
	}

	if err := storeReceipt(ctx, cfg, logger, m, decision, warnings); err != nil {
		return err
	}

	fmt.Printf("%s\n", *outputPath)
	return nil
}

// fileFetcher serves chunks from a local source copy of the artifact.
// The source is untrusted; every chunk is verified downstream.
func fileFetcher(path string, chunkSize uint32) download.FetchFunc {
	return func(ctx context.Context, index int) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return chunk.ReadAt(path, index, chunkSize)
	}
}

// storeReceipt opens the receipt store (provisioning its sealed
// master key on first use) and records the verification.
func storeReceipt(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *manifest.Manifest, decision trust.Decision, warnings []string) error {
	secrets, err := loadSecretStore(cfg, logger)
	if err != nil {
		return err
	}

	store, err := receipt.Open(receipt.Config{
		Path:    cfg.Paths.ReceiptsDB,
		Secrets: secrets,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	receiptHash, err := store.Put(ctx, &receipt.Receipt{
		ArtifactID:      m.ArtifactID,
		ArtifactVersion: m.ArtifactVersion,
		Root:            m.Commitment.Root,
		SignerKey:       m.Publisher.PublicKey,
		Policy:          cfg.Trust.Policy,
		Status:          decision.Status,
		Warnings:        warnings,
		VerifiedAt:      time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	logger.Info("verification receipt stored", "receipt_hash", fmt.Sprintf("%x", receiptHash[:8]))
	return nil
}

// loadSecretStore wires the receipt store's master key: an age-sealed
// key file unlocked by a local identity, both created on first use.
func loadSecretStore(cfg *config.Config, logger *slog.Logger) (receipt.SecretStore, error) {
	identityPath := filepath.Join(cfg.Paths.Root, "identity.age")

	identityRaw, err := os.ReadFile(identityPath)
	if errors.Is(err, os.ErrNotExist) {
		if err := provisionIdentity(identityPath, cfg.Paths.MasterKeyFile, logger); err != nil {
			return nil, err
		}
		identityRaw, err = os.ReadFile(identityPath)
		if err != nil {
			return nil, fmt.Errorf("reading identity after provisioning: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("reading identity file: %w", err)
	}

	identity, err := secret.NewFromBytes(bytes.TrimSpace(identityRaw))
	if err != nil {
		return nil, err
	}
	return &receipt.FileStore{Path: cfg.Paths.MasterKeyFile, Identity: identity}, nil
}

// provisionIdentity generates an age keypair, writes the private
// identity with owner-only permissions, and seals a fresh master key
// to it.
func provisionIdentity(identityPath, masterKeyPath string, logger *slog.Logger) error {
	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		return err
	}
	defer keypair.Close()

	if err := os.WriteFile(identityPath, []byte(keypair.PrivateKey.String()+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing identity file: %w", err)
	}
	if err := receipt.InitFile(masterKeyPath, []string{keypair.PublicKey}); err != nil {
		return err
	}
	logger.Info("receipt store keys provisioned",
		"identity", identityPath,
		"master_key", masterKeyPath,
	)
	return nil
}
