// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/attestry/attestry/lib/chunk"
	"github.com/attestry/attestry/lib/commitment"
	"github.com/attestry/attestry/lib/config"
	"github.com/attestry/attestry/lib/hashing"
	"github.com/attestry/attestry/lib/keyring"
	"github.com/attestry/attestry/lib/manifest"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("attestry-publish", pflag.ExitOnError)
	configPath := flags.String("config", os.Getenv("ATTESTRY_CONFIG"), "path to attestry.yaml")
	inputPath := flags.String("input", "", "artifact file to publish")
	artifactType := flags.String("type", "", "artifact type: model, memory, plugin, or ui")
	artifactID := flags.String("id", "", "artifact identifier")
	artifactVersion := flags.String("version", "1", "artifact version")
	description := flags.String("description", "", "optional manifest description")
	outputPath := flags.String("output", "", "manifest output path (default: <input>.manifest.json)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	if *inputPath == "" || *artifactID == "" || *artifactType == "" {
		return fmt.Errorf("--input, --id, and --type are required")
	}
	if *configPath == "" {
		return fmt.Errorf("--config or ATTESTRY_CONFIG is required")
	}
	if *outputPath == "" {
		*outputPath = *inputPath + ".manifest.json"
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	parsedType, err := chunk.ParseArtifactType(*artifactType)
	if err != nil {
		return err
	}
	chunkSize, err := parsedType.ChunkSize()
	if err != nil {
		return err
	}

	info, err := os.Stat(*inputPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", *inputPath, err)
	}

	chunks, err := chunk.File(*inputPath, chunkSize)
	if err != nil {
		return err
	}
	digests := chunk.Digests(chunks)
	root, err := commitment.ComputeRoot(commitment.StrategyFlatV1, digests)
	if err != nil {
		return err
	}
	logger.Info("artifact chunked",
		"path", *inputPath,
		"size", info.Size(),
		"chunks", len(chunks),
		"root", hashing.FormatHash(root),
	)

	signer, err := deriveSigner(cfg)
	if err != nil {
		return err
	}
	defer signer.Zero()

	created, err := manifest.Create(manifest.CreateParams{
		ArtifactID:      *artifactID,
		ArtifactVersion: *artifactVersion,
		ArtifactType:    parsedType,
		PublisherName:   cfg.Publisher.Name,
		Strategy:        commitment.StrategyFlatV1,
		Root:            root,
		ChunkDigests:    digests,
		Size:            info.Size(),
		Description:     *description,
		CreatedAt:       time.Now().UTC(),
	}, signer)
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(created, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(*outputPath, append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	logger.Info("manifest written",
		"path", *outputPath,
		"artifact_id", *artifactID,
		"publisher_key", fmt.Sprintf("%x", signer.Public),
	)
	return nil
}

// deriveSigner reads the mnemonic and passphrase and derives the
// signing key selected by the publisher configuration.
func deriveSigner(cfg *config.Config) (*keyring.Keypair, error) {
	mnemonic, err := readSecretLine("Mnemonic: ")
	if err != nil {
		return nil, err
	}
	if err := keyring.ValidateMnemonic(mnemonic); err != nil {
		return nil, err
	}
	passphrase, err := readSecretLine("Passphrase (empty for none): ")
	if err != nil {
		return nil, err
	}

	seed, err := keyring.SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	defer seed.Close()

	return keyring.DeriveKeypair(seed, cfg.Publisher.Account, cfg.Publisher.KeyIndex)
}

// stdinReader is shared so consecutive piped reads do not lose
// buffered lines.
var stdinReader = bufio.NewReader(os.Stdin)

// readSecretLine reads a line without echo when stdin is a terminal,
// and as plain input otherwise (piped invocation, tests).
func readSecretLine(prompt string) (string, error) {
	stdinFd := int(os.Stdin.Fd())
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(stdinFd) {
		line, err := term.ReadPassword(stdinFd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return strings.TrimSpace(string(line)), nil
	}
	line, err := stdinReader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
