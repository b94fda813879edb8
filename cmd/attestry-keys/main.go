// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/attestry/attestry/lib/config"
	"github.com/attestry/attestry/lib/keyring"
	"github.com/attestry/attestry/lib/trust"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return fmt.Errorf("subcommand required")
	}

	switch os.Args[1] {
	case "generate":
		return runGenerate(os.Args[2:])
	case "show":
		return runShow(os.Args[2:])
	case "team-add":
		return runTrustEdit(os.Args[2:], "team-add")
	case "approve":
		return runTrustEdit(os.Args[2:], "approve")
	case "revoke":
		return runTrustEdit(os.Args[2:], "revoke")
	case "list":
		return runList(os.Args[2:])
	case "expiring":
		return runExpiring(os.Args[2:])
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", os.Args[1])
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: attestry-keys <subcommand> [flags]

Subcommands:
  generate    Generate a new BIP-39 mnemonic and show its first key
  show        Derive and print a public key from a mnemonic
  team-add    Add a public key to the team keyring
  approve     Approve a publisher key
  revoke      Revoke a publisher key (terminal)
  list        Print the trust state
  expiring    List keys expiring within a window

Run 'attestry-keys <subcommand> --help' for subcommand flags.
`)
}

func runGenerate(args []string) error {
	flags := pflag.NewFlagSet("generate", pflag.ExitOnError)
	wordCount := flags.Int("words", 24, "mnemonic length: 12 or 24 words")
	account := flags.Uint32("account", 0, "derivation account")
	index := flags.Uint32("index", 0, "derivation key index")
	if err := flags.Parse(args); err != nil {
		return err
	}

	mnemonic, err := keyring.NewMnemonic(*wordCount)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, "# Recovery mnemonic (write this down, it is shown once):")
	fmt.Fprintf(os.Stderr, "%s\n\n", mnemonic)

	passphrase, err := readPassphrase("Passphrase (empty for none): ", true)
	if err != nil {
		return err
	}

	seed, err := keyring.SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return err
	}
	defer seed.Close()

	signer, err := keyring.DeriveKeypair(seed, *account, *index)
	if err != nil {
		return err
	}
	defer signer.Zero()

	fmt.Printf("%s\n", hex.EncodeToString(signer.Public))
	return nil
}

func runShow(args []string) error {
	flags := pflag.NewFlagSet("show", pflag.ExitOnError)
	account := flags.Uint32("account", 0, "derivation account")
	index := flags.Uint32("index", 0, "derivation key index")
	if err := flags.Parse(args); err != nil {
		return err
	}

	mnemonic, err := readLine("Mnemonic: ")
	if err != nil {
		return err
	}
	if err := keyring.ValidateMnemonic(mnemonic); err != nil {
		return err
	}
	passphrase, err := readPassphrase("Passphrase (empty for none): ", false)
	if err != nil {
		return err
	}

	seed, err := keyring.SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return err
	}
	defer seed.Close()

	signer, err := keyring.DeriveKeypair(seed, *account, *index)
	if err != nil {
		return err
	}
	defer signer.Zero()

	fmt.Printf("%s\n", hex.EncodeToString(signer.Public))
	return nil
}

// runTrustEdit handles team-add, approve, and revoke: load the config,
// apply the mutation through a trust store, write the config back.
func runTrustEdit(args []string, action string) error {
	flags := pflag.NewFlagSet(action, pflag.ExitOnError)
	configPath := flags.String("config", os.Getenv("ATTESTRY_CONFIG"), "path to attestry.yaml")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("%s requires exactly one hex public key argument", action)
	}
	keyHex := flags.Arg(0)
	public, err := hex.DecodeString(keyHex)
	if err != nil {
		return fmt.Errorf("parsing public key: %w", err)
	}
	if *configPath == "" {
		return fmt.Errorf("--config or ATTESTRY_CONFIG is required")
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}
	store, err := trust.NewStore(cfg.Trust, nil)
	if err != nil {
		return err
	}

	switch action {
	case "team-add":
		err = store.AddTeamKey(public, time.Now())
	case "approve":
		err = store.ApproveKey(public)
	case "revoke":
		err = store.RevokeKey(public)
	}
	if err != nil {
		return err
	}

	cfg.Trust = store.Snapshot()
	if err := cfg.SaveFile(*configPath); err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", action, keyHex)
	return nil
}

func runList(args []string) error {
	flags := pflag.NewFlagSet("list", pflag.ExitOnError)
	configPath := flags.String("config", os.Getenv("ATTESTRY_CONFIG"), "path to attestry.yaml")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return fmt.Errorf("--config or ATTESTRY_CONFIG is required")
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}

	fmt.Printf("policy: %s\n", cfg.Trust.Policy)
	printKeySection("team keyring", cfg.Trust.TeamKeyring)
	printKeySection("approved", cfg.Trust.UserApprovedKeys)
	printKeySection("revoked", cfg.Trust.RevokedKeys)
	return nil
}

func printKeySection(title string, keys map[string]time.Time) {
	fmt.Printf("%s (%d):\n", title, len(keys))
	for encoded, at := range keys {
		fmt.Printf("  %s  %s\n", encoded, at.Format(time.RFC3339))
	}
}

func runExpiring(args []string) error {
	flags := pflag.NewFlagSet("expiring", pflag.ExitOnError)
	configPath := flags.String("config", os.Getenv("ATTESTRY_CONFIG"), "path to attestry.yaml")
	days := flags.Int("days", trust.DefaultExpiryWarningDays, "look-ahead window in days")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return fmt.Errorf("--config or ATTESTRY_CONFIG is required")
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}
	store, err := trust.NewStore(cfg.Trust, nil)
	if err != nil {
		return err
	}

	expiring := store.ExpiringKeys(*days)
	if len(expiring) == 0 {
		fmt.Printf("no keys expire within %d days\n", *days)
		return nil
	}
	for encoded, expiresAt := range expiring {
		fmt.Printf("%s expires %s\n", encoded, expiresAt.Format(time.RFC3339))
	}
	return nil
}

// readPassphrase reads a passphrase without echo when stdin is a
// terminal. With confirm set, it prompts twice and requires a match.
func readPassphrase(prompt string, confirm bool) (string, error) {
	stdinFd := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFd) {
		return readLine(prompt)
	}

	fmt.Fprint(os.Stderr, prompt)
	first, err := term.ReadPassword(stdinFd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	if !confirm {
		return string(first), nil
	}

	fmt.Fprint(os.Stderr, "Repeat passphrase: ")
	second, err := term.ReadPassword(stdinFd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passphrases do not match")
	}
	return string(first), nil
}

// stdinReader is shared so consecutive piped reads do not lose
// buffered lines.
var stdinReader = bufio.NewReader(os.Stdin)

func readLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := stdinReader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
