// Copyright 2026 The Attestry Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/attestry/attestry/lib/trust"
)

// Config is the master configuration for Attestry.
type Config struct {
	// Paths configures file and directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Trust is the complete trust policy state: active policy, team
	// keyring, user approvals, revocations.
	Trust trust.State `yaml:"trust"`

	// Download configures the fetch engine.
	Download DownloadConfig `yaml:"download"`

	// Publisher configures manifest signing.
	Publisher PublisherConfig `yaml:"publisher"`
}

// PathsConfig configures file and directory locations.
type PathsConfig struct {
	// Root is the base directory for Attestry data.
	Root string `yaml:"root"`

	// ReceiptsDB is the receipt store database file.
	ReceiptsDB string `yaml:"receipts_db"`

	// MasterKeyFile is the age-sealed receipt store master key.
	MasterKeyFile string `yaml:"master_key_file"`

	// Downloads is where fetched artifacts are installed.
	Downloads string `yaml:"downloads"`
}

// DownloadConfig configures the fetch engine.
type DownloadConfig struct {
	// SourceDir is the default chunk source directory for fetches
	// that read from a local mirror.
	SourceDir string `yaml:"source_dir"`
}

// PublisherConfig configures manifest signing.
type PublisherConfig struct {
	// Name is the human-readable publisher name recorded in
	// manifests this installation signs.
	Name string `yaml:"name"`

	// Account and KeyIndex select the signing key derived from the
	// seed.
	Account  uint32 `yaml:"account"`
	KeyIndex uint32 `yaml:"key_index"`
}

// Default returns the default configuration. Defaults ensure all
// fields have usable zero-values; the config file remains the source
// of truth.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "attestry")

	return &Config{
		Paths: PathsConfig{
			Root:          defaultRoot,
			ReceiptsDB:    filepath.Join(defaultRoot, "receipts.db"),
			MasterKeyFile: filepath.Join(defaultRoot, "master.key.age"),
			Downloads:     filepath.Join(defaultRoot, "downloads"),
		},
		Trust:     trust.NewState(trust.PolicyStrict),
		Download:  DownloadConfig{},
		Publisher: PublisherConfig{Name: "unnamed publisher"},
	}
}

// Load loads configuration from the ATTESTRY_CONFIG environment
// variable. There is no fallback: if the variable is not set, Load
// fails.
func Load() (*Config, error) {
	configPath := os.Getenv("ATTESTRY_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("ATTESTRY_CONFIG environment variable not set; " +
			"set it to the path of your attestry.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, layered over
// defaults. ${HOME} in path values is expanded for portability; no
// other substitution is performed.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.expandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// SaveFile writes the configuration back to disk. Used by commands
// that mutate trust state (approve, revoke).
func (c *Config) SaveFile(path string) error {
	encoded, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encoding: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o600); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Paths.Root == "" {
		return fmt.Errorf("paths.root is required")
	}
	if _, err := trust.ParsePolicy(string(c.Trust.Policy)); err != nil {
		return err
	}
	if c.Trust.ExpiryWarningDays < 0 {
		return fmt.Errorf("trust.expiryWarningDays must not be negative")
	}
	return nil
}

// EnsurePaths creates the directories the configuration names.
func (c *Config) EnsurePaths() error {
	for _, dir := range []string{
		c.Paths.Root,
		c.Paths.Downloads,
		filepath.Dir(c.Paths.ReceiptsDB),
		filepath.Dir(c.Paths.MasterKeyFile),
	} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: creating %s: %w", dir, err)
		}
	}
	return nil
}

// expandPaths substitutes ${HOME} in all path fields.
func (c *Config) expandPaths() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return
	}
	expand := func(p *string) {
		*p = strings.ReplaceAll(*p, "${HOME}", homeDir)
	}
	expand(&c.Paths.Root)
	expand(&c.Paths.ReceiptsDB)
	expand(&c.Paths.MasterKeyFile)
	expand(&c.Paths.Downloads)
	expand(&c.Download.SourceDir)
}
