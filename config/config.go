// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package config loads and validates the settings that drive the
// hierarchy cache, envelope sizing, key rotation, vault storage, and
// sentinel backup components, plus the ambient logging/metrics/health
// surface shared by every service built on this module.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure loaded from a YAML or JSON
// file and overlaid with environment variables.
type Config struct {
	Environment string          `yaml:"environment" json:"environment"`
	Hierarchy   *HierarchyConfig `yaml:"hierarchy" json:"hierarchy"`
	Envelope    *EnvelopeConfig  `yaml:"envelope" json:"envelope"`
	Rotation    *RotationConfig  `yaml:"rotation" json:"rotation"`
	Vault       *VaultConfig     `yaml:"vault" json:"vault"`
	Sentinel    *SentinelConfig  `yaml:"sentinel" json:"sentinel"`
	Logging     *LoggingConfig   `yaml:"logging" json:"logging"`
	Metrics     *MetricsConfig   `yaml:"metrics" json:"metrics"`
	Health      *HealthConfig    `yaml:"health" json:"health"`
}

// HierarchyConfig drives the hierarchy.Cache refresh loop.
type HierarchyConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval" json:"refresh_interval"`
}

// EnvelopeConfig controls envelope padding, the one dimension of the
// envelope format callers are allowed to tune (the rest is wire-fixed).
type EnvelopeConfig struct {
	PaddingLen int `yaml:"padding_len" json:"padding_len"`
}

// RotationConfig drives IdentityRotator/MessagingRotator due-dates.
type RotationConfig struct {
	IdentityRotateAfter  time.Duration `yaml:"identity_rotate_after" json:"identity_rotate_after"`
	MessagingRotateAfter time.Duration `yaml:"messaging_rotate_after" json:"messaging_rotate_after"`
	PollTimeout          time.Duration `yaml:"poll_timeout" json:"poll_timeout"`
}

// VaultConfig configures the passphrase-encrypted-at-rest key vault.
type VaultConfig struct {
	Directory     string `yaml:"directory" json:"directory"`
	PassphraseEnv string `yaml:"passphrase_env" json:"passphrase_env"`
}

// SentinelConfig configures the journalist-vault backup/restore protocol.
type SentinelConfig struct {
	RecoveryContactCount int `yaml:"recovery_contact_count" json:"recovery_contact_count"`
	Threshold            int `yaml:"threshold" json:"threshold"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// MetricsConfig represents Prometheus metrics-endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// HealthConfig represents health-check endpoint configuration.
type HealthConfig struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Port    int      `yaml:"port" json:"port"`
	Path    string   `yaml:"path" json:"path"`
	Checks  []string `yaml:"checks" json:"checks"`
}

// LoadFromFile loads configuration from a file, trying YAML then JSON.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)

	return cfg, nil
}

// SaveToFile saves configuration to a file, choosing format by extension.
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if len(path) > 5 && path[len(path)-5:] == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setDefaults fills in zero-valued fields with the production defaults.
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Hierarchy != nil {
		if cfg.Hierarchy.RefreshInterval == 0 {
			cfg.Hierarchy.RefreshInterval = 1 * time.Minute
		}
	}

	if cfg.Envelope != nil {
		if cfg.Envelope.PaddingLen == 0 {
			cfg.Envelope.PaddingLen = 512
		}
	}

	if cfg.Rotation != nil {
		if cfg.Rotation.IdentityRotateAfter == 0 {
			cfg.Rotation.IdentityRotateAfter = 180 * 24 * time.Hour
		}
		if cfg.Rotation.MessagingRotateAfter == 0 {
			cfg.Rotation.MessagingRotateAfter = 7 * 24 * time.Hour
		}
		if cfg.Rotation.PollTimeout == 0 {
			cfg.Rotation.PollTimeout = 10 * time.Minute
		}
	}

	if cfg.Vault != nil {
		if cfg.Vault.Directory == "" {
			cfg.Vault.Directory = ".coverdrop/vault"
		}
		if cfg.Vault.PassphraseEnv == "" {
			cfg.Vault.PassphraseEnv = "COVERDROP_VAULT_PASSPHRASE"
		}
	}

	if cfg.Sentinel != nil {
		if cfg.Sentinel.RecoveryContactCount == 0 {
			cfg.Sentinel.RecoveryContactCount = 5
		}
		if cfg.Sentinel.Threshold == 0 {
			cfg.Sentinel.Threshold = 3
		}
	}

	if cfg.Logging != nil {
		if cfg.Logging.Level == "" {
			cfg.Logging.Level = "info"
		}
		if cfg.Logging.Format == "" {
			cfg.Logging.Format = "json"
		}
		if cfg.Logging.Output == "" {
			cfg.Logging.Output = "stdout"
		}
	}
}
