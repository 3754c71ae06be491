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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	cfg, err := Load(LoaderOptions{
		ConfigDir:      ".",
		Environment:    "development",
		SkipValidation: true,
	})
	if err != nil {
		t.Fatalf("Failed to load development config: %v", err)
	}

	if cfg.Environment != "development" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "development")
	}
}

func TestLoadForEnvironment(t *testing.T) {
	tests := []string{"development", "staging", "production", "local"}

	for _, env := range tests {
		t.Run(env, func(t *testing.T) {
			cfg, err := Load(LoaderOptions{
				ConfigDir:      ".",
				Environment:    env,
				SkipValidation: true,
			})
			if err != nil {
				t.Fatalf("Failed to load %s config: %v", env, err)
			}

			if cfg.Environment != env {
				t.Errorf("Environment = %q, want %q", cfg.Environment, env)
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	os.Setenv("COVERDROP_VAULT_DIR", "/tmp/override-vault")
	os.Setenv("COVERDROP_LOG_LEVEL", "debug")
	defer os.Unsetenv("COVERDROP_VAULT_DIR")
	defer os.Unsetenv("COVERDROP_LOG_LEVEL")

	cfg, err := Load(LoaderOptions{
		ConfigDir:      ".",
		Environment:    "development",
		SkipValidation: true,
	})
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Vault != nil && cfg.Vault.Directory != "/tmp/override-vault" {
		t.Errorf("Vault.Directory = %q, want %q", cfg.Vault.Directory, "/tmp/override-vault")
	}

	if cfg.Logging != nil && cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoadWithCustomConfigDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	testConfig := `
environment: test
logging:
  level: info
  format: json
`
	if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(LoaderOptions{
		ConfigDir:      tmpDir,
		Environment:    "test",
		SkipValidation: true,
	})
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg == nil {
		t.Fatal("Config should not be nil")
	}
}

func TestDefaultLoaderOptions(t *testing.T) {
	opts := DefaultLoaderOptions()

	if opts.ConfigDir != "config" {
		t.Errorf("ConfigDir = %q, want %q", opts.ConfigDir, "config")
	}
	if opts.SkipEnvSubstitution {
		t.Error("SkipEnvSubstitution should be false by default")
	}
	if opts.SkipValidation {
		t.Error("SkipValidation should be false by default")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	if cfg.Environment != "development" {
		t.Errorf("Default environment = %q, want %q", cfg.Environment, "development")
	}
}

func TestHierarchyConfigDefaults(t *testing.T) {
	cfg := &Config{Hierarchy: &HierarchyConfig{}}
	setDefaults(cfg)

	if cfg.Hierarchy.RefreshInterval != 1*time.Minute {
		t.Errorf("RefreshInterval = %v, want %v", cfg.Hierarchy.RefreshInterval, 1*time.Minute)
	}
}

func TestRotationConfigDefaults(t *testing.T) {
	cfg := &Config{Rotation: &RotationConfig{}}
	setDefaults(cfg)

	if cfg.Rotation.IdentityRotateAfter != 180*24*time.Hour {
		t.Errorf("IdentityRotateAfter = %v, want %v", cfg.Rotation.IdentityRotateAfter, 180*24*time.Hour)
	}
	if cfg.Rotation.MessagingRotateAfter != 7*24*time.Hour {
		t.Errorf("MessagingRotateAfter = %v, want %v", cfg.Rotation.MessagingRotateAfter, 7*24*time.Hour)
	}
	if cfg.Rotation.PollTimeout != 10*time.Minute {
		t.Errorf("PollTimeout = %v, want %v", cfg.Rotation.PollTimeout, 10*time.Minute)
	}
}

func TestSentinelConfigDefaults(t *testing.T) {
	cfg := &Config{Sentinel: &SentinelConfig{}}
	setDefaults(cfg)

	if cfg.Sentinel.RecoveryContactCount != 5 {
		t.Errorf("RecoveryContactCount = %d, want %d", cfg.Sentinel.RecoveryContactCount, 5)
	}
	if cfg.Sentinel.Threshold != 3 {
		t.Errorf("Threshold = %d, want %d", cfg.Sentinel.Threshold, 3)
	}
}

func TestValidateConfigurationRejectsThresholdAboveContactCount(t *testing.T) {
	cfg := &Config{Sentinel: &SentinelConfig{RecoveryContactCount: 3, Threshold: 5}}
	issues := ValidateConfiguration(cfg)

	found := false
	for _, issue := range issues {
		if issue.Field == "sentinel.threshold" && issue.Level == "error" {
			found = true
		}
	}
	if !found {
		t.Error("expected an error-level issue for sentinel.threshold exceeding recovery_contact_count")
	}
}
