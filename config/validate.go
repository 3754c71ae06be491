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

// ValidationIssue is a single configuration problem found by
// ValidateConfiguration. Level is either "error" (Load fails) or
// "warning" (Load proceeds but the issue is worth surfacing).
type ValidationIssue struct {
	Field   string
	Message string
	Level   string
}

// ValidateConfiguration checks a loaded Config for values that would
// break the components it drives. It never mutates cfg.
func ValidateConfiguration(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Hierarchy != nil && cfg.Hierarchy.RefreshInterval < 0 {
		issues = append(issues, ValidationIssue{
			Field:   "hierarchy.refresh_interval",
			Message: "must not be negative",
			Level:   "error",
		})
	}

	if cfg.Envelope != nil && cfg.Envelope.PaddingLen <= 0 {
		issues = append(issues, ValidationIssue{
			Field:   "envelope.padding_len",
			Message: "must be positive",
			Level:   "error",
		})
	}

	if cfg.Sentinel != nil {
		if cfg.Sentinel.Threshold > cfg.Sentinel.RecoveryContactCount {
			issues = append(issues, ValidationIssue{
				Field:   "sentinel.threshold",
				Message: "must not exceed recovery_contact_count",
				Level:   "error",
			})
		}
		if cfg.Sentinel.Threshold <= 0 {
			issues = append(issues, ValidationIssue{
				Field:   "sentinel.threshold",
				Message: "must be positive",
				Level:   "error",
			})
		}
	}

	if cfg.Vault != nil && cfg.Vault.Directory == "" {
		issues = append(issues, ValidationIssue{
			Field:   "vault.directory",
			Message: "should be set explicitly in production",
			Level:   "warning",
		})
	}

	if cfg.Logging != nil {
		switch cfg.Logging.Level {
		case "debug", "info", "warn", "error", "":
		default:
			issues = append(issues, ValidationIssue{
				Field:   "logging.level",
				Message: "unrecognized level " + cfg.Logging.Level,
				Level:   "warning",
			})
		}
	}

	return issues
}
