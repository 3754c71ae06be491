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

package sentinel

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// A backup admin's restore spans two devices and an exchange with recovery
// contacts, so BackupRestorationInProgress and the shares collected back
// from contacts must survive a process restart. These helpers give every
// file written during that exchange a name that groups it with the rest of
// the same restore operation, without requiring a database.

const restoreTimeFormat = "20060102T150405Z"

type restorationFile struct {
	OperationID                string   `json:"operation_id"`
	JournalistIdentity         string   `json:"journalist_identity"`
	BackupEncryptedPaddedVault string   `json:"backup_encrypted_padded_vault"`
	EncryptedShares            []string `json:"encrypted_shares"`
}

// WriteRestorationInProgress persists state to dir as
// restore-{journalist_identity}-{ts}.recovery-in-progress, generating a
// fresh operation ID to tag the share files collected back from recovery
// contacts as belonging to this restore rather than some earlier attempt
// for the same journalist.
func WriteRestorationInProgress(dir string, state BackupRestorationInProgress, now time.Time) (operationID string, path string, err error) {
	operationID = uuid.NewString()
	ts := now.UTC().Format(restoreTimeFormat)
	name := fmt.Sprintf("restore-%s-%s.recovery-in-progress", state.JournalistIdentity, ts)
	path = filepath.Join(dir, name)

	shares := make([]string, len(state.EncryptedShares))
	for i, s := range state.EncryptedShares {
		shares[i] = hex.EncodeToString(s)
	}
	f := restorationFile{
		OperationID:                operationID,
		JournalistIdentity:         state.JournalistIdentity,
		BackupEncryptedPaddedVault: hex.EncodeToString(state.BackupEncryptedPaddedVault),
		EncryptedShares:            shares,
	}
	data, err := json.Marshal(f)
	if err != nil {
		return "", "", fmt.Errorf("coverdrop: marshaling restoration state: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", "", fmt.Errorf("coverdrop: writing restoration state: %w", err)
	}
	return operationID, path, nil
}

// ReadRestorationInProgress reverses WriteRestorationInProgress.
func ReadRestorationInProgress(path string) (operationID string, state BackupRestorationInProgress, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", BackupRestorationInProgress{}, fmt.Errorf("coverdrop: reading restoration state: %w", err)
	}
	var f restorationFile
	if err := json.Unmarshal(data, &f); err != nil {
		return "", BackupRestorationInProgress{}, fmt.Errorf("coverdrop: parsing restoration state: %w", err)
	}
	vault, err := hex.DecodeString(f.BackupEncryptedPaddedVault)
	if err != nil {
		return "", BackupRestorationInProgress{}, fmt.Errorf("coverdrop: decoding vault ciphertext: %w", err)
	}
	shares := make([][]byte, len(f.EncryptedShares))
	for i, s := range f.EncryptedShares {
		share, err := hex.DecodeString(s)
		if err != nil {
			return "", BackupRestorationInProgress{}, fmt.Errorf("coverdrop: decoding share %d: %w", i, err)
		}
		shares[i] = share
	}
	return f.OperationID, BackupRestorationInProgress{
		JournalistIdentity:         f.JournalistIdentity,
		BackupEncryptedPaddedVault: vault,
		EncryptedShares:            shares,
	}, nil
}

// WriteRecoveryShare persists a recovery contact's unwrapped, re-wrapped
// share as
// restore-{operationID}-{ts}-share-{index}-{recipient}.recovery-share.txt,
// hex-encoded so it can be pasted into a transport channel that only
// accepts text.
func WriteRecoveryShare(dir, operationID string, index int, recipient string, share WrappedSecretShare, now time.Time) (string, error) {
	ts := now.UTC().Format(restoreTimeFormat)
	recipient = sanitizeForFileName(recipient)
	name := fmt.Sprintf("restore-%s-%s-share-%d-%s.recovery-share.txt", operationID, ts, index, recipient)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(hex.EncodeToString(share)), 0600); err != nil {
		return "", fmt.Errorf("coverdrop: writing recovery share: %w", err)
	}
	return path, nil
}

// ReadRecoveryShares collects every share file written for operationID
// under dir, in file-name order, decoding each back to a WrappedSecretShare.
func ReadRecoveryShares(dir, operationID string) ([]WrappedSecretShare, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("coverdrop: listing %s: %w", dir, err)
	}
	prefix := fmt.Sprintf("restore-%s-", operationID)
	const suffix = ".recovery-share.txt"

	var names []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	shares := make([]WrappedSecretShare, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("coverdrop: reading %s: %w", name, err)
		}
		share, err := hex.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("coverdrop: decoding %s: %w", name, err)
		}
		shares = append(shares, WrappedSecretShare(share))
	}
	return shares, nil
}

// WriteRestoredVault persists a successfully restored vault as
// {operationID}-restored-{ts}.vault.
func WriteRestoredVault(dir, operationID string, vault []byte, now time.Time) (string, error) {
	ts := now.UTC().Format(restoreTimeFormat)
	name := fmt.Sprintf("%s-restored-%s.vault", operationID, ts)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, vault, 0600); err != nil {
		return "", fmt.Errorf("coverdrop: writing restored vault: %w", err)
	}
	return path, nil
}

func sanitizeForFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}
