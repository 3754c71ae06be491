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

// Package vault stores passphrase-encrypted key material at rest, on disk
// or in memory, for anything a device-side component (a journalist vault,
// an admin's backup keys) needs to hold across restarts without keeping
// the plaintext around.
package vault

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	coverdropcrypto "github.com/guardian-coverdrop/coverdrop-core/crypto"
)

var (
	ErrInvalidPassphrase = errors.New("coverdrop: invalid passphrase")
	ErrKeyNotFound       = errors.New("coverdrop: key not found")
	ErrInvalidKeyID      = errors.New("coverdrop: invalid key id")
)

// Vault is the storage-backend-agnostic interface both FileVault and
// MemoryVault satisfy.
type Vault interface {
	StoreEncrypted(keyID string, key []byte, passphrase string) error
	LoadDecrypted(keyID string, passphrase string) ([]byte, error)
	Delete(keyID string) error
	Exists(keyID string) bool
	ListKeys() []string
	SetPermissions(keyID string, mode os.FileMode) error
}

// record is the on-disk/in-memory encrypted-at-rest representation.
type record struct {
	Salt    []byte                     `json:"salt"`
	Version coverdropcrypto.KDFVersion `json:"version"`
	Sealed  []byte                     `json:"sealed"`
}

const saltLen = 16

func seal(key []byte, passphrase string) (record, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return record{}, fmt.Errorf("coverdrop: generating salt: %w", err)
	}
	derived := coverdropcrypto.DeriveSecretBoxKey([]byte(passphrase), salt, coverdropcrypto.KDFVersionV1)
	sealed, err := coverdropcrypto.SecretBoxEncrypt(key, derived)
	if err != nil {
		return record{}, fmt.Errorf("coverdrop: encrypting key material: %w", err)
	}
	return record{Salt: salt, Version: coverdropcrypto.KDFVersionV1, Sealed: sealed}, nil
}

func unseal(r record, passphrase string) ([]byte, error) {
	derived := coverdropcrypto.DeriveSecretBoxKey([]byte(passphrase), r.Salt, r.Version)
	plaintext, err := coverdropcrypto.SecretBoxDecrypt(r.Sealed, derived)
	if err != nil {
		return nil, ErrInvalidPassphrase
	}
	return plaintext, nil
}

// FileVault persists one JSON file per key under a directory, each mode
// 0600 at creation.
type FileVault struct {
	dir string
	mu  sync.Mutex
}

// NewFileVault opens (creating if necessary) a FileVault rooted at dir.
func NewFileVault(dir string) (*FileVault, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("coverdrop: creating vault directory: %w", err)
	}
	return &FileVault{dir: dir}, nil
}

func (v *FileVault) path(keyID string) string {
	return filepath.Join(v.dir, keyID+".json")
}

func (v *FileVault) StoreEncrypted(keyID string, key []byte, passphrase string) error {
	if keyID == "" {
		return ErrInvalidKeyID
	}
	r, err := seal(key, passphrase)
	if err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("coverdrop: marshaling vault record: %w", err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return os.WriteFile(v.path(keyID), data, 0600)
}

func (v *FileVault) LoadDecrypted(keyID string, passphrase string) ([]byte, error) {
	if keyID == "" {
		return nil, ErrInvalidKeyID
	}
	v.mu.Lock()
	data, err := os.ReadFile(v.path(keyID))
	v.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("coverdrop: reading vault record: %w", err)
	}
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("coverdrop: unmarshaling vault record: %w", err)
	}
	return unseal(r, passphrase)
}

func (v *FileVault) Delete(keyID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, err := os.Stat(v.path(keyID)); err != nil {
		return ErrKeyNotFound
	}
	return os.Remove(v.path(keyID))
}

func (v *FileVault) Exists(keyID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, err := os.Stat(v.path(keyID))
	return err == nil
}

func (v *FileVault) ListKeys() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	entries, err := os.ReadDir(v.dir)
	if err != nil {
		return nil
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if filepath.Ext(name) == ".json" {
			keys = append(keys, name[:len(name)-len(".json")])
		}
	}
	return keys
}

func (v *FileVault) SetPermissions(keyID string, mode os.FileMode) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, err := os.Stat(v.path(keyID)); err != nil {
		return ErrKeyNotFound
	}
	return os.Chmod(v.path(keyID), mode)
}

// MemoryVault is a FileVault-equivalent backed by a map, for tests and for
// processes that never want key material to touch disk.
type MemoryVault struct {
	mu      sync.Mutex
	records map[string]record
}

// NewMemoryVault returns an empty MemoryVault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{records: make(map[string]record)}
}

func (v *MemoryVault) StoreEncrypted(keyID string, key []byte, passphrase string) error {
	if keyID == "" {
		return ErrInvalidKeyID
	}
	r, err := seal(key, passphrase)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.records[keyID] = r
	return nil
}

func (v *MemoryVault) LoadDecrypted(keyID string, passphrase string) ([]byte, error) {
	if keyID == "" {
		return nil, ErrInvalidKeyID
	}
	v.mu.Lock()
	r, ok := v.records[keyID]
	v.mu.Unlock()
	if !ok {
		return nil, ErrKeyNotFound
	}
	return unseal(r, passphrase)
}

func (v *MemoryVault) Delete(keyID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.records[keyID]; !ok {
		return ErrKeyNotFound
	}
	delete(v.records, keyID)
	return nil
}

func (v *MemoryVault) Exists(keyID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.records[keyID]
	return ok
}

func (v *MemoryVault) ListKeys() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	keys := make([]string, 0, len(v.records))
	for k := range v.records {
		keys = append(keys, k)
	}
	return keys
}

// SetPermissions is a no-op for MemoryVault beyond existence checking:
// there is no file mode to change.
func (v *MemoryVault) SetPermissions(keyID string, _ os.FileMode) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.records[keyID]; !ok {
		return ErrKeyNotFound
	}
	return nil
}
