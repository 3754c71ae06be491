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

package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// requiredFileMode is the only acceptable Unix mode for on-disk key
// material; loaders that find anything looser fail loudly rather than
// silently trusting a world-readable secret.
const requiredFileMode = 0o600

// FileName builds the `{role}-{first-8-hex-of-pk}.{pub|keypair}.json`
// on-disk name used to deduplicate key material without parsing JSON.
func FileName(role RoleID, pub []byte, isKeyPair bool) string {
	first8 := hex.EncodeToString(pub)
	if len(first8) > 8 {
		first8 = first8[:8]
	}
	kind := "pub"
	if isKeyPair {
		kind = "keypair"
	}
	return fmt.Sprintf("%s-%s.%s.json", role, first8, kind)
}

type signingPublicKeyFile struct {
	Key           string `json:"key"`
	NotValidAfter int64  `json:"not_valid_after"`
	Certificate   string `json:"certificate"`
}

type signingKeyPairFile struct {
	PublicKey     string `json:"public_key"`
	SecretKey     string `json:"secret_key"`
	NotValidAfter int64  `json:"not_valid_after"`
	Certificate   string `json:"certificate"`
}

// WriteSignedPublicSigningKey writes k to dir using the standard file name
// and 0600 permissions.
func WriteSignedPublicSigningKey[R Role](dir string, k SignedPublicSigningKey[R]) (string, error) {
	var role R
	f := signingPublicKeyFile{
		Key:           hex.EncodeToString(k.Key),
		NotValidAfter: k.NotValidAfter.Unix(),
		Certificate:   hex.EncodeToString(k.Certificate),
	}
	data, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("coverdrop: marshalling signed public key: %w", err)
	}
	name := FileName(role.ID(), k.Key, false)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, requiredFileMode); err != nil {
		return "", fmt.Errorf("coverdrop: writing signed public key %s: %w", name, err)
	}
	return path, nil
}

// ReadSignedPublicSigningKey reads and parses an untrusted signed public
// key from path, enforcing the 0600 mode invariant.
func ReadSignedPublicSigningKey[R Role](path string) (UntrustedSignedPublicSigningKey[R], error) {
	var zero UntrustedSignedPublicSigningKey[R]
	info, err := os.Stat(path)
	if err != nil {
		return zero, fmt.Errorf("coverdrop: stat %s: %w", path, err)
	}
	if info.Mode().Perm() != requiredFileMode {
		return zero, fmt.Errorf("coverdrop: %s has mode %o, expected %o", path, info.Mode().Perm(), requiredFileMode)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return zero, fmt.Errorf("coverdrop: reading %s: %w", path, err)
	}
	var f signingPublicKeyFile
	if err := json.Unmarshal(data, &f); err != nil {
		return zero, fmt.Errorf("coverdrop: parsing %s: %w", path, err)
	}
	key, err := hex.DecodeString(f.Key)
	if err != nil {
		return zero, fmt.Errorf("coverdrop: decoding key in %s: %w", path, err)
	}
	cert, err := hex.DecodeString(f.Certificate)
	if err != nil {
		return zero, fmt.Errorf("coverdrop: decoding certificate in %s: %w", path, err)
	}
	return UntrustedSignedPublicSigningKey[R]{
		Key:           ed25519.PublicKey(key),
		NotValidAfter: time.Unix(f.NotValidAfter, 0).UTC(),
		Certificate:   cert,
	}, nil
}

// WriteSignedSigningKeyPair writes the private half alongside the signed
// public key, using the `.keypair.json` suffix.
func WriteSignedSigningKeyPair[R Role](dir string, k SignedSigningKeyPair[R]) (string, error) {
	var role R
	f := signingKeyPairFile{
		PublicKey:     hex.EncodeToString(k.Key),
		SecretKey:     hex.EncodeToString(k.Private),
		NotValidAfter: k.NotValidAfter.Unix(),
		Certificate:   hex.EncodeToString(k.Certificate),
	}
	data, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("coverdrop: marshalling signed key pair: %w", err)
	}
	name := FileName(role.ID(), k.Key, true)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, requiredFileMode); err != nil {
		return "", fmt.Errorf("coverdrop: writing signed key pair %s: %w", name, err)
	}
	return path, nil
}

// ReadSignedSigningKeyPair reads a key pair file written by
// WriteSignedSigningKeyPair, enforcing the 0600 mode invariant.
func ReadSignedSigningKeyPair[R Role](path string) (SignedSigningKeyPair[R], error) {
	var zero SignedSigningKeyPair[R]
	info, err := os.Stat(path)
	if err != nil {
		return zero, fmt.Errorf("coverdrop: stat %s: %w", path, err)
	}
	if info.Mode().Perm() != requiredFileMode {
		return zero, fmt.Errorf("coverdrop: %s has mode %o, expected %o", path, info.Mode().Perm(), requiredFileMode)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return zero, fmt.Errorf("coverdrop: reading %s: %w", path, err)
	}
	var f signingKeyPairFile
	if err := json.Unmarshal(data, &f); err != nil {
		return zero, fmt.Errorf("coverdrop: parsing %s: %w", path, err)
	}
	pub, err := hex.DecodeString(f.PublicKey)
	if err != nil {
		return zero, fmt.Errorf("coverdrop: decoding public key in %s: %w", path, err)
	}
	priv, err := hex.DecodeString(f.SecretKey)
	if err != nil {
		return zero, fmt.Errorf("coverdrop: decoding secret key in %s: %w", path, err)
	}
	cert, err := hex.DecodeString(f.Certificate)
	if err != nil {
		return zero, fmt.Errorf("coverdrop: decoding certificate in %s: %w", path, err)
	}
	return SignedSigningKeyPair[R]{
		SignedPublicSigningKey: SignedPublicSigningKey[R]{
			Key:           ed25519.PublicKey(pub),
			NotValidAfter: time.Unix(f.NotValidAfter, 0).UTC(),
			Certificate:   cert,
		},
		Private: ed25519.PrivateKey(priv),
	}, nil
}
