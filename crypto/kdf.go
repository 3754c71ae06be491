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

package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

// KDFVersion selects between the legacy and current encodings of the Argon2
// output; both versions run Argon2id with the same parameters.
type KDFVersion int

const (
	// KDFVersionV1 is the current configuration: raw 32-byte output.
	KDFVersionV1 KDFVersion = iota
	// KDFVersionV0 is the legacy configuration retained only to open
	// vaults created before the V1 migration. It hex-encodes its output
	// twice before truncating to 32 bytes, matching the original
	// double-hex-encoded SQLCipher key derivation.
	KDFVersionV0
)

const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
)

// DeriveSecretBoxKey derives a 32-byte secret-box key from a passphrase and
// salt using Argon2id. The V0 path exists only for opening legacy vaults
// (see the Open Question decisions in DESIGN.md); new vaults always use V1.
func DeriveSecretBoxKey(passphrase, salt []byte, version KDFVersion) *[32]byte {
	raw := argon2.IDKey(passphrase, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	var key [32]byte
	switch version {
	case KDFVersionV0:
		// Historical SQLCipher key derivation hex-encoded the raw Argon2
		// output, then hex-encoded it a second time, before truncating
		// to the key length used by the cipher.
		once := hex.EncodeToString(raw)
		twice := hex.EncodeToString([]byte(once))
		copy(key[:], twice)
	default:
		copy(key[:], raw)
	}
	return &key
}
