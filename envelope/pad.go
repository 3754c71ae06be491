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

package envelope

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	coverdropcrypto "github.com/guardian-coverdrop/coverdrop-core/crypto"
)

// Pad encodes plaintext as a 2-byte big-endian length prefix followed by
// the bytes themselves, zero-filled to exactly size. Fails if plaintext
// plus its length prefix would not fit.
func Pad(plaintext []byte, size int) ([]byte, error) {
	if len(plaintext)+2 > size {
		return nil, coverdropcrypto.ErrInvalidLength
	}
	out := make([]byte, size)
	binary.BigEndian.PutUint16(out[:2], uint16(len(plaintext)))
	copy(out[2:], plaintext)
	return out, nil
}

// Unpad reverses Pad, validating the encoded length is consistent with the
// padded buffer's size.
func Unpad(padded []byte) ([]byte, error) {
	if len(padded) < 2 {
		return nil, coverdropcrypto.ErrInvalidLength
	}
	n := int(binary.BigEndian.Uint16(padded[:2]))
	if n+2 > len(padded) {
		return nil, coverdropcrypto.ErrInvalidLength
	}
	out := make([]byte, n)
	copy(out, padded[2:2+n])
	return out, nil
}

// RandomPadded returns size freshly random bytes, used to generate cover
// message bodies indistinguishable from Pad's output by an observer
// without the decryption key.
func RandomPadded(size int) ([]byte, error) {
	out := make([]byte, size)
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("coverdrop: generating cover padding: %w", err)
	}
	return out, nil
}
