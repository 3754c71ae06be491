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
	"encoding/binary"

	coverdropcrypto "github.com/guardian-coverdrop/coverdrop-core/crypto"
)

// vaultPaddingStep is the granularity backup vaults are padded to. Unlike
// envelope.Pad, which pads to one fixed size, a vault's true size varies
// widely across journalists, so padding only rounds up to the nearest step
// rather than a single constant.
const vaultPaddingStep = 4096

// padVault prepends a 4-byte length and zero-fills to the next multiple of
// vaultPaddingStep, hiding the vault's exact size from whoever stores the
// encrypted backup.
func padVault(plaintext []byte) []byte {
	total := len(plaintext) + 4
	stepped := ((total + vaultPaddingStep - 1) / vaultPaddingStep) * vaultPaddingStep
	out := make([]byte, stepped)
	binary.BigEndian.PutUint32(out[:4], uint32(len(plaintext)))
	copy(out[4:], plaintext)
	return out
}

// unpadVault reverses padVault.
func unpadVault(padded []byte) ([]byte, error) {
	if len(padded) < 4 {
		return nil, coverdropcrypto.ErrInvalidLength
	}
	n := binary.BigEndian.Uint32(padded[:4])
	if int(n)+4 > len(padded) {
		return nil, coverdropcrypto.ErrInvalidLength
	}
	out := make([]byte, n)
	copy(out, padded[4:4+n])
	return out, nil
}
