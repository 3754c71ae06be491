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

import "crypto/sha256"

// RecipientTag is the first RecipientTagLen bytes of SHA-256(identity),
// fitting a journalist's identity into one ciphertext byte range without
// revealing the full identity to the CoverNode that routes on it.
func RecipientTag(identity string) [RecipientTagLen]byte {
	sum := sha256.Sum256([]byte(identity))
	var tag [RecipientTagLen]byte
	copy(tag[:], sum[:RecipientTagLen])
	return tag
}
