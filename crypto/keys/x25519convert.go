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
	"crypto/sha512"
	"fmt"

	"filippo.io/edwards25519"
)

// ConvertEd25519PrivToX25519 turns an Ed25519 private key's seed into the
// X25519 scalar per RFC 8032 §5.1.5. Used to derive a user's reply
// encryption key from the same identity the client already trusts on
// first use, without shipping a second key pair.
func ConvertEd25519PrivToX25519(priv ed25519.PrivateKey) ([32]byte, error) {
	if l := len(priv); l != ed25519.PrivateKeySize {
		return [32]byte{}, fmt.Errorf("coverdrop: bad ed25519 private key length: %d", l)
	}
	seed := priv.Seed()
	h := sha512.Sum512(seed)
	h[0] &= 248
	h[31] &= 127
	h[31] |= 64

	var out [32]byte
	copy(out[:], h[:32])
	return out, nil
}

// ConvertEd25519PubToX25519 decompresses an Ed25519 point and returns its
// Montgomery (X25519) form.
func ConvertEd25519PubToX25519(pub ed25519.PublicKey) ([32]byte, error) {
	if l := len(pub); l != ed25519.PublicKeySize {
		return [32]byte{}, fmt.Errorf("coverdrop: bad ed25519 public key length: %d", l)
	}
	p, err := new(edwards25519.Point).SetBytes(pub)
	if err != nil {
		return [32]byte{}, fmt.Errorf("coverdrop: invalid ed25519 public key: %w", err)
	}
	var out [32]byte
	copy(out[:], p.BytesMontgomery())
	return out, nil
}
