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

import "fmt"

// SecretSharingScheme splits a secret into n shares such that k of them
// combine back to the original secret. Callers always pass k through so a
// true Shamir implementation can be substituted without touching call
// sites; SingleShareSecretSharing is the only implementation today and
// requires k == 1.
type SecretSharingScheme interface {
	Split(secret []byte, n int) ([][]byte, error)
	Combine(shares [][]byte, k int) ([]byte, error)
}

// SingleShareSecretSharing is the current (k=1, n=n) scheme: every share is
// simply a copy of the secret, and any one of them reproduces it. It is
// deliberately the placeholder the design notes describe: a future (k>1)
// Shamir scheme drops in behind the same interface.
type SingleShareSecretSharing struct{}

// Split returns n identical copies of secret.
func (SingleShareSecretSharing) Split(secret []byte, n int) ([][]byte, error) {
	if n < 1 {
		return nil, fmt.Errorf("coverdrop: secret sharing requires n >= 1, got %d", n)
	}
	shares := make([][]byte, n)
	for i := range shares {
		share := make([]byte, len(secret))
		copy(share, secret)
		shares[i] = share
	}
	return shares, nil
}

// Combine requires k == 1 and at least one non-empty share, returning a copy
// of the first non-empty one.
func (SingleShareSecretSharing) Combine(shares [][]byte, k int) ([]byte, error) {
	if k != 1 {
		return nil, fmt.Errorf("coverdrop: single-share scheme only supports k=1, got %d", k)
	}
	for _, s := range shares {
		if len(s) > 0 {
			out := make([]byte, len(s))
			copy(out, s)
			return out, nil
		}
	}
	return nil, ErrInsufficientShares
}
