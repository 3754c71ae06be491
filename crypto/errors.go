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

// Package crypto implements the cryptographic primitives layer: secret-box,
// sealed (anonymous) box, two-party authenticated box, multi-recipient
// anonymous box, an Argon2 key-derivation function, and a pluggable
// (k, n) secret-sharing scheme.
package crypto

import "errors"

// Error kinds surfaced by the core. These are shared across every
// sub-package (keys, hierarchy, envelope, mixer, rotation, sentinel) so
// callers can use errors.Is regardless of which layer raised them.
var (
	ErrFailedToDecrypt            = errors.New("coverdrop: failed to decrypt")
	ErrSignatureVerificationFailed = errors.New("coverdrop: signature verification failed")
	ErrSigningKeyNotFound          = errors.New("coverdrop: signing key not found")
	ErrKeyRotationTooRecent        = errors.New("coverdrop: key rotation too recent")
	ErrKeyExpired                  = errors.New("coverdrop: key expired")
	ErrWrongRole                   = errors.New("coverdrop: wrong role")
	ErrInvalidLength               = errors.New("coverdrop: invalid length")
	ErrLatestKeyPairNotFound       = errors.New("coverdrop: latest key pair not found")
	ErrJournalistIdentityMismatch  = errors.New("coverdrop: journalist identity mismatch")
	ErrInsufficientShares          = errors.New("coverdrop: insufficient shares")
)
