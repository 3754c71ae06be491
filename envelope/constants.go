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

// Package envelope implements the fixed-length user<->CoverNode and
// journalist<->CoverNode message envelopes: padding, recipient tags, and
// the two-layer encryption that keeps cover and real traffic
// indistinguishable to everyone but the intended final recipient.
package envelope

import "time"

// Wire-critical size constants. These must match exactly; any envelope
// whose length differs from its type's constant is rejected pre-decrypt.
const (
	MessagePaddingLen         = 512
	RecipientTagLen           = 4
	CoverNodeWrappingKeyCount = 2 // N

	Ed25519PublicKeyLen = 32
	Ed25519SecretKeyLen = 32
	X25519PublicKeyLen  = 32
	X25519SecretKeyLen  = 32
	Poly1305AuthTagLen  = 16
	TwoPartyBoxNonceLen = 24

	MultiAnonymousBoxSecretKeyLen = 32

	UserToJournalistMessageLen          = 545 // 32 + 1 + 512
	UserToJournalistEncryptedMessageLen = 593 // 32 + 16 + 545
	UserToCoverNodeMessageLen           = 597 // 4 + 593
	UserToCoverNodeEncryptedMessageLen  = 773 // 2*(32+16+32) + 597 + 16

	JournalistToUserMessageLen          = 513 // 1 + 512
	JournalistToUserEncryptedMessageLen = 553 // 16 + 513 + 24
	JournalistToCoverNodeMessageLen      = 554 // 1 + 553
	JournalistToCoverNodeEncryptedMessageLen = 730
	CoverNodeToJournalistEncryptedMessageLen = 633 // 24 + 16 + 593
)

// Special byte flags carried inside the inner J2U payload.
const (
	FlagJ2UMessageTypeMessage  byte = 0x01
	FlagJ2UMessageTypeHandover byte = 0x02
)

// RecipientTagBytesU2JCover is a fixed 4-byte tag used by cover U2C
// envelopes; it is chosen to never collide with a real SHA-256(identity)
// prefix in practice and is checked for equality, not computed from any
// live journalist identity.
var RecipientTagBytesU2JCover = [RecipientTagLen]byte{0xC0, 0x5E, 0x5A, 0x9E}

const (
	// MessageValidForDuration is how long a message remains valid after
	// send/receipt before client policy treats it as expired.
	MessageValidForDuration = 14 * 24 * time.Hour
	// MessageExpiryWarning is how long before expiry clients surface a
	// warning to the user.
	MessageExpiryWarning = 2 * 24 * time.Hour
)
