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
	"fmt"

	coverdropcrypto "github.com/guardian-coverdrop/coverdrop-core/crypto"
)

// realOrCoverByte values prefixing the J2C inner payload, distinguishing
// real traffic from cover at the CoverNode without revealing anything
// about the J2U payload underneath.
const (
	j2cReal  byte = 0x01
	j2cCover byte = 0x00
)

// EncryptRealJournalistToCoverNode builds the real J2C envelope: inner J2U
// (message-type flag ‖ padded plaintext), two-party-boxed to the user's
// reply public key obtained from their prior U2J, then wrapped with a
// real-or-cover byte and multi-anonymous-boxed to the CoverNode messaging
// keys.
func EncryptRealJournalistToCoverNode(flag byte, plaintext []byte, userReplyPub *[X25519PublicKeyLen]byte, journalistMessagingPriv *[X25519PublicKeyLen]byte, coverNodeMessagingPubs []*[X25519PublicKeyLen]byte) ([]byte, error) {
	if flag != FlagJ2UMessageTypeMessage && flag != FlagJ2UMessageTypeHandover {
		return nil, fmt.Errorf("coverdrop: unknown J2U message type flag %#x", flag)
	}
	padded, err := Pad(plaintext, MessagePaddingLen)
	if err != nil {
		return nil, err
	}
	j2u := make([]byte, 0, JournalistToUserMessageLen)
	j2u = append(j2u, flag)
	j2u = append(j2u, padded...)
	if len(j2u) != JournalistToUserMessageLen {
		return nil, fmt.Errorf("coverdrop: built J2U of length %d, want %d", len(j2u), JournalistToUserMessageLen)
	}

	j2uCipher, err := coverdropcrypto.TwoPartyBoxEncrypt(j2u, userReplyPub, journalistMessagingPriv)
	if err != nil {
		return nil, err
	}
	if len(j2uCipher) != JournalistToUserEncryptedMessageLen {
		return nil, fmt.Errorf("coverdrop: J2U ciphertext length %d, want %d", len(j2uCipher), JournalistToUserEncryptedMessageLen)
	}

	j2cInner := make([]byte, 0, JournalistToCoverNodeMessageLen)
	j2cInner = append(j2cInner, j2cReal)
	j2cInner = append(j2cInner, j2uCipher...)
	if len(j2cInner) != JournalistToCoverNodeMessageLen {
		return nil, fmt.Errorf("coverdrop: J2C inner length %d, want %d", len(j2cInner), JournalistToCoverNodeMessageLen)
	}

	if len(coverNodeMessagingPubs) != CoverNodeWrappingKeyCount {
		return nil, fmt.Errorf("coverdrop: expected %d CoverNode messaging keys, got %d", CoverNodeWrappingKeyCount, len(coverNodeMessagingPubs))
	}
	out, err := coverdropcrypto.MultiAnonymousBoxEncrypt(j2cInner, coverNodeMessagingPubs)
	if err != nil {
		return nil, err
	}
	if len(out) != JournalistToCoverNodeEncryptedMessageLen {
		return nil, fmt.Errorf("coverdrop: J2C envelope length %d, want %d", len(out), JournalistToCoverNodeEncryptedMessageLen)
	}
	return out, nil
}

// EncryptCoverJournalistToCoverNode builds a cover J2C envelope of
// identical size to a real one.
func EncryptCoverJournalistToCoverNode(coverNodeMessagingPubs []*[X25519PublicKeyLen]byte) ([]byte, error) {
	if len(coverNodeMessagingPubs) != CoverNodeWrappingKeyCount {
		return nil, fmt.Errorf("coverdrop: expected %d CoverNode messaging keys, got %d", CoverNodeWrappingKeyCount, len(coverNodeMessagingPubs))
	}
	random, err := RandomPadded(JournalistToCoverNodeMessageLen - 1)
	if err != nil {
		return nil, err
	}
	j2cInner := make([]byte, 0, JournalistToCoverNodeMessageLen)
	j2cInner = append(j2cInner, j2cCover)
	j2cInner = append(j2cInner, random...)

	out, err := coverdropcrypto.MultiAnonymousBoxEncrypt(j2cInner, coverNodeMessagingPubs)
	if err != nil {
		return nil, err
	}
	if len(out) != JournalistToCoverNodeEncryptedMessageLen {
		return nil, fmt.Errorf("coverdrop: J2C envelope length %d, want %d", len(out), JournalistToCoverNodeEncryptedMessageLen)
	}
	return out, nil
}

// CoverNodeInboundJ2C is what the CoverNode learns after opening a J2C
// envelope: whether it was cover, and if not, the still-sealed J2U
// ciphertext to emit as the mixer's real payload (unchanged, to be
// delivered directly to the user — the outer box is removed but the inner
// two-party box to the user is not, so the CoverNode never sees the user
// plaintext either).
type CoverNodeInboundJ2C struct {
	IsCover   bool
	J2UCipher []byte
}

// CoverNodeProcessJ2C tries every active CoverNode messaging private key
// in turn.
func CoverNodeProcessJ2C(envelope []byte, activeCoverNodeMessagingKeys []coverdropcrypto.X25519KeyPair) (CoverNodeInboundJ2C, error) {
	if len(envelope) != JournalistToCoverNodeEncryptedMessageLen {
		return CoverNodeInboundJ2C{}, coverdropcrypto.ErrInvalidLength
	}
	for _, kp := range activeCoverNodeMessagingKeys {
		inner, err := coverdropcrypto.MultiAnonymousBoxDecrypt(envelope, CoverNodeWrappingKeyCount, kp.Public, kp.Private)
		if err != nil {
			continue
		}
		if len(inner) != JournalistToCoverNodeMessageLen {
			continue
		}
		if inner[0] == j2cCover {
			return CoverNodeInboundJ2C{IsCover: true}, nil
		}
		return CoverNodeInboundJ2C{J2UCipher: inner[1:]}, nil
	}
	return CoverNodeInboundJ2C{}, coverdropcrypto.ErrFailedToDecrypt
}

// DecryptJournalistToUser opens the J2U ciphertext the mixer emitted to
// the user, trying the user's reply private key against each given
// journalist messaging public key in turn (mirroring the journalist-side
// "try every key" policy).
func DecryptJournalistToUser(j2uCipher []byte, journalistMessagingPubs []*[X25519PublicKeyLen]byte, userReplyPriv *[X25519PublicKeyLen]byte) (flag byte, plaintext []byte, err error) {
	if len(j2uCipher) != JournalistToUserEncryptedMessageLen {
		return 0, nil, coverdropcrypto.ErrInvalidLength
	}
	for _, journalistPub := range journalistMessagingPubs {
		j2u, openErr := coverdropcrypto.TwoPartyBoxDecrypt(j2uCipher, journalistPub, userReplyPriv)
		if openErr != nil {
			continue
		}
		if len(j2u) != JournalistToUserMessageLen {
			continue
		}
		p, unpadErr := Unpad(j2u[1:])
		if unpadErr != nil {
			continue
		}
		return j2u[0], p, nil
	}
	return 0, nil, coverdropcrypto.ErrFailedToDecrypt
}
