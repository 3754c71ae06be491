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

// EncryptRealUserToCoverNode builds the real U2C envelope: inner U2J
// (reply key ‖ 0x00 ‖ padded plaintext), sealed to the journalist
// messaging key, tagged with the journalist's recipient tag, then wrapped
// in a multi-anonymous box to every given CoverNode messaging key.
func EncryptRealUserToCoverNode(userReplyPub [X25519PublicKeyLen]byte, journalistIdentity string, journalistMessagingPub *[X25519PublicKeyLen]byte, coverNodeMessagingPubs []*[X25519PublicKeyLen]byte, plaintext []byte) ([]byte, error) {
	padded, err := Pad(plaintext, MessagePaddingLen)
	if err != nil {
		return nil, err
	}
	u2j := make([]byte, 0, UserToJournalistMessageLen)
	u2j = append(u2j, userReplyPub[:]...)
	u2j = append(u2j, 0x00)
	u2j = append(u2j, padded...)
	if len(u2j) != UserToJournalistMessageLen {
		return nil, fmt.Errorf("coverdrop: built U2J of length %d, want %d", len(u2j), UserToJournalistMessageLen)
	}

	u2jCipher, err := coverdropcrypto.AnonymousBoxEncrypt(u2j, journalistMessagingPub)
	if err != nil {
		return nil, err
	}
	if len(u2jCipher) != UserToJournalistEncryptedMessageLen {
		return nil, fmt.Errorf("coverdrop: U2J ciphertext length %d, want %d", len(u2jCipher), UserToJournalistEncryptedMessageLen)
	}

	tag := RecipientTag(journalistIdentity)
	u2cInner := make([]byte, 0, UserToCoverNodeMessageLen)
	u2cInner = append(u2cInner, tag[:]...)
	u2cInner = append(u2cInner, u2jCipher...)
	if len(u2cInner) != UserToCoverNodeMessageLen {
		return nil, fmt.Errorf("coverdrop: U2C inner length %d, want %d", len(u2cInner), UserToCoverNodeMessageLen)
	}

	if len(coverNodeMessagingPubs) != CoverNodeWrappingKeyCount {
		return nil, fmt.Errorf("coverdrop: expected %d CoverNode messaging keys, got %d", CoverNodeWrappingKeyCount, len(coverNodeMessagingPubs))
	}
	out, err := coverdropcrypto.MultiAnonymousBoxEncrypt(u2cInner, coverNodeMessagingPubs)
	if err != nil {
		return nil, err
	}
	if len(out) != UserToCoverNodeEncryptedMessageLen {
		return nil, fmt.Errorf("coverdrop: U2C envelope length %d, want %d", len(out), UserToCoverNodeEncryptedMessageLen)
	}
	return out, nil
}

// EncryptCoverUserToCoverNode builds a cover U2C envelope: same size as a
// real one, with RecipientTagBytesU2JCover followed by random bytes as the
// U2C inner payload, so an outside observer cannot distinguish it from a
// real envelope.
func EncryptCoverUserToCoverNode(coverNodeMessagingPubs []*[X25519PublicKeyLen]byte) ([]byte, error) {
	if len(coverNodeMessagingPubs) != CoverNodeWrappingKeyCount {
		return nil, fmt.Errorf("coverdrop: expected %d CoverNode messaging keys, got %d", CoverNodeWrappingKeyCount, len(coverNodeMessagingPubs))
	}
	randomBody, err := RandomPadded(UserToCoverNodeMessageLen - RecipientTagLen)
	if err != nil {
		return nil, err
	}
	u2cInner := make([]byte, 0, UserToCoverNodeMessageLen)
	u2cInner = append(u2cInner, RecipientTagBytesU2JCover[:]...)
	u2cInner = append(u2cInner, randomBody...)

	out, err := coverdropcrypto.MultiAnonymousBoxEncrypt(u2cInner, coverNodeMessagingPubs)
	if err != nil {
		return nil, err
	}
	if len(out) != UserToCoverNodeEncryptedMessageLen {
		return nil, fmt.Errorf("coverdrop: U2C envelope length %d, want %d", len(out), UserToCoverNodeEncryptedMessageLen)
	}
	return out, nil
}

// CoverNodeInboundU2C is what the CoverNode learns after opening a U2C
// envelope with one of its own messaging private keys: whether it was
// cover (in which case it is discarded) and, if real, the still-sealed
// U2J ciphertext to forward on toward the journalist — the CoverNode never
// learns the journalist plaintext.
type CoverNodeInboundU2C struct {
	IsCover   bool
	U2JCipher []byte
}

// CoverNodeProcessU2C tries every active CoverNode messaging private key
// in turn against envelope, per the decryption policy of trying all active
// keys until one opens.
func CoverNodeProcessU2C(envelope []byte, activeCoverNodeMessagingKeys []coverdropcrypto.X25519KeyPair) (CoverNodeInboundU2C, error) {
	if len(envelope) != UserToCoverNodeEncryptedMessageLen {
		return CoverNodeInboundU2C{}, coverdropcrypto.ErrInvalidLength
	}
	for _, kp := range activeCoverNodeMessagingKeys {
		inner, err := coverdropcrypto.MultiAnonymousBoxDecrypt(envelope, CoverNodeWrappingKeyCount, kp.Public, kp.Private)
		if err != nil {
			continue
		}
		if len(inner) != UserToCoverNodeMessageLen {
			continue
		}
		if string(inner[:RecipientTagLen]) == string(RecipientTagBytesU2JCover[:]) {
			return CoverNodeInboundU2C{IsCover: true}, nil
		}
		return CoverNodeInboundU2C{U2JCipher: inner[RecipientTagLen:]}, nil
	}
	return CoverNodeInboundU2C{}, coverdropcrypto.ErrFailedToDecrypt
}

// WrapCoverNodeToJournalist publishes the unchanged U2J ciphertext to the
// journalist's dead-drop, two-party-boxed from the CoverNode's messaging
// key to the journalist's messaging key.
func WrapCoverNodeToJournalist(u2jCipher []byte, coverNodeMessagingPriv *[X25519PublicKeyLen]byte, journalistMessagingPub *[X25519PublicKeyLen]byte) ([]byte, error) {
	if len(u2jCipher) != UserToJournalistEncryptedMessageLen {
		return nil, coverdropcrypto.ErrInvalidLength
	}
	out, err := coverdropcrypto.TwoPartyBoxEncrypt(u2jCipher, journalistMessagingPub, coverNodeMessagingPriv)
	if err != nil {
		return nil, err
	}
	if len(out) != CoverNodeToJournalistEncryptedMessageLen {
		return nil, fmt.Errorf("coverdrop: C2J envelope length %d, want %d", len(out), CoverNodeToJournalistEncryptedMessageLen)
	}
	return out, nil
}

// DecryptCoverNodeToJournalist opens a dead-drop entry and then the U2J
// ciphertext inside it, trying every currently-trusted journalist
// messaging key pair the caller holds (a sealed U2J does not reveal which
// journalist it was sealed to).
func DecryptCoverNodeToJournalist(deadDrop []byte, coverNodeMessagingPub *[X25519PublicKeyLen]byte, journalistMessagingKeys []coverdropcrypto.X25519KeyPair) (replyPub [X25519PublicKeyLen]byte, plaintext []byte, err error) {
	if len(deadDrop) != CoverNodeToJournalistEncryptedMessageLen {
		return replyPub, nil, coverdropcrypto.ErrInvalidLength
	}
	for _, kp := range journalistMessagingKeys {
		u2jCipher, openErr := coverdropcrypto.TwoPartyBoxDecrypt(deadDrop, coverNodeMessagingPub, kp.Private)
		if openErr != nil {
			continue
		}
		u2j, innerErr := coverdropcrypto.AnonymousBoxDecrypt(u2jCipher, kp.Public, kp.Private)
		if innerErr != nil {
			continue
		}
		if len(u2j) != UserToJournalistMessageLen {
			continue
		}
		copy(replyPub[:], u2j[:X25519PublicKeyLen])
		padded := u2j[X25519PublicKeyLen+1:]
		p, unpadErr := Unpad(padded)
		if unpadErr != nil {
			continue
		}
		return replyPub, p, nil
	}
	return replyPub, nil, coverdropcrypto.ErrFailedToDecrypt
}
