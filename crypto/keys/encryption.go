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
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	coverdropcrypto "github.com/guardian-coverdrop/coverdrop-core/crypto"
)

// UnsignedEncryptionKeyPair is an X25519 private+public pair tagged with
// role R, not yet countersigned by its identity-signing parent.
type UnsignedEncryptionKeyPair[R Role] struct {
	Public  [32]byte
	Private [32]byte
}

// GenerateUnsignedEncryptionKeyPair creates a fresh X25519 pair for role R.
func GenerateUnsignedEncryptionKeyPair[R Role]() (UnsignedEncryptionKeyPair[R], error) {
	var priv [32]byte
	if _, err := rand.Read(priv[:]); err != nil {
		return UnsignedEncryptionKeyPair[R]{}, fmt.Errorf("coverdrop: generating encryption key pair: %w", err)
	}
	pub, err := coverdropcrypto.X25519ScalarBaseMult(&priv)
	if err != nil {
		return UnsignedEncryptionKeyPair[R]{}, err
	}
	return UnsignedEncryptionKeyPair[R]{Public: *pub, Private: priv}, nil
}

// UntrustedSignedPublicEncryptionKey is the wire/disk form of an encryption
// key: a claimed public key, expiry, and the identity-signing parent's
// certificate over it.
type UntrustedSignedPublicEncryptionKey[R Role] struct {
	Key           [32]byte
	NotValidAfter time.Time
	Certificate   []byte
}

// SignedPublicEncryptionKey is a verified encryption public key.
type SignedPublicEncryptionKey[R Role] struct {
	Key           [32]byte
	NotValidAfter time.Time
	Certificate   []byte
}

// SignedEncryptionKeyPair pairs a verified public encryption key with its
// private scalar.
type SignedEncryptionKeyPair[R Role] struct {
	SignedPublicEncryptionKey[R]
	Private [32]byte
}

func encryptionCertBody(pub [32]byte, notValidAfter time.Time) []byte {
	body := make([]byte, 0, 32+8)
	body = append(body, pub[:]...)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(notValidAfter.Unix()))
	body = append(body, ts[:]...)
	return body
}

// ToTrustedEncryptionKey verifies untrusted's certificate under parent, an
// Ed25519 identity-signing key of the role that owns this encryption role
// (e.g. JournalistID signs JournalistMessaging), and checks expiry.
func ToTrustedEncryptionKey[P Role, C Role](untrusted UntrustedSignedPublicEncryptionKey[C], parent SignedPublicSigningKey[P], now time.Time) (SignedPublicEncryptionKey[C], error) {
	var child C
	var parentTag P
	expectedParent, isAnchor, isUnsigned := ParentRole(child.ID())
	if isAnchor || isUnsigned {
		return SignedPublicEncryptionKey[C]{}, fmt.Errorf("%w: role %s does not verify via ToTrustedEncryptionKey", coverdropcrypto.ErrWrongRole, child.ID())
	}
	if expectedParent != parentTag.ID() {
		return SignedPublicEncryptionKey[C]{}, coverdropcrypto.ErrWrongRole
	}
	if now.After(untrusted.NotValidAfter) {
		return SignedPublicEncryptionKey[C]{}, coverdropcrypto.ErrKeyExpired
	}
	body := encryptionCertBody(untrusted.Key, untrusted.NotValidAfter)
	if !ed25519.Verify(parent.Key, body, untrusted.Certificate) {
		return SignedPublicEncryptionKey[C]{}, coverdropcrypto.ErrSignatureVerificationFailed
	}
	return SignedPublicEncryptionKey[C]{
		Key:           untrusted.Key,
		NotValidAfter: untrusted.NotValidAfter,
		Certificate:   untrusted.Certificate,
	}, nil
}

// SignEncryptionChild signs childPub as role C's encryption key under an
// identity SignedSigningKeyPair of parent role P, truncating expiry to the
// parent's own if it would otherwise outlive it.
func SignEncryptionChild[P Role, C Role](parent SignedSigningKeyPair[P], childPub [32]byte, notValidAfter time.Time) (SignedPublicEncryptionKey[C], bool, error) {
	var child C
	var parentTag P
	expectedParent, _, isUnsigned := ParentRole(child.ID())
	if isUnsigned {
		return SignedPublicEncryptionKey[C]{}, false, fmt.Errorf("%w: role %s is self-generated and unsigned", coverdropcrypto.ErrWrongRole, child.ID())
	}
	if expectedParent != parentTag.ID() {
		return SignedPublicEncryptionKey[C]{}, false, coverdropcrypto.ErrWrongRole
	}

	truncated := false
	effective := notValidAfter
	if effective.After(parent.NotValidAfter) {
		effective = parent.NotValidAfter
		truncated = true
	}

	body := encryptionCertBody(childPub, effective)
	cert := ed25519.Sign(parent.Private, body)
	return SignedPublicEncryptionKey[C]{
		Key:           childPub,
		NotValidAfter: effective,
		Certificate:   cert,
	}, truncated, nil
}

// ToUntrusted strips the trust relationship for wire/disk serialization.
func (k SignedPublicEncryptionKey[R]) ToUntrusted() UntrustedSignedPublicEncryptionKey[R] {
	return UntrustedSignedPublicEncryptionKey[R]{
		Key:           k.Key,
		NotValidAfter: k.NotValidAfter,
		Certificate:   k.Certificate,
	}
}
