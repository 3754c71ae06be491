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

// UnsignedSigningKeyPair is an Ed25519 private+public pair tagged with role
// R and carrying no expiry: the Organization anchor before it self-signs,
// any other role's pair before its parent signs it, and an identity-key
// rotation candidate awaiting approval.
type UnsignedSigningKeyPair[R Role] struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateUnsignedSigningKeyPair creates a fresh Ed25519 pair for role R.
func GenerateUnsignedSigningKeyPair[R Role]() (UnsignedSigningKeyPair[R], error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return UnsignedSigningKeyPair[R]{}, fmt.Errorf("coverdrop: generating signing key pair: %w", err)
	}
	return UnsignedSigningKeyPair[R]{Public: pub, Private: priv}, nil
}

// UntrustedSignedPublicSigningKey is what every deserialization (disk, API
// response) produces: a claimed public key, expiry and parent certificate
// that carries no usable operation besides ToTrustedSigningKey. The one
// exception to verified construction is ReadSignedSigningKeyPair, which
// loads a locally held key pair from disk without re-checking its
// certificate.
type UntrustedSignedPublicSigningKey[R Role] struct {
	Key           ed25519.PublicKey
	NotValidAfter time.Time
	Certificate   []byte
}

// SignedPublicSigningKey is a verified public key: its signature checked
// under some parent (or, for Organization, under itself) and its expiry
// not yet passed at verification time.
type SignedPublicSigningKey[R Role] struct {
	Key           ed25519.PublicKey
	NotValidAfter time.Time
	Certificate   []byte
}

// SignedSigningKeyPair pairs a verified public key with its private scalar,
// for roles this process holds the secret half of.
type SignedSigningKeyPair[R Role] struct {
	SignedPublicSigningKey[R]
	Private ed25519.PrivateKey
}

func signingCertBody(pub ed25519.PublicKey, notValidAfter time.Time) []byte {
	body := make([]byte, 0, len(pub)+8)
	body = append(body, pub...)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(notValidAfter.Unix()))
	body = append(body, ts[:]...)
	return body
}

// ToTrustedSigningKey verifies untrusted's certificate against parent's
// public key, checks that untrusted's role expectation (encoded by the
// generic instantiation, re-checked at runtime via RoleID since data
// crossing disk/wire loses the compiler's view of it) matches parent's
// actual role, and that now has not passed NotValidAfter.
func ToTrustedSigningKey[P Role, C Role](untrusted UntrustedSignedPublicSigningKey[C], parent SignedPublicSigningKey[P], now time.Time) (SignedPublicSigningKey[C], error) {
	var child C
	var parentRoleTag P
	expectedParent, isAnchor, isUnsigned := ParentRole(child.ID())
	if isAnchor || isUnsigned {
		return SignedPublicSigningKey[C]{}, fmt.Errorf("%w: role %s does not verify via ToTrustedSigningKey", coverdropcrypto.ErrWrongRole, child.ID())
	}
	if expectedParent != parentRoleTag.ID() {
		return SignedPublicSigningKey[C]{}, coverdropcrypto.ErrWrongRole
	}
	if now.After(untrusted.NotValidAfter) {
		return SignedPublicSigningKey[C]{}, coverdropcrypto.ErrKeyExpired
	}
	body := signingCertBody(untrusted.Key, untrusted.NotValidAfter)
	if !ed25519.Verify(parent.Key, body, untrusted.Certificate) {
		return SignedPublicSigningKey[C]{}, coverdropcrypto.ErrSignatureVerificationFailed
	}
	return SignedPublicSigningKey[C]{
		Key:           untrusted.Key,
		NotValidAfter: untrusted.NotValidAfter,
		Certificate:   untrusted.Certificate,
	}, nil
}

// GenerateSelfSignedOrgKey generates a fresh Organization anchor pair and
// self-signs it, the one bootstrap step every other role's signature chain
// is rooted in. The resulting private key and digest of the public key are
// the two things an operator must distribute out-of-band before any other
// role can be verified against this anchor.
func GenerateSelfSignedOrgKey(notValidAfter time.Time) (SignedSigningKeyPair[Organization], error) {
	unsigned, err := GenerateUnsignedSigningKeyPair[Organization]()
	if err != nil {
		return SignedSigningKeyPair[Organization]{}, err
	}
	body := signingCertBody(unsigned.Public, notValidAfter)
	cert := ed25519.Sign(unsigned.Private, body)
	return SignedSigningKeyPair[Organization]{
		SignedPublicSigningKey: SignedPublicSigningKey[Organization]{
			Key:           unsigned.Public,
			NotValidAfter: notValidAfter,
			Certificate:   cert,
		},
		Private: unsigned.Private,
	}, nil
}

// ToTrustedAnchorOrgKey self-verifies an Organization key: its certificate
// is a signature by its own private key over its own body. Trust in the
// anchor itself is established out-of-band (digest comparison), not by
// this function.
func ToTrustedAnchorOrgKey(untrusted UntrustedSignedPublicSigningKey[Organization], now time.Time) (SignedPublicSigningKey[Organization], error) {
	if now.After(untrusted.NotValidAfter) {
		return SignedPublicSigningKey[Organization]{}, coverdropcrypto.ErrKeyExpired
	}
	body := signingCertBody(untrusted.Key, untrusted.NotValidAfter)
	if !ed25519.Verify(untrusted.Key, body, untrusted.Certificate) {
		return SignedPublicSigningKey[Organization]{}, coverdropcrypto.ErrSignatureVerificationFailed
	}
	return SignedPublicSigningKey[Organization]{
		Key:           untrusted.Key,
		NotValidAfter: untrusted.NotValidAfter,
		Certificate:   untrusted.Certificate,
	}, nil
}

// SignChild signs childPub as a new key of role C under parent (role P),
// truncating notValidAfter to parent's own expiry if the caller asked for
// something later (the parent-expiry truncation invariant), and returns
// the resulting signed public key plus whether truncation occurred (for
// callers that want to log it).
func SignChild[P Role, C Role](parent SignedSigningKeyPair[P], childPub ed25519.PublicKey, notValidAfter time.Time) (SignedPublicSigningKey[C], bool, error) {
	var child C
	var parentTag P
	expectedParent, isAnchor, isUnsigned := ParentRole(child.ID())
	if isUnsigned {
		return SignedPublicSigningKey[C]{}, false, fmt.Errorf("%w: role %s is self-generated and unsigned", coverdropcrypto.ErrWrongRole, child.ID())
	}
	if !isAnchor && expectedParent != parentTag.ID() {
		return SignedPublicSigningKey[C]{}, false, coverdropcrypto.ErrWrongRole
	}

	truncated := false
	effective := notValidAfter
	if !isAnchor && effective.After(parent.NotValidAfter) {
		effective = parent.NotValidAfter
		truncated = true
	}

	body := signingCertBody(childPub, effective)
	cert := ed25519.Sign(parent.Private, body)
	return SignedPublicSigningKey[C]{
		Key:           childPub,
		NotValidAfter: effective,
		Certificate:   cert,
	}, truncated, nil
}

// ToUntrusted strips the (already-proven) trust relationship for wire or
// disk serialization; the receiver must call ToTrustedSigningKey again
// before using it.
func (k SignedPublicSigningKey[R]) ToUntrusted() UntrustedSignedPublicSigningKey[R] {
	return UntrustedSignedPublicSigningKey[R]{
		Key:           k.Key,
		NotValidAfter: k.NotValidAfter,
		Certificate:   k.Certificate,
	}
}
