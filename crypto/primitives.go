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

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"time"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// X25519PublicKeyLen is the size of an X25519 public key.
	X25519PublicKeyLen = 32
	// X25519SecretKeyLen is the size of an X25519 private scalar.
	X25519SecretKeyLen = 32
	// Poly1305TagLen is the authentication tag appended by secretbox/box.
	Poly1305TagLen = secretbox.Overhead
	// TwoPartyBoxNonceLen is the nonce length used by the two-party box.
	TwoPartyBoxNonceLen = 24
	// MultiAnonymousBoxSecretKeyLen is the size of the fresh symmetric key
	// used inside a multi-recipient anonymous box.
	MultiAnonymousBoxSecretKeyLen = 32
)

// TwoPartyBox performs authenticated encryption between two parties that
// both know each other's X25519 keys: X25519 agreement, then
// XSalsa20-Poly1305 with a fresh random nonce. Wire format is
// nonce ‖ ciphertext ‖ tag (the tag is produced inline by nacl/box).
func TwoPartyBoxEncrypt(plaintext []byte, recipientPub, senderPriv *[X25519PublicKeyLen]byte) (out []byte, err error) {
	defer func(start time.Time) { instrument("seal", "x25519_two_party", start, err) }(time.Now())

	var nonce [TwoPartyBoxNonceLen]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("coverdrop: generating nonce: %w", err)
	}
	out = make([]byte, 0, TwoPartyBoxNonceLen+len(plaintext)+box.Overhead)
	out = append(out, nonce[:]...)
	out = box.Seal(out, plaintext, &nonce, recipientPub, senderPriv)
	return out, nil
}

// TwoPartyBoxDecrypt reverses TwoPartyBoxEncrypt.
func TwoPartyBoxDecrypt(sealed []byte, senderPub, recipientPriv *[X25519PublicKeyLen]byte) (plaintext []byte, err error) {
	defer func(start time.Time) { instrument("open", "x25519_two_party", start, err) }(time.Now())

	if len(sealed) < TwoPartyBoxNonceLen+box.Overhead {
		return nil, ErrInvalidLength
	}
	var nonce [TwoPartyBoxNonceLen]byte
	copy(nonce[:], sealed[:TwoPartyBoxNonceLen])
	plaintext, ok := box.Open(nil, sealed[TwoPartyBoxNonceLen:], &nonce, senderPub, recipientPriv)
	if !ok {
		return nil, ErrFailedToDecrypt
	}
	return plaintext, nil
}

// sealedBoxNonce derives a deterministic nonce from the two public keys in
// the manner of libsodium's crypto_box_seal, but with SHA-256 in place of
// libsodium's BLAKE2b: every sealed box uses a fresh ephemeral key, so
// SHA-256(ephemeralPub ‖ recipientPub) truncated to the nonce length is
// never reused. The result does not interoperate with libsodium sealed boxes.
func sealedBoxNonce(ephemeralPub, recipientPub *[X25519PublicKeyLen]byte) *[TwoPartyBoxNonceLen]byte {
	h := sha256.New()
	h.Write(ephemeralPub[:])
	h.Write(recipientPub[:])
	sum := h.Sum(nil)
	var nonce [TwoPartyBoxNonceLen]byte
	copy(nonce[:], sum[:TwoPartyBoxNonceLen])
	return &nonce
}

// AnonymousBoxEncrypt implements the sealed (anonymous) box: the sender
// generates a fresh ephemeral X25519 key pair, derives a shared secret with
// the recipient, and encrypts under a nonce deterministically derived from
// the two public keys (safe because the ephemeral key is never reused).
// Wire format: ephemeral-pk ‖ ciphertext ‖ tag.
func AnonymousBoxEncrypt(plaintext []byte, recipientPub *[X25519PublicKeyLen]byte) (out []byte, err error) {
	defer func(start time.Time) { instrument("seal", "x25519_anonymous", start, err) }(time.Now())

	ephemeralPub, ephemeralPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("coverdrop: generating ephemeral key: %w", err)
	}
	nonce := sealedBoxNonce(ephemeralPub, recipientPub)
	out = make([]byte, 0, X25519PublicKeyLen+len(plaintext)+box.Overhead)
	out = append(out, ephemeralPub[:]...)
	out = box.Seal(out, plaintext, nonce, recipientPub, ephemeralPriv)
	return out, nil
}

// AnonymousBoxDecrypt reverses AnonymousBoxEncrypt.
func AnonymousBoxDecrypt(sealed []byte, recipientPub, recipientPriv *[X25519PublicKeyLen]byte) (plaintext []byte, err error) {
	defer func(start time.Time) { instrument("open", "x25519_anonymous", start, err) }(time.Now())

	if len(sealed) < X25519PublicKeyLen+box.Overhead {
		return nil, ErrInvalidLength
	}
	var ephemeralPub [X25519PublicKeyLen]byte
	copy(ephemeralPub[:], sealed[:X25519PublicKeyLen])
	nonce := sealedBoxNonce(&ephemeralPub, recipientPub)
	plaintext, ok := box.Open(nil, sealed[X25519PublicKeyLen:], nonce, &ephemeralPub, recipientPriv)
	if !ok {
		return nil, ErrFailedToDecrypt
	}
	return plaintext, nil
}

// SecretBoxEncrypt is XSalsa20-Poly1305 under a caller-supplied symmetric
// key and a fresh random nonce. Wire format: nonce ‖ ciphertext ‖ tag.
func SecretBoxEncrypt(plaintext []byte, key *[32]byte) (out []byte, err error) {
	defer func(start time.Time) { instrument("seal", "secretbox", start, err) }(time.Now())

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("coverdrop: generating nonce: %w", err)
	}
	out = make([]byte, 0, 24+len(plaintext)+secretbox.Overhead)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, plaintext, &nonce, key)
	return out, nil
}

// SecretBoxDecrypt reverses SecretBoxEncrypt.
func SecretBoxDecrypt(sealed []byte, key *[32]byte) (plaintext []byte, err error) {
	defer func(start time.Time) { instrument("open", "secretbox", start, err) }(time.Now())

	if len(sealed) < 24+secretbox.Overhead {
		return nil, ErrInvalidLength
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plaintext, ok := secretbox.Open(nil, sealed[24:], &nonce, key)
	if !ok {
		return nil, ErrFailedToDecrypt
	}
	return plaintext, nil
}

// zeroNonce is the all-zero nonce used by MultiAnonymousBox. Reuse is safe
// only because the symmetric key wrapped alongside it is freshly generated
// for every message and never reused.
var zeroNonce [24]byte

// wrappedKeyLen is the size of one recipient's wrapped-key slot: an
// anonymous box around a MultiAnonymousBoxSecretKeyLen-byte key.
const wrappedKeyLen = X25519PublicKeyLen + MultiAnonymousBoxSecretKeyLen + box.Overhead

// MultiAnonymousBoxEncrypt encrypts plaintext once under a freshly generated
// symmetric key, then wraps that key in one anonymous box per recipient.
// Wire format: wrapped-key[0] ‖ ... ‖ wrapped-key[n-1] ‖ ciphertext ‖ tag.
func MultiAnonymousBoxEncrypt(plaintext []byte, recipients []*[X25519PublicKeyLen]byte) (out []byte, err error) {
	defer func(start time.Time) { instrument("seal", "x25519_multi_anonymous", start, err) }(time.Now())

	if len(recipients) == 0 {
		return nil, fmt.Errorf("coverdrop: multi-anonymous box requires at least one recipient")
	}
	var key [MultiAnonymousBoxSecretKeyLen]byte
	if _, err := rand.Read(key[:]); err != nil {
		return nil, fmt.Errorf("coverdrop: generating message key: %w", err)
	}

	out = make([]byte, 0, len(recipients)*wrappedKeyLen+len(plaintext)+secretbox.Overhead)
	for _, recipientPub := range recipients {
		wrapped, err := AnonymousBoxEncrypt(key[:], recipientPub)
		if err != nil {
			return nil, err
		}
		if len(wrapped) != wrappedKeyLen {
			return nil, fmt.Errorf("coverdrop: unexpected wrapped key length %d", len(wrapped))
		}
		out = append(out, wrapped...)
	}
	out = secretbox.Seal(out, plaintext, &zeroNonce, &key)
	return out, nil
}

// MultiAnonymousBoxDecrypt tries each recipient slot in turn against the
// caller's key pair and returns the first that opens. Returns
// ErrFailedToDecrypt if none of the numRecipients slots opens for this key
// pair.
func MultiAnonymousBoxDecrypt(sealed []byte, numRecipients int, recipientPub, recipientPriv *[X25519PublicKeyLen]byte) (plaintext []byte, err error) {
	defer func(start time.Time) { instrument("open", "x25519_multi_anonymous", start, err) }(time.Now())

	headerLen := numRecipients * wrappedKeyLen
	if len(sealed) < headerLen+secretbox.Overhead {
		return nil, ErrInvalidLength
	}
	ciphertext := sealed[headerLen:]
	for i := 0; i < numRecipients; i++ {
		slot := sealed[i*wrappedKeyLen : (i+1)*wrappedKeyLen]
		keyBytes, decErr := AnonymousBoxDecrypt(slot, recipientPub, recipientPriv)
		if decErr != nil {
			continue
		}
		if len(keyBytes) != MultiAnonymousBoxSecretKeyLen {
			continue
		}
		var key [MultiAnonymousBoxSecretKeyLen]byte
		copy(key[:], keyBytes)
		opened, ok := secretbox.Open(nil, ciphertext, &zeroNonce, &key)
		if ok {
			return opened, nil
		}
	}
	return nil, ErrFailedToDecrypt
}

// WrappedKeyLen reports the fixed size of one multi-anonymous-box wrapped
// key slot, for envelope-size arithmetic.
func WrappedKeyLen() int { return wrappedKeyLen }

// X25519KeyPair is a convenience bundle of an X25519 public/private key
// pair, used wherever a caller needs to try several active keys in turn
// (the "try every active key" decryption policy for sealed inbound
// traffic).
type X25519KeyPair struct {
	Public  *[X25519PublicKeyLen]byte
	Private *[X25519PublicKeyLen]byte
}

// X25519ScalarBaseMult derives a public key from a private scalar; exposed
// so callers outside this package (role-typed key generation) can build
// X25519 key pairs without re-importing curve25519 directly.
func X25519ScalarBaseMult(priv *[32]byte) (*[32]byte, error) {
	var pub [32]byte
	out, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	copy(pub[:], out)
	return &pub, nil
}
