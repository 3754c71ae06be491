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

package sentinel

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	coverdropcrypto "github.com/guardian-coverdrop/coverdrop-core/crypto"
	"github.com/guardian-coverdrop/coverdrop-core/crypto/keys"
)

// CreateBackup runs on the journalist's device. It encrypts
// encryptedVault (already encrypted on disk under the journalist's own
// passphrase) under a fresh ephemeral symmetric key, splits that key into
// one share per recovery contact via scheme, encrypts each share under its
// contact's latest messaging key, wraps each of those again under the
// backup admin's encryption key, and signs the result with
// journalistIdentityKey.
//
// scheme must currently produce exactly k=1 shares logically reconstructible
// from any single one of them; len(recoveryContacts) is n and must be >= k.
func CreateBackup(
	scheme coverdropcrypto.SecretSharingScheme,
	encryptedVault []byte,
	journalistIdentity string,
	journalistIdentityKey keys.SignedSigningKeyPair[keys.JournalistID],
	backupAdminEncryptionKey keys.SignedPublicEncryptionKey[keys.BackupMessaging],
	recoveryContacts []RecoveryContact,
	k int,
	now time.Time,
) (SignedBackupData, error) {
	n := len(recoveryContacts)
	if k != 1 {
		return SignedBackupData{}, fmt.Errorf("%w: got k=%d", ErrUnsupportedK, k)
	}
	if n < k {
		return SignedBackupData{}, fmt.Errorf("%w: have %d, need %d", ErrTooFewRecoveryContacts, n, k)
	}

	var sk [coverdropcrypto.MultiAnonymousBoxSecretKeyLen]byte
	if _, err := rand.Read(sk[:]); err != nil {
		return SignedBackupData{}, fmt.Errorf("coverdrop: generating backup key: %w", err)
	}

	paddedVault := padVault(encryptedVault)
	backupEncryptedPaddedVault, err := coverdropcrypto.SecretBoxEncrypt(paddedVault, &sk)
	if err != nil {
		return SignedBackupData{}, fmt.Errorf("coverdrop: encrypting padded vault: %w", err)
	}

	shares, err := scheme.Split(sk[:], n)
	if err != nil {
		return SignedBackupData{}, fmt.Errorf("coverdrop: splitting backup key: %w", err)
	}
	if len(shares) != n {
		return SignedBackupData{}, fmt.Errorf("coverdrop: secret sharing returned %d shares, expected %d", len(shares), n)
	}

	wrappedEncryptedShares := make([][]byte, n)
	var g errgroup.Group
	for i, contact := range recoveryContacts {
		i, contact := i, contact
		g.Go(func() error {
			encryptedShare, err := coverdropcrypto.AnonymousBoxEncrypt(shares[i], &contact.LatestMessagingKey.Key)
			if err != nil {
				return fmt.Errorf("coverdrop: encrypting share for %s: %w", contact.Identity, err)
			}
			wrapped, err := coverdropcrypto.AnonymousBoxEncrypt(encryptedShare, &backupAdminEncryptionKey.Key)
			if err != nil {
				return fmt.Errorf("coverdrop: wrapping share for %s under admin key: %w", contact.Identity, err)
			}
			wrappedEncryptedShares[i] = wrapped
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SignedBackupData{}, err
	}

	data := BackupData{
		JournalistIdentity:         journalistIdentity,
		BackupEncryptedPaddedVault: backupEncryptedPaddedVault,
		WrappedEncryptedShares:     wrappedEncryptedShares,
		CreatedAt:                  now,
	}
	signature := ed25519.Sign(journalistIdentityKey.Private, backupDataSigningBody(data))

	return SignedBackupData{Data: data, Signature: signature}, nil
}
