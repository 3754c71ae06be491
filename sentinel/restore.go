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
	"fmt"
	"time"

	coverdropcrypto "github.com/guardian-coverdrop/coverdrop-core/crypto"
	"github.com/guardian-coverdrop/coverdrop-core/crypto/keys"
)

// InitiateRestore runs on the backup admin's device. It verifies
// signedBackupData against journalistIdentityKey, checks that the backup's
// own claimed journalist identity matches journalistIdentity, unwraps the
// outer admin-key layer off every share, and returns the in-progress state
// the admin persists while collecting unwrapped shares back from recovery
// contacts.
func InitiateRestore(
	journalistIdentity string,
	signedBackupData SignedBackupData,
	journalistIdentityKey keys.SignedPublicSigningKey[keys.JournalistID],
	backupAdminEncryptionKey keys.SignedEncryptionKeyPair[keys.BackupMessaging],
	now time.Time,
) (BackupRestorationInProgress, error) {
	verified, err := signedBackupData.ToVerified(journalistIdentityKey, now)
	if err != nil {
		return BackupRestorationInProgress{}, fmt.Errorf("coverdrop: verifying backup data signature: %w", err)
	}
	data := verified.Data

	if data.JournalistIdentity != journalistIdentity {
		return BackupRestorationInProgress{}, coverdropcrypto.ErrJournalistIdentityMismatch
	}

	unwrapped := make([][]byte, 0, len(data.WrappedEncryptedShares))
	for _, wrapped := range data.WrappedEncryptedShares {
		share, err := coverdropcrypto.AnonymousBoxDecrypt(wrapped, &backupAdminEncryptionKey.Key, &backupAdminEncryptionKey.Private)
		if err != nil {
			return BackupRestorationInProgress{}, fmt.Errorf("coverdrop: unwrapping encrypted share: %w", err)
		}
		unwrapped = append(unwrapped, share)
	}
	if len(unwrapped) == 0 {
		return BackupRestorationInProgress{}, ErrNoSharesUnwrapped
	}

	return BackupRestorationInProgress{
		JournalistIdentity:         data.JournalistIdentity,
		BackupEncryptedPaddedVault: data.BackupEncryptedPaddedVault,
		EncryptedShares:            unwrapped,
	}, nil
}

// ContactUnwrap runs on a recovery contact's device against the set of
// encrypted share candidates a backup admin distributed to it. It tries
// every one of the contact's own messaging key pairs against every
// candidate, and on the first successful decrypt re-wraps the recovered
// share under the backup admin's encryption key for transport back to
// them. Returns a nil share with no error if none of the candidates could
// be decrypted with any of the contact's keys.
func ContactUnwrap(
	encryptedShareCandidates [][]byte,
	recoveryContactMessagingKeyPairs []keys.SignedEncryptionKeyPair[keys.JournalistMessaging],
	backupAdminEncryptionKey keys.SignedPublicEncryptionKey[keys.BackupMessaging],
) (WrappedSecretShare, error) {
	for _, keyPair := range recoveryContactMessagingKeyPairs {
		for _, candidate := range encryptedShareCandidates {
			share, err := coverdropcrypto.AnonymousBoxDecrypt(candidate, &keyPair.Key, &keyPair.Private)
			if err != nil {
				continue
			}
			wrapped, err := coverdropcrypto.AnonymousBoxEncrypt(share, &backupAdminEncryptionKey.Key)
			if err != nil {
				return nil, fmt.Errorf("coverdrop: wrapping decrypted share for transport: %w", err)
			}
			return WrappedSecretShare(wrapped), nil
		}
	}
	return nil, nil
}

// FinishRestore runs on the backup admin's device once recovery contacts
// have returned their wrapped shares. It unwraps each under the admin's
// own key, requires exactly k=1 valid share, combines it via scheme to
// reconstruct the ephemeral vault key, and decrypts and unpads the vault.
func FinishRestore(
	scheme coverdropcrypto.SecretSharingScheme,
	state BackupRestorationInProgress,
	wrappedShares []WrappedSecretShare,
	backupAdminEncryptionKey keys.SignedEncryptionKeyPair[keys.BackupMessaging],
) ([]byte, error) {
	if len(wrappedShares) == 0 {
		return nil, ErrNoWrappedShares
	}

	unwrapped := make([][]byte, 0, len(wrappedShares))
	for _, wrapped := range wrappedShares {
		share, err := coverdropcrypto.AnonymousBoxDecrypt(wrapped, &backupAdminEncryptionKey.Key, &backupAdminEncryptionKey.Private)
		if err != nil {
			return nil, fmt.Errorf("coverdrop: unwrapping share: %w", err)
		}
		unwrapped = append(unwrapped, share)
	}
	if len(unwrapped) == 0 {
		return nil, ErrNoSharesUnwrapped
	}
	if len(unwrapped) != 1 {
		return nil, fmt.Errorf("coverdrop: restore requires exactly 1 valid share, got %d", len(unwrapped))
	}

	sk, err := scheme.Combine(unwrapped[:1], 1)
	if err != nil {
		return nil, fmt.Errorf("coverdrop: combining shares: %w", err)
	}
	if len(sk) != coverdropcrypto.MultiAnonymousBoxSecretKeyLen {
		return nil, coverdropcrypto.ErrInvalidLength
	}
	var key [coverdropcrypto.MultiAnonymousBoxSecretKeyLen]byte
	copy(key[:], sk)

	paddedVault, err := coverdropcrypto.SecretBoxDecrypt(state.BackupEncryptedPaddedVault, &key)
	if err != nil {
		return nil, fmt.Errorf("coverdrop: decrypting padded vault: %w", err)
	}
	vault, err := unpadVault(paddedVault)
	if err != nil {
		return nil, fmt.Errorf("coverdrop: unpadding vault: %w", err)
	}
	return vault, nil
}
