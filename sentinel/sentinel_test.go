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
	"testing"
	"time"

	coverdropcrypto "github.com/guardian-coverdrop/coverdrop-core/crypto"
	"github.com/guardian-coverdrop/coverdrop-core/crypto/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const week = 7 * 24 * time.Hour

func signAnchor(t *testing.T, now time.Time) keys.SignedSigningKeyPair[keys.Organization] {
	t.Helper()
	unsigned, err := keys.GenerateUnsignedSigningKeyPair[keys.Organization]()
	require.NoError(t, err)
	signed, _, err := keys.SignChild[keys.Organization, keys.Organization](keys.SignedSigningKeyPair[keys.Organization]{
		SignedPublicSigningKey: keys.SignedPublicSigningKey[keys.Organization]{NotValidAfter: now.Add(52 * week)},
		Private:                unsigned.Private,
	}, unsigned.Public, now.Add(52*week))
	require.NoError(t, err)
	return keys.SignedSigningKeyPair[keys.Organization]{SignedPublicSigningKey: signed, Private: unsigned.Private}
}

func signChild[P keys.Role, C keys.Role](t *testing.T, parent keys.SignedSigningKeyPair[P], now time.Time, validity time.Duration) keys.SignedSigningKeyPair[C] {
	t.Helper()
	unsigned, err := keys.GenerateUnsignedSigningKeyPair[C]()
	require.NoError(t, err)
	signed, _, err := keys.SignChild[P, C](parent, unsigned.Public, now.Add(validity))
	require.NoError(t, err)
	return keys.SignedSigningKeyPair[C]{SignedPublicSigningKey: signed, Private: unsigned.Private}
}

func signEncryptionChild[P keys.Role, C keys.Role](t *testing.T, parent keys.SignedSigningKeyPair[P], now time.Time, validity time.Duration) keys.SignedEncryptionKeyPair[C] {
	t.Helper()
	unsigned, err := keys.GenerateUnsignedEncryptionKeyPair[C]()
	require.NoError(t, err)
	signed, _, err := keys.SignEncryptionChild[P, C](parent, unsigned.Public, now.Add(validity))
	require.NoError(t, err)
	return keys.SignedEncryptionKeyPair[C]{SignedPublicEncryptionKey: signed, Private: unsigned.Private}
}

// testFixture builds one journalist identity key, one recovery contact's
// messaging key under a second journalist identity, and a backup admin
// encryption key, all rooted under the same organization anchor.
type testFixture struct {
	journalistIdentityKey    keys.SignedSigningKeyPair[keys.JournalistID]
	recoveryContactMsgKey    keys.SignedEncryptionKeyPair[keys.JournalistMessaging]
	backupAdminEncryptionKey keys.SignedEncryptionKeyPair[keys.BackupMessaging]
}

func buildFixture(t *testing.T, now time.Time) testFixture {
	t.Helper()
	org := signAnchor(t, now)

	journalistProv := signChild[keys.Organization, keys.JournalistProvisioning](t, org, now, 52*week)
	journalistID := signChild[keys.JournalistProvisioning, keys.JournalistID](t, journalistProv, now, 8*week)
	contactID := signChild[keys.JournalistProvisioning, keys.JournalistID](t, journalistProv, now, 8*week)
	contactMsg := signEncryptionChild[keys.JournalistID, keys.JournalistMessaging](t, contactID, now, 2*week)

	backupID := signChild[keys.Organization, keys.BackupID](t, org, now, 52*week)
	backupMsg := signEncryptionChild[keys.BackupID, keys.BackupMessaging](t, backupID, now, 8*week)

	return testFixture{
		journalistIdentityKey:    journalistID,
		recoveryContactMsgKey:    contactMsg,
		backupAdminEncryptionKey: backupMsg,
	}
}

func TestBackupAndRestoreRoundTripK1(t *testing.T) {
	now := time.Now().UTC()
	fx := buildFixture(t, now)
	scheme := coverdropcrypto.SingleShareSecretSharing{}
	encryptedVault := []byte("test encrypted vault data")

	contact := RecoveryContact{Identity: "recovery_contact1", LatestMessagingKey: fx.recoveryContactMsgKey.SignedPublicEncryptionKey}

	signed, err := CreateBackup(scheme, encryptedVault, "journalist1", fx.journalistIdentityKey,
		fx.backupAdminEncryptionKey.SignedPublicEncryptionKey, []RecoveryContact{contact}, 1, now)
	require.NoError(t, err)

	state, err := InitiateRestore("journalist1", signed, fx.journalistIdentityKey.SignedPublicSigningKey, fx.backupAdminEncryptionKey, now)
	require.NoError(t, err)

	wrapped, err := ContactUnwrap(state.EncryptedShares, []keys.SignedEncryptionKeyPair[keys.JournalistMessaging]{fx.recoveryContactMsgKey}, fx.backupAdminEncryptionKey.SignedPublicEncryptionKey)
	require.NoError(t, err)
	require.NotNil(t, wrapped)

	restored, err := FinishRestore(scheme, state, []WrappedSecretShare{wrapped}, fx.backupAdminEncryptionKey)
	require.NoError(t, err)
	assert.Equal(t, encryptedVault, restored)
}

func TestInitiateRestoreRejectsTamperedWrappedShare(t *testing.T) {
	now := time.Now().UTC()
	fx := buildFixture(t, now)
	scheme := coverdropcrypto.SingleShareSecretSharing{}
	contact := RecoveryContact{Identity: "recovery_contact1", LatestMessagingKey: fx.recoveryContactMsgKey.SignedPublicEncryptionKey}

	signed, err := CreateBackup(scheme, []byte("vault"), "journalist1", fx.journalistIdentityKey,
		fx.backupAdminEncryptionKey.SignedPublicEncryptionKey, []RecoveryContact{contact}, 1, now)
	require.NoError(t, err)

	tampered := make([]byte, len(signed.Data.WrappedEncryptedShares[0]))
	copy(tampered, signed.Data.WrappedEncryptedShares[0])
	tampered[0] ^= 0x01
	signed.Data.WrappedEncryptedShares[0] = tampered
	signed.Signature = reSign(t, fx.journalistIdentityKey, signed.Data)

	_, err = InitiateRestore("journalist1", signed, fx.journalistIdentityKey.SignedPublicSigningKey, fx.backupAdminEncryptionKey, now)
	assert.Error(t, err)
}

func TestInitiateRestoreRejectsWrongBackupAdminKey(t *testing.T) {
	now := time.Now().UTC()
	fx := buildFixture(t, now)
	other := buildFixture(t, now)
	scheme := coverdropcrypto.SingleShareSecretSharing{}
	contact := RecoveryContact{Identity: "recovery_contact1", LatestMessagingKey: fx.recoveryContactMsgKey.SignedPublicEncryptionKey}

	signed, err := CreateBackup(scheme, []byte("vault"), "journalist1", fx.journalistIdentityKey,
		fx.backupAdminEncryptionKey.SignedPublicEncryptionKey, []RecoveryContact{contact}, 1, now)
	require.NoError(t, err)

	_, err = InitiateRestore("journalist1", signed, fx.journalistIdentityKey.SignedPublicSigningKey, other.backupAdminEncryptionKey, now)
	assert.Error(t, err)
}

func TestInitiateRestoreRejectsUnsignedTamperedData(t *testing.T) {
	now := time.Now().UTC()
	fx := buildFixture(t, now)
	scheme := coverdropcrypto.SingleShareSecretSharing{}
	contact := RecoveryContact{Identity: "recovery_contact1", LatestMessagingKey: fx.recoveryContactMsgKey.SignedPublicEncryptionKey}

	signed, err := CreateBackup(scheme, []byte("vault"), "journalist1", fx.journalistIdentityKey,
		fx.backupAdminEncryptionKey.SignedPublicEncryptionKey, []RecoveryContact{contact}, 1, now)
	require.NoError(t, err)

	tampered := make([]byte, len(signed.Data.BackupEncryptedPaddedVault))
	copy(tampered, signed.Data.BackupEncryptedPaddedVault)
	tampered[0] ^= 0x01
	signed.Data.BackupEncryptedPaddedVault = tampered
	// do not re-sign

	_, err = InitiateRestore("journalist1", signed, fx.journalistIdentityKey.SignedPublicSigningKey, fx.backupAdminEncryptionKey, now)
	assert.ErrorIs(t, err, ErrBackupSignatureInvalid)
}

func TestFinishRestoreRejectsTamperedEncryptedVault(t *testing.T) {
	now := time.Now().UTC()
	fx := buildFixture(t, now)
	scheme := coverdropcrypto.SingleShareSecretSharing{}
	contact := RecoveryContact{Identity: "recovery_contact1", LatestMessagingKey: fx.recoveryContactMsgKey.SignedPublicEncryptionKey}

	signed, err := CreateBackup(scheme, []byte("vault"), "journalist1", fx.journalistIdentityKey,
		fx.backupAdminEncryptionKey.SignedPublicEncryptionKey, []RecoveryContact{contact}, 1, now)
	require.NoError(t, err)

	tampered := make([]byte, len(signed.Data.BackupEncryptedPaddedVault))
	copy(tampered, signed.Data.BackupEncryptedPaddedVault)
	tampered[0] ^= 0x01
	signed.Data.BackupEncryptedPaddedVault = tampered
	signed.Signature = reSign(t, fx.journalistIdentityKey, signed.Data)

	state, err := InitiateRestore("journalist1", signed, fx.journalistIdentityKey.SignedPublicSigningKey, fx.backupAdminEncryptionKey, now)
	require.NoError(t, err, "signature is valid, so initiation itself should still succeed")

	wrapped, err := ContactUnwrap(state.EncryptedShares, []keys.SignedEncryptionKeyPair[keys.JournalistMessaging]{fx.recoveryContactMsgKey}, fx.backupAdminEncryptionKey.SignedPublicEncryptionKey)
	require.NoError(t, err)
	require.NotNil(t, wrapped)

	_, err = FinishRestore(scheme, state, []WrappedSecretShare{wrapped}, fx.backupAdminEncryptionKey)
	assert.Error(t, err)
}

func TestFinishRestoreRejectsTamperedWrappedShare(t *testing.T) {
	now := time.Now().UTC()
	fx := buildFixture(t, now)
	scheme := coverdropcrypto.SingleShareSecretSharing{}
	contact := RecoveryContact{Identity: "recovery_contact1", LatestMessagingKey: fx.recoveryContactMsgKey.SignedPublicEncryptionKey}

	signed, err := CreateBackup(scheme, []byte("vault"), "journalist1", fx.journalistIdentityKey,
		fx.backupAdminEncryptionKey.SignedPublicEncryptionKey, []RecoveryContact{contact}, 1, now)
	require.NoError(t, err)

	state, err := InitiateRestore("journalist1", signed, fx.journalistIdentityKey.SignedPublicSigningKey, fx.backupAdminEncryptionKey, now)
	require.NoError(t, err)

	wrapped, err := ContactUnwrap(state.EncryptedShares, []keys.SignedEncryptionKeyPair[keys.JournalistMessaging]{fx.recoveryContactMsgKey}, fx.backupAdminEncryptionKey.SignedPublicEncryptionKey)
	require.NoError(t, err)
	require.NotNil(t, wrapped)

	tampered := make([]byte, len(wrapped))
	copy(tampered, wrapped)
	tampered[0] ^= 0x01

	_, err = FinishRestore(scheme, state, []WrappedSecretShare{tampered}, fx.backupAdminEncryptionKey)
	assert.Error(t, err)
}

func TestInitiateRestoreRejectsJournalistIdentityMismatch(t *testing.T) {
	now := time.Now().UTC()
	fx := buildFixture(t, now)
	scheme := coverdropcrypto.SingleShareSecretSharing{}
	contact := RecoveryContact{Identity: "recovery_contact1", LatestMessagingKey: fx.recoveryContactMsgKey.SignedPublicEncryptionKey}

	signed, err := CreateBackup(scheme, []byte("vault"), "journalist1", fx.journalistIdentityKey,
		fx.backupAdminEncryptionKey.SignedPublicEncryptionKey, []RecoveryContact{contact}, 1, now)
	require.NoError(t, err)

	_, err = InitiateRestore("different-journalist", signed, fx.journalistIdentityKey.SignedPublicSigningKey, fx.backupAdminEncryptionKey, now)
	assert.ErrorIs(t, err, coverdropcrypto.ErrJournalistIdentityMismatch)
}

func TestContactUnwrapReturnsNilWhenNoKeyMatches(t *testing.T) {
	now := time.Now().UTC()
	fx := buildFixture(t, now)
	other := buildFixture(t, now)
	scheme := coverdropcrypto.SingleShareSecretSharing{}
	contact := RecoveryContact{Identity: "recovery_contact1", LatestMessagingKey: fx.recoveryContactMsgKey.SignedPublicEncryptionKey}

	signed, err := CreateBackup(scheme, []byte("vault"), "journalist1", fx.journalistIdentityKey,
		fx.backupAdminEncryptionKey.SignedPublicEncryptionKey, []RecoveryContact{contact}, 1, now)
	require.NoError(t, err)

	state, err := InitiateRestore("journalist1", signed, fx.journalistIdentityKey.SignedPublicSigningKey, fx.backupAdminEncryptionKey, now)
	require.NoError(t, err)

	wrapped, err := ContactUnwrap(state.EncryptedShares, []keys.SignedEncryptionKeyPair[keys.JournalistMessaging]{other.recoveryContactMsgKey}, fx.backupAdminEncryptionKey.SignedPublicEncryptionKey)
	require.NoError(t, err)
	assert.Nil(t, wrapped)
}

func TestCreateBackupRejectsKGreaterThanOne(t *testing.T) {
	now := time.Now().UTC()
	fx := buildFixture(t, now)
	scheme := coverdropcrypto.SingleShareSecretSharing{}
	contact := RecoveryContact{Identity: "recovery_contact1", LatestMessagingKey: fx.recoveryContactMsgKey.SignedPublicEncryptionKey}

	_, err := CreateBackup(scheme, []byte("vault"), "journalist1", fx.journalistIdentityKey,
		fx.backupAdminEncryptionKey.SignedPublicEncryptionKey, []RecoveryContact{contact}, 2, now)
	assert.ErrorIs(t, err, ErrUnsupportedK)
}

func TestCreateBackupRejectsTooFewRecoveryContacts(t *testing.T) {
	now := time.Now().UTC()
	fx := buildFixture(t, now)
	scheme := coverdropcrypto.SingleShareSecretSharing{}

	_, err := CreateBackup(scheme, []byte("vault"), "journalist1", fx.journalistIdentityKey,
		fx.backupAdminEncryptionKey.SignedPublicEncryptionKey, nil, 1, now)
	assert.ErrorIs(t, err, ErrTooFewRecoveryContacts)
}

func reSign(t *testing.T, key keys.SignedSigningKeyPair[keys.JournalistID], data BackupData) []byte {
	t.Helper()
	return ed25519.Sign(key.Private, backupDataSigningBody(data))
}
