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

// Package sentinel implements the journalist-vault backup protocol: a
// journalist's encrypted vault is backed up under an ephemeral symmetric
// key that is itself split across a set of recovery contacts, so that any
// k of them can later help a backup admin reconstruct it without any
// single party (including the admin) ever holding the vault key alone.
package sentinel

import (
	"crypto/ed25519"
	"encoding/binary"
	"time"

	"github.com/guardian-coverdrop/coverdrop-core/crypto/keys"
)

// RecoveryContact is a journalist who has agreed to hold one share of
// another journalist's backup key, identified by their journalist identity
// and their latest messaging key.
type RecoveryContact struct {
	Identity           string
	LatestMessagingKey keys.SignedPublicEncryptionKey[keys.JournalistMessaging]
}

// BackupData is the payload a Sentinel backup signs: the padded, encrypted
// vault plus one wrapped secret share per recovery contact, each still
// wrapped a second time under the backup admin's encryption key.
type BackupData struct {
	JournalistIdentity         string
	BackupEncryptedPaddedVault []byte
	WrappedEncryptedShares     [][]byte
	CreatedAt                  time.Time
}

func backupDataSigningBody(d BackupData) []byte {
	body := make([]byte, 0, len(d.JournalistIdentity)+len(d.BackupEncryptedPaddedVault)+8)
	body = append(body, []byte(d.JournalistIdentity)...)
	body = append(body, d.BackupEncryptedPaddedVault...)
	for _, s := range d.WrappedEncryptedShares {
		body = append(body, s...)
	}
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(d.CreatedAt.Unix()))
	body = append(body, ts[:]...)
	return body
}

// SignedBackupData is BackupData plus the journalist identity key's
// signature over it, the form that crosses disk and the network. Nothing
// but ToVerified operates on it.
type SignedBackupData struct {
	Data      BackupData
	Signature []byte
}

// VerifiedBackupData is a SignedBackupData whose signature has been
// checked against the journalist identity key claimed to have produced it.
type VerifiedBackupData struct {
	Data BackupData
}

// ToVerified checks signature against signerKey and that now has not
// passed signerKey's expiry, returning the verified backup data.
func (s SignedBackupData) ToVerified(signerKey keys.SignedPublicSigningKey[keys.JournalistID], now time.Time) (VerifiedBackupData, error) {
	if now.After(signerKey.NotValidAfter) {
		return VerifiedBackupData{}, ErrBackupKeyExpired
	}
	if !ed25519.Verify(signerKey.Key, backupDataSigningBody(s.Data), s.Signature) {
		return VerifiedBackupData{}, ErrBackupSignatureInvalid
	}
	return VerifiedBackupData{Data: s.Data}, nil
}

// BackupRestorationInProgress is the state a backup admin holds between
// initiating a restore and collecting unwrapped shares back from recovery
// contacts. It is meant to be persisted to disk across that exchange.
type BackupRestorationInProgress struct {
	JournalistIdentity         string
	BackupEncryptedPaddedVault []byte
	EncryptedShares            [][]byte
}

// WrappedSecretShare is a recovery contact's unwrapped share, re-wrapped
// under the backup admin's encryption key for transport back to them.
type WrappedSecretShare []byte
