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

// Package hierarchy assembles and queries the verified forest of
// OrganizationPublicKeyFamily rooted at locally configured trust anchors.
// The hierarchy is the authoritative view every other component consults;
// it is rebuilt wholesale from a fetch, never mutated incrementally.
package hierarchy

import (
	"github.com/guardian-coverdrop/coverdrop-core/crypto/keys"
)

// CoverNodeIdentityFamily is one CoverNode's identity key plus its
// messaging keys.
type CoverNodeIdentityFamily struct {
	Identity  string
	ID        keys.SignedPublicSigningKey[keys.CoverNodeID]
	Messaging []keys.SignedPublicEncryptionKey[keys.CoverNodeMessaging]
}

// CoverNodeProvisioningFamily is a provisioning key plus every CoverNode
// identity it has signed, keyed by CoverNode identity string.
type CoverNodeProvisioningFamily struct {
	Provisioning keys.SignedPublicSigningKey[keys.CoverNodeProvisioning]
	Identities   map[string][]CoverNodeIdentityFamily
}

// JournalistIdentityFamily is one journalist's identity key plus their
// messaging keys.
type JournalistIdentityFamily struct {
	Identity  string
	ID        keys.SignedPublicSigningKey[keys.JournalistID]
	Messaging []keys.SignedPublicEncryptionKey[keys.JournalistMessaging]
}

// JournalistProvisioningFamily is a provisioning key plus every journalist
// identity it has signed, keyed by journalist identity string.
type JournalistProvisioningFamily struct {
	Provisioning keys.SignedPublicSigningKey[keys.JournalistProvisioning]
	Identities   map[string][]JournalistIdentityFamily
}

// BackupIDFamily is a backup-admin identity key plus its messaging keys.
type BackupIDFamily struct {
	ID        keys.SignedPublicSigningKey[keys.BackupID]
	Messaging []keys.SignedPublicEncryptionKey[keys.BackupMessaging]
}

// OrganizationPublicKeyFamily is everything verified under one trust
// anchor.
type OrganizationPublicKeyFamily struct {
	Organization           keys.SignedPublicSigningKey[keys.Organization]
	CoverNodeProvisioning  []CoverNodeProvisioningFamily
	JournalistProvisioning []JournalistProvisioningFamily
	BackupID               []BackupIDFamily
}

// Hierarchy is the verified forest plus the highest epoch observed across
// every table in the snapshot it was built from.
type Hierarchy struct {
	Families []OrganizationPublicKeyFamily
	MaxEpoch int64
}
