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

package hierarchy

import (
	"bytes"

	"github.com/guardian-coverdrop/coverdrop-core/crypto/keys"
)

// LatestJournalistMessagingKeys returns every currently-trusted journalist
// messaging key for identity, across every organization family and
// provisioning tier — the set a sender tries in turn, since the sealed
// box they came from does not reveal which one opens it.
func (h Hierarchy) LatestJournalistMessagingKeys(identity string) []keys.SignedPublicEncryptionKey[keys.JournalistMessaging] {
	var out []keys.SignedPublicEncryptionKey[keys.JournalistMessaging]
	for _, org := range h.Families {
		for _, prov := range org.JournalistProvisioning {
			for _, ident := range prov.Identities[identity] {
				out = append(out, ident.Messaging...)
			}
		}
	}
	return out
}

// LatestCoverNodeMessagingKeys returns every currently-trusted CoverNode
// messaging key across the whole hierarchy, the set the mixer's
// multi-anonymous-box wraps a payload's symmetric key to.
func (h Hierarchy) LatestCoverNodeMessagingKeys() []keys.SignedPublicEncryptionKey[keys.CoverNodeMessaging] {
	var out []keys.SignedPublicEncryptionKey[keys.CoverNodeMessaging]
	for _, org := range h.Families {
		for _, prov := range org.CoverNodeProvisioning {
			for _, idents := range prov.Identities {
				for _, ident := range idents {
					out = append(out, ident.Messaging...)
				}
			}
		}
	}
	return out
}

// AllJournalistIdentities iterates every journalist identity known in the
// hierarchy.
func (h Hierarchy) AllJournalistIdentities() []string {
	seen := map[string]bool{}
	var out []string
	for _, org := range h.Families {
		for _, prov := range org.JournalistProvisioning {
			for identity := range prov.Identities {
				if !seen[identity] {
					seen[identity] = true
					out = append(out, identity)
				}
			}
		}
	}
	return out
}

// FindJournalistIDFromRawEd25519PK returns the journalist identity that
// owns signing public key pk, used by the API to attribute an inbound
// signature to an identity without a client-supplied claim it could lie
// about.
func (h Hierarchy) FindJournalistIDFromRawEd25519PK(pk []byte) (string, keys.SignedPublicSigningKey[keys.JournalistID], bool) {
	for _, org := range h.Families {
		for _, prov := range org.JournalistProvisioning {
			for identity, idents := range prov.Identities {
				for _, ident := range idents {
					if bytes.Equal(ident.ID.Key, pk) {
						return identity, ident.ID, true
					}
				}
			}
		}
	}
	return "", keys.SignedPublicSigningKey[keys.JournalistID]{}, false
}

// FindBackupIDFamily returns the BackupIDFamily whose identity signing key
// matches pk, used to verify Sentinel backup signatures.
func (h Hierarchy) FindBackupIDFamily(pk []byte) (BackupIDFamily, bool) {
	for _, org := range h.Families {
		for _, b := range org.BackupID {
			if bytes.Equal(b.ID.Key, pk) {
				return b, true
			}
		}
	}
	return BackupIDFamily{}, false
}

// KeyCount returns the total number of verified keys across every tier,
// used by tests and metrics to sanity-check hierarchy size stays in the
// expected O(10^2) range.
func (h Hierarchy) KeyCount() int {
	n := 0
	for _, org := range h.Families {
		n++
		n += len(org.CoverNodeProvisioning)
		n += len(org.BackupID)
		for _, b := range org.BackupID {
			n += len(b.Messaging)
		}
		for _, prov := range org.CoverNodeProvisioning {
			for _, idents := range prov.Identities {
				for _, ident := range idents {
					n++
					n += len(ident.Messaging)
				}
			}
		}
		n += len(org.JournalistProvisioning)
		for _, prov := range org.JournalistProvisioning {
			for _, idents := range prov.Identities {
				for _, ident := range idents {
					n++
					n += len(ident.Messaging)
				}
			}
		}
	}
	return n
}
