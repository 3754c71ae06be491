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
	"testing"
	"time"

	"github.com/guardian-coverdrop/coverdrop-core/crypto/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signAnchor(t *testing.T, now time.Time) keys.SignedSigningKeyPair[keys.Organization] {
	t.Helper()
	unsigned, err := keys.GenerateUnsignedSigningKeyPair[keys.Organization]()
	require.NoError(t, err)
	signed, _, err := keys.SignChild[keys.Organization, keys.Organization](keys.SignedSigningKeyPair[keys.Organization]{
		SignedPublicSigningKey: keys.SignedPublicSigningKey[keys.Organization]{NotValidAfter: now.Add(52 * 7 * 24 * time.Hour)},
		Private:                unsigned.Private,
	}, unsigned.Public, now.Add(52*7*24*time.Hour))
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

func TestBuildVerifiesFullChain(t *testing.T) {
	now := time.Now().UTC()
	org := signAnchor(t, now)
	journalistProv := signChild[keys.Organization, keys.JournalistProvisioning](t, org, now, 52*week)
	journalistID := signChild[keys.JournalistProvisioning, keys.JournalistID](t, journalistProv, now, 8*week)

	input := Input{
		Anchors:                []AnchorRow{{Untrusted: org.ToUntrusted()}},
		JournalistProvisioning: []SigningRow[keys.JournalistProvisioning]{{Untrusted: journalistProv.ToUntrusted()}},
		JournalistID:           []SigningRow[keys.JournalistID]{{Identity: "alice", Untrusted: journalistID.ToUntrusted()}},
	}

	h := Build(input, now)
	require.Len(t, h.Families, 1)
	require.Len(t, h.Families[0].JournalistProvisioning, 1)
	idents := h.Families[0].JournalistProvisioning[0].Identities["alice"]
	require.Len(t, idents, 1)
	assert.Equal(t, journalistID.Key, idents[0].ID.Key)
}

func TestBuildRejectsBadRowSilently(t *testing.T) {
	now := time.Now().UTC()
	org := signAnchor(t, now)
	otherOrg := signAnchor(t, now)
	// Signed under otherOrg, claimed under org's hierarchy: should be dropped, not fail the whole build.
	badProv := signChild[keys.Organization, keys.JournalistProvisioning](t, otherOrg, now, 52*week)
	goodProv := signChild[keys.Organization, keys.JournalistProvisioning](t, org, now, 52*week)

	input := Input{
		Anchors: []AnchorRow{{Untrusted: org.ToUntrusted()}},
		JournalistProvisioning: []SigningRow[keys.JournalistProvisioning]{
			{Untrusted: badProv.ToUntrusted()},
			{Untrusted: goodProv.ToUntrusted()},
		},
	}

	h := Build(input, now)
	require.Len(t, h.Families, 1)
	assert.Len(t, h.Families[0].JournalistProvisioning, 1)
	assert.Equal(t, goodProv.Key, h.Families[0].JournalistProvisioning[0].Provisioning.Key)
}

// TestConcurrentProvisioningRotation checks that a candidate journalist-ID
// key signed under provisioning P1 is accepted even after the hierarchy
// also contains a newer provisioning key P2, so long as P1 is still
// present.
func TestConcurrentProvisioningRotation(t *testing.T) {
	now := time.Now().UTC()
	org := signAnchor(t, now)
	p1 := signChild[keys.Organization, keys.JournalistProvisioning](t, org, now, 52*week)
	p2 := signChild[keys.Organization, keys.JournalistProvisioning](t, org, now, 52*week)
	idUnderP1 := signChild[keys.JournalistProvisioning, keys.JournalistID](t, p1, now, 8*week)

	input := Input{
		Anchors: []AnchorRow{{Untrusted: org.ToUntrusted()}},
		JournalistProvisioning: []SigningRow[keys.JournalistProvisioning]{
			{Untrusted: p1.ToUntrusted()},
			{Untrusted: p2.ToUntrusted()},
		},
		JournalistID: []SigningRow[keys.JournalistID]{{Identity: "bob", Untrusted: idUnderP1.ToUntrusted()}},
	}

	h := Build(input, now)
	var foundUnderP1, foundUnderP2 bool
	for _, prov := range h.Families[0].JournalistProvisioning {
		if len(prov.Identities["bob"]) > 0 {
			if string(prov.Provisioning.Key) == string(p1.Key) {
				foundUnderP1 = true
			}
			if string(prov.Provisioning.Key) == string(p2.Key) {
				foundUnderP2 = true
			}
		}
	}
	assert.True(t, foundUnderP1)
	assert.False(t, foundUnderP2)
}

func TestMaxEpochIsAtLeastEveryObservedEpoch(t *testing.T) {
	now := time.Now().UTC()
	org := signAnchor(t, now)
	prov := signChild[keys.Organization, keys.JournalistProvisioning](t, org, now, 52*week)

	input := Input{
		Anchors:                []AnchorRow{{Untrusted: org.ToUntrusted()}},
		JournalistProvisioning: []SigningRow[keys.JournalistProvisioning]{{Epoch: 7, Untrusted: prov.ToUntrusted()}},
	}
	h := Build(input, now)
	assert.GreaterOrEqual(t, h.MaxEpoch, int64(7))
}

const week = 7 * 24 * time.Hour
