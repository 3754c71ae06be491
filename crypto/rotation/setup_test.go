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

package rotation

import (
	"context"
	"testing"
	"time"

	"github.com/guardian-coverdrop/coverdrop-core/crypto/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSetupBundleAPI[R keys.Role] struct {
	epoch int64
	posts int
}

func (f *fakeSetupBundleAPI[R]) PostSetupBundle(_ context.Context, _ SetupBundle[R]) (int64, error) {
	f.posts++
	return f.epoch, nil
}

func TestProcessSetupBundlePromotesDirectlyToPublished(t *testing.T) {
	now := time.Now()
	unsigned, err := keys.GenerateUnsignedSigningKeyPair[keys.CoverNodeID]()
	require.NoError(t, err)

	bundle := SetupBundle[keys.CoverNodeID]{
		KeyPair: keys.SignedSigningKeyPair[keys.CoverNodeID]{
			SignedPublicSigningKey: keys.SignedPublicSigningKey[keys.CoverNodeID]{
				Key:           unsigned.Public,
				NotValidAfter: now.Add(4 * 7 * 24 * time.Hour),
				Certificate:   []byte("offline-ceremony-certificate"),
			},
			Private: unsigned.Private,
		},
	}

	api := &fakeSetupBundleAPI[keys.CoverNodeID]{epoch: 1}
	store := NewMemoryIdentityStore[keys.CoverNodeID]()

	require.NoError(t, ProcessSetupBundle[keys.CoverNodeID](context.Background(), api, store, bundle, now))
	assert.Equal(t, 1, api.posts)

	cand, err := store.Candidate()
	require.NoError(t, err)
	assert.Nil(t, cand, "setup bundle bypasses the candidate state entirely")

	published, err := store.Published()
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, int64(1), published[0].Epoch)
	assert.Equal(t, unsigned.Public, published[0].KeyPair.Key)
}
