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
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/guardian-coverdrop/coverdrop-core/crypto/keys"
	"github.com/guardian-coverdrop/coverdrop-core/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logger.Logger {
	return logger.NewLogger(io.Discard, logger.WarnLevel)
}

// fakeIdentityAPI approves a submission once PollApproval has been called
// readyFrom times, standing in for the manual-approval identity API.
type fakeIdentityAPI[R keys.Role] struct {
	epoch     int64
	submitted []keys.UnsignedSigningKeyPair[R]
	readyFrom int
	calls     int
}

func (f *fakeIdentityAPI[R]) SubmitForApproval(_ context.Context, candidate keys.UnsignedSigningKeyPair[R]) error {
	f.submitted = append(f.submitted, candidate)
	return nil
}

func (f *fakeIdentityAPI[R]) PollApproval(_ context.Context, candidatePub []byte) (keys.SignedPublicSigningKey[R], int64, bool, error) {
	defer func() { f.calls++ }()
	if f.calls < f.readyFrom {
		return keys.SignedPublicSigningKey[R]{}, 0, false, nil
	}
	signed := keys.SignedPublicSigningKey[R]{
		Key:           candidatePub,
		NotValidAfter: time.Now().Add(4 * 7 * 24 * time.Hour),
		Certificate:   []byte("fake-api-certificate"),
	}
	return signed, f.epoch, true, nil
}

func TestIdentityRotatorCreateCandidateWhenNoneExists(t *testing.T) {
	now := time.Now()
	store := NewMemoryIdentityStore[keys.CoverNodeID]()
	r := NewIdentityRotator[keys.CoverNodeID](4*7*24*time.Hour, 0, store, &fakeIdentityAPI[keys.CoverNodeID]{}, testLogger())

	require.NoError(t, r.CreateCandidateIfDue(now))

	cand, err := store.Candidate()
	require.NoError(t, err)
	require.NotNil(t, cand)
	assert.Len(t, cand.KeyPair.Public, 32)
}

func TestIdentityRotatorSkipsWhenCandidateAlreadyExists(t *testing.T) {
	now := time.Now()
	store := NewMemoryIdentityStore[keys.CoverNodeID]()
	kp, err := keys.GenerateUnsignedSigningKeyPair[keys.CoverNodeID]()
	require.NoError(t, err)
	require.NoError(t, store.SetCandidate(CandidateIdentity[keys.CoverNodeID]{KeyPair: kp, CreatedAt: now}))

	r := NewIdentityRotator[keys.CoverNodeID](4*7*24*time.Hour, 0, store, &fakeIdentityAPI[keys.CoverNodeID]{}, testLogger())
	require.NoError(t, r.CreateCandidateIfDue(now.Add(time.Hour)))

	cand, err := store.Candidate()
	require.NoError(t, err)
	assert.Equal(t, kp.Public, cand.KeyPair.Public)
}

func TestIdentityRotatorSkipsWhenRecentlyPublished(t *testing.T) {
	now := time.Now()
	store := NewMemoryIdentityStore[keys.CoverNodeID]()
	require.NoError(t, store.Promote(PublishedIdentity[keys.CoverNodeID]{CreatedAt: now}))

	r := NewIdentityRotator[keys.CoverNodeID](4*7*24*time.Hour, 0, store, &fakeIdentityAPI[keys.CoverNodeID]{}, testLogger())
	require.NoError(t, r.CreateCandidateIfDue(now.Add(time.Hour)))

	cand, err := store.Candidate()
	require.NoError(t, err)
	assert.Nil(t, cand)
}

func TestIdentityRotatorPublishWithoutPollingLeavesCandidateForNextCycle(t *testing.T) {
	now := time.Now()
	store := NewMemoryIdentityStore[keys.CoverNodeID]()
	kp, err := keys.GenerateUnsignedSigningKeyPair[keys.CoverNodeID]()
	require.NoError(t, err)
	require.NoError(t, store.SetCandidate(CandidateIdentity[keys.CoverNodeID]{KeyPair: kp, CreatedAt: now}))

	api := &fakeIdentityAPI[keys.CoverNodeID]{epoch: 7}
	r := NewIdentityRotator[keys.CoverNodeID](4*7*24*time.Hour, 0, store, api, testLogger())
	require.NoError(t, r.PublishCandidate(context.Background(), now))

	assert.Len(t, api.submitted, 1)
	cand, err := store.Candidate()
	require.NoError(t, err)
	assert.NotNil(t, cand, "candidate stays pending until a future cycle observes approval")
}

func TestIdentityRotatorPublishPollsUntilReady(t *testing.T) {
	now := time.Now()
	store := NewMemoryIdentityStore[keys.CoverNodeID]()
	kp, err := keys.GenerateUnsignedSigningKeyPair[keys.CoverNodeID]()
	require.NoError(t, err)
	require.NoError(t, store.SetCandidate(CandidateIdentity[keys.CoverNodeID]{KeyPair: kp, CreatedAt: now}))

	api := &fakeIdentityAPI[keys.CoverNodeID]{epoch: 9, readyFrom: 2}
	r := NewIdentityRotator[keys.CoverNodeID](4*7*24*time.Hour, 30*time.Second, store, api, testLogger())
	r.PollInterval = time.Second
	r.sleep = func(time.Duration) {}

	require.NoError(t, r.PublishCandidate(context.Background(), now))

	cand, err := store.Candidate()
	require.NoError(t, err)
	assert.Nil(t, cand)

	published, err := store.Published()
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, int64(9), published[0].Epoch)
}

// fakeMessagingAPI accepts every submission, assigning sequential epochs.
type fakeMessagingAPI[R keys.Role] struct {
	nextEpoch int64
}

func (f *fakeMessagingAPI[R]) SubmitMessagingKey(_ context.Context, _ keys.SignedPublicEncryptionKey[R]) (int64, error) {
	f.nextEpoch++
	return f.nextEpoch, nil
}

func TestMessagingRotatorSkipsWithoutValidIdentityKey(t *testing.T) {
	now := time.Now()
	identityStore := NewMemoryIdentityStore[keys.CoverNodeID]()
	messagingStore := NewMemoryMessagingStore[keys.CoverNodeMessaging]()

	r := NewMessagingRotator[keys.CoverNodeID, keys.CoverNodeMessaging](
		2*7*24*time.Hour, messagingStore, identityStore, &fakeMessagingAPI[keys.CoverNodeMessaging]{}, testLogger())

	require.NoError(t, r.CreateCandidateIfDue(now))

	cand, err := messagingStore.Candidate()
	require.NoError(t, err)
	assert.Nil(t, cand)
}

func TestMessagingRotatorFullCycleAndTooRecentWarning(t *testing.T) {
	now := time.Now()
	identityUnsigned, err := keys.GenerateUnsignedSigningKeyPair[keys.CoverNodeID]()
	require.NoError(t, err)
	identityKeyPair := keys.SignedSigningKeyPair[keys.CoverNodeID]{
		SignedPublicSigningKey: keys.SignedPublicSigningKey[keys.CoverNodeID]{
			Key:           identityUnsigned.Public,
			NotValidAfter: now.Add(4 * 7 * 24 * time.Hour),
		},
		Private: identityUnsigned.Private,
	}

	identityStore := NewMemoryIdentityStore[keys.CoverNodeID]()
	require.NoError(t, identityStore.Promote(PublishedIdentity[keys.CoverNodeID]{KeyPair: identityKeyPair, Epoch: 1, CreatedAt: now}))

	messagingStore := NewMemoryMessagingStore[keys.CoverNodeMessaging]()
	api := &fakeMessagingAPI[keys.CoverNodeMessaging]{}
	logBuf := &bytes.Buffer{}
	log := logger.NewLogger(logBuf, logger.WarnLevel)

	r := NewMessagingRotator[keys.CoverNodeID, keys.CoverNodeMessaging](
		2*7*24*time.Hour, messagingStore, identityStore, api, log)

	// First rotation: no previous published key, no warning expected.
	require.NoError(t, r.CreateCandidateIfDue(now))
	require.NoError(t, r.PublishCandidate(context.Background(), now))
	assert.Empty(t, logBuf.String())

	published, err := messagingStore.Published()
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, int64(1), published[0].Epoch)

	// Second rotation, well inside COVERNODE_MSG_KEY_ROTATE_AFTER: accepted,
	// but warns.
	soon := now.Add(time.Hour)
	require.NoError(t, messagingStore.SetCandidate(CandidateMessaging[keys.CoverNodeMessaging]{
		KeyPair:   published[0].KeyPair,
		CreatedAt: soon,
	}))
	require.NoError(t, r.PublishCandidate(context.Background(), soon))

	assert.Contains(t, logBuf.String(), "warn_if_key_rotation_too_recent")

	published, err = messagingStore.Published()
	require.NoError(t, err)
	assert.Len(t, published, 2)
}
