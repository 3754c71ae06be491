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
	"fmt"
	"time"

	"github.com/guardian-coverdrop/coverdrop-core/crypto/keys"
	"github.com/guardian-coverdrop/coverdrop-core/internal/logger"
)

// PublishStaleWarnAfter is how long a candidate may sit unpublished before
// the publish task starts logging it, rather than retrying faster.
const PublishStaleWarnAfter = 60 * time.Minute

// DefaultPollInterval is how often the journalist-vault identity rotator
// re-polls the API for the outcome of a submitted rotation.
const DefaultPollInterval = 2 * time.Second

// IdentityRotator runs the create-keys / publish-keys cycle for one
// identity role.
type IdentityRotator[R keys.Role] struct {
	RotateAfter time.Duration
	// PollTimeout, if positive, makes PublishCandidate poll the API for up
	// to this long after submitting a rotation (the journalist-vault
	// variant); zero leaves promotion to a later publish cycle.
	PollTimeout  time.Duration
	PollInterval time.Duration
	Store        IdentityStore[R]
	API          IdentityAPIClient[R]
	Log          logger.Logger

	sleep func(time.Duration)
}

// NewIdentityRotator builds an IdentityRotator with production defaults.
func NewIdentityRotator[R keys.Role](rotateAfter, pollTimeout time.Duration, store IdentityStore[R], api IdentityAPIClient[R], log logger.Logger) *IdentityRotator[R] {
	return &IdentityRotator[R]{
		RotateAfter:  rotateAfter,
		PollTimeout:  pollTimeout,
		PollInterval: DefaultPollInterval,
		Store:        store,
		API:          api,
		Log:          log,
		sleep:        time.Sleep,
	}
}

// CreateCandidateIfDue is the create-keys task for one identity role: if no
// candidate exists and the latest published key is absent or past its
// rotate-after age, a fresh unregistered key pair is generated and stored
// as the candidate.
func (r *IdentityRotator[R]) CreateCandidateIfDue(now time.Time) error {
	cand, err := r.Store.Candidate()
	if err != nil {
		return fmt.Errorf("coverdrop: reading identity candidate: %w", err)
	}
	if cand != nil {
		return nil
	}

	published, err := r.Store.Published()
	if err != nil {
		return fmt.Errorf("coverdrop: reading published identity keys: %w", err)
	}
	if latest := latestIdentity(published); latest != nil {
		if now.Sub(latest.CreatedAt) < r.RotateAfter {
			return nil
		}
	} else {
		r.Log.Warn("no valid identity key, creating a candidate that cannot be published without a parent signature")
	}

	kp, err := keys.GenerateUnsignedSigningKeyPair[R]()
	if err != nil {
		return err
	}
	return r.Store.SetCandidate(CandidateIdentity[R]{KeyPair: kp, CreatedAt: now})
}

// PublishCandidate is the publish-keys task for one identity role.
func (r *IdentityRotator[R]) PublishCandidate(ctx context.Context, now time.Time) error {
	cand, err := r.Store.Candidate()
	if err != nil {
		return fmt.Errorf("coverdrop: reading identity candidate: %w", err)
	}
	if cand == nil {
		return nil
	}

	if age := now.Sub(cand.CreatedAt); age > PublishStaleWarnAfter {
		r.Log.Warn("identity key candidate has not published", logger.Duration("age", age))
	}

	if err := r.API.SubmitForApproval(ctx, cand.KeyPair); err != nil {
		return fmt.Errorf("coverdrop: submitting identity rotation: %w", err)
	}

	if r.PollTimeout <= 0 {
		return nil
	}

	interval := r.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	deadline := now.Add(r.PollTimeout)
	elapsed := now
	for {
		signed, epoch, ready, err := r.API.PollApproval(ctx, cand.KeyPair.Public)
		if err != nil {
			return fmt.Errorf("coverdrop: polling identity rotation: %w", err)
		}
		if ready {
			promoted := PublishedIdentity[R]{
				KeyPair: keys.SignedSigningKeyPair[R]{
					SignedPublicSigningKey: signed,
					Private:                cand.KeyPair.Private,
				},
				Epoch:     epoch,
				CreatedAt: now,
			}
			if err := r.Store.Promote(promoted); err != nil {
				return fmt.Errorf("coverdrop: promoting identity key: %w", err)
			}
			return r.Store.DeleteCandidate()
		}
		if !elapsed.Before(deadline) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		r.sleep(interval)
		elapsed = elapsed.Add(interval)
	}
}

// MessagingRotator runs the create-keys / publish-keys cycle for one
// messaging role R whose keys are signed by identity role P.
type MessagingRotator[P keys.Role, R keys.Role] struct {
	RotateAfter   time.Duration
	Store         MessagingStore[R]
	IdentityStore IdentityStore[P]
	API           MessagingAPIClient[R]
	Log           logger.Logger
}

func NewMessagingRotator[P keys.Role, R keys.Role](rotateAfter time.Duration, store MessagingStore[R], identityStore IdentityStore[P], api MessagingAPIClient[R], log logger.Logger) *MessagingRotator[P, R] {
	return &MessagingRotator[P, R]{
		RotateAfter:   rotateAfter,
		Store:         store,
		IdentityStore: identityStore,
		API:           api,
		Log:           log,
	}
}

// CreateCandidateIfDue generates and signs a fresh messaging key pair if
// due, skipping if no valid identity key is available to sign it with.
func (r *MessagingRotator[P, R]) CreateCandidateIfDue(now time.Time) error {
	cand, err := r.Store.Candidate()
	if err != nil {
		return fmt.Errorf("coverdrop: reading messaging candidate: %w", err)
	}
	if cand != nil {
		return nil
	}

	published, err := r.Store.Published()
	if err != nil {
		return fmt.Errorf("coverdrop: reading published messaging keys: %w", err)
	}
	if latest := latestMessaging(published); latest != nil && now.Sub(latest.CreatedAt) < r.RotateAfter {
		return nil
	}

	identities, err := r.IdentityStore.Published()
	if err != nil {
		return fmt.Errorf("coverdrop: reading published identity keys: %w", err)
	}
	latestIdentityKP := latestIdentity(identities)
	if latestIdentityKP == nil || now.After(latestIdentityKP.KeyPair.NotValidAfter) {
		r.Log.Info("no valid identity key, skipping messaging key rotation")
		return nil
	}

	unsigned, err := keys.GenerateUnsignedEncryptionKeyPair[R]()
	if err != nil {
		return err
	}
	var roleTag R
	validity, _ := keys.Lifetime(roleTag.ID())
	signedPub, _, err := keys.SignEncryptionChild[P, R](latestIdentityKP.KeyPair, unsigned.Public, now.Add(validity))
	if err != nil {
		return fmt.Errorf("coverdrop: signing messaging key candidate: %w", err)
	}
	signedKP := keys.SignedEncryptionKeyPair[R]{SignedPublicEncryptionKey: signedPub, Private: unsigned.Private}
	return r.Store.SetCandidate(CandidateMessaging[R]{KeyPair: signedKP, CreatedAt: now})
}

// PublishCandidate is the publish-keys task for one messaging role; it
// logs (but does not reject) a too-recent rotation against the previous
// published key.
func (r *MessagingRotator[P, R]) PublishCandidate(ctx context.Context, now time.Time) error {
	cand, err := r.Store.Candidate()
	if err != nil {
		return fmt.Errorf("coverdrop: reading messaging candidate: %w", err)
	}
	if cand == nil {
		return nil
	}

	if age := now.Sub(cand.CreatedAt); age > PublishStaleWarnAfter {
		r.Log.Warn("messaging key candidate has not published", logger.Duration("age", age))
	}

	epoch, err := r.API.SubmitMessagingKey(ctx, cand.KeyPair.SignedPublicEncryptionKey)
	if err != nil {
		return fmt.Errorf("coverdrop: submitting messaging key: %w", err)
	}

	published, err := r.Store.Published()
	if err != nil {
		return fmt.Errorf("coverdrop: reading published messaging keys: %w", err)
	}
	if prev := latestMessaging(published); prev != nil {
		var roleTag R
		_, rotateAfter := keys.Lifetime(roleTag.ID())
		since := now.Sub(prev.CreatedAt)
		if since < rotateAfter {
			r.Log.Warn("warn_if_key_rotation_too_recent",
				logger.Duration("since_previous", since),
				logger.Duration("rotate_after", rotateAfter))
		}
	}

	if err := r.Store.Promote(PublishedMessaging[R]{KeyPair: cand.KeyPair, Epoch: epoch, CreatedAt: now}); err != nil {
		return fmt.Errorf("coverdrop: promoting messaging key: %w", err)
	}
	return r.Store.DeleteCandidate()
}
