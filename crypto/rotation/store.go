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

// Package rotation implements the create-keys / publish-keys state machine
// that every role with a rotation schedule runs: a candidate key is
// generated and persisted locally before any network call, then promoted
// to published (with an API-assigned epoch) once the relevant API accepts
// it. Persisting the candidate first means a crash between generation and
// publish never stomps a secret key whose public half already reached the
// API.
package rotation

import (
	"sync"
	"time"

	"github.com/guardian-coverdrop/coverdrop-core/crypto/keys"
)

// CandidateIdentity is an unpublished role-R identity key pair awaiting
// either manual-approval signing or, for the Organization anchor, nothing
// further at all.
type CandidateIdentity[R keys.Role] struct {
	KeyPair   keys.UnsignedSigningKeyPair[R]
	CreatedAt time.Time
}

// PublishedIdentity is an identity key pair the API has assigned an epoch.
type PublishedIdentity[R keys.Role] struct {
	KeyPair   keys.SignedSigningKeyPair[R]
	Epoch     int64
	CreatedAt time.Time
}

// CandidateMessaging is a role-R messaging key pair already signed by the
// latest key of its identity parent, awaiting an API-assigned epoch.
type CandidateMessaging[R keys.Role] struct {
	KeyPair   keys.SignedEncryptionKeyPair[R]
	CreatedAt time.Time
}

// PublishedMessaging is a messaging key pair the API has assigned an epoch.
type PublishedMessaging[R keys.Role] struct {
	KeyPair   keys.SignedEncryptionKeyPair[R]
	Epoch     int64
	CreatedAt time.Time
}

// IdentityStore is the local candidate/published table for one identity
// role.
type IdentityStore[R keys.Role] interface {
	Candidate() (*CandidateIdentity[R], error)
	SetCandidate(CandidateIdentity[R]) error
	DeleteCandidate() error
	Published() ([]PublishedIdentity[R], error)
	Promote(PublishedIdentity[R]) error
}

// MessagingStore is the local candidate/published table for one messaging
// role.
type MessagingStore[R keys.Role] interface {
	Candidate() (*CandidateMessaging[R], error)
	SetCandidate(CandidateMessaging[R]) error
	DeleteCandidate() error
	Published() ([]PublishedMessaging[R], error)
	Promote(PublishedMessaging[R]) error
}

// MemoryIdentityStore is an in-memory IdentityStore, sufficient for a
// single-process service where the candidate/published tables do not need
// to survive a restart (the SQLCipher-backed equivalent is an external
// collaborator behind the same interface).
type MemoryIdentityStore[R keys.Role] struct {
	mu        sync.Mutex
	candidate *CandidateIdentity[R]
	published []PublishedIdentity[R]
}

func NewMemoryIdentityStore[R keys.Role]() *MemoryIdentityStore[R] {
	return &MemoryIdentityStore[R]{}
}

func (s *MemoryIdentityStore[R]) Candidate() (*CandidateIdentity[R], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.candidate == nil {
		return nil, nil
	}
	c := *s.candidate
	return &c, nil
}

func (s *MemoryIdentityStore[R]) SetCandidate(c CandidateIdentity[R]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidate = &c
	return nil
}

func (s *MemoryIdentityStore[R]) DeleteCandidate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidate = nil
	return nil
}

func (s *MemoryIdentityStore[R]) Published() ([]PublishedIdentity[R], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PublishedIdentity[R], len(s.published))
	copy(out, s.published)
	return out, nil
}

func (s *MemoryIdentityStore[R]) Promote(p PublishedIdentity[R]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, p)
	return nil
}

// MemoryMessagingStore is the messaging-role counterpart of
// MemoryIdentityStore.
type MemoryMessagingStore[R keys.Role] struct {
	mu        sync.Mutex
	candidate *CandidateMessaging[R]
	published []PublishedMessaging[R]
}

func NewMemoryMessagingStore[R keys.Role]() *MemoryMessagingStore[R] {
	return &MemoryMessagingStore[R]{}
}

func (s *MemoryMessagingStore[R]) Candidate() (*CandidateMessaging[R], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.candidate == nil {
		return nil, nil
	}
	c := *s.candidate
	return &c, nil
}

func (s *MemoryMessagingStore[R]) SetCandidate(c CandidateMessaging[R]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidate = &c
	return nil
}

func (s *MemoryMessagingStore[R]) DeleteCandidate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidate = nil
	return nil
}

func (s *MemoryMessagingStore[R]) Published() ([]PublishedMessaging[R], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PublishedMessaging[R], len(s.published))
	copy(out, s.published)
	return out, nil
}

func (s *MemoryMessagingStore[R]) Promote(p PublishedMessaging[R]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, p)
	return nil
}

func latestIdentity[R keys.Role](published []PublishedIdentity[R]) *PublishedIdentity[R] {
	var latest *PublishedIdentity[R]
	for i := range published {
		if latest == nil || published[i].CreatedAt.After(latest.CreatedAt) {
			latest = &published[i]
		}
	}
	return latest
}

func latestMessaging[R keys.Role](published []PublishedMessaging[R]) *PublishedMessaging[R] {
	var latest *PublishedMessaging[R]
	for i := range published {
		if latest == nil || published[i].CreatedAt.After(latest.CreatedAt) {
			latest = &published[i]
		}
	}
	return latest
}
