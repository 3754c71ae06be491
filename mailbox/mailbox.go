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

// Package mailbox holds a device-side journalist or user's view of their
// own message history: a fixed-slot ring buffer that overwrites its oldest
// entry on overflow, so both its in-memory footprint and its encrypted
// on-disk representation stay constant regardless of how many messages
// have ever passed through it.
package mailbox

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	coverdropcrypto "github.com/guardian-coverdrop/coverdrop-core/crypto"
	"github.com/guardian-coverdrop/coverdrop-core/envelope"
	"golang.org/x/crypto/nacl/secretbox"
)

// secretBoxNonceLen and secretBoxOverhead mirror the constants SecretBoxEncrypt
// uses internally, needed here only to predict its output length.
const (
	secretBoxNonceLen = 24
	secretBoxOverhead = secretbox.Overhead
)

// DefaultCapacity is the slot count used when no explicit capacity is given.
const DefaultCapacity = 128

// identityFieldLen bounds the counterpart identity string to a fixed width
// so every slot, occupied or not, serializes to the same length.
const identityFieldLen = 256

const (
	entryFlagsLen = 2 // direction byte + read byte
	entryTimeLen  = 8 // unix seconds, big-endian
)

const entrySerializedLen = identityFieldLen + entryFlagsLen + entryTimeLen + envelope.MessagePaddingLen

var (
	ErrInvalidCapacity      = errors.New("coverdrop: mailbox capacity must be positive")
	ErrIdentityTooLong      = errors.New("coverdrop: counterpart identity too long")
	ErrMessageTooLong       = errors.New("coverdrop: message too long for mailbox entry")
	ErrCapacityMismatch     = errors.New("coverdrop: encrypted mailbox capacity mismatch")
	ErrCorruptSerialization = errors.New("coverdrop: corrupt mailbox serialization")
)

// Direction records which way an entry's message travelled.
type Direction uint8

const (
	DirectionOutbound Direction = iota // from the mailbox owner to the counterpart
	DirectionInbound                   // from the counterpart to the mailbox owner
)

// Entry is one message record held by a Mailbox.
type Entry struct {
	CounterpartIdentity string
	Direction           Direction
	Message             []byte
	CreatedAt           time.Time
	Read                bool
}

func (e Entry) marshal() ([entrySerializedLen]byte, error) {
	var out [entrySerializedLen]byte
	if len(e.CounterpartIdentity) > identityFieldLen {
		return out, ErrIdentityTooLong
	}

	offset := 0
	copy(out[offset:offset+identityFieldLen], e.CounterpartIdentity)
	offset += identityFieldLen

	out[offset] = byte(e.Direction)
	offset++
	if e.Read {
		out[offset] = 1
	}
	offset++

	binary.BigEndian.PutUint64(out[offset:offset+entryTimeLen], uint64(e.CreatedAt.Unix()))
	offset += entryTimeLen

	padded, err := envelope.Pad(e.Message, envelope.MessagePaddingLen)
	if err != nil {
		return out, fmt.Errorf("coverdrop: %w: %w", ErrMessageTooLong, err)
	}
	copy(out[offset:], padded)

	return out, nil
}

// unmarshalEntry reports ok=false for an all-zero slot, which is how an
// unoccupied ring position is represented on disk.
func unmarshalEntry(b []byte) (entry Entry, ok bool, err error) {
	if len(b) != entrySerializedLen {
		return Entry{}, false, ErrCorruptSerialization
	}
	if isZero(b) {
		return Entry{}, false, nil
	}

	offset := 0
	identity := trimTrailingZeros(b[offset : offset+identityFieldLen])
	offset += identityFieldLen

	direction := Direction(b[offset])
	offset++
	read := b[offset] != 0
	offset++

	ts := binary.BigEndian.Uint64(b[offset : offset+entryTimeLen])
	offset += entryTimeLen

	message, err := envelope.Unpad(b[offset:])
	if err != nil {
		return Entry{}, false, fmt.Errorf("coverdrop: unpadding mailbox entry: %w", err)
	}

	return Entry{
		CounterpartIdentity: string(identity),
		Direction:           direction,
		Message:             message,
		CreatedAt:           time.Unix(int64(ts), 0).UTC(),
		Read:                read,
	}, true, nil
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func trimTrailingZeros(b []byte) []byte {
	i := len(b)
	for i > 0 && b[i-1] == 0 {
		i--
	}
	return b[:i]
}

// Mailbox is a fixed-capacity ring buffer of Entry values. Pushing past
// capacity overwrites the oldest surviving entry; CurrentIndex keeps
// counting past capacity so callers can tell how many messages have ever
// been pushed.
type Mailbox struct {
	mu           sync.Mutex
	capacity     int
	slots        []Entry
	occupied     []bool
	currentIndex uint64
}

// New returns an empty Mailbox holding at most capacity entries.
func New(capacity int) (*Mailbox, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Mailbox{
		capacity: capacity,
		slots:    make([]Entry, capacity),
		occupied: make([]bool, capacity),
	}, nil
}

// NewDefault returns an empty Mailbox with DefaultCapacity slots.
func NewDefault() *Mailbox {
	m, _ := New(DefaultCapacity)
	return m
}

// Push appends e, overwriting the oldest entry once the mailbox is full.
func (m *Mailbox) Push(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot := int(m.currentIndex % uint64(m.capacity))
	m.slots[slot] = e
	m.occupied[slot] = true
	m.currentIndex++
}

// CurrentIndex is the total number of entries ever pushed, including ones
// since overwritten.
func (m *Mailbox) CurrentIndex() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentIndex
}

// Len is the number of entries currently held, capped at capacity.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lenLocked()
}

func (m *Mailbox) lenLocked() int {
	if m.currentIndex >= uint64(m.capacity) {
		return m.capacity
	}
	return int(m.currentIndex)
}

// Entries returns the held entries newest-first, in exact reverse arrival
// order, including after the buffer has wrapped.
func (m *Mailbox) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.lenLocked()
	out := make([]Entry, 0, n)
	if n == 0 {
		return out
	}

	last := int((m.currentIndex - 1) % uint64(m.capacity))
	for i := 0; i < n; i++ {
		slot := last - i
		if slot < 0 {
			slot += m.capacity
		}
		if m.occupied[slot] {
			out = append(out, m.slots[slot])
		}
	}
	return out
}

// MarshalEncrypted produces a secretbox-sealed representation whose length
// depends only on capacity, never on how many slots are occupied.
func (m *Mailbox) MarshalEncrypted(key *[32]byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	plain := make([]byte, 8+m.capacity*entrySerializedLen)
	binary.BigEndian.PutUint64(plain[:8], m.currentIndex)

	for i := 0; i < m.capacity; i++ {
		offset := 8 + i*entrySerializedLen
		if !m.occupied[i] {
			continue
		}
		serialized, err := m.slots[i].marshal()
		if err != nil {
			return nil, fmt.Errorf("coverdrop: serializing mailbox slot %d: %w", i, err)
		}
		copy(plain[offset:offset+entrySerializedLen], serialized[:])
	}

	sealed, err := coverdropcrypto.SecretBoxEncrypt(plain, key)
	if err != nil {
		return nil, fmt.Errorf("coverdrop: encrypting mailbox: %w", err)
	}
	return sealed, nil
}

// UnmarshalEncrypted reverses MarshalEncrypted for a Mailbox of the given
// capacity.
func UnmarshalEncrypted(sealed []byte, key *[32]byte, capacity int) (*Mailbox, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	plain, err := coverdropcrypto.SecretBoxDecrypt(sealed, key)
	if err != nil {
		return nil, fmt.Errorf("coverdrop: decrypting mailbox: %w", err)
	}

	want := 8 + capacity*entrySerializedLen
	if len(plain) != want {
		return nil, ErrCapacityMismatch
	}

	m, err := New(capacity)
	if err != nil {
		return nil, err
	}
	m.currentIndex = binary.BigEndian.Uint64(plain[:8])

	for i := 0; i < capacity; i++ {
		offset := 8 + i*entrySerializedLen
		entry, ok, err := unmarshalEntry(plain[offset : offset+entrySerializedLen])
		if err != nil {
			return nil, fmt.Errorf("coverdrop: decoding mailbox slot %d: %w", i, err)
		}
		if ok {
			m.slots[i] = entry
			m.occupied[i] = true
		}
	}

	return m, nil
}

// EncryptedLen is the constant ciphertext length MarshalEncrypted produces
// for a Mailbox of the given capacity, regardless of occupancy.
func EncryptedLen(capacity int) int {
	return secretBoxNonceLen + secretBoxOverhead + 8 + capacity*entrySerializedLen
}
