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

package mailbox

import (
	"crypto/rand"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genKey(t *testing.T) *[32]byte {
	t.Helper()
	var key [32]byte
	_, err := rand.Read(key[:])
	require.NoError(t, err)
	return &key
}

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	_, err := New(0)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = New(-1)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestPushAndEntriesNewestFirst(t *testing.T) {
	m, err := New(4)
	require.NoError(t, err)

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		m.Push(Entry{
			CounterpartIdentity: "alice",
			Direction:           DirectionOutbound,
			Message:             []byte(fmt.Sprintf("msg-%d", i)),
			CreatedAt:           now,
		})
	}

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, uint64(3), m.CurrentIndex())

	entries := m.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "msg-2", string(entries[0].Message))
	assert.Equal(t, "msg-1", string(entries[1].Message))
	assert.Equal(t, "msg-0", string(entries[2].Message))
}

func TestOverflowDropsOldest(t *testing.T) {
	m, err := New(128)
	require.NoError(t, err)

	now := time.Now().UTC()
	for i := 0; i < 138; i++ {
		m.Push(Entry{
			CounterpartIdentity: "journalist",
			Direction:           DirectionOutbound,
			Message:             []byte(fmt.Sprintf("%d", i)),
			CreatedAt:           now,
		})
	}

	assert.Equal(t, uint64(138), m.CurrentIndex())
	assert.Equal(t, 128, m.Len())

	entries := m.Entries()
	require.Len(t, entries, 128)

	// Newest first: 137 down to 10, the first ten pushes have been
	// overwritten.
	for i, e := range entries {
		want := fmt.Sprintf("%d", 137-i)
		assert.Equal(t, want, string(e.Message))
	}
}

func TestMarshalEncryptedConstantSizeRegardlessOfOccupancy(t *testing.T) {
	key := genKey(t)

	empty, err := New(DefaultCapacity)
	require.NoError(t, err)
	emptySealed, err := empty.MarshalEncrypted(key)
	require.NoError(t, err)
	assert.Len(t, emptySealed, EncryptedLen(DefaultCapacity))

	full, err := New(DefaultCapacity)
	require.NoError(t, err)
	now := time.Now().UTC()
	for i := 0; i < 200; i++ {
		full.Push(Entry{
			CounterpartIdentity: "bob",
			Direction:           DirectionInbound,
			Message:             []byte("a reply of some length, but still well under the cap"),
			CreatedAt:           now,
			Read:                i%2 == 0,
		})
	}
	fullSealed, err := full.MarshalEncrypted(key)
	require.NoError(t, err)
	assert.Len(t, fullSealed, EncryptedLen(DefaultCapacity))

	assert.Equal(t, len(emptySealed), len(fullSealed))
}

func TestMarshalUnmarshalEncryptedRoundTrip(t *testing.T) {
	key := genKey(t)

	m, err := New(8)
	require.NoError(t, err)
	now := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 10; i++ {
		m.Push(Entry{
			CounterpartIdentity: "carol",
			Direction:           DirectionOutbound,
			Message:             []byte(fmt.Sprintf("hello %d", i)),
			CreatedAt:           now,
			Read:                i%3 == 0,
		})
	}

	sealed, err := m.MarshalEncrypted(key)
	require.NoError(t, err)

	loaded, err := UnmarshalEncrypted(sealed, key, 8)
	require.NoError(t, err)

	assert.Equal(t, m.CurrentIndex(), loaded.CurrentIndex())
	assert.Equal(t, m.Entries(), loaded.Entries())
}

func TestUnmarshalEncryptedRejectsWrongKey(t *testing.T) {
	key := genKey(t)
	other := genKey(t)

	m, err := New(4)
	require.NoError(t, err)
	m.Push(Entry{CounterpartIdentity: "dave", Message: []byte("secret"), CreatedAt: time.Now().UTC()})

	sealed, err := m.MarshalEncrypted(key)
	require.NoError(t, err)

	_, err = UnmarshalEncrypted(sealed, other, 4)
	assert.Error(t, err)
}

func TestUnmarshalEncryptedRejectsCapacityMismatch(t *testing.T) {
	key := genKey(t)

	m, err := New(4)
	require.NoError(t, err)
	sealed, err := m.MarshalEncrypted(key)
	require.NoError(t, err)

	_, err = UnmarshalEncrypted(sealed, key, 8)
	assert.ErrorIs(t, err, ErrCapacityMismatch)
}

func TestEntryRejectsOversizedIdentity(t *testing.T) {
	m, err := New(2)
	require.NoError(t, err)
	m.Push(Entry{
		CounterpartIdentity: string(make([]byte, identityFieldLen+1)),
		Message:             []byte("x"),
		CreatedAt:           time.Now().UTC(),
	})

	_, err = m.MarshalEncrypted(genKey(t))
	assert.ErrorIs(t, err, ErrIdentityTooLong)
}

func TestEntryRejectsOversizedMessage(t *testing.T) {
	m, err := New(2)
	require.NoError(t, err)
	m.Push(Entry{
		CounterpartIdentity: "eve",
		Message:             make([]byte, 4096),
		CreatedAt:           time.Now().UTC(),
	})

	_, err = m.MarshalEncrypted(genKey(t))
	assert.ErrorIs(t, err, ErrMessageTooLong)
}
