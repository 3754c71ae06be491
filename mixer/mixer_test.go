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

package mixer

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPayloadSize = 8

func testConfig() Config {
	return Config{
		ThresholdMin: 2,
		ThresholdMax: 4,
		Timeout:      60 * time.Second,
		OutputSize:   2,
		PayloadSize:  testPayloadSize,
		MetricsName:  "test_mixer",
	}
}

func randomPayload(t *testing.T) []byte {
	t.Helper()
	buf := make([]byte, testPayloadSize)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	return buf
}

func genCover() ([]byte, error) {
	buf := make([]byte, testPayloadSize)
	_, err := rand.Read(buf)
	return buf, err
}

func TestMaxThresholdFiring(t *testing.T) {
	now := time.Now()
	m, err := New(testConfig(), genCover, now)
	require.NoError(t, err)

	in1 := randomPayload(t)
	out, err := m.ConsumeReal(in1, "1", now)
	require.NoError(t, err)
	assert.Nil(t, out)

	in2 := randomPayload(t)
	out, err = m.ConsumeReal(in2, "2", now)
	require.NoError(t, err)
	assert.Nil(t, out)

	out, err = m.ConsumeCover(now)
	require.NoError(t, err)
	assert.Nil(t, out)

	// The fourth input hits threshold_max, releasing the two oldest real messages.
	in4 := randomPayload(t)
	out, err = m.ConsumeReal(in4, "4", now)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, [][]byte{in1, in2}, out.Messages)
	assert.True(t, out.HasRealCheckpoint)
	assert.Equal(t, "2", out.Checkpoint)

	// Only the fourth message remains buffered. The fire reset the seen
	// counter to zero, so four more cover inputs reach threshold_max again.
	out, err = m.ConsumeCover(now)
	require.NoError(t, err)
	assert.Nil(t, out)
	out, err = m.ConsumeCover(now)
	require.NoError(t, err)
	assert.Nil(t, out)
	out, err = m.ConsumeCover(now)
	require.NoError(t, err)
	assert.Nil(t, out)
	out, err = m.ConsumeCover(now)
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, "4", out.Checkpoint)
	assert.True(t, out.HasRealCheckpoint)
	assert.Equal(t, in4, out.Messages[0])
	assert.NotEqual(t, out.Messages[0], out.Messages[1])
}

func TestMinThresholdAndTimeoutFiring(t *testing.T) {
	now := time.Now()
	cfg := testConfig()
	m, err := New(cfg, genCover, now)
	require.NoError(t, err)

	in1 := randomPayload(t)
	out, err := m.ConsumeReal(in1, "1", now)
	require.NoError(t, err)
	assert.Nil(t, out)

	// Exceeds threshold_min but not the timeout.
	in2 := randomPayload(t)
	out, err = m.ConsumeReal(in2, "2", now)
	require.NoError(t, err)
	assert.Nil(t, out)

	// Exceeds threshold_min AND the timeout.
	now = now.Add(cfg.Timeout)
	out, err = m.ConsumeCover(now)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, [][]byte{in1, in2}, out.Messages)
	assert.Equal(t, "2", out.Checkpoint)

	// Exceeds the timeout but not threshold_min.
	now = now.Add(cfg.Timeout)
	out, err = m.ConsumeCover(now)
	require.NoError(t, err)
	assert.Nil(t, out)

	// Meets threshold_min.
	in5 := randomPayload(t)
	out, err = m.ConsumeReal(in5, "5", now)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "5", out.Checkpoint)
	assert.Equal(t, in5, out.Messages[0])
	assert.NotEqual(t, out.Messages[0], out.Messages[1])
}

func TestOnlyCoverMessagesFiring(t *testing.T) {
	now := time.Now()
	m, err := New(testConfig(), genCover, now)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		out, err := m.ConsumeCover(now)
		require.NoError(t, err)
		assert.Nil(t, out)
	}

	out, err := m.ConsumeCover(now)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Len(t, out.Messages, 2)
	assert.NotEqual(t, out.Messages[0], out.Messages[1])
	assert.False(t, out.HasRealCheckpoint)
	assert.Empty(t, out.Checkpoint)
}

func TestBufferedCountReflectsUndrainedReal(t *testing.T) {
	now := time.Now()
	m, err := New(testConfig(), genCover, now)
	require.NoError(t, err)

	_, err = m.ConsumeReal(randomPayload(t), "1", now)
	require.NoError(t, err)
	assert.Equal(t, 1, m.BufferedCount())
}

func TestConsumeRealRejectsWrongPayloadSize(t *testing.T) {
	now := time.Now()
	m, err := New(testConfig(), genCover, now)
	require.NoError(t, err)

	_, err = m.ConsumeReal([]byte("short"), "1", now)
	assert.Error(t, err)
}
