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

// Package mixer implements the CoverNode's mixing engine: a bounded FIFO
// buffer of real messages per direction, firing on a threshold-or-timeout
// rule and padding its output with freshly generated cover traffic so the
// CoverNode's emission rate is a predictable function of time and input
// volume rather than of real traffic.
package mixer

import (
	"fmt"
	"sync"
	"time"
)

// Config is a mixing strategy's tunable parameters.
type Config struct {
	// ThresholdMin is the minimum seen inputs required to fire on timeout.
	ThresholdMin int
	// ThresholdMax is the seen-inputs count that forces a fire regardless
	// of elapsed time.
	ThresholdMax int
	// Timeout is how long since the last output must elapse before
	// ThresholdMin alone can trigger a fire.
	Timeout time.Duration
	// OutputSize is the exact number of messages emitted per fire.
	OutputSize int
	// PayloadSize is the fixed byte length of both real and freshly
	// generated cover payloads, so the two are indistinguishable by size.
	PayloadSize int
	// MetricsName labels this mixer's counters (user-to-journalist vs
	// journalist-to-user direction).
	MetricsName string
}

func (c Config) validate() error {
	if c.ThresholdMin <= 0 || c.ThresholdMax < c.ThresholdMin {
		return fmt.Errorf("coverdrop: invalid mixer thresholds min=%d max=%d", c.ThresholdMin, c.ThresholdMax)
	}
	if c.OutputSize <= 0 {
		return fmt.Errorf("coverdrop: invalid mixer output size %d", c.OutputSize)
	}
	if c.PayloadSize <= 0 {
		return fmt.Errorf("coverdrop: invalid mixer payload size %d", c.PayloadSize)
	}
	return nil
}

// bufferedMessage is a real payload paired with the checkpoint it should
// advance once emitted.
type bufferedMessage struct {
	payload    []byte
	checkpoint string
}

// CoverGenerator produces a fresh, computationally indistinguishable-from-
// real cover payload of exactly Config.PayloadSize bytes.
type CoverGenerator func() ([]byte, error)

// Output is what a fire produces: exactly Config.OutputSize messages, and
// the checkpoint of the last real message drained (empty if the fire
// emitted only cover).
type Output struct {
	Messages   [][]byte
	Checkpoint string
	HasRealCheckpoint bool
}

// Mixer holds one direction's mixing state. In a CoverNode each Mixer is
// owned by one task; the exported methods also lock an internal mutex, so
// concurrent calls from several goroutines are safe.
type Mixer struct {
	cfg       Config
	genCover  CoverGenerator

	mu                  sync.Mutex
	seenMessages        int
	lastOutputTimestamp time.Time
	buffer              []bufferedMessage
}

// New builds a Mixer. now seeds lastOutputTimestamp so the first timeout
// window starts counting from construction.
func New(cfg Config, genCover CoverGenerator, now time.Time) (*Mixer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Mixer{cfg: cfg, genCover: genCover, lastOutputTimestamp: now}, nil
}

func (m *Mixer) shouldFireLocked(now time.Time) bool {
	if m.seenMessages >= m.cfg.ThresholdMax {
		return true
	}
	return m.seenMessages >= m.cfg.ThresholdMin && now.Sub(m.lastOutputTimestamp) >= m.cfg.Timeout
}

// ConsumeReal feeds a real message into the mixer's FIFO buffer and
// returns the fire's output if this input pushed the mixer over its
// firing rule.
func (m *Mixer) ConsumeReal(payload []byte, checkpoint string, now time.Time) (*Output, error) {
	if len(payload) != m.cfg.PayloadSize {
		return nil, fmt.Errorf("coverdrop: mixer payload length %d, want %d", len(payload), m.cfg.PayloadSize)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffer = append(m.buffer, bufferedMessage{payload: payload, checkpoint: checkpoint})
	m.seenMessages++
	if !m.shouldFireLocked(now) {
		return nil, nil
	}
	return m.fireLocked(now)
}

// ConsumeCover counts a cover input without buffering it, firing if the
// count crosses the threshold.
func (m *Mixer) ConsumeCover(now time.Time) (*Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seenMessages++
	if !m.shouldFireLocked(now) {
		return nil, nil
	}
	return m.fireLocked(now)
}

// fireLocked drains the oldest min(OutputSize, len(buffer)) real messages,
// pads the remainder with fresh cover, and resets the counters. Caller
// must hold m.mu.
func (m *Mixer) fireLocked(now time.Time) (*Output, error) {
	drainCount := m.cfg.OutputSize
	if drainCount > len(m.buffer) {
		drainCount = len(m.buffer)
	}
	drained := m.buffer[:drainCount]
	m.buffer = m.buffer[drainCount:]

	out := &Output{Messages: make([][]byte, 0, m.cfg.OutputSize)}
	for _, d := range drained {
		out.Messages = append(out.Messages, d.payload)
	}
	if drainCount > 0 {
		out.Checkpoint = drained[drainCount-1].checkpoint
		out.HasRealCheckpoint = true
	}
	for len(out.Messages) < m.cfg.OutputSize {
		cover, err := m.genCover()
		if err != nil {
			return nil, fmt.Errorf("coverdrop: generating cover fill: %w", err)
		}
		if len(cover) != m.cfg.PayloadSize {
			return nil, fmt.Errorf("coverdrop: cover generator returned %d bytes, want %d", len(cover), m.cfg.PayloadSize)
		}
		out.Messages = append(out.Messages, cover)
	}

	m.seenMessages = 0
	m.lastOutputTimestamp = now
	return out, nil
}

// BufferedCount reports how many real messages currently sit in the
// buffer, for metrics and tests.
func (m *Mixer) BufferedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffer)
}
