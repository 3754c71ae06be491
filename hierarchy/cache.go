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
	"sync"
	"time"
)

// Fetcher retrieves a fresh Input snapshot, typically from the public-keys
// API endpoint. now is passed explicitly so verification is deterministic.
type Fetcher func(now time.Time) (Input, error)

// Cache holds a read-mostly Hierarchy rebuilt from Fetcher on a timer, or
// on demand after a known-dirty event (a rotation just published). It
// mirrors the ticker-plus-RWMutex shape used elsewhere in this module for
// other periodically-refreshed, concurrently-read state.
type Cache struct {
	fetch    Fetcher
	interval time.Duration

	mu      sync.RWMutex
	current Hierarchy

	stop chan struct{}
	once sync.Once
}

// NewCache builds a Cache that refreshes every interval once Start is
// called. An initial fetch is performed synchronously so Get never
// observes a zero-value Hierarchy after construction succeeds.
func NewCache(fetch Fetcher, interval time.Duration, now time.Time) (*Cache, error) {
	c := &Cache{fetch: fetch, interval: interval, stop: make(chan struct{})}
	if err := c.refresh(now); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cache) refresh(now time.Time) error {
	input, err := c.fetch(now)
	if err != nil {
		return err
	}
	h := Build(input, now)
	c.mu.Lock()
	c.current = h
	c.mu.Unlock()
	return nil
}

// Start launches the background refresh loop. Call Stop to release it.
func (c *Cache) Start() {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = c.refresh(time.Now().UTC())
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop halts the background refresh loop. Safe to call more than once.
func (c *Cache) Stop() {
	c.once.Do(func() { close(c.stop) })
}

// Refresh forces an immediate rebuild, for use after a known-dirty event
// such as a local key rotation this process just published.
func (c *Cache) Refresh(now time.Time) error {
	return c.refresh(now)
}

// Get returns the current verified hierarchy snapshot.
func (c *Cache) Get() Hierarchy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}
